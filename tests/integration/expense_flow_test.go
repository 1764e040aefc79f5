package integration

import (
	"encoding/base64"
	"fmt"
	"net/http"
	"strings"
	"testing"
)

// TestExpenseFlow_EndToEnd walks a user through register, login, create,
// list, update, delete and list again.
func TestExpenseFlow_EndToEnd(t *testing.T) {
	app := setupApp(t)
	app.registerUser(t, "a@x.com", "pw")
	token, _ := app.loginUser(t, "a@x.com", "pw")

	// Step 1: Create
	id := app.createExpense(t, token,
		`{"transactionType":"Expense","amount":42.50,"category":"food","createdAt":"2024-01-01"}`)
	if id == "" {
		t.Fatal("expected transaction id")
	}

	// Step 2: List includes it
	rec := app.request(http.MethodGet, "/api/expenses", "", token)
	if rec.Code != http.StatusOK {
		t.Fatalf("list failed: %d %s", rec.Code, rec.Body.String())
	}
	list := parseJSONArray(t, rec)
	if len(list) != 1 || list[0]["id"] != id {
		t.Fatalf("expected the new transaction in the list, got %v", list)
	}
	if list[0]["amount"] != 42.5 || list[0]["category"] != "food" {
		t.Errorf("unexpected transaction %v", list[0])
	}
	if _, ok := list[0]["amount"].(float64); !ok {
		t.Errorf("expected amount to be a JSON number, got %T", list[0]["amount"])
	}
	if !strings.Contains(rec.Body.String(), `"amount":42.5`) {
		t.Errorf("expected unquoted amount in body, got %s", rec.Body.String())
	}

	// Step 3: Update
	rec = app.request(http.MethodPut, "/api/expenses/"+id, `{"amount":50,"createdAt":"2024-01-02"}`, token)
	if rec.Code != http.StatusOK {
		t.Fatalf("update failed: %d %s", rec.Code, rec.Body.String())
	}
	updated := parseJSON(t, rec)
	if updated["amount"] != float64(50) {
		t.Errorf("expected amount 50, got %v", updated["amount"])
	}
	if updated["createdAt"] != "2024-01-02T00:00:00Z" {
		t.Errorf("expected date 2024-01-02, got %v", updated["createdAt"])
	}
	if updated["category"] != "food" || updated["transactionType"] != "Expense" {
		t.Errorf("omitted fields must keep their values, got %v", updated)
	}

	// Step 4: Delete
	rec = app.request(http.MethodDelete, "/api/expenses/"+id, "", token)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("delete failed: %d", rec.Code)
	}

	// Step 5: List no longer includes it
	rec = app.request(http.MethodGet, "/api/expenses", "", token)
	if got := parseJSONArray(t, rec); len(got) != 0 {
		t.Fatalf("expected empty list, got %v", got)
	}

	// Step 6: Deleting again still succeeds
	rec = app.request(http.MethodDelete, "/api/expenses/"+id, "", token)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected repeated delete to return 204, got %d", rec.Code)
	}
}

func TestExpenseFlow_Validation(t *testing.T) {
	app := setupApp(t)
	token, _ := app.registerUser(t, "v@x.com", "pw")

	tests := []struct {
		name string
		body string
	}{
		{"unknown type", `{"transactionType":"Gift","amount":1,"category":"food","createdAt":"2024-01-01"}`},
		{"missing type", `{"amount":1,"category":"food","createdAt":"2024-01-01"}`},
		{"missing date", `{"transactionType":"Expense","amount":1,"category":"food"}`},
		{"missing amount", `{"transactionType":"Expense","category":"food","createdAt":"2024-01-01"}`},
		{"amount as text", `{"transactionType":"Expense","amount":"lots","category":"food","createdAt":"2024-01-01"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := app.request(http.MethodPost, "/api/expenses", tt.body, token)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d: %s", rec.Code, rec.Body.String())
			}
		})
	}

	rec := app.request(http.MethodGet, "/api/expenses", "", token)
	if got := parseJSONArray(t, rec); len(got) != 0 {
		t.Fatalf("rejected transactions must not be persisted, got %v", got)
	}

	id := app.createExpense(t, token, `{"transactionType":"Income","amount":10,"category":"salary","createdAt":"2024-01-01"}`)
	rec = app.request(http.MethodPut, "/api/expenses/"+id, `{"amount":20}`, token)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected update without date to fail, got %d", rec.Code)
	}
	if msg := parseJSON(t, rec)["message"]; msg != "Date is required for updating a transaction." {
		t.Errorf("unexpected message %v", msg)
	}
}

func TestExpenseFlow_Isolation(t *testing.T) {
	app := setupApp(t)
	alice, _ := app.registerUser(t, "alice@x.com", "pw")
	bob, _ := app.registerUser(t, "bob@x.com", "pw")

	id := app.createExpense(t, alice, `{"transactionType":"Expense","amount":9.99,"category":"books","createdAt":"2024-03-01"}`)
	app.createExpense(t, bob, `{"transactionType":"Expense","amount":1,"category":"coffee","createdAt":"2024-03-01"}`)

	// Bob sees only his own
	rec := app.request(http.MethodGet, "/api/expenses", "", bob)
	list := parseJSONArray(t, rec)
	if len(list) != 1 || list[0]["category"] != "coffee" {
		t.Fatalf("expected only bob's transaction, got %v", list)
	}

	// Bob cannot update Alice's
	rec = app.request(http.MethodPut, "/api/expenses/"+id, `{"amount":0,"createdAt":"2024-03-02"}`, bob)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for a foreign transaction, got %d", rec.Code)
	}

	// Bob's delete is a no-op
	rec = app.request(http.MethodDelete, "/api/expenses/"+id, "", bob)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}

	rec = app.request(http.MethodGet, "/api/expenses", "", alice)
	list = parseJSONArray(t, rec)
	if len(list) != 1 || list[0]["id"] != id || list[0]["amount"] != 9.99 {
		t.Fatalf("alice's transaction must be untouched, got %v", list)
	}
}

func TestExpenseFlow_FiltersAndSummary(t *testing.T) {
	app := setupApp(t)
	token, _ := app.registerUser(t, "s@x.com", "pw")

	app.createExpense(t, token, `{"transactionType":"Income","amount":1000,"category":"salary","createdAt":"2024-01-01"}`)
	app.createExpense(t, token, `{"transactionType":"Expense","amount":30.25,"category":"food","createdAt":"2024-01-15"}`)
	app.createExpense(t, token, `{"transactionType":"Expense","amount":19.75,"category":"food","createdAt":"2024-02-01"}`)

	rec := app.request(http.MethodGet, "/api/expenses?type=Expense&from_date=2024-01-01&to_date=2024-01-31", "", token)
	list := parseJSONArray(t, rec)
	if len(list) != 1 || list[0]["amount"] != 30.25 {
		t.Fatalf("unexpected filtered list %v", list)
	}

	rec = app.request(http.MethodGet, "/api/expenses/summary", "", token)
	if rec.Code != http.StatusOK {
		t.Fatalf("summary failed: %d %s", rec.Code, rec.Body.String())
	}
	summary := parseJSON(t, rec)
	if summary["totalIncome"] != float64(1000) || summary["totalExpense"] != float64(50) || summary["balance"] != float64(950) {
		t.Errorf("unexpected summary %v", summary)
	}
	if summary["count"] != float64(3) {
		t.Errorf("expected count 3, got %v", summary["count"])
	}

	rec = app.request(http.MethodGet, "/api/expenses?page=1&page_size=2", "", token)
	page := parseJSON(t, rec)
	if page["totalItems"] != float64(3) || page["totalPages"] != float64(2) {
		t.Errorf("unexpected page %v", page)
	}
	if data := page["data"].([]interface{}); len(data) != 2 || data[0].(map[string]interface{})["createdAt"] != "2024-02-01T00:00:00Z" {
		t.Errorf("expected newest first, got %v", data)
	}
}

func TestExpenseFlow_ExportToMail(t *testing.T) {
	app := setupApp(t)
	token, _ := app.registerUser(t, "owner@x.com", "pw")
	pdf := []byte("%PDF-1.4 report")

	body := fmt.Sprintf(`{"pdfData":%q,"email":"attacker@evil.com"}`, base64.StdEncoding.EncodeToString(pdf))
	rec := app.request(http.MethodPost, "/api/expenses/export-to-mail", body, token)
	if rec.Code != http.StatusOK {
		t.Fatalf("export failed: %d %s", rec.Code, rec.Body.String())
	}
	if msg := parseJSON(t, rec)["message"]; msg != "Report sent to email successfully!" {
		t.Errorf("unexpected message %v", msg)
	}

	sent := app.Mail.messages()
	if len(sent) != 1 {
		t.Fatalf("expected exactly one email, got %d", len(sent))
	}
	msg := sent[0]
	if msg.To != "owner@x.com" {
		t.Errorf("expected mail to owner@x.com only, got %q", msg.To)
	}
	if msg.Subject != "Your Expense Report" {
		t.Errorf("unexpected subject %q", msg.Subject)
	}
	if len(msg.Attachments) != 1 || string(msg.Attachments[0].Data) != string(pdf) {
		t.Fatalf("unexpected attachments %+v", msg.Attachments)
	}
	if msg.Attachments[0].Filename != "expense_report.pdf" || msg.Attachments[0].ContentType != "application/pdf" {
		t.Errorf("unexpected attachment %s (%s)", msg.Attachments[0].Filename, msg.Attachments[0].ContentType)
	}

	// Invalid payload is rejected without sending anything
	rec = app.request(http.MethodPost, "/api/expenses/export-to-mail", `{"pdfData":"***"}`, token)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for invalid base64, got %d", rec.Code)
	}
	if len(app.Mail.messages()) != 1 {
		t.Error("invalid payload must not be mailed")
	}
}

func TestOperational_HealthReadyMetrics(t *testing.T) {
	app := setupApp(t)

	rec := app.request(http.MethodGet, "/api/health", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected health 200, got %d", rec.Code)
	}
	rec = app.request(http.MethodGet, "/api/ready", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected ready 200, got %d", rec.Code)
	}
	if rec.Header().Get("X-Request-ID") == "" {
		t.Error("expected request id header")
	}

	rec = app.request(http.MethodGet, "/metrics", "", "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "pennywise_http_requests_total") {
		t.Fatalf("expected metrics output, got %d", rec.Code)
	}

	if err := app.DB.Close(); err != nil {
		t.Fatalf("close failed: %v", err)
	}
	rec = app.request(http.MethodGet, "/api/ready", "", "")
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 once the store is gone, got %d", rec.Code)
	}
	rec = app.request(http.MethodGet, "/api/health", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("liveness must not depend on the store, got %d", rec.Code)
	}
}
