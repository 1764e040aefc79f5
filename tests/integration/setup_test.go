package integration

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"

	"pennywise/internal/auth"
	"pennywise/internal/config"
	"pennywise/internal/database"
	"pennywise/internal/logger"
	"pennywise/internal/mail"
	"pennywise/internal/observability"
	"pennywise/internal/pagination"
	"pennywise/internal/server"
	"pennywise/internal/services"
	"pennywise/internal/validator"
)

// testApp holds the full application stack for integration tests.
type testApp struct {
	DB     *database.Manager
	Router *gin.Engine
	Mail   *outbox
}

// outbox records every message handed to the mail layer.
type outbox struct {
	mu   sync.Mutex
	sent []mail.Message
}

func (o *outbox) Send(_ context.Context, msg mail.Message) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.sent = append(o.sent, msg)
	return nil
}

func (o *outbox) messages() []mail.Message {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]mail.Message(nil), o.sent...)
}

// dbCounter ensures each test gets a unique in-memory database.
var dbCounter atomic.Int64

func init() {
	gin.SetMode(gin.TestMode)
	logger.Init("test")
	validator.Register()
}

// setupApp creates a full application stack backed by an isolated in-memory SQLite.
func setupApp(t *testing.T) *testApp {
	t.Helper()

	n := dbCounter.Add(1)
	dbManager, err := database.NewManager(context.Background(), config.DatabaseConfig{
		Driver: "sqlite",
		URL:    fmt.Sprintf("file:integration%d?mode=memory&cache=shared", n),
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	t.Cleanup(func() { _ = dbManager.Close() })
	if err := dbManager.RunMigrations(); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}

	db := dbManager.DB()
	tokens := auth.NewManager("integration-secret", time.Hour, 24*time.Hour)
	prom := observability.NewProm(prometheus.NewRegistry())
	box := &outbox{}

	auditService := services.NewAuditService(db)
	userService := services.NewUserService(db)
	authService := services.NewAuthService(userService, tokens, services.NewGormRefreshTokenStore(db), auditService)
	transactionService := services.NewTransactionService(db, auditService)
	reportService := services.NewReportService(mail.NewProtectedSender(box, mail.ProtectedConfig{}, prom), auditService)

	router := server.NewRouter(server.Deps{
		Users:          userService,
		Auth:           authService,
		Transactions:   transactionService,
		Reports:        reportService,
		Tokens:         tokens,
		DB:             dbManager,
		Prom:           prom,
		MaxBodyBytes:   1 << 20,
		RequestTimeout: 5 * time.Second,
		PageLimits:     pagination.DefaultLimits,
	})

	return &testApp{DB: dbManager, Router: router, Mail: box}
}

// request makes an HTTP request to the test router and returns the recorder.
func (app *testApp) request(method, path, body, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	app.Router.ServeHTTP(rec, req)
	return rec
}

// parseJSON parses the response body into a map.
func parseJSON(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var result map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("failed to parse JSON: %v\nbody: %s", err, rec.Body.String())
	}
	return result
}

// parseJSONArray parses the response body into a slice of objects.
func parseJSONArray(t *testing.T, rec *httptest.ResponseRecorder) []map[string]interface{} {
	t.Helper()
	var result []map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("failed to parse JSON array: %v\nbody: %s", err, rec.Body.String())
	}
	return result
}

// registerUser registers a new user and returns the access and refresh tokens.
func (app *testApp) registerUser(t *testing.T, email, password string) (accessToken, refreshToken string) {
	t.Helper()
	body := fmt.Sprintf(`{"email":%q,"password":%q}`, email, password)
	rec := app.request(http.MethodPost, "/api/users/register", body, "")
	if rec.Code != http.StatusCreated {
		t.Fatalf("register failed: %d %s", rec.Code, rec.Body.String())
	}
	result := parseJSON(t, rec)
	return result["token"].(string), result["refreshToken"].(string)
}

// loginUser logs in and returns the access and refresh tokens.
func (app *testApp) loginUser(t *testing.T, email, password string) (accessToken, refreshToken string) {
	t.Helper()
	body := fmt.Sprintf(`{"email":%q,"password":%q}`, email, password)
	rec := app.request(http.MethodPost, "/api/users/login", body, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("login failed: %d %s", rec.Code, rec.Body.String())
	}
	result := parseJSON(t, rec)
	return result["token"].(string), result["refreshToken"].(string)
}

// createExpense creates a transaction and returns its id.
func (app *testApp) createExpense(t *testing.T, token, body string) string {
	t.Helper()
	rec := app.request(http.MethodPost, "/api/expenses", body, token)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create failed: %d %s", rec.Code, rec.Body.String())
	}
	return parseJSON(t, rec)["id"].(string)
}
