package validator

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sampleRequest struct {
	Email  string `json:"email" binding:"required,email"`
	Type   string `json:"transactionType" binding:"omitempty,transaction_type"`
	Format string `json:"format" binding:"omitempty,report_format"`
	Count  int    `json:"count"`
}

func init() {
	gin.SetMode(gin.TestMode)
	Register()
}

func bind(t *testing.T, body string) error {
	t.Helper()
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	c.Request.Header.Set("Content-Type", "application/json")
	var req sampleRequest
	return c.ShouldBindJSON(&req)
}

func TestBindingError_FieldIssues(t *testing.T) {
	err := bind(t, `{"email":"nope","transactionType":"Gift","format":"docx"}`)
	require.Error(t, err)

	appErr := BindingError(err)
	assert.Equal(t, "INVALID_INPUT", appErr.Code)
	assert.Equal(t, http.StatusBadRequest, appErr.StatusCode)
	require.Len(t, appErr.Details, 3)

	byField := map[string]string{}
	for _, d := range appErr.Details {
		byField[d.Field] = d.Type
	}
	assert.Equal(t, "email", byField["email"])
	assert.Equal(t, "transaction_type", byField["transactionType"])
	assert.Equal(t, "report_format", byField["format"])
}

func TestBindingError_Accepts(t *testing.T) {
	for _, body := range []string{
		`{"email":"a@x.com"}`,
		`{"email":"a@x.com","transactionType":"Income","format":"xlsx"}`,
		`{"email":"a@x.com","transactionType":"Expense","format":"pdf"}`,
	} {
		assert.NoError(t, bind(t, body), body)
	}
}

func TestBindingError_Kinds(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		message string
	}{
		{"type_mismatch", `{"email":"a@x.com","count":"three"}`, "Validation failed"},
		{"empty_body", ``, "Request body is required"},
		{"malformed", `{"email":`, "Malformed request body"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := bind(t, tt.body)
			require.Error(t, err)

			appErr := BindingError(err)
			assert.Equal(t, "INVALID_INPUT", appErr.Code)
			assert.Equal(t, tt.message, appErr.Message)
		})
	}
}
