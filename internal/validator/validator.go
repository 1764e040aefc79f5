// Package validator registers custom validation tags with Gin's binding engine
// and turns binding failures into field-level issues.
package validator

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"reflect"
	"strings"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	apperrors "pennywise/internal/errors"
)

// Register registers all custom validators with the Gin binding engine.
// Field names in reported issues follow the json tag, so they match the
// payload the client sent.
func Register() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		v.RegisterTagNameFunc(jsonTagName)
		_ = v.RegisterValidation("transaction_type", validateTransactionType)
		_ = v.RegisterValidation("report_format", validateReportFormat)
	}
}

func jsonTagName(fld reflect.StructField) string {
	for _, tag := range []string{"json", "form"} {
		name, _, _ := strings.Cut(fld.Tag.Get(tag), ",")
		if name == "-" {
			return ""
		}
		if name != "" {
			return name
		}
	}
	return fld.Name
}

func validateTransactionType(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case "Expense", "Income":
		return true
	}
	return false
}

func validateReportFormat(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case "pdf", "xlsx":
		return true
	}
	return false
}

// BindingError converts an error returned by ShouldBind* into an INVALID_INPUT
// AppError carrying one issue per offending field.
func BindingError(err error) *apperrors.AppError {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		issues := make([]apperrors.FieldIssue, 0, len(verrs))
		for _, fe := range verrs {
			issues = append(issues, apperrors.FieldIssue{
				Field:   fe.Field(),
				Message: issueMessage(fe),
				Type:    fe.Tag(),
			})
		}
		return apperrors.WithDetails(apperrors.ErrInvalidInput, "Validation failed", issues)
	}

	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		return apperrors.WithDetails(apperrors.ErrInvalidInput, "Validation failed", []apperrors.FieldIssue{{
			Field:   typeErr.Field,
			Message: fmt.Sprintf("must be a %s", typeErr.Type.String()),
			Type:    "type",
		}})
	}

	if errors.Is(err, io.EOF) {
		return apperrors.WithMessage(apperrors.ErrInvalidInput, "Request body is required")
	}

	return apperrors.WithMessage(apperrors.ErrInvalidInput, "Malformed request body")
}

func issueMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "max":
		return fmt.Sprintf("must be at most %s characters", fe.Param())
	case "min":
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "transaction_type":
		return `must be "Expense" or "Income"`
	case "report_format":
		return `must be "pdf" or "xlsx"`
	case "base64":
		return "must be base64 encoded"
	}
	return fmt.Sprintf("failed %q validation", fe.Tag())
}
