package services

import (
	"context"
	"encoding/base64"
	"errors"
	"testing"

	"pennywise/internal/mail"
	"pennywise/internal/testutil"
)

type captureSender struct {
	err  error
	sent []mail.Message
}

func (c *captureSender) Send(_ context.Context, msg mail.Message) error {
	if c.err != nil {
		return c.err
	}
	c.sent = append(c.sent, msg)
	return nil
}

var samplePDF = base64.StdEncoding.EncodeToString([]byte("%PDF-1.4 report"))

func TestSendReport(t *testing.T) {
	ctx := context.Background()

	t.Run("sends_one_pdf_to_recipient", func(t *testing.T) {
		sender := &captureSender{}
		audit := &recordingAudit{}
		svc := NewReportService(sender, audit)

		err := svc.SendReport(ctx, "user-1", "a@x.com", ReportRequest{Data: samplePDF})
		testutil.AssertNoError(t, err)

		if len(sender.sent) != 1 {
			t.Fatalf("expected exactly one email, got %d", len(sender.sent))
		}
		msg := sender.sent[0]
		if msg.To != "a@x.com" {
			t.Errorf("expected recipient a@x.com, got %s", msg.To)
		}
		if msg.Subject != "Your Expense Report" {
			t.Errorf("unexpected subject %q", msg.Subject)
		}
		if len(msg.Attachments) != 1 {
			t.Fatalf("expected one attachment, got %d", len(msg.Attachments))
		}
		att := msg.Attachments[0]
		if att.Filename != "expense_report.pdf" || att.ContentType != "application/pdf" {
			t.Errorf("unexpected attachment %s (%s)", att.Filename, att.ContentType)
		}
		if string(att.Data) != "%PDF-1.4 report" {
			t.Errorf("attachment not decoded: %q", att.Data)
		}
		if len(audit.actions) != 1 || audit.actions[0] != "EXPORT_REPORT" {
			t.Errorf("expected EXPORT_REPORT audit entry, got %v", audit.actions)
		}
	})

	t.Run("xlsx_with_custom_name", func(t *testing.T) {
		sender := &captureSender{}
		svc := NewReportService(sender, &recordingAudit{})

		err := svc.SendReport(ctx, "user-1", "a@x.com", ReportRequest{Data: samplePDF, Format: "xlsx", FileName: "../../etc/March report.pdf"})
		testutil.AssertNoError(t, err)

		att := sender.sent[0].Attachments[0]
		if att.Filename != "March_report.xlsx" {
			t.Errorf("expected sanitised name March_report.xlsx, got %s", att.Filename)
		}
	})

	t.Run("data_url_prefix", func(t *testing.T) {
		sender := &captureSender{}
		svc := NewReportService(sender, &recordingAudit{})

		err := svc.SendReport(ctx, "user-1", "a@x.com", ReportRequest{Data: "data:application/pdf;base64," + samplePDF})
		testutil.AssertNoError(t, err)
		if len(sender.sent) != 1 {
			t.Fatalf("expected one email, got %d", len(sender.sent))
		}
	})

	tests := []struct {
		name      string
		recipient string
		req       ReportRequest
		wantCode  string
	}{
		{"missing_recipient", "", ReportRequest{Data: samplePDF}, "INVALID_INPUT"},
		{"empty_payload", "a@x.com", ReportRequest{}, "INVALID_REPORT"},
		{"not_base64", "a@x.com", ReportRequest{Data: "%%%not-base64%%%"}, "INVALID_REPORT"},
		{"unknown_format", "a@x.com", ReportRequest{Data: samplePDF, Format: "docx"}, "INVALID_REPORT"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sender := &captureSender{}
			svc := NewReportService(sender, &recordingAudit{})

			err := svc.SendReport(ctx, "user-1", tt.recipient, tt.req)
			testutil.AssertAppError(t, err, tt.wantCode)
			if len(sender.sent) != 0 {
				t.Errorf("expected no email, got %d", len(sender.sent))
			}
		})
	}

	t.Run("relay_failure", func(t *testing.T) {
		audit := &recordingAudit{}
		svc := NewReportService(&captureSender{err: errors.New("connection refused")}, audit)

		err := svc.SendReport(ctx, "user-1", "a@x.com", ReportRequest{Data: samplePDF})
		testutil.AssertAppError(t, err, "DELIVERY_FAILED")
		if len(audit.actions) != 0 {
			t.Errorf("failed delivery must not be audited as an export, got %v", audit.actions)
		}
	})

	t.Run("circuit_open", func(t *testing.T) {
		svc := NewReportService(&captureSender{err: mail.ErrCircuitOpen}, &recordingAudit{})

		err := svc.SendReport(ctx, "user-1", "a@x.com", ReportRequest{Data: samplePDF})
		testutil.AssertAppError(t, err, "DELIVERY_FAILED")
		if !errors.Is(err, mail.ErrCircuitOpen) {
			t.Error("expected the circuit error to stay reachable with errors.Is")
		}
	})
}

func TestDecodeReport(t *testing.T) {
	binary := []byte{0xfb, 0xff, 0x01}

	tests := []struct {
		name  string
		input string
		want  []byte
	}{
		{"padded", "JVBERi0xLjQ=", []byte("%PDF-1.4")},
		{"unpadded", "JVBERi0xLjQ", []byte("%PDF-1.4")},
		{"url_safe", base64.URLEncoding.EncodeToString(binary), binary},
		{"url_safe_unpadded", base64.RawURLEncoding.EncodeToString(binary[:2]), binary[:2]},
		{"data_url", "data:application/pdf;base64,JVBERi0xLjQ", []byte("%PDF-1.4")},
		{"line_wrapped", "JVBE\nRi0x LjQ=", []byte("%PDF-1.4")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := decodeReport(tt.input)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if string(got) != string(tt.want) {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}

	if _, err := decodeReport("%%%not-base64%%%"); err == nil {
		t.Error("expected invalid input to be rejected")
	}
}

func TestSendReport_UnpaddedPayload(t *testing.T) {
	sender := &captureSender{}
	svc := NewReportService(sender, &recordingAudit{})

	err := svc.SendReport(context.Background(), "user-1", "a@x.com", ReportRequest{Data: "JVBERi0xLjQ"})
	testutil.AssertNoError(t, err)
	if len(sender.sent) != 1 {
		t.Fatalf("expected one email, got %d", len(sender.sent))
	}
	if got := string(sender.sent[0].Attachments[0].Data); got != "%PDF-1.4" {
		t.Errorf("expected decoded attachment, got %q", got)
	}
}
