package services

import (
	"context"
	"encoding/base64"
	"path/filepath"
	"strings"

	apperrors "pennywise/internal/errors"
	"pennywise/internal/logger"
	"pennywise/internal/mail"
)

const (
	reportSubject = "Your Expense Report"
	reportBody    = "Please find your expense report in the attachment."
	reportBase    = "expense_report"
)

type reportFormat struct {
	ext         string
	contentType string
}

var reportFormats = map[string]reportFormat{
	"pdf":  {ext: ".pdf", contentType: "application/pdf"},
	"xlsx": {ext: ".xlsx", contentType: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"},
}

// reportService emails client-rendered reports.
type reportService struct {
	sender mail.Sender
	audit  AuditServicer
}

// NewReportService creates a new ReportServicer.
func NewReportService(sender mail.Sender, audit AuditServicer) ReportServicer {
	return &reportService{sender: sender, audit: audit}
}

// SendReport emails the decoded report to recipient, which must come from the
// caller's verified identity.
func (s *reportService) SendReport(ctx context.Context, userID, recipient string, req ReportRequest) error {
	if strings.TrimSpace(recipient) == "" {
		return apperrors.ErrMissingEmail
	}

	format := strings.ToLower(strings.TrimSpace(req.Format))
	if format == "" {
		format = "pdf"
	}
	rf, ok := reportFormats[format]
	if !ok {
		return apperrors.WithMessage(apperrors.ErrInvalidReport, `Report format must be "pdf" or "xlsx"`)
	}

	data, err := decodeReport(req.Data)
	if err != nil || len(data) == 0 {
		return apperrors.ErrInvalidReport
	}

	msg := mail.Message{
		To:      recipient,
		Subject: reportSubject,
		Body:    reportBody,
		Attachments: []mail.Attachment{{
			Filename:    reportFileName(req.FileName, rf.ext),
			ContentType: rf.contentType,
			Data:        data,
		}},
	}

	if err := s.sender.Send(ctx, msg); err != nil {
		logger.FromContext(ctx).Errorw("report delivery failed", "error", err, "format", format)
		return apperrors.Wrap(apperrors.ErrDeliveryFailed, err)
	}

	s.audit.Log(ctx, userID, "EXPORT_REPORT", "report", format, ipFromContext(ctx), map[string]any{
		"bytes": len(data),
	})
	return nil
}

// reportEncodings are tried in order: padded and unpadded, standard and URL-safe alphabets.
var reportEncodings = []*base64.Encoding{
	base64.StdEncoding,
	base64.RawStdEncoding,
	base64.URLEncoding,
	base64.RawURLEncoding,
}

// decodeReport decodes base64 in any of reportEncodings. It tolerates a data
// URL prefix ("data:application/pdf;base64,...") and line-wrapped input.
func decodeReport(s string) ([]byte, error) {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "data:") {
		if _, rest, ok := strings.Cut(s, ","); ok {
			s = rest
		}
	}
	s = strings.Join(strings.Fields(s), "")

	var firstErr error
	for _, enc := range reportEncodings {
		data, err := enc.DecodeString(s)
		if err == nil {
			return data, nil
		}
		if firstErr == nil {
			firstErr = err
		}
	}
	return nil, firstErr
}

// reportFileName returns a safe attachment name with the format's extension.
func reportFileName(requested, ext string) string {
	name := filepath.Base(strings.ReplaceAll(requested, `\`, "/"))
	name = strings.TrimSuffix(name, filepath.Ext(name))

	name = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		case r == ' ' || r == '.':
			return '_'
		}
		return -1
	}, name)

	if name == "" || strings.Trim(name, "_") == "" {
		name = reportBase
	}
	return name + ext
}
