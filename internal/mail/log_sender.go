package mail

import (
	"context"

	"pennywise/internal/logger"
)

// LogSender records messages in the log instead of sending them. It is used
// when no relay credentials are configured.
type LogSender struct{}

// NewLogSender creates a LogSender.
func NewLogSender() *LogSender { return &LogSender{} }

// Send logs the recipient, subject and attachment names and sizes of msg.
func (s *LogSender) Send(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	files := make([]string, 0, len(msg.Attachments))
	size := 0
	for _, a := range msg.Attachments {
		files = append(files, a.Filename)
		size += len(a.Data)
	}

	logger.FromContext(ctx).Infow("mail.dispatch skipped, no relay configured",
		"to", msg.To,
		"subject", msg.Subject,
		"attachments", files,
		"bytes", size,
	)
	return nil
}
