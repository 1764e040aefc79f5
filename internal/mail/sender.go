// Package mail delivers outgoing email, such as expense reports, through an
// SMTP relay.
package mail

import (
	"context"
	"errors"
)

// ErrCircuitOpen is returned without contacting the relay while it is
// considered unhealthy.
var ErrCircuitOpen = errors.New("mail: circuit breaker open")

// Attachment is a file attached to a Message.
type Attachment struct {
	Filename    string
	ContentType string
	Data        []byte
}

// Message is a plain-text email with optional attachments.
type Message struct {
	To          string
	Subject     string
	Body        string
	Attachments []Attachment
}

// Sender dispatches a message. Implementations must honour ctx cancellation.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}
