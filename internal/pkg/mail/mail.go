package mail

import (
	"context"
	"io"
)

// Message represents an email payload.
type Message struct {
	// From overrides the sender configured on the implementation.
	From    string
	To      []string
	Cc      []string
	Bcc     []string
	Subject string
	// TextBody is sent as the plain-text alternative.
	TextBody string
	// HTMLBody is optional.
	HTMLBody string
}

func (m Message) recipients() int {
	return len(m.To) + len(m.Cc) + len(m.Bcc)
}

// Mail abstracts an email provider (SMTP, third-party API, etc).
type Mail interface {
	io.Closer
	// Send dispatches the given message using the underlying provider.
	Send(ctx context.Context, msg Message) error
}
