// Package mailer delivers rendered e-mail through SendGrid or, without an API key, to the log.
package mailer

import (
	"context"
	"errors"
	"net/mail"
)

// ErrNoRecipient is returned for messages without a To address.
var ErrNoRecipient = errors.New("mailer: message has no recipient")

// Message is a rendered e-mail.
type Message struct {
	To          mail.Address
	Subject     string
	TextContent string
	HTMLContent string
}

// Sender delivers messages.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

func validate(msg Message) error {
	if msg.To.Address == "" {
		return ErrNoRecipient
	}
	return nil
}
