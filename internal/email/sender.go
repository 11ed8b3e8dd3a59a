// Package email delivers transactional mail over SMTP.
package email

import "context"

// Sender delivers a single HTML email. Implementations must be safe for
// concurrent use; delivery failures are the caller's to log, never to
// propagate into request paths.
type Sender interface {
	Send(ctx context.Context, toEmail, subject, htmlContent string) error
}

// NopSender is used when email is disabled.
type NopSender struct{}

func (NopSender) Send(context.Context, string, string, string) error { return nil }

var _ Sender = NopSender{}
