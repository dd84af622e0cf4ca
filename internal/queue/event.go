// Package queue carries outbound notifications over the message broker.
// The auth pipeline hands a password-reset email to the Mailer and moves
// on; actual delivery happens on the other side of the queue.
package queue

import "context"

// mailQueueName is the durable queue mail events travel on.
const mailQueueName = "mail.send"

// MailEvent is one outbound email. The body may contain a one-time secret,
// so events must never be logged verbatim.
type MailEvent struct {
	MessageID string `json:"message_id"`
	To        string `json:"to"`
	Subject   string `json:"subject"`
	Body      string `json:"body"`
	QueuedAt  string `json:"queued_at"`
}

// Mailer dispatches an outbound email. Implementations may queue rather
// than deliver, but a dispatch failure must be reported: the caller needs
// to know the message is not on its way.
type Mailer interface {
	Send(ctx context.Context, to, subject, body string) error
}
