// Package queue defines message payloads exchanged over the message
// broker and the background consumer that delivers them.
package queue

// Kinds of outbound mail.
const (
	MailKindVerification  = "verification"
	MailKindPasswordReset = "password_reset"
)

// EmailMessage is the payload published to the email.outbound queue.
// The HTTP request that triggered the mail does not wait for delivery;
// the consumer picks messages up asynchronously.
type EmailMessage struct {
	To       string `json:"to"`
	Name     string `json:"name"`
	Kind     string `json:"kind"`
	Subject  string `json:"subject"`
	Link     string `json:"link"`
	QueuedAt string `json:"queued_at"`
}
