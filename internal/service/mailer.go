package service

import (
	"context"
	"log"
	"net/url"
	"time"

	"github.com/iliyamo/travel-planner/internal/queue"
)

// Mailer builds verification and reset links against the frontend base
// URL and hands them to the message broker for asynchronous delivery.
// Publishing failures are logged and returned; callers on
// enumeration-sensitive paths swallow them.
type Mailer struct {
	frontendURL string
}

func NewMailer(frontendURL string) *Mailer {
	return &Mailer{frontendURL: frontendURL}
}

// SendVerification queues an email-verification message carrying the
// frontend link with the raw token.
func (m *Mailer) SendVerification(ctx context.Context, to, name, token string) error {
	return m.publish(ctx, queue.EmailMessage{
		To:      to,
		Name:    name,
		Kind:    queue.MailKindVerification,
		Subject: "Verify your email address",
		Link:    m.link("/verify-email", token),
	})
}

// SendPasswordReset queues a password-reset message.  The raw token
// appears only here and in the client's mailbox; storage holds its
// hash.
func (m *Mailer) SendPasswordReset(ctx context.Context, to, name, token string) error {
	return m.publish(ctx, queue.EmailMessage{
		To:      to,
		Name:    name,
		Kind:    queue.MailKindPasswordReset,
		Subject: "Reset your password",
		Link:    m.link("/reset-password", token),
	})
}

func (m *Mailer) publish(ctx context.Context, msg queue.EmailMessage) error {
	msg.QueuedAt = time.Now().UTC().Format(time.RFC3339)
	if err := queue.PublishEmail(ctx, msg); err != nil {
		log.Printf("mailer: publish %s to %s failed: %v", msg.Kind, msg.To, err)
		return err
	}
	return nil
}

func (m *Mailer) link(path, token string) string {
	return m.frontendURL + path + "?token=" + url.QueryEscape(token)
}
