// Package mail delivers account emails. Handlers enqueue messages on an
// Outbox; the mailer command drains the queue and hands each message to a
// Sender.
package mail

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/smtp"
	"strings"
)

type Message struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

func (m Message) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func MessageFromJSON(data []byte) (Message, error) {
	var m Message
	if err := json.Unmarshal(data, &m); err != nil {
		return Message{}, err
	}
	if m.To == "" {
		return Message{}, fmt.Errorf("message has no recipient")
	}
	return m, nil
}

// PasswordReset builds the reset email for a link that is valid for a
// limited time.
func PasswordReset(to, link string) Message {
	return Message{
		To:      to,
		Subject: "Password Reset Request",
		Body:    fmt.Sprintf("Click the link to reset your password: %s", link),
	}
}

// Outbox accepts messages for later delivery.
type Outbox interface {
	Enqueue(ctx context.Context, m Message) error
	Close() error
}

type Sender interface {
	Send(ctx context.Context, m Message) error
}

// Direct delivers on Enqueue. Used when no broker is configured.
type Direct struct {
	Sender Sender
}

func (d Direct) Enqueue(ctx context.Context, m Message) error {
	return d.Sender.Send(ctx, m)
}

func (d Direct) Close() error { return nil }

// LogSender writes messages to the log instead of sending them.
type LogSender struct{}

func (LogSender) Send(ctx context.Context, m Message) error {
	log.Printf("INFO: Mail to %s - %s: %s", m.To, m.Subject, m.Body)
	return nil
}

type SMTPSender struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

func (s SMTPSender) Send(ctx context.Context, m Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	var a smtp.Auth
	if s.Username != "" {
		a = smtp.PlainAuth("", s.Username, s.Password, s.Host)
	}
	addr := fmt.Sprintf("%s:%d", s.Host, s.Port)
	if err := smtp.SendMail(addr, a, s.From, []string{m.To}, s.render(m)); err != nil {
		return fmt.Errorf("send mail to %s: %w", m.To, err)
	}
	return nil
}

func (s SMTPSender) render(m Message) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", s.From)
	fmt.Fprintf(&b, "To: %s\r\n", m.To)
	fmt.Fprintf(&b, "Subject: %s\r\n", m.Subject)
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=\"utf-8\"\r\n\r\n")
	b.WriteString(m.Body)
	b.WriteString("\r\n")
	return []byte(b.String())
}
