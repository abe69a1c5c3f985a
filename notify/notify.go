// Package notify delivers customer e-mail.
package notify

import (
	"context"
	"fmt"
	"log"
	"net/smtp"
	"strings"
	"time"

	"bankinghub/models"
)

type Message struct {
	To      string
	Subject string
	Body    string
}

// Mailer delivers one message.
type Mailer interface {
	Send(ctx context.Context, m Message) error
}

// SMTP sends plain-text mail through a relay.
type SMTP struct {
	Addr     string
	From     string
	Username string
	Password string
}

func (s SMTP) Send(ctx context.Context, m Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	host := s.Addr
	if i := strings.LastIndex(host, ":"); i >= 0 {
		host = host[:i]
	}
	var auth smtp.Auth
	if s.Username != "" {
		auth = smtp.PlainAuth("", s.Username, s.Password, host)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", s.From)
	fmt.Fprintf(&b, "To: %s\r\n", m.To)
	fmt.Fprintf(&b, "Subject: %s\r\n", m.Subject)
	b.WriteString("MIME-Version: 1.0\r\nContent-Type: text/plain; charset=UTF-8\r\n\r\n")
	b.WriteString(m.Body)
	if err := smtp.SendMail(s.Addr, auth, s.From, []string{m.To}, []byte(b.String())); err != nil {
		return fmt.Errorf("send mail to %s: %w", m.To, err)
	}
	return nil
}

// Log writes messages to the process log instead of sending them.
type Log struct{}

func (Log) Send(_ context.Context, m Message) error {
	log.Printf("mail to %s: %s", m.To, m.Subject)
	return nil
}

// Deliver sends m in the background. Failures are logged only.
func Deliver(m Mailer, msg Message) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := m.Send(ctx, msg); err != nil {
			log.Printf("deliver %q to %s: %v", msg.Subject, msg.To, err)
		}
	}()
}

// Welcome builds the account-ready mail sent after registration.
func Welcome(bankName string, u models.User, a models.Account) Message {
	var b strings.Builder
	fmt.Fprintf(&b, "Dear %s,\n\n", u.FullName())
	fmt.Fprintf(&b, "Welcome to %s. Your account is ready.\n\n", bankName)
	fmt.Fprintf(&b, "Account name:   %s\n", a.Name)
	fmt.Fprintf(&b, "Account type:   %s\n", strings.ReplaceAll(string(a.Type), "_", " "))
	fmt.Fprintf(&b, "Account number: %s\n", a.AccountNumber)
	fmt.Fprintf(&b, "Opening balance: %s\n\n", a.Balance.StringFixed(2))
	fmt.Fprintf(&b, "Thank you for banking with %s.\n", bankName)
	return Message{
		To:      u.Email,
		Subject: "Welcome to " + bankName + " - Your Account is Ready!",
		Body:    b.String(),
	}
}
