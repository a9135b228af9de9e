// Package mail sends plain-text notification emails over SMTP.
package mail

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"
)

// Sender delivers mail through a single SMTP relay.
type Sender struct {
	addr string
	from string
	send func(addr, from string, to []string, msg []byte) error
}

// NewSender builds a sender for the given relay host and port.
func NewSender(host string, port int, from string) *Sender {
	return &Sender{
		addr: fmt.Sprintf("%s:%d", host, port),
		from: from,
		send: func(addr, from string, to []string, msg []byte) error {
			return smtp.SendMail(addr, nil, from, to, msg)
		},
	}
}

// SendEmail delivers one plain-text message.
func (s *Sender) SendEmail(ctx context.Context, address, subject, body string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	var msg strings.Builder
	fmt.Fprintf(&msg, "From: %s\r\n", s.from)
	fmt.Fprintf(&msg, "To: %s\r\n", address)
	fmt.Fprintf(&msg, "Subject: %s\r\n", subject)
	msg.WriteString("MIME-Version: 1.0\r\nContent-Type: text/plain; charset=\"utf-8\"\r\n\r\n")
	msg.WriteString(body)

	if err := s.send(s.addr, s.from, []string{address}, []byte(msg.String())); err != nil {
		return fmt.Errorf("send mail to %s: %w", address, err)
	}
	return nil
}
