package notify

import (
	"bytes"
	"context"
	"fmt"
	"mime"
	"net/smtp"
	"strings"
	"time"
)

type SMTPMailer struct {
	addr string
	from string
	auth smtp.Auth
	now  func() time.Time
	send func(addr string, auth smtp.Auth, from string, to []string, msg []byte) error
}

// NewSMTPMailer uses PLAIN auth when username is set. net/smtp upgrades to STARTTLS
// when the server offers it and refuses PLAIN auth over an unencrypted remote link.
func NewSMTPMailer(host string, port int, username string, password string, from string) *SMTPMailer {
	var auth smtp.Auth
	if username != "" {
		auth = smtp.PlainAuth("", username, password, host)
	}
	return &SMTPMailer{
		addr: fmt.Sprintf("%s:%d", host, port),
		from: from,
		auth: auth,
		now:  time.Now,
		send: smtp.SendMail,
	}
}

func (mailer *SMTPMailer) Send(ctx context.Context, message Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if strings.ContainsAny(message.To, "\r\n") {
		return fmt.Errorf("invalid recipient %q", message.To)
	}
	payload := buildMessage(mailer.from, message, mailer.now())
	if err := mailer.send(mailer.addr, mailer.auth, mailer.from, []string{message.To}, payload); err != nil {
		return fmt.Errorf("send mail via %s: %w", mailer.addr, err)
	}
	return nil
}

func buildMessage(from string, message Message, now time.Time) []byte {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "From: %s\r\n", from)
	fmt.Fprintf(&buf, "To: %s\r\n", message.To)
	fmt.Fprintf(&buf, "Subject: %s\r\n", mime.QEncoding.Encode("utf-8", message.Subject))
	fmt.Fprintf(&buf, "Date: %s\r\n", now.UTC().Format(time.RFC1123Z))
	buf.WriteString("MIME-Version: 1.0\r\n")
	buf.WriteString("Content-Type: text/plain; charset=utf-8\r\n")
	buf.WriteString("\r\n")
	buf.WriteString(message.Body)
	return buf.Bytes()
}
