// Package notify delivers verification and password reset tokens to account owners.
package notify

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/terraincognita07/actiontracker/internal/models"
)

type Message struct {
	To      string
	Subject string
	Body    string
}

type Mailer interface {
	Send(ctx context.Context, message Message) error
}

// EmailNotifier turns raw tokens into links and mails them.
type EmailNotifier struct {
	mailer  Mailer
	baseURL string
}

func NewEmailNotifier(mailer Mailer, baseURL string) *EmailNotifier {
	return &EmailNotifier{mailer: mailer, baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/")}
}

func (notifier *EmailNotifier) SendVerification(ctx context.Context, user models.PublicUser, token string) error {
	link := notifier.link("/api/auth/verify-email", token)
	return notifier.mailer.Send(ctx, Message{
		To:      user.Email,
		Subject: "Confirm your email address",
		Body: fmt.Sprintf("Hello %s,\r\n\r\nConfirm your email address by opening the link below:\r\n\r\n%s\r\n",
			user.Username, link),
	})
}

func (notifier *EmailNotifier) SendPasswordReset(ctx context.Context, user models.PublicUser, token string) error {
	return notifier.mailer.Send(ctx, Message{
		To:      user.Email,
		Subject: "Reset your password",
		Body: fmt.Sprintf("Hello %s,\r\n\r\nUse this code to reset your password within the next hour:\r\n\r\n%s\r\n\r\nIf you did not ask for a reset you can ignore this message.\r\n",
			user.Username, token),
	})
}

func (notifier *EmailNotifier) link(path string, token string) string {
	return notifier.baseURL + path + "?" + url.Values{"token": []string{token}}.Encode()
}

// LogNotifier records that a token was issued without revealing it. It stands in
// when no mail server is configured; operators finish the flow with the CLI.
type LogNotifier struct {
	logger logrus.FieldLogger
}

func NewLogNotifier(logger logrus.FieldLogger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (notifier *LogNotifier) SendVerification(_ context.Context, user models.PublicUser, _ string) error {
	notifier.logger.WithField("user_id", user.ID).Warn("verification token issued but mail delivery is disabled")
	return nil
}

func (notifier *LogNotifier) SendPasswordReset(_ context.Context, user models.PublicUser, _ string) error {
	notifier.logger.WithField("user_id", user.ID).Warn("password reset token issued but mail delivery is disabled")
	return nil
}
