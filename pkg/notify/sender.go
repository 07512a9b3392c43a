package notify

import (
	"context"
	"fmt"

	"github.com/resend/resend-go/v2"
	"go.uber.org/zap"
)

// Message is one outgoing email.
type Message struct {
	From    string
	To      []string
	Subject string
	HTML    string
	ReplyTo string
}

// Sender delivers an email and returns the provider message id.
type Sender interface {
	Send(ctx context.Context, msg Message) (string, error)
}

// ResendSender sends emails via the Resend API.
type ResendSender struct {
	client *resend.Client
	from   string
	logger *zap.Logger
}

// NewResendSender creates a sender with a default from address.
func NewResendSender(apiKey, from string, logger *zap.Logger) *ResendSender {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ResendSender{client: resend.NewClient(apiKey), from: from, logger: logger}
}

// Send sends one email.
func (s *ResendSender) Send(ctx context.Context, msg Message) (string, error) {
	from := msg.From
	if from == "" {
		from = s.from
	}
	params := &resend.SendEmailRequest{
		From:    from,
		To:      msg.To,
		Subject: msg.Subject,
		Html:    msg.HTML,
	}
	if msg.ReplyTo != "" {
		params.ReplyTo = msg.ReplyTo
	}
	sent, err := s.client.Emails.SendWithContext(ctx, params)
	if err != nil {
		s.logger.Error("resend send failed", zap.Strings("to", msg.To), zap.String("subject", msg.Subject), zap.Error(err))
		return "", fmt.Errorf("resend send: %w", err)
	}
	s.logger.Info("email sent", zap.String("message_id", sent.Id), zap.Strings("to", msg.To), zap.String("subject", msg.Subject))
	return sent.Id, nil
}

// LogSender only logs messages. It is used when no Resend key is configured.
type LogSender struct {
	logger *zap.Logger
}

// NewLogSender creates a logging sender.
func NewLogSender(logger *zap.Logger) *LogSender {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogSender{logger: logger}
}

func (s *LogSender) Send(_ context.Context, msg Message) (string, error) {
	s.logger.Info("email not sent (no provider configured)", zap.Strings("to", msg.To), zap.String("subject", msg.Subject))
	return "", nil
}
