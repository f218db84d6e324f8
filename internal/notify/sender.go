package notify

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

const (
	ProviderSMTP = "smtp"
	ProviderSES  = "ses"
	ProviderNoop = "noop"
)

type SenderConfig struct {
	Provider string
	SMTP     SMTPConfig
	SES      SESConfig
}

// NewSender builds the sender selected by cfg.Provider.
func NewSender(ctx context.Context, cfg SenderConfig, logger *zap.Logger) (Sender, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Provider)) {
	case "", ProviderSMTP:
		return NewSMTPSender(cfg.SMTP, logger)
	case ProviderSES:
		return NewSESSender(ctx, cfg.SES, logger)
	case ProviderNoop:
		return NewNoopSender(logger), nil
	default:
		return nil, fmt.Errorf("unsupported email provider %q", cfg.Provider)
	}
}
