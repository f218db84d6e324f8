package notify

import (
	"context"
	"fmt"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"
	"go.uber.org/zap"
)

type SESConfig struct {
	Region  string
	From    string
	ReplyTo string
}

type sesAPI interface {
	SendEmail(ctx context.Context, params *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error)
}

// SESSender delivers messages through Amazon SES v2.
type SESSender struct {
	client  sesAPI
	from    string
	replyTo string
	logger  *zap.Logger
}

// NewSESSender loads the default AWS configuration for region.
func NewSESSender(ctx context.Context, cfg SESConfig, logger *zap.Logger) (*SESSender, error) {
	if cfg.From == "" {
		return nil, ErrNotConfigured
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("loading AWS config for SES: %w", err)
	}

	return newSESSender(sesv2.NewFromConfig(awsCfg), cfg, logger), nil
}

func newSESSender(client sesAPI, cfg SESConfig, logger *zap.Logger) *SESSender {
	if logger == nil {
		logger = zap.NewNop()
	}

	replyTo := cfg.ReplyTo
	if replyTo == "" {
		replyTo = cfg.From
	}

	return &SESSender{client: client, from: cfg.From, replyTo: replyTo, logger: logger}
}

func (s *SESSender) Send(ctx context.Context, m Message) error {
	from := s.from
	out, err := s.client.SendEmail(ctx, &sesv2.SendEmailInput{
		FromEmailAddress: &from,
		ReplyToAddresses: []string{s.replyTo},
		Destination: &types.Destination{
			ToAddresses: []string{m.To},
		},
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: &types.Content{Data: &m.Subject},
				Body: &types.Body{
					Html: &types.Content{Data: &m.HTML},
					Text: &types.Content{Data: &m.Text},
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("SES SendEmail: %w", err)
	}

	messageID := ""
	if out != nil && out.MessageId != nil {
		messageID = *out.MessageId
	}
	s.logger.Debug("ses message accepted", zap.String("to", m.To), zap.String("message_id", messageID))

	return nil
}
