package notify

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/wneessen/go-mail"
	"go.uber.org/zap"
)

const (
	DefaultSMTPHost = "smtp.gmail.com"
	DefaultSMTPPort = 587
)

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	// From defaults to Username, ReplyTo defaults to From.
	From    string
	ReplyTo string
	Timeout time.Duration
}

type mailClient interface {
	DialAndSendWithContext(ctx context.Context, messages ...*mail.Msg) error
}

// SMTPSender delivers messages over SMTP with STARTTLS and plain auth.
type SMTPSender struct {
	client  mailClient
	from    string
	replyTo string
	logger  *zap.Logger
}

func NewSMTPSender(cfg SMTPConfig, logger *zap.Logger) (*SMTPSender, error) {
	if strings.TrimSpace(cfg.Username) == "" || strings.TrimSpace(cfg.Password) == "" {
		return nil, ErrNotConfigured
	}

	host := cfg.Host
	if host == "" {
		host = DefaultSMTPHost
	}
	port := cfg.Port
	if port == 0 {
		port = DefaultSMTPPort
	}

	opts := []mail.Option{
		mail.WithPort(port),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(cfg.Username),
		mail.WithPassword(cfg.Password),
		mail.WithTLSPolicy(mail.TLSMandatory),
	}
	if cfg.Timeout > 0 {
		opts = append(opts, mail.WithTimeout(cfg.Timeout))
	}

	client, err := mail.NewClient(host, opts...)
	if err != nil {
		return nil, fmt.Errorf("create smtp client: %w", err)
	}

	return newSMTPSender(client, cfg, logger), nil
}

func newSMTPSender(client mailClient, cfg SMTPConfig, logger *zap.Logger) *SMTPSender {
	if logger == nil {
		logger = zap.NewNop()
	}

	from := cfg.From
	if from == "" {
		from = cfg.Username
	}
	replyTo := cfg.ReplyTo
	if replyTo == "" {
		replyTo = from
	}

	return &SMTPSender{client: client, from: from, replyTo: replyTo, logger: logger}
}

func (s *SMTPSender) Send(ctx context.Context, m Message) error {
	msg, err := s.message(m)
	if err != nil {
		return err
	}

	if err := s.client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("smtp send to %s: %w", m.To, err)
	}

	s.logger.Debug("smtp message delivered", zap.String("to", m.To))
	return nil
}

func (s *SMTPSender) message(m Message) (*mail.Msg, error) {
	msg := mail.NewMsg()

	if err := msg.From(s.from); err != nil {
		return nil, fmt.Errorf("invalid sender %q: %w", s.from, err)
	}
	addTo := func() error { return msg.AddTo(m.To) }
	if m.ToName != "" {
		addTo = func() error { return msg.AddToFormat(m.ToName, m.To) }
	}
	if err := addTo(); err != nil {
		return nil, fmt.Errorf("invalid recipient %q: %w", m.To, err)
	}
	if err := msg.ReplyTo(s.replyTo); err != nil {
		return nil, fmt.Errorf("invalid reply-to %q: %w", s.replyTo, err)
	}

	msg.Subject(m.Subject)
	msg.SetBodyString(mail.TypeTextPlain, m.Text)
	msg.AddAlternativeString(mail.TypeTextHTML, m.HTML)

	return msg, nil
}
