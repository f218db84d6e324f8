package notify

import (
	"context"

	"go.uber.org/zap"
)

// NoopSender logs messages instead of sending them.
type NoopSender struct {
	logger *zap.Logger
}

func NewNoopSender(logger *zap.Logger) *NoopSender {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NoopSender{logger: logger}
}

func (s *NoopSender) Send(_ context.Context, m Message) error {
	s.logger.Info("noop email",
		zap.String("to", m.To),
		zap.String("name", m.ToName),
		zap.String("subject", m.Subject),
	)
	return nil
}
