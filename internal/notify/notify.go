// Package notify emails shortlisted candidates.
package notify

import (
	"context"
	"errors"
	"net/mail"
	"strings"
	"sync/atomic"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const defaultConcurrency = 4

// ErrNotConfigured is returned when a sender lacks credentials.
var ErrNotConfigured = errors.New("email configuration not set up properly")

type Candidate struct {
	Name  string `json:"name" mapstructure:"name"`
	Email string `json:"email" mapstructure:"email"`
}

// Valid reports whether c has a name and a parseable email address.
func (c Candidate) Valid() bool {
	if strings.TrimSpace(c.Name) == "" || strings.TrimSpace(c.Email) == "" {
		return false
	}
	_, err := mail.ParseAddress(c.Email)
	return err == nil
}

type Message struct {
	To      string
	ToName  string
	Subject string
	HTML    string
	Text    string
}

// Sender delivers a single message.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

type Summary struct {
	Success         bool `json:"success"`
	SentCount       int  `json:"sentCount"`
	FailedCount     int  `json:"failedCount"`
	SkippedCount    int  `json:"skippedCount"`
	TotalCandidates int  `json:"totalCandidates"`
}

type Config struct {
	Concurrency int
	Signature   string
}

type Notifier struct {
	sender      Sender
	concurrency int
	signature   string
	logger      *zap.Logger
}

func NewNotifier(sender Sender, cfg Config, logger *zap.Logger) *Notifier {
	if logger == nil {
		logger = zap.NewNop()
	}

	concurrency := cfg.Concurrency
	if concurrency < 1 {
		concurrency = defaultConcurrency
	}

	return &Notifier{sender: sender, concurrency: concurrency, signature: cfg.Signature, logger: logger}
}

// Notify sends the match notification to every valid candidate. Individual failures
// are counted, never returned.
func (n *Notifier) Notify(ctx context.Context, candidates []Candidate, jobDescription string) Summary {
	var sent, failed, skipped atomic.Int64

	var g errgroup.Group
	g.SetLimit(n.concurrency)

	for _, c := range candidates {
		if !c.Valid() {
			skipped.Add(1)
			n.logger.Warn("skipping candidate without a valid name or email",
				zap.String("name", c.Name),
				zap.String("email", c.Email),
			)
			continue
		}

		g.Go(func() error {
			msg, err := Render(c, jobDescription, n.signature)
			if err == nil {
				err = n.sender.Send(ctx, msg)
			}
			if err != nil {
				failed.Add(1)
				n.logger.Warn("failed to send notification", zap.String("email", c.Email), zap.Error(err))
				return nil
			}

			sent.Add(1)
			n.logger.Info("notification sent", zap.String("email", c.Email))
			return nil
		})
	}
	_ = g.Wait()

	summary := Summary{
		Success:         true,
		SentCount:       int(sent.Load()),
		FailedCount:     int(failed.Load()),
		SkippedCount:    int(skipped.Load()),
		TotalCandidates: len(candidates),
	}

	n.logger.Info("notifications finished",
		zap.Int("sent", summary.SentCount),
		zap.Int("failed", summary.FailedCount),
		zap.Int("skipped", summary.SkippedCount),
	)

	return summary
}
