package notify

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/wneessen/go-mail"
)

type fakeMailClient struct {
	sent []*mail.Msg
	err  error
}

func (f *fakeMailClient) DialAndSendWithContext(_ context.Context, messages ...*mail.Msg) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, messages...)
	return nil
}

func TestSMTPSenderBuildsMessage(t *testing.T) {
	client := &fakeMailClient{}
	sender := newSMTPSender(client, SMTPConfig{Username: "hr@company.com"}, nil)

	m, err := Render(Candidate{Name: "Jane Doe", Email: "jane@x.com"}, "Go engineer", "")
	if err != nil {
		t.Fatalf("render: %v", err)
	}

	if err := sender.Send(context.Background(), m); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(client.sent) != 1 {
		t.Fatalf("expected one message, got %d", len(client.sent))
	}

	var buf bytes.Buffer
	if _, err := client.sent[0].WriteTo(&buf); err != nil {
		t.Fatalf("write message: %v", err)
	}
	raw := buf.String()

	for _, want := range []string{
		"Subject: " + Subject,
		"From: <hr@company.com>",
		"Reply-To: <hr@company.com>",
		`To: "Jane Doe" <jane@x.com>`,
		"text/plain",
		"text/html",
	} {
		if !strings.Contains(raw, want) {
			t.Fatalf("message misses %q:\n%s", want, raw)
		}
	}
}

func TestSMTPSenderErrors(t *testing.T) {
	sender := newSMTPSender(&fakeMailClient{err: errors.New("535 authentication failed")}, SMTPConfig{Username: "hr@company.com"}, nil)

	err := sender.Send(context.Background(), Message{To: "jane@x.com", Subject: Subject})
	if err == nil || !strings.Contains(err.Error(), "535 authentication failed") {
		t.Fatalf("expected delivery error, got %v", err)
	}

	err = sender.Send(context.Background(), Message{To: "not an address", Subject: Subject})
	if err == nil || !strings.Contains(err.Error(), "invalid recipient") {
		t.Fatalf("expected recipient error, got %v", err)
	}
}

func TestNewSMTPSenderRequiresCredentials(t *testing.T) {
	if _, err := NewSMTPSender(SMTPConfig{Username: "hr@company.com"}, nil); !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}
}
