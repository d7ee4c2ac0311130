package email

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"sync"
	"text/template"
	"time"

	id "atrium/pkg/domain"
	"atrium/pkg/platform/sentinel"
)

// WelcomeTemplateKey names the template sent on a first-ever signup.
const WelcomeTemplateKey = "welcome"

// Sender delivers rendered messages.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// MemorySender records messages instead of delivering them. Tests and
// DSN-less development use it.
type MemorySender struct {
	mu   sync.RWMutex
	sent []Message
}

func NewMemorySender() *MemorySender {
	return &MemorySender{}
}

func (s *MemorySender) Send(_ context.Context, msg Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, msg)
	return nil
}

// Sent returns a copy of everything delivered so far.
func (s *MemorySender) Sent() []Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Message{}, s.sent...)
}

// LogSender writes messages to the log instead of an SMTP relay. The
// gateway uses it until a real mail provider is wired up.
type LogSender struct {
	logger *slog.Logger
}

func NewLogSender(logger *slog.Logger) *LogSender {
	return &LogSender{logger: logger}
}

func (s *LogSender) Send(ctx context.Context, msg Message) error {
	s.logger.InfoContext(ctx, "outgoing mail",
		"to", msg.To,
		"site", msg.SiteKey,
		"subject", msg.Subject,
	)
	return nil
}

// Service renders templates and hands them to the sender. Welcome mail is
// strictly best-effort: it runs detached from the request and only logs
// failures, so a broken template can never block a login.
type Service struct {
	store  Store
	sender Sender
	logger *slog.Logger
}

func NewService(store Store, sender Sender, logger *slog.Logger) *Service {
	return &Service{store: store, sender: sender, logger: logger}
}

// Render loads the template for (key, site, locale) and fills it with data.
// Falls back to the "en" locale when the requested one is missing.
func (s *Service) Render(ctx context.Context, key string, siteKey id.SiteKey, locale string, data any) (Message, error) {
	tpl, err := s.store.Get(ctx, key, siteKey, locale)
	if errors.Is(err, sentinel.ErrNotFound) && locale != "en" {
		tpl, err = s.store.Get(ctx, key, siteKey, "en")
	}
	if err != nil {
		return Message{}, err
	}

	subject, err := fill(tpl.Subject, data)
	if err != nil {
		return Message{}, err
	}
	body, err := fill(tpl.Body, data)
	if err != nil {
		return Message{}, err
	}

	return Message{Subject: subject, Body: body, SiteKey: siteKey}, nil
}

// WelcomeData feeds the welcome template.
type WelcomeData struct {
	DisplayName string
	SiteName    string
}

// SendWelcome renders and delivers the welcome mail in the background.
func (s *Service) SendWelcome(to string, siteKey id.SiteKey, locale string, data WelcomeData) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		msg, err := s.Render(ctx, WelcomeTemplateKey, siteKey, locale, data)
		if err != nil {
			s.logger.Warn("render welcome mail failed", "site", siteKey.String(), "error", err.Error())
			return
		}
		msg.To = to
		if err := s.sender.Send(ctx, msg); err != nil {
			s.logger.Warn("send welcome mail failed", "site", siteKey.String(), "error", err.Error())
		}
	}()
}

func fill(text string, data any) (string, error) {
	tpl, err := template.New("mail").Parse(text)
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err := tpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}
