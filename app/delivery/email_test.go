package delivery

import (
	"context"
	"errors"
	"net/smtp"
	"strings"
	"testing"
	"time"

	"github.com/ainewshq/ainews/app/news"
)

type fakeSummaryStore struct {
	delivered map[string]time.Time
}

func (s *fakeSummaryStore) Load(dateKey string) ([]news.DailySummary, error) { return nil, nil }

func (s *fakeSummaryStore) Save(dateKey string, summaries []news.DailySummary) error { return nil }

func (s *fakeSummaryStore) MarkDelivered(dateKey string, at time.Time) (bool, error) {
	if s.delivered == nil {
		s.delivered = make(map[string]time.Time)
	}
	s.delivered[dateKey] = at
	return true, nil
}

func (s *fakeSummaryStore) Latest() (*news.DailySummary, error) { return nil, nil }

func testSummary() *news.DailySummary {
	return &news.DailySummary{
		Date:         "2025-06-15",
		ArticleCount: 12,
		SummaryText:  "First paragraph.\n\nSecond paragraph.",
		KeyTopics:    []string{"models", "chips"},
		NotableStories: []news.NotableStory{
			{Title: "New model", Source: "lab", Brief: "A model shipped.", URL: "https://example.com/model"},
		},
	}
}

func TestSendMarksDelivered(t *testing.T) {
	store := &fakeSummaryStore{}
	var sentTo []string
	var sentMsg []byte

	m := NewMailer("smtp.example.com", "587", "user", "pass", "news@example.com",
		[]string{"reader@example.com"}, store)
	m.sendMail = func(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
		if addr != "smtp.example.com:587" {
			t.Errorf("addr = %q", addr)
		}
		if from != "news@example.com" {
			t.Errorf("from = %q", from)
		}
		sentTo = to
		sentMsg = msg
		return nil
	}

	summary := testSummary()
	if err := m.Send(context.Background(), summary); err != nil {
		t.Fatalf("Send() error: %v", err)
	}

	if len(sentTo) != 1 || sentTo[0] != "reader@example.com" {
		t.Errorf("recipients = %v", sentTo)
	}
	if _, ok := store.delivered["2025-06-15"]; !ok {
		t.Error("delivery was not recorded")
	}
	if !summary.Delivered || summary.DeliveredAt == nil {
		t.Error("summary not marked delivered")
	}

	msg := string(sentMsg)
	if !strings.Contains(msg, "Subject: AI News Digest - 2025-06-15") {
		t.Error("message is missing the subject")
	}
	if !strings.Contains(msg, "multipart/alternative") {
		t.Error("message is not multipart/alternative")
	}
	if !strings.Contains(msg, "First paragraph.") {
		t.Error("message is missing the summary text")
	}
}

func TestSendSkipsWhenUnconfigured(t *testing.T) {
	store := &fakeSummaryStore{}
	m := NewMailer("", "", "", "", "", nil, store)
	m.sendMail = func(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
		t.Error("sendMail should not be called")
		return nil
	}

	if err := m.Send(context.Background(), testSummary()); err != nil {
		t.Fatalf("Send() error: %v", err)
	}
	if len(store.delivered) != 0 {
		t.Error("nothing should be marked delivered")
	}
}

func TestSendErrorPropagates(t *testing.T) {
	store := &fakeSummaryStore{}
	sendErr := errors.New("connection refused")

	m := NewMailer("smtp.example.com", "587", "", "", "news@example.com",
		[]string{"reader@example.com"}, store)
	m.sendMail = func(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
		return sendErr
	}

	summary := testSummary()
	if err := m.Send(context.Background(), summary); !errors.Is(err, sendErr) {
		t.Fatalf("error = %v, want wrapped send error", err)
	}
	if summary.Delivered {
		t.Error("failed send must not mark the summary delivered")
	}
	if len(store.delivered) != 0 {
		t.Error("failed send must not record delivery")
	}
}

func TestPlainTextRendering(t *testing.T) {
	text := PlainText(testSummary())

	for _, want := range []string{
		"AI News Digest - 2025-06-15",
		"12 articles summarized.",
		"Key Topics: models, chips",
		"- New model (lab): A model shipped.",
		"https://example.com/model",
	} {
		if !strings.Contains(text, want) {
			t.Errorf("plain text is missing %q", want)
		}
	}
}

func TestHTMLRendering(t *testing.T) {
	summary := testSummary()
	summary.SummaryText = "Safe <script>alert(1)</script> text."

	html, err := HTML(summary)
	if err != nil {
		t.Fatalf("HTML() error: %v", err)
	}

	if strings.Contains(html, "<script>") {
		t.Error("summary text must be escaped")
	}
	if !strings.Contains(html, `<a href="https://example.com/model">New model</a>`) {
		t.Error("html is missing the story link")
	}
	if !strings.Contains(html, "2025-06-15") {
		t.Error("html is missing the date")
	}
}
