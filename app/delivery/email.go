package delivery

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"log/slog"
	"net/smtp"
	"strings"
	"time"

	"github.com/ainewshq/ainews/app/database"
	"github.com/ainewshq/ainews/app/news"
)

const htmlBody = `<html>
<body style="font-family: sans-serif; max-width: 640px; margin: 0 auto;">
<h1>AI News Digest &mdash; {{.Date}}</h1>
<p>{{.ArticleCount}} articles summarized.</p>
{{range .Paragraphs}}<p>{{.}}</p>
{{end}}
{{if .KeyTopics}}<h2>Key Topics</h2>
<p>{{join .KeyTopics ", "}}</p>
{{end}}
{{if .NotableStories}}<h2>Notable Stories</h2>
<ul>
{{range .NotableStories}}<li><a href="{{.URL}}">{{.Title}}</a> ({{.Source}}) &mdash; {{.Brief}}</li>
{{end}}</ul>
{{end}}
</body>
</html>
`

var htmlTemplate = template.Must(template.New("digest").
	Funcs(template.FuncMap{"join": strings.Join}).
	Parse(htmlBody))

// Mailer sends generated summaries over SMTP and records delivery.
type Mailer struct {
	host     string
	port     string
	user     string
	password string
	from     string
	to       []string
	store    database.SummaryStore

	// Replaced in tests.
	sendMail func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

func NewMailer(host, port, user, password, from string, to []string, store database.SummaryStore) *Mailer {
	return &Mailer{
		host:     host,
		port:     port,
		user:     user,
		password: password,
		from:     from,
		to:       to,
		store:    store,
		sendMail: smtp.SendMail,
	}
}

// Send delivers the summary to the configured recipients. Missing SMTP
// configuration is logged and skipped, not treated as an error, so the
// pipeline keeps working without email set up.
func (m *Mailer) Send(ctx context.Context, summary *news.DailySummary) error {
	if summary == nil {
		return nil
	}
	if m.host == "" || m.from == "" || len(m.to) == 0 {
		slog.Info("Email delivery not configured, skipping", "date", summary.Date)
		return nil
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	msg, err := m.buildMessage(summary)
	if err != nil {
		return fmt.Errorf("failed to build email: %w", err)
	}

	var auth smtp.Auth
	if m.user != "" {
		auth = smtp.PlainAuth("", m.user, m.password, m.host)
	}

	addr := m.host + ":" + m.port
	if err := m.sendMail(addr, auth, m.from, m.to, msg); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}

	now := time.Now().UTC()
	if _, err := m.store.MarkDelivered(summary.Date, now); err != nil {
		slog.Warn("Failed to record delivery", "date", summary.Date, "error", err)
	}
	summary.Delivered = true
	summary.DeliveredAt = &now

	slog.Info("Summary email sent", "date", summary.Date, "recipients", len(m.to))

	return nil
}

func (m *Mailer) buildMessage(summary *news.DailySummary) ([]byte, error) {
	const boundary = "ainews-digest-boundary"

	var b bytes.Buffer

	fmt.Fprintf(&b, "From: %s\r\n", m.from)
	fmt.Fprintf(&b, "To: %s\r\n", strings.Join(m.to, ", "))
	fmt.Fprintf(&b, "Subject: %s\r\n", Subject(summary))
	b.WriteString("MIME-Version: 1.0\r\n")
	fmt.Fprintf(&b, "Content-Type: multipart/alternative; boundary=%q\r\n", boundary)
	b.WriteString("\r\n")

	fmt.Fprintf(&b, "--%s\r\n", boundary)
	b.WriteString("Content-Type: text/plain; charset=utf-8\r\n\r\n")
	b.WriteString(PlainText(summary))
	b.WriteString("\r\n")

	fmt.Fprintf(&b, "--%s\r\n", boundary)
	b.WriteString("Content-Type: text/html; charset=utf-8\r\n\r\n")
	html, err := HTML(summary)
	if err != nil {
		return nil, err
	}
	b.WriteString(html)
	b.WriteString("\r\n")

	fmt.Fprintf(&b, "--%s--\r\n", boundary)

	return b.Bytes(), nil
}

// Subject builds the email subject line for a summary.
func Subject(summary *news.DailySummary) string {
	return fmt.Sprintf("AI News Digest - %s", summary.Date)
}

// PlainText renders the text/plain part of the digest email.
func PlainText(summary *news.DailySummary) string {
	var b strings.Builder

	fmt.Fprintf(&b, "AI News Digest - %s\n", summary.Date)
	fmt.Fprintf(&b, "%d articles summarized.\n\n", summary.ArticleCount)
	b.WriteString(summary.SummaryText)
	b.WriteString("\n")

	if len(summary.KeyTopics) > 0 {
		b.WriteString("\nKey Topics: ")
		b.WriteString(strings.Join(summary.KeyTopics, ", "))
		b.WriteString("\n")
	}

	if len(summary.NotableStories) > 0 {
		b.WriteString("\nNotable Stories:\n")
		for _, story := range summary.NotableStories {
			fmt.Fprintf(&b, "- %s (%s): %s\n  %s\n", story.Title, story.Source, story.Brief, story.URL)
		}
	}

	return b.String()
}

// HTML renders the text/html part of the digest email.
func HTML(summary *news.DailySummary) (string, error) {
	data := struct {
		*news.DailySummary
		Paragraphs []string
	}{
		DailySummary: summary,
		Paragraphs:   splitParagraphs(summary.SummaryText),
	}

	var b bytes.Buffer
	if err := htmlTemplate.Execute(&b, data); err != nil {
		return "", err
	}
	return b.String(), nil
}

func splitParagraphs(text string) []string {
	var out []string
	for _, p := range strings.Split(text, "\n\n") {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
