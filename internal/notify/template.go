package notify

import (
	"bytes"
	"embed"
	"fmt"
	htmltemplate "html/template"
	texttemplate "text/template"
)

const (
	// Subject of every match notification.
	Subject = "Your Resume Matches Our Job Requirements"

	// SummaryLength is the number of job description characters quoted in an email.
	SummaryLength = 300

	defaultSignature = "The Recruiting Team"
)

//go:embed templates
var templateFS embed.FS

var (
	htmlTemplate = htmltemplate.Must(htmltemplate.ParseFS(templateFS, "templates/match.html"))
	textTemplate = texttemplate.Must(texttemplate.ParseFS(templateFS, "templates/match.txt"))
)

type templateData struct {
	Name       string
	JobSummary string
	Signature  string
}

// Summarize keeps the first SummaryLength characters of s and marks the cut with "...".
func Summarize(s string) string {
	runes := []rune(s)
	if len(runes) <= SummaryLength {
		return s
	}
	return string(runes[:SummaryLength]) + "..."
}

// Render builds the match notification for one candidate.
func Render(c Candidate, jobDescription, signature string) (Message, error) {
	if signature == "" {
		signature = defaultSignature
	}

	data := templateData{Name: c.Name, JobSummary: Summarize(jobDescription), Signature: signature}

	var html, text bytes.Buffer
	if err := htmlTemplate.Execute(&html, data); err != nil {
		return Message{}, fmt.Errorf("render html body: %w", err)
	}
	if err := textTemplate.Execute(&text, data); err != nil {
		return Message{}, fmt.Errorf("render text body: %w", err)
	}

	return Message{
		To:      c.Email,
		ToName:  c.Name,
		Subject: Subject,
		HTML:    html.String(),
		Text:    text.String(),
	}, nil
}
