package mailer

import (
	"errors"

	mailtpl "github.com/oksasatya/profile-sync/pkg/mailer/templates"
)

// EmailJob is a message to send. Html is optional; Text is recommended as fallback.
// You can also use a template by specifying Template and Data.
type EmailJob struct {
	To       string         `json:"to"`
	Subject  string         `json:"subject,omitempty"`
	Text     string         `json:"text,omitempty"`
	HTML     string         `json:"html,omitempty"`
	Template string         `json:"template,omitempty"` // e.g. "profile_updated"
	Data     map[string]any `json:"data,omitempty"`
}

// Render resolves the final subject and bodies, rendering Template when set.
func (j EmailJob) Render() (subject, text, html string, err error) {
	if j.To == "" {
		return "", "", "", errors.New("email job has no recipient")
	}
	if j.Template == "" {
		return j.Subject, j.Text, j.HTML, nil
	}
	return mailtpl.Render(j.Template, j.Data)
}
