package templates

import (
	"time"

	"github.com/oksasatya/profile-sync/config"
)

// EmailData defines standard fields for email templates.
type EmailData struct {
	Name  string `json:"Name"`
	Email string `json:"Email"`

	AppName     string `json:"AppName"`
	CompanyName string `json:"CompanyName"`
	LogoURL     string `json:"LogoURL"`
	SupportURL  string `json:"SupportURL"`
	ProfileURL  string `json:"ProfileURL"`

	AvatarURL string            `json:"AvatarURL"`
	Time      string            `json:"Time"`
	Changes   map[string]string `json:"Changes"`
}

// Option pattern
type Option func(*EmailData)

func WithTime(t time.Time) Option {
	return func(d *EmailData) { d.Time = t.UTC().Format("02 January 2006, 15:04 MST") }
}

func WithAvatarURL(url string) Option { return func(d *EmailData) { d.AvatarURL = url } }

func NewProfileUpdatedData(cfg *config.Config, name, email string, changes map[string]string, opts ...Option) map[string]any {
	d := EmailData{
		Name:        name,
		Email:       email,
		AppName:     cfg.AppName,
		CompanyName: cfg.CompanyName,
		LogoURL:     cfg.LogoURL,
		SupportURL:  cfg.SupportURL,
		ProfileURL:  cfg.ProfileURL,
		Changes:     changes,
	}
	for _, opt := range opts {
		opt(&d)
	}
	return ToMap(d)
}
