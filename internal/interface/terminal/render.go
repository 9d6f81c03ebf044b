package terminal

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/oksasatya/profile-sync/internal/application"
	"github.com/oksasatya/profile-sync/internal/domain/entity"
)

// RenderNotice formats a user notice as a colored label plus message.
func RenderNotice(n application.Notice) string {
	bg := success
	if n.Level == application.NoticeError {
		bg = errorCol
	}
	return lipgloss.JoinHorizontal(lipgloss.Top,
		labelStyle.Background(bg).Render(strings.ToUpper(n.Title)),
		" ",
		valueStyle.Render(n.Message),
	)
}

// RenderProfile draws the profile card. Absent fields show a dash; the avatar
// line falls back to the initials placeholder.
func RenderProfile(p *entity.Profile, initials, displayURL string) string {
	if p == nil {
		return mutedStyle.Render("no profile loaded")
	}
	avatar := displayURL
	if avatar == "" {
		avatar = "(" + initials + ")"
	}
	rows := []string{
		titleStyle.Render(orDash(entity.Deref(p.FullName))),
		row("email", p.Email),
		row("username", entity.Deref(p.Username)),
		row("instagram", handle(entity.Deref(p.InstagramHandle))),
		row("avatar", avatar),
	}
	if p.UpdatedAt != nil {
		rows = append(rows, row("updated", p.UpdatedAt.Local().Format("2006-01-02 15:04")))
	}
	return cardStyle.Render(strings.Join(rows, "\n"))
}

// RenderDraft shows the fields being edited.
func RenderDraft(d application.Draft) string {
	rows := []string{
		titleStyle.Render("Editing profile"),
		row("full name", d.FullName),
		row("username", d.Username),
		row("instagram", handle(d.InstagramHandle)),
		row("avatar", d.AvatarURL),
		mutedStyle.Render("save to keep changes, cancel to discard"),
	}
	return cardStyle.Render(strings.Join(rows, "\n"))
}

func row(key, value string) string {
	return keyStyle.Render(key) + valueStyle.Render(orDash(value))
}

func handle(h string) string {
	if h == "" {
		return ""
	}
	return "@" + h
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
