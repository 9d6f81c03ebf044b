package entity

import (
	"strings"
	"time"
)

// Session identifies the authenticated actor for the lifetime of a UI session.
type Session struct {
	UserID string
	Email  string
}

// Profile is the per-user record of editable attributes.
// ID always equals the owning session's UserID. Optional fields are nil until
// first written; nil is distinct from an empty string.
type Profile struct {
	ID              string     `json:"id"`
	Email           string     `json:"email"`
	FullName        *string    `json:"full_name,omitempty"`
	Username        *string    `json:"username,omitempty"`
	InstagramHandle *string    `json:"instagram_handle,omitempty"`
	AvatarURL       *string    `json:"avatar_url,omitempty"`
	UpdatedAt       *time.Time `json:"updated_at,omitempty"`
}

// Column names of the profiles table.
const (
	ColID              = "id"
	ColFullName        = "full_name"
	ColUsername        = "username"
	ColInstagramHandle = "instagram_handle"
	ColAvatarURL       = "avatar_url"
	ColUpdatedAt       = "updated_at"
)

// StubProfile is the locally synthesized record used when no remote row exists.
func StubProfile(s Session) *Profile {
	return &Profile{ID: s.UserID, Email: s.Email}
}

// Clone returns a deep copy so callers can hold a snapshot safely.
func (p *Profile) Clone() *Profile {
	if p == nil {
		return nil
	}
	c := &Profile{ID: p.ID, Email: p.Email}
	c.FullName = cloneString(p.FullName)
	c.Username = cloneString(p.Username)
	c.InstagramHandle = cloneString(p.InstagramHandle)
	c.AvatarURL = cloneString(p.AvatarURL)
	if p.UpdatedAt != nil {
		t := *p.UpdatedAt
		c.UpdatedAt = &t
	}
	return c
}

// Initials renders the avatar placeholder text: first letter of each word,
// uppercased, at most two. Unknown names render as "?".
func Initials(name string) string {
	words := strings.Fields(name)
	if len(words) == 0 {
		return "?"
	}
	var b strings.Builder
	for _, w := range words {
		r := []rune(w)
		b.WriteString(strings.ToUpper(string(r[0])))
	}
	out := []rune(b.String())
	if len(out) > 2 {
		out = out[:2]
	}
	return string(out)
}

// DisplayName is the name used to greet the user: the full name, else the
// local part of the email, else "there".
func DisplayName(fullName, email string) string {
	if n := strings.TrimSpace(fullName); n != "" {
		return n
	}
	if local, _, _ := strings.Cut(email, "@"); local != "" {
		return local
	}
	return "there"
}

// StringPtr returns a pointer to a copy of s.
func StringPtr(s string) *string { return &s }

// Deref returns the pointed-to string or "" when absent.
func Deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}
