package mailer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	mailtpl "github.com/oksasatya/profile-sync/pkg/mailer/templates"
)

func TestEmailJobRender(t *testing.T) {
	plain := EmailJob{To: "ann@x.com", Subject: "hi", Text: "body"}
	s, txt, html, err := plain.Render()
	require.NoError(t, err)
	assert.Equal(t, "hi", s)
	assert.Equal(t, "body", txt)
	assert.Empty(t, html)

	tpl := EmailJob{To: "ann@x.com", Template: mailtpl.ProfileUpdated, Data: map[string]any{"Name": "Ann"}}
	s, txt, _, err = tpl.Render()
	require.NoError(t, err)
	assert.Equal(t, "Your account: your profile was updated", s)
	assert.Contains(t, txt, "Hi Ann,")

	_, _, _, err = EmailJob{Subject: "x"}.Render()
	assert.Error(t, err)
}
