package apperror

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindMatching(t *testing.T) {
	cause := errors.New("connection reset")
	err := Store("save profile", cause)

	assert.ErrorIs(t, err, ErrStore)
	assert.NotErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, KindStore, KindOf(err))

	wrapped := fmt.Errorf("handler: %w", err)
	assert.ErrorIs(t, wrapped, ErrStore)
	assert.Equal(t, KindStore, KindOf(wrapped))
}

func TestKindOfPlainError(t *testing.T) {
	assert.Equal(t, KindUnknown, KindOf(errors.New("boom")))
	assert.Equal(t, KindUnknown, KindOf(nil))
}

func TestErrorString(t *testing.T) {
	tests := []struct {
		name string
		err  *Error
		want string
	}{
		{name: "Sentinel", err: ErrUserCancelled, want: "user_cancelled"},
		{name: "Op only", err: New(KindPermissionDenied, "request camera", nil), want: "request camera: permission_denied"},
		{name: "Op and cause", err: Precondition("save", errors.New("no session")), want: "save: precondition_error: no session"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.Error())
		})
	}
}
