package application

import (
	"errors"

	"github.com/oksasatya/profile-sync/internal/domain/entity"
)

type NoticeLevel string

const (
	NoticeSuccess NoticeLevel = "success"
	NoticeError   NoticeLevel = "error"
)

// Notice is a user-facing message derived from an outcome. Presentation layers
// decide how to render it.
type Notice struct {
	Level   NoticeLevel `json:"level"`
	Title   string      `json:"title"`
	Message string      `json:"message"`
}

const (
	msgUploadFailed = "Failed to upload image. Please try again."
	msgSaveFailed   = "Failed to update profile. Please try again."
)

// NoticeFor maps an avatar transition to a notice. Transitions that need no
// user feedback, including cancellation, report false.
func NoticeFor(t AvatarTransition) (Notice, bool) {
	switch {
	case t.To == StateDenied:
		msg := "We need camera roll permissions to change your profile picture."
		if t.Source == entity.SourceCamera {
			msg = "We need camera permissions to take a photo."
		}
		return Notice{Level: NoticeError, Title: "Permission denied", Message: msg}, true
	case t.To == StatePublished:
		return Notice{Level: NoticeSuccess, Title: "Success", Message: "Profile picture updated successfully!"}, true
	case t.Event == EventRejected, t.Event == EventFailed:
		return Notice{Level: NoticeError, Title: "Error", Message: msgUploadFailed}, true
	}
	return Notice{}, false
}

// SaveNotice maps the outcome of an explicit save to a notice.
func SaveNotice(err error) Notice {
	switch {
	case err == nil:
		return Notice{Level: NoticeSuccess, Title: "Success", Message: "Profile updated successfully!"}
	case errors.Is(err, ErrNoSession):
		return Notice{Level: NoticeError, Title: "Error", Message: "You need to sign in to update your profile."}
	default:
		return Notice{Level: NoticeError, Title: "Error", Message: msgSaveFailed}
	}
}
