package validation

import (
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
)

type profileInput struct {
	Username *string `json:"username" validate:"omitempty,handle"`
	FullName *string `json:"full_name" validate:"omitempty,fullname"`
	Source   string  `json:"source" validate:"required,imgsource"`
}

func ptr(s string) *string { return &s }

func TestHandleRule(t *testing.T) {
	v := validator.New()
	Register(v)

	assert.NoError(t, v.Struct(profileInput{Username: ptr("ann.b_1"), Source: "camera"}))
	assert.NoError(t, v.Struct(profileInput{Username: ptr(""), Source: "library"}))

	err := v.Struct(profileInput{Username: ptr("ann b!"), Source: "scanner"})
	details := ToDetails(err)
	assert.Equal(t, "may only contain letters, digits, dots and underscores (max 30)", details["username"])
	assert.Equal(t, "must be camera or library", details["source"])
}

func TestToDetailsFallbacks(t *testing.T) {
	assert.Nil(t, ToDetails(nil))
	assert.Equal(t, map[string]string{"payload": "invalid payload"}, ToDetails(assert.AnError))
}
