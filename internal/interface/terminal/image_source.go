package terminal

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/oksasatya/profile-sync/internal/domain/repository"
)

var ErrNoCamera = errors.New("no camera command configured (AVATAR_CAMERA_CMD)")

// cameraURI names captured frames; the command is expected to emit JPEG.
const cameraURI = "camera://capture.jpg"

// LocalImages picks avatars from the local filesystem and captures photos by
// running an external command that writes the image to stdout.
type LocalImages struct {
	Prompt    *Prompter
	CameraCmd string
	MaxBytes  int64
}

// PickFromLibrary asks for a file path. An empty answer cancels.
func (s LocalImages) PickFromLibrary(ctx context.Context) (*repository.PickedImage, error) {
	p, err := s.Prompt.Ask("Image path (empty to cancel):")
	if err != nil {
		return nil, err
	}
	if p == "" {
		return nil, repository.ErrPickerCancelled
	}
	abs, err := filepath.Abs(expandHome(p))
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, err
	}
	if s.MaxBytes > 0 && info.Size() > s.MaxBytes {
		return nil, fmt.Errorf("%s is larger than %d bytes", abs, s.MaxBytes)
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		return nil, err
	}
	return &repository.PickedImage{URI: "file://" + filepath.ToSlash(abs), Data: data}, nil
}

// CaptureFromCamera runs CameraCmd through the shell. Empty output or an
// interrupted command counts as a cancelled capture.
func (s LocalImages) CaptureFromCamera(ctx context.Context) (*repository.PickedImage, error) {
	if strings.TrimSpace(s.CameraCmd) == "" {
		return nil, ErrNoCamera
	}
	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, "sh", "-c", s.CameraCmd)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, repository.ErrPickerCancelled
		}
		return nil, fmt.Errorf("camera command: %w: %s", err, strings.TrimSpace(stderr.String()))
	}
	if stdout.Len() == 0 {
		return nil, repository.ErrPickerCancelled
	}
	if s.MaxBytes > 0 && int64(stdout.Len()) > s.MaxBytes {
		return nil, fmt.Errorf("captured image is larger than %d bytes", s.MaxBytes)
	}
	return &repository.PickedImage{URI: cameraURI, Data: stdout.Bytes()}, nil
}

func expandHome(p string) string {
	if !strings.HasPrefix(p, "~/") {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return p
	}
	return filepath.Join(home, p[2:])
}

var _ repository.ImageSource = LocalImages{}
