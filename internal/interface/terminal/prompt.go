package terminal

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/oksasatya/profile-sync/internal/domain/repository"
)

// Prompter reads answers line by line from one shared input.
type Prompter struct {
	in  *bufio.Reader
	out io.Writer
}

func NewPrompter(in io.Reader, out io.Writer) *Prompter {
	return &Prompter{in: bufio.NewReader(in), out: out}
}

// Ask prints question and returns the trimmed answer. io.EOF is returned once
// the input is exhausted.
func (p *Prompter) Ask(question string) (string, error) {
	if question != "" {
		_, _ = fmt.Fprint(p.out, promptStyle.Render(question)+" ")
	}
	line, err := p.in.ReadString('\n')
	if err != nil && (err != io.EOF || line == "") {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// Confirm asks a yes/no question. Anything other than y or yes is a no.
func (p *Prompter) Confirm(question string) (bool, error) {
	ans, err := p.Ask(question + " [y/N]")
	if err != nil {
		return false, err
	}
	switch strings.ToLower(ans) {
	case "y", "yes":
		return true, nil
	default:
		return false, nil
	}
}

// PromptPermissions asks the person at the terminal every time; answers are
// never remembered.
type PromptPermissions struct {
	Prompt *Prompter
}

func (p PromptPermissions) RequestCameraPermission(ctx context.Context) (bool, error) {
	return p.Prompt.Confirm("Allow access to the camera?")
}

func (p PromptPermissions) RequestLibraryPermission(ctx context.Context) (bool, error) {
	return p.Prompt.Confirm("Allow access to your photos?")
}

var _ repository.PermissionBroker = PromptPermissions{}
