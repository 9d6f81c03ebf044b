package terminal

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/oksasatya/profile-sync/internal/application"
	"github.com/oksasatya/profile-sync/internal/domain/apperror"
	"github.com/oksasatya/profile-sync/internal/domain/entity"
	"github.com/oksasatya/profile-sync/pkg/validation"
)

const helpText = `commands:
  show                      print the profile
  reload                    fetch the profile again
  edit                      start editing
  name <full name>          set full name
  username <handle>         set username
  instagram <handle>        set instagram handle
  save                      save the draft
  cancel                    discard the draft
  avatar [camera|library]   change the profile picture
  quit`

// Console is a line-oriented profile editor. Commands and permission answers
// share one Prompter.
type Console struct {
	Editor *application.ProfileEditor
	Prompt *Prompter
	Out    io.Writer
	Now    func() time.Time

	validate *validator.Validate
}

// NewConsole wires pipeline notices to out. pipeline may be nil when the
// editor's avatar requester reports nothing.
func NewConsole(editor *application.ProfileEditor, pipeline *application.AvatarPipeline, prompt *Prompter, out io.Writer) *Console {
	v := validator.New()
	validation.Register(v)
	c := &Console{Editor: editor, Prompt: prompt, Out: out, Now: time.Now, validate: v}
	if pipeline != nil {
		pipeline.Observe(func(t application.AvatarTransition) {
			if n, ok := application.NoticeFor(t); ok {
				c.notice(n)
			}
		})
	}
	return c
}

// Run loads the profile and executes commands until quit or end of input.
func (c *Console) Run(ctx context.Context) error {
	c.load(ctx)
	c.println(titleStyle.Render("Hello, " + c.Editor.DisplayName() + "!"))
	c.println(mutedStyle.Render("type help for commands"))
	for {
		line, err := c.Prompt.Ask(c.promptLabel())
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		if c.Exec(ctx, line) {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}
	}
}

// Exec runs one command line and reports whether the console should exit.
func (c *Console) Exec(ctx context.Context, line string) bool {
	cmd, arg, _ := strings.Cut(strings.TrimSpace(line), " ")
	arg = strings.TrimSpace(arg)
	switch strings.ToLower(cmd) {
	case "":
	case "help", "?":
		c.println(helpText)
	case "show":
		c.show()
	case "reload":
		c.load(ctx)
	case "edit":
		if err := c.Editor.BeginEdit(ctx); err != nil {
			c.notice(application.SaveNotice(err))
			return false
		}
		c.println(RenderDraft(c.Editor.Draft()))
	case "name":
		c.set(arg, "fullname", c.Editor.SetFullName)
	case "username":
		c.set(strings.TrimPrefix(arg, "@"), "handle", c.Editor.SetUsername)
	case "instagram":
		c.set(strings.TrimPrefix(arg, "@"), "handle", c.Editor.SetInstagramHandle)
	case "save":
		if !c.Editor.Editing() {
			c.println(mutedStyle.Render("nothing to save; run edit first"))
			return false
		}
		err := c.Editor.Save(ctx)
		c.notice(application.SaveNotice(err))
		if err == nil {
			c.show()
		}
	case "cancel":
		c.Editor.Close()
		c.show()
	case "avatar":
		c.avatar(ctx, arg)
	case "quit", "exit", "q":
		return true
	default:
		c.println(mutedStyle.Render(fmt.Sprintf("unknown command %q; type help", cmd)))
	}
	return false
}

func (c *Console) set(value, rule string, apply func(string)) {
	if !c.Editor.Editing() {
		c.println(mutedStyle.Render("run edit first"))
		return
	}
	if err := c.validate.Var(value, rule); err != nil {
		c.println(mutedStyle.Render(fmt.Sprintf("%q is not valid here", value)))
		return
	}
	apply(value)
	c.println(RenderDraft(c.Editor.Draft()))
}

func (c *Console) avatar(ctx context.Context, arg string) {
	source := entity.SourceLibrary
	if arg != "" {
		source = entity.ImageSourceKind(strings.ToLower(arg))
	}
	if !source.Valid() {
		c.println(mutedStyle.Render("avatar source must be camera or library"))
		return
	}
	change, err := c.Editor.ChangeAvatar(ctx, source)
	if err != nil {
		// Denials and failures are reported by the pipeline observer.
		switch {
		case errors.Is(err, application.ErrNoSession):
			c.notice(application.SaveNotice(err))
		case errors.Is(err, application.ErrAvatarBusy):
			c.println(mutedStyle.Render("an avatar upload is already running"))
		case apperror.KindOf(err) == apperror.KindUnknown:
			c.notice(application.Notice{Level: application.NoticeError, Title: "Error", Message: err.Error()})
		}
		return
	}
	if err := change.AutoSave.Wait(ctx); err != nil {
		c.notice(application.SaveNotice(err))
	}
	c.show()
}

func (c *Console) load(ctx context.Context) {
	_, err := c.Editor.Load(ctx)
	switch {
	case errors.Is(err, application.ErrNoSession):
		c.notice(application.SaveNotice(err))
		return
	case err != nil:
		c.println(mutedStyle.Render("profile store unreachable; showing local profile"))
	}
	c.show()
}

func (c *Console) show() {
	c.println(RenderProfile(c.Editor.Profile(), c.Editor.Initials(), c.Editor.DisplayAvatarURL(c.now())))
}

func (c *Console) notice(n application.Notice) { c.println(RenderNotice(n)) }

func (c *Console) promptLabel() string {
	if c.Editor.Editing() {
		return "profile (editing)>"
	}
	return "profile>"
}

func (c *Console) println(s string) { _, _ = fmt.Fprintln(c.Out, s) }

func (c *Console) now() time.Time {
	if c.Now != nil {
		return c.Now()
	}
	return time.Now()
}
