package ui

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/mattn/go-isatty"

	"pdf-form-filler/internal/domain"
	"pdf-form-filler/internal/usecase"
)

// Terminal is the interactive usecase.Surface. Prompts fall back to huh's
// accessible line mode when stdin is not a terminal.
type Terminal struct {
	in         io.Reader
	out        io.Writer
	accessible bool
}

type Option func(*Terminal)

// WithIO replaces stdin and stdout.
func WithIO(in io.Reader, out io.Writer) Option {
	return func(t *Terminal) {
		if in != nil {
			t.in = in
		}
		if out != nil {
			t.out = out
		}
	}
}

// WithAccessible forces (or disables) line-based prompts.
func WithAccessible(on bool) Option {
	return func(t *Terminal) {
		t.accessible = on
	}
}

func NewTerminal(opts ...Option) *Terminal {
	t := &Terminal{
		in:         os.Stdin,
		out:        os.Stdout,
		accessible: !isatty.IsTerminal(os.Stdin.Fd()) && !isatty.IsCygwinTerminal(os.Stdin.Fd()),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

func (t *Terminal) run(ctx context.Context, fields ...huh.Field) error {
	form := huh.NewForm(huh.NewGroup(fields...)).
		WithAccessible(t.accessible).
		WithInput(t.in).
		WithOutput(t.out).
		WithShowHelp(!t.accessible)
	return form.RunWithContext(ctx)
}

func (t *Terminal) println(s string) {
	_, _ = fmt.Fprintln(t.out, s)
}

// ChooseFile asks for a local PDF path.
func (t *Terminal) ChooseFile(ctx context.Context) (string, error) {
	var path string
	err := t.run(ctx, huh.NewInput().
		Title("PDF form to fill").
		Placeholder("path/to/form.pdf").
		Value(&path).
		Validate(func(s string) error {
			if !strings.HasSuffix(strings.ToLower(strings.TrimSpace(s)), ".pdf") {
				return errors.New("Please select a valid PDF file")
			}
			return nil
		}))
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(path), nil
}

// Answer prompts for one field. Checkbox fields offer only yes and no.
func (t *Terminal) Answer(ctx context.Context, sess *usecase.SessionContext, q domain.Question) (string, error) {
	t.println("")
	t.println(RenderProgress(sess.Progress.Snapshot()))
	if sess.LastProcessed != "" {
		t.println(Styles.Muted.Render("Saved: " + sess.LastProcessed))
	}

	var answer string
	var field huh.Field
	if q.FieldType == domain.FieldCheckbox {
		answer = domain.AnswerYes
		field = huh.NewSelect[string]().
			Title(q.Text).
			Description(q.FieldName).
			Options(
				huh.NewOption("Yes", domain.AnswerYes),
				huh.NewOption("No", domain.AnswerNo),
			).
			Value(&answer)
	} else {
		field = huh.NewInput().
			Title(q.Text).
			Description(fmt.Sprintf("%s (%s)", q.FieldName, q.FieldType)).
			Value(&answer).
			Validate(func(s string) error {
				if strings.TrimSpace(s) == "" {
					return errors.New("Answer must not be empty")
				}
				return nil
			})
	}
	if err := t.run(ctx, field); err != nil {
		return "", err
	}
	return answer, nil
}

// Failure shows message and offers the recovery actions valid in phase.
func (t *Terminal) Failure(ctx context.Context, phase usecase.Phase, message string) (usecase.Action, error) {
	t.println(RenderError(message))

	return t.choose(ctx, "What next?", FailureOptions(phase))
}

// FailureOptions lists the recovery actions offered after a failure in phase.
// In the upload phase starting over means picking a different file.
func FailureOptions(phase usecase.Phase) []huh.Option[usecase.Action] {
	startOver := "Start over"
	if phase == usecase.PhaseUpload {
		startOver = "Choose another file"
	}
	return []huh.Option[usecase.Action]{
		huh.NewOption("Try again", usecase.ActionRetry),
		huh.NewOption(startOver, usecase.ActionStartOver),
		huh.NewOption("Quit", usecase.ActionQuit),
	}
}

// Completed shows the completion summary and offers download or another
// generation attempt.
func (t *Terminal) Completed(ctx context.Context, sess *usecase.SessionContext, c *usecase.Completion) (usecase.Action, error) {
	t.println(RenderCompletion(sess.Session(), c.Result(), ""))
	return t.choose(ctx, "Completed form", CompletedOptions(c.SuggestedFilename()))
}

// CompletedOptions lists the actions offered once the filled form is ready.
// Trying again asks the service to generate the form once more.
func CompletedOptions(filename string) []huh.Option[usecase.Action] {
	return []huh.Option[usecase.Action]{
		huh.NewOption("Download "+filename, usecase.ActionDownload),
		huh.NewOption("Try again", usecase.ActionRetry),
		huh.NewOption("Fill another form", usecase.ActionStartOver),
		huh.NewOption("Quit", usecase.ActionQuit),
	}
}

func (t *Terminal) choose(ctx context.Context, title string, options []huh.Option[usecase.Action]) (usecase.Action, error) {
	act := options[0].Value
	err := t.run(ctx, huh.NewSelect[usecase.Action]().Title(title).Options(options...).Value(&act))
	if errors.Is(err, huh.ErrUserAborted) {
		return usecase.ActionQuit, nil
	}
	if err != nil {
		return usecase.ActionQuit, err
	}
	return act, nil
}

func (t *Terminal) Saved(path string) {
	t.println(Styles.Success.Render(IconSuccess + " Saved " + path))
}

// Observe prints transient protocol states; pass it as an event observer.
func (t *Terminal) Observe(ev usecase.Event) {
	if line := StatusLine(ev); line != "" {
		t.println(line)
	}
}
