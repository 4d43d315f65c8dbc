package usecase

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"pdf-form-filler/internal/domain"
)

const opOpen = "open file"

// Action is a user decision offered by a Surface.
type Action int

const (
	ActionQuit Action = iota
	ActionRetry
	ActionStartOver
	ActionDownload
)

// Surface is the interactive side of a fill: it supplies files and answers
// and chooses recovery actions. Every message it receives is already
// classified.
type Surface interface {
	ChooseFile(ctx context.Context) (string, error)
	Answer(ctx context.Context, sess *SessionContext, q domain.Question) (string, error)
	Failure(ctx context.Context, phase Phase, message string) (Action, error)
	Completed(ctx context.Context, sess *SessionContext, c *Completion) (Action, error)
	Saved(path string)
}

// Start says how the first Upload phase is entered.
type Start struct {
	// Path is a local file to upload.
	Path string
	// File is an in-memory upload; it takes precedence over Path.
	File *domain.UploadFile
	// SessionID resumes an existing session instead of uploading.
	SessionID string
	Filename  string
}

// Result summarizes a run.
type Result struct {
	Session     domain.Session
	DownloadURL string
	SavedPath   string
	Transcript  []domain.ConversationEntry
}

// Runner drives a Wizard with a Surface until the user quits.
type Runner struct {
	wizard    *Wizard
	surface   Surface
	preflight func(path string) error
	logger    *slog.Logger
}

type RunnerOption func(*Runner)

// WithPreflight runs check on every local file before it is uploaded.
func WithPreflight(check func(path string) error) RunnerOption {
	return func(r *Runner) {
		r.preflight = check
	}
}

func WithRunnerLogger(logger *slog.Logger) RunnerOption {
	return func(r *Runner) {
		if logger != nil {
			r.logger = logger
		}
	}
}

func NewRunner(w *Wizard, s Surface, opts ...RunnerOption) (*Runner, error) {
	if w == nil {
		return nil, errors.New("usecase: wizard must not be nil")
	}
	if s == nil {
		return nil, errors.New("usecase: surface must not be nil")
	}
	r := &Runner{wizard: w, surface: s, logger: slog.Default()}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Run loops over the wizard phases. It returns nil when the user quits
// after completion, and the classified failure when the user quits on one.
func (r *Runner) Run(ctx context.Context, start Start) (Result, error) {
	var res Result
	pending := &start
	for {
		if err := ctx.Err(); err != nil {
			return r.snapshot(res), err
		}
		var (
			quit bool
			err  error
		)
		switch r.wizard.Phase() {
		case PhaseUpload:
			res = Result{}
			pending, quit, err = r.upload(ctx, pending)
		case PhaseConversation:
			quit, err = r.converse(ctx)
		case PhaseCompletion:
			res = r.snapshot(res)
			quit, err = r.complete(ctx, &res)
		}
		if quit || err != nil {
			return r.snapshot(res), err
		}
	}
}

// upload enters the conversation from pending, or from a file chosen on the
// surface when pending is nil. It returns the start to use on the next pass:
// retry keeps the same one, start-over clears it.
func (r *Runner) upload(ctx context.Context, pending *Start) (*Start, bool, error) {
	if pending == nil || (pending.SessionID == "" && pending.File == nil && pending.Path == "") {
		path, err := r.surface.ChooseFile(ctx)
		if err != nil {
			return nil, true, err
		}
		pending = &Start{Path: path}
	}

	var err error
	switch {
	case pending.SessionID != "":
		err = r.wizard.Resume(ctx, pending.SessionID, pending.Filename)
	case pending.File != nil:
		err = r.wizard.Upload(ctx, *pending.File)
	default:
		err = r.uploadPath(ctx, pending.Path)
	}
	if err == nil {
		return nil, false, nil
	}

	act, err := r.recovery(ctx, PhaseUpload, err)
	switch act {
	case ActionQuit:
		return nil, true, err
	case ActionStartOver:
		return nil, false, nil
	}
	if pending.File != nil {
		// a consumed reader can only be sent again from the start
		seeker, ok := pending.File.Content.(io.Seeker)
		if !ok {
			return nil, false, nil
		}
		if _, err := seeker.Seek(0, io.SeekStart); err != nil {
			return nil, false, nil
		}
	}
	return pending, false, nil
}

func (r *Runner) uploadPath(ctx context.Context, path string) error {
	if r.preflight != nil {
		if err := r.preflight(path); err != nil {
			return err
		}
	}
	f, err := os.Open(path)
	if err != nil {
		return domain.NewValidationError(opOpen, fmt.Sprintf("Could not open %s", path))
	}
	defer func() { _ = f.Close() }()
	info, err := f.Stat()
	if err != nil {
		return domain.NewValidationError(opOpen, fmt.Sprintf("Could not read %s", path))
	}
	if info.IsDir() {
		return domain.NewValidationError(opOpen, fmt.Sprintf("%s is a directory", path))
	}
	return r.wizard.Upload(ctx, domain.UploadFile{Name: filepath.Base(path), Size: info.Size(), Content: f})
}

func (r *Runner) converse(ctx context.Context) (bool, error) {
	eng := r.wizard.Engine()
	var ev Event

	switch eng.State() {
	case StateLoading:
		ev = eng.Load(ctx)
	case StateAwaitingAnswer:
		q, _ := eng.Current()
		raw, err := r.surface.Answer(ctx, r.wizard.Session(), q)
		if err != nil {
			return true, err
		}
		ev, err = eng.Submit(ctx, raw)
		if err != nil {
			// rejected before submission; the same question stays pending
			act, err := r.recovery(ctx, PhaseConversation, err)
			switch act {
			case ActionQuit:
				return true, err
			case ActionStartOver:
				r.wizard.StartOver(ctx)
			}
			return false, nil
		}
	case StateFailed:
		act, err := r.recovery(ctx, PhaseConversation, eng.Err())
		switch act {
		case ActionQuit:
			return true, err
		case ActionStartOver:
			r.wizard.StartOver(ctx)
			return false, nil
		}
		if ev, err = eng.Retry(ctx); err != nil {
			return true, err
		}
	default:
		return true, fmt.Errorf("usecase: unexpected engine state %s", eng.State())
	}

	r.wizard.Dispatch(ctx, ev)
	return false, nil
}

func (r *Runner) complete(ctx context.Context, res *Result) (bool, error) {
	c := r.wizard.Completion()
	if !c.Ready() {
		act, err := r.recovery(ctx, PhaseCompletion, c.Error())
		switch act {
		case ActionQuit:
			return true, err
		case ActionStartOver:
			r.wizard.StartOver(ctx)
		default:
			_ = c.Retry(ctx)
		}
		return false, nil
	}

	act, err := r.surface.Completed(ctx, r.wizard.Session(), c)
	if err != nil {
		return true, err
	}
	switch act {
	case ActionDownload:
		path, err := c.Download(ctx)
		if err != nil {
			act, err := r.recovery(ctx, PhaseCompletion, err)
			switch act {
			case ActionQuit:
				return true, err
			case ActionStartOver:
				r.wizard.StartOver(ctx)
			}
			return false, nil
		}
		res.SavedPath = path
		r.surface.Saved(path)
	case ActionRetry:
		_ = c.Retry(ctx)
	case ActionStartOver:
		r.wizard.StartOver(ctx)
	default:
		return true, nil
	}
	return false, nil
}

// recovery shows a failure and returns the chosen action. Quitting returns
// the failure itself.
func (r *Runner) recovery(ctx context.Context, phase Phase, failure error) (Action, error) {
	act, err := r.surface.Failure(ctx, phase, domain.Message(failure))
	if err != nil {
		return ActionQuit, err
	}
	if act == ActionQuit {
		return ActionQuit, domain.Classify(failure)
	}
	r.logger.Debug("recovering", "phase", phase.String(), "action", int(act))
	return act, nil
}

// snapshot copies the active session into res; without a session res is
// returned as is.
func (r *Runner) snapshot(res Result) Result {
	sess := r.wizard.Session()
	if sess == nil {
		return res
	}
	res.Session = sess.Session()
	res.Transcript = sess.Conversation.Entries()
	if url := r.wizard.DownloadURL(); url != "" {
		res.DownloadURL = url
	}
	return res
}
