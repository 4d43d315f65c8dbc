package usecase

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"pdf-form-filler/internal/domain"
)

// Phase is a top-level wizard step.
type Phase int

const (
	PhaseUpload Phase = iota
	PhaseConversation
	PhaseCompletion
)

func (p Phase) String() string {
	switch p {
	case PhaseUpload:
		return "upload"
	case PhaseConversation:
		return "conversation"
	case PhaseCompletion:
		return "completion"
	default:
		return "unknown"
	}
}

const opWizard = "wizard"

// urlResolver is implemented by clients that can make service-relative
// download references absolute.
type urlResolver interface {
	ResolveURL(ref string) string
}

// Wizard sequences Upload, Conversation and Completion. All session state
// lives in the SessionContext it creates; StartOver drops it unconditionally.
type Wizard struct {
	client  SessionClient
	saver   Saver
	store   BookmarkStore
	owner   string
	logger  *slog.Logger
	observe func(Event)

	phase      Phase
	sess       *SessionContext
	engine     *Engine
	completion *Completion
	uploadErr  *domain.Error
}

type WizardOption func(*Wizard)

func WithLogger(logger *slog.Logger) WizardOption {
	return func(w *Wizard) {
		if logger != nil {
			w.logger = logger
		}
	}
}

// WithSaver sets where completed forms are downloaded to.
func WithSaver(s Saver) WizardOption {
	return func(w *Wizard) {
		w.saver = s
	}
}

// WithBookmarks records session pointers for owner in store.
func WithBookmarks(store BookmarkStore, owner string) WizardOption {
	return func(w *Wizard) {
		w.store = store
		w.owner = owner
	}
}

// WithEventObserver is passed to every Engine the wizard creates.
func WithEventObserver(fn func(Event)) WizardOption {
	return func(w *Wizard) {
		w.observe = fn
	}
}

func NewWizard(client SessionClient, opts ...WizardOption) (*Wizard, error) {
	if client == nil {
		return nil, errors.New("usecase: session client must not be nil")
	}
	w := &Wizard{
		client: client,
		logger: slog.Default(),
		phase:  PhaseUpload,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

func (w *Wizard) Phase() Phase {
	return w.phase
}

// Session returns the active session context, nil during Upload.
func (w *Wizard) Session() *SessionContext {
	return w.sess
}

// Engine returns the protocol engine, nil outside a session.
func (w *Wizard) Engine() *Engine {
	return w.engine
}

// Completion returns the completion generator, nil before Completion.
func (w *Wizard) Completion() *Completion {
	return w.completion
}

// UploadError is the inline error of the last failed upload or resume.
func (w *Wizard) UploadError() string {
	if w.uploadErr == nil {
		return ""
	}
	return w.uploadErr.Message
}

// DownloadURL returns the absolute download location once completion is
// ready.
func (w *Wizard) DownloadURL() string {
	if w.completion == nil || !w.completion.Ready() {
		return ""
	}
	ref := w.completion.Result().DownloadURL
	if r, ok := w.client.(urlResolver); ok {
		return r.ResolveURL(ref)
	}
	return ref
}

// Upload sends f and, on success, enters Conversation with progress
// {0, total_fields}. On failure the wizard stays in Upload.
func (w *Wizard) Upload(ctx context.Context, f domain.UploadFile) error {
	if w.phase != PhaseUpload {
		return domain.NewValidationError(opWizard, "A session is already in progress")
	}
	res, err := w.client.Upload(ctx, f)
	if err != nil {
		w.uploadErr = domain.Classify(err)
		w.logger.Warn("upload failed", "filename", f.Name, "err", w.uploadErr)
		return w.uploadErr
	}
	filename := res.Filename
	if filename == "" {
		filename = f.Name
	}
	w.logger.Info("form uploaded", "session_id", res.SessionID, "filename", filename, "total_fields", res.TotalFields)
	return w.begin(ctx, newSessionContext(res.SessionID, filename, res.TotalFields))
}

// Resume enters Conversation for an existing session, seeding progress
// from the service's status.
func (w *Wizard) Resume(ctx context.Context, sessionID, filename string) error {
	if w.phase != PhaseUpload {
		return domain.NewValidationError(opWizard, "A session is already in progress")
	}
	st, err := w.client.Status(ctx, sessionID)
	if err != nil {
		w.uploadErr = domain.Classify(err)
		w.logger.Warn("resume failed", "session_id", sessionID, "err", w.uploadErr)
		return w.uploadErr
	}
	sess := newSessionContext(sessionID, filename, st.TotalFields)
	sess.Progress.Observe(st)
	w.logger.Info("session resumed", "session_id", sessionID, "filled_fields", st.FilledFields, "total_fields", st.TotalFields)
	return w.begin(ctx, sess)
}

func (w *Wizard) begin(ctx context.Context, sess *SessionContext) error {
	engine, err := NewEngine(w.client, sess, WithEngineLogger(w.logger), WithObserver(w.observe))
	if err != nil {
		w.uploadErr = domain.Classify(err)
		return w.uploadErr
	}
	w.uploadErr = nil
	w.sess = sess
	w.engine = engine
	w.completion = nil
	w.phase = PhaseConversation
	w.saveBookmark(ctx)
	return nil
}

// Dispatch consumes an engine event. Events for a session other than the
// active one are late arrivals from a discarded session and are ignored.
// It reports whether the event was applied.
func (w *Wizard) Dispatch(ctx context.Context, ev Event) bool {
	if ev == nil || w.sess == nil || ev.Session() != w.sess.ID {
		w.logger.Debug("ignoring event for inactive session", "phase", w.phase.String())
		return false
	}
	switch ev := ev.(type) {
	case Complete:
		if w.phase != PhaseConversation {
			return false
		}
		w.phase = PhaseCompletion
		w.completion = newCompletion(w.client, w.saver, w.sess, w.logger)
		_ = w.completion.Generate(ctx)
		w.saveBookmark(ctx)
	case AwaitingAnswer:
		w.saveBookmark(ctx)
	case Failed:
		w.logger.Warn("fill protocol failed", "session_id", ev.SessionID, "from", ev.From.String(), "err", ev.Err)
	}
	return true
}

// StartOver returns to Upload from any phase, discarding the session id,
// progress, conversation log and completion state. No call is made to the
// form service.
func (w *Wizard) StartOver(ctx context.Context) {
	if w.sess != nil && w.store != nil {
		if err := w.store.DeleteBookmark(ctx, w.owner, w.sess.ID); err != nil {
			w.logger.Warn("bookmark delete failed", "session_id", w.sess.ID, "err", err)
		}
	}
	w.phase = PhaseUpload
	w.sess = nil
	w.engine = nil
	w.completion = nil
	w.uploadErr = nil
}

func (w *Wizard) saveBookmark(ctx context.Context) {
	if w.store == nil || w.sess == nil {
		return
	}
	p := w.sess.Progress.Snapshot()
	b := domain.Bookmark{
		Owner:        w.owner,
		SessionID:    w.sess.ID,
		Filename:     w.sess.Filename,
		Phase:        w.phase.String(),
		FilledFields: p.Filled,
		TotalFields:  p.Total,
		UpdatedAt:    time.Now().UTC().Format(time.RFC3339),
	}
	if err := w.store.SaveBookmark(ctx, b); err != nil {
		w.logger.Warn("bookmark save failed", "session_id", w.sess.ID, "err", err)
	}
}
