package usecase

import (
	"context"
	"errors"
	"log/slog"

	"pdf-form-filler/internal/domain"
)

const opProtocol = "fill protocol"

// Engine drives the question/answer loop for one session. It is not safe
// for concurrent use: fetch, answer and submit are serialized by design of
// the protocol, so no two submissions for a session can race.
type Engine struct {
	client  SessionClient
	sess    *SessionContext
	logger  *slog.Logger
	observe func(Event)

	state   State
	current *domain.Question
	lastErr *domain.Error
}

type EngineOption func(*Engine)

func WithEngineLogger(logger *slog.Logger) EngineOption {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithObserver receives every transition, including the transient Loading
// and Submitting states, for display.
func WithObserver(fn func(Event)) EngineOption {
	return func(e *Engine) {
		e.observe = fn
	}
}

// NewEngine returns an Engine in StateLoading for sess.
func NewEngine(client SessionClient, sess *SessionContext, opts ...EngineOption) (*Engine, error) {
	if client == nil {
		return nil, errors.New("usecase: session client must not be nil")
	}
	if sess == nil || sess.ID == "" {
		return nil, errors.New("usecase: session must have an id")
	}
	e := &Engine{
		client: client,
		sess:   sess,
		logger: slog.Default(),
		state:  StateLoading,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

func (e *Engine) State() State {
	return e.state
}

// Current returns the question awaiting an answer, if any.
func (e *Engine) Current() (domain.Question, bool) {
	if e.state != StateAwaitingAnswer || e.current == nil {
		return domain.Question{}, false
	}
	return *e.current, true
}

// Err returns the failure that put the engine in StateFailed.
func (e *Engine) Err() *domain.Error {
	return e.lastErr
}

func (e *Engine) Session() *SessionContext {
	return e.sess
}

// Load performs the Loading fetch. Completion is decided only by the
// is_complete flag of the response, never by progress counts.
func (e *Engine) Load(ctx context.Context) Event {
	if e.state == StateComplete {
		return Complete{SessionID: e.sess.ID}
	}
	e.current = nil
	e.enter(Loading{SessionID: e.sess.ID})

	q, err := e.client.NextQuestion(ctx, e.sess.ID)
	if err != nil {
		return e.fail(StateLoading, err)
	}
	if q.IsComplete {
		return e.enter(Complete{SessionID: e.sess.ID, Message: q.Text})
	}
	if q.FieldName == "" {
		return e.fail(StateLoading, &domain.Error{
			Kind:    domain.KindTransfer,
			Op:      opProtocol,
			Message: "The service returned a question without a field",
		})
	}
	e.current = &q
	return e.enter(AwaitingAnswer{SessionID: e.sess.ID, Question: q})
}

// Submit answers the current question. A rejected answer (empty, or outside
// a checkbox's yes/no vocabulary) returns a validation error and leaves the
// engine where it was. A remote failure moves to StateFailed and is not
// retried. On success the log is appended, progress is refreshed, and the
// next question is fetched, in that order.
func (e *Engine) Submit(ctx context.Context, raw string) (Event, error) {
	if e.state != StateAwaitingAnswer || e.current == nil {
		return nil, domain.NewValidationError(opProtocol, "No field is awaiting an answer")
	}
	q := *e.current
	answer, err := NormalizeAnswer(q.Field(), raw)
	if err != nil {
		return nil, err
	}

	e.enter(Submitting{SessionID: e.sess.ID, Field: q.Field(), Answer: answer})
	ack, err := e.client.SubmitAnswer(ctx, e.sess.ID, q.FieldName, answer)
	if err != nil {
		e.current = nil
		return e.fail(StateSubmitting, err), nil
	}

	e.sess.Conversation.Record(q, answer)
	e.sess.LastProcessed = ack.ProcessedValue
	e.refreshProgress(ctx)
	return e.Load(ctx), nil
}

// Retry re-enters Loading from StateFailed.
func (e *Engine) Retry(ctx context.Context) (Event, error) {
	if e.state != StateFailed {
		return nil, domain.NewValidationError(opProtocol, "Nothing to retry")
	}
	e.lastErr = nil
	return e.Load(ctx), nil
}

// refreshProgress is best-effort: its failure never blocks the loop.
func (e *Engine) refreshProgress(ctx context.Context) {
	st, err := e.client.Status(ctx, e.sess.ID)
	if err != nil {
		e.logger.Warn("progress refresh failed", "session_id", e.sess.ID, "err", domain.Classify(err))
		return
	}
	e.sess.Progress.Observe(st)
}

func (e *Engine) enter(ev Event) Event {
	e.state = ev.State()
	e.logger.Debug("fill protocol transition", "session_id", e.sess.ID, "state", e.state.String())
	if e.observe != nil {
		e.observe(ev)
	}
	return ev
}

func (e *Engine) fail(from State, err error) Event {
	classified := domain.Classify(err)
	e.lastErr = classified
	return e.enter(Failed{SessionID: e.sess.ID, From: from, Err: classified})
}
