package usecase

import "pdf-form-filler/internal/domain"

// State is a Protocol Engine state.
type State int

const (
	StateLoading State = iota
	StateAwaitingAnswer
	StateSubmitting
	StateComplete
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateLoading:
		return "loading"
	case StateAwaitingAnswer:
		return "awaiting_answer"
	case StateSubmitting:
		return "submitting"
	case StateComplete:
		return "complete"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Event is a state transition emitted by the Engine. The set of
// implementations is closed: Loading, AwaitingAnswer, Submitting, Complete
// and Failed.
type Event interface {
	State() State
	Session() string
	isEvent()
}

type Loading struct {
	SessionID string
}

type AwaitingAnswer struct {
	SessionID string
	Question  domain.Question
}

type Submitting struct {
	SessionID string
	Field     domain.Field
	Answer    string
}

type Complete struct {
	SessionID string
	Message   string
}

// Failed carries an already classified error.
type Failed struct {
	SessionID string
	From      State
	Err       *domain.Error
}

func (Loading) State() State        { return StateLoading }
func (AwaitingAnswer) State() State { return StateAwaitingAnswer }
func (Submitting) State() State     { return StateSubmitting }
func (Complete) State() State       { return StateComplete }
func (Failed) State() State         { return StateFailed }

func (e Loading) Session() string        { return e.SessionID }
func (e AwaitingAnswer) Session() string { return e.SessionID }
func (e Submitting) Session() string     { return e.SessionID }
func (e Complete) Session() string       { return e.SessionID }
func (e Failed) Session() string         { return e.SessionID }

func (Loading) isEvent()        {}
func (AwaitingAnswer) isEvent() {}
func (Submitting) isEvent()     {}
func (Complete) isEvent()       {}
func (Failed) isEvent()         {}
