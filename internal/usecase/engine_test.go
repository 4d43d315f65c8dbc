package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"pdf-form-filler/internal/domain"
)

func newTestEngine(t *testing.T, client *fakeClient, opts ...EngineOption) *Engine {
	t.Helper()
	e, err := NewEngine(client, newSessionContext("s-1", "form.pdf", 3), opts...)
	require.NoError(t, err)
	return e
}

func TestNewEngine_ValidatesDependencies(t *testing.T) {
	_, err := NewEngine(nil, newSessionContext("s-1", "f.pdf", 1))
	require.Error(t, err)

	_, err = NewEngine(&fakeClient{}, nil)
	require.Error(t, err)

	_, err = NewEngine(&fakeClient{}, newSessionContext("", "f.pdf", 1))
	require.Error(t, err)
}

func TestEngine_StartsInLoading(t *testing.T) {
	e := newTestEngine(t, &fakeClient{})
	require.Equal(t, StateLoading, e.State())
	_, ok := e.Current()
	require.False(t, ok)
}

func TestEngine_LoadAwaitsAnswer(t *testing.T) {
	client := &fakeClient{questions: []questionResult{ask("ssn", domain.FieldText, "What is the applicant's SSN?")}}
	e := newTestEngine(t, client)

	ev := e.Load(context.Background())
	aw, ok := ev.(AwaitingAnswer)
	require.True(t, ok)
	require.Equal(t, "s-1", aw.SessionID)
	require.Equal(t, StateAwaitingAnswer, e.State())

	q, ok := e.Current()
	require.True(t, ok)
	require.Equal(t, domain.Field{Name: "ssn", Type: domain.FieldText}, q.Field())
	require.Equal(t, "What is the applicant's SSN?", q.Text)
	require.Zero(t, e.Session().Conversation.Len(), "nothing is logged before an answer")
}

func TestEngine_LoadCompleteOnlyOnFlag(t *testing.T) {
	client := &fakeClient{questions: []questionResult{done()}}
	e := newTestEngine(t, client)

	ev := e.Load(context.Background())
	require.IsType(t, Complete{}, ev)
	require.Equal(t, StateComplete, e.State())

	// loading again after completion does not hit the service
	ev = e.Load(context.Background())
	require.IsType(t, Complete{}, ev)
	require.Equal(t, []string{"question"}, client.calls)
}

func TestEngine_FullCountsDoNotComplete(t *testing.T) {
	client := &fakeClient{
		questions: []questionResult{ask("a", domain.FieldText, "A?"), ask("b", domain.FieldText, "B?")},
		statuses:  []domain.Status{{FilledFields: 3, TotalFields: 3}},
	}
	e := newTestEngine(t, client)
	e.Load(context.Background())

	ev, err := e.Submit(context.Background(), "x")
	require.NoError(t, err)
	require.IsType(t, AwaitingAnswer{}, ev, "filled == total must not end the session")
	require.Equal(t, domain.Progress{Filled: 3, Total: 3}, e.Session().Progress.Snapshot())
}

func TestEngine_LoadFailure(t *testing.T) {
	client := &fakeClient{questions: []questionResult{failQ(serviceErr("Session not found"))}}
	e := newTestEngine(t, client)

	ev := e.Load(context.Background())
	failed, ok := ev.(Failed)
	require.True(t, ok)
	require.Equal(t, StateLoading, failed.From)
	require.Equal(t, "Session not found", failed.Err.Message)
	require.Equal(t, StateFailed, e.State())
	require.Equal(t, "Session not found", e.Err().Message)
}

func TestEngine_LoadQuestionWithoutField(t *testing.T) {
	client := &fakeClient{questions: []questionResult{{q: domain.Question{Text: "?"}}}}
	e := newTestEngine(t, client)

	ev := e.Load(context.Background())
	require.IsType(t, Failed{}, ev)
	require.Equal(t, domain.KindTransfer, e.Err().Kind)
}

func TestEngine_SubmitOrder(t *testing.T) {
	client := &fakeClient{
		questions: []questionResult{ask("ssn", domain.FieldText, "What is the applicant's SSN?"), done()},
		statuses:  []domain.Status{{FilledFields: 1, TotalFields: 1}},
	}
	e := newTestEngine(t, client)
	e.Load(context.Background())

	ev, err := e.Submit(context.Background(), "123-45-6789")
	require.NoError(t, err)
	require.IsType(t, Complete{}, ev)
	require.Equal(t, []submission{{"s-1", "ssn", "123-45-6789"}}, client.submitted)
	require.Equal(t, []string{"question", "answer", "status", "question"}, client.calls)

	require.Equal(t, []domain.ConversationEntry{
		{Kind: domain.EntryQuestion, Text: "What is the applicant's SSN?", FieldName: "ssn"},
		{Kind: domain.EntryAnswer, Text: "123-45-6789"},
	}, e.Session().Conversation.Entries())
	require.Equal(t, "123-45-6789", e.Session().LastProcessed)
}

func TestEngine_SubmitEmptyIsNoop(t *testing.T) {
	client := &fakeClient{questions: []questionResult{ask("ssn", domain.FieldText, "SSN?")}}
	e := newTestEngine(t, client)
	e.Load(context.Background())

	for _, raw := range []string{"", "   ", "\n\t"} {
		ev, err := e.Submit(context.Background(), raw)
		require.Nil(t, ev)
		require.Equal(t, domain.KindValidation, domain.KindOf(err))
		require.Equal(t, StateAwaitingAnswer, e.State())
	}
	require.Empty(t, client.submitted)
}

func TestEngine_CheckboxVocabulary(t *testing.T) {
	client := &fakeClient{questions: []questionResult{ask("agree", domain.FieldCheckbox, "Do you agree?"), done()}}
	e := newTestEngine(t, client)
	e.Load(context.Background())

	_, err := e.Submit(context.Background(), "maybe")
	require.Equal(t, domain.KindValidation, domain.KindOf(err))
	require.Empty(t, client.submitted)

	_, err = e.Submit(context.Background(), " Yes ")
	require.NoError(t, err)
	require.Equal(t, "yes", client.submitted[0].answer)
}

func TestEngine_SubmitWithoutPendingField(t *testing.T) {
	e := newTestEngine(t, &fakeClient{})
	_, err := e.Submit(context.Background(), "x")
	require.Equal(t, domain.KindValidation, domain.KindOf(err))
	require.Equal(t, StateLoading, e.State())
}

func TestEngine_SubmitFailureIsNotRetried(t *testing.T) {
	client := &fakeClient{
		questions:  []questionResult{ask("ssn", domain.FieldText, "SSN?"), ask("ssn", domain.FieldText, "SSN?")},
		submitErrs: []error{&domain.Error{Kind: domain.KindServer, Message: domain.MessageServerError, StatusCode: 500}},
	}
	e := newTestEngine(t, client)
	e.Load(context.Background())

	ev, err := e.Submit(context.Background(), "123")
	require.NoError(t, err)
	failed, ok := ev.(Failed)
	require.True(t, ok)
	require.Equal(t, StateSubmitting, failed.From)
	require.Len(t, client.submitted, 1)
	require.Zero(t, e.Session().Conversation.Len())
	_, pending := e.Current()
	require.False(t, pending)

	// manual retry goes back through Loading and asks again
	ev, err = e.Retry(context.Background())
	require.NoError(t, err)
	require.IsType(t, AwaitingAnswer{}, ev)
	require.Nil(t, e.Err())
	require.Len(t, client.submitted, 1)
}

func TestEngine_RetryOnlyFromFailed(t *testing.T) {
	e := newTestEngine(t, &fakeClient{})
	_, err := e.Retry(context.Background())
	require.Equal(t, domain.KindValidation, domain.KindOf(err))
}

func TestEngine_StatusFailureDoesNotBlock(t *testing.T) {
	client := &fakeClient{
		questions: []questionResult{ask("a", domain.FieldText, "A?"), ask("b", domain.FieldText, "B?")},
		statusErr: errors.New("connection reset"),
	}
	e := newTestEngine(t, client)
	e.Load(context.Background())

	ev, err := e.Submit(context.Background(), "x")
	require.NoError(t, err)
	aw, ok := ev.(AwaitingAnswer)
	require.True(t, ok)
	require.Equal(t, "b", aw.Question.FieldName)
	require.Equal(t, domain.Progress{Filled: 0, Total: 3}, e.Session().Progress.Snapshot())
}

func TestEngine_ProgressMonotonic(t *testing.T) {
	client := &fakeClient{
		questions: []questionResult{ask("a", domain.FieldText, "A?"), ask("b", domain.FieldText, "B?"), ask("c", domain.FieldText, "C?")},
		statuses:  []domain.Status{{FilledFields: 2, TotalFields: 3}, {FilledFields: 1, TotalFields: 3}},
	}
	e := newTestEngine(t, client)
	e.Load(context.Background())

	_, err := e.Submit(context.Background(), "x")
	require.NoError(t, err)
	require.Equal(t, 2, e.Session().Progress.Snapshot().Filled)

	_, err = e.Submit(context.Background(), "y")
	require.NoError(t, err)
	require.Equal(t, 2, e.Session().Progress.Snapshot().Filled)
}

func TestEngine_ObserverSeesTransientStates(t *testing.T) {
	client := &fakeClient{questions: []questionResult{ask("a", domain.FieldText, "A?"), done()}}
	var states []State
	e := newTestEngine(t, client, WithObserver(func(ev Event) { states = append(states, ev.State()) }))
	e.Load(context.Background())
	_, err := e.Submit(context.Background(), "x")
	require.NoError(t, err)

	require.Equal(t, []State{StateLoading, StateAwaitingAnswer, StateSubmitting, StateLoading, StateComplete}, states)
}

func TestState_String(t *testing.T) {
	require.Equal(t, "awaiting_answer", StateAwaitingAnswer.String())
	require.Equal(t, "unknown", State(42).String())
}
