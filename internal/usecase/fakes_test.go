package usecase

import (
	"context"
	"errors"
	"io"
	"strings"

	"pdf-form-filler/internal/domain"
)

type questionResult struct {
	q   domain.Question
	err error
}

// fakeClient replays scripted responses and records every call in order.
type fakeClient struct {
	uploadOut domain.UploadResult
	uploadErr error

	questions []questionResult
	qIdx      int

	submitErrs []error
	sIdx       int
	ack        domain.AnswerAck

	statuses   []domain.Status
	statusErr  error
	statusErrs []error
	stIdx      int
	steIdx     int

	completeOut  domain.Completion
	completeErrs []error
	cIdx         int

	downloadBody string
	downloadErr  error

	calls     []string
	submitted []submission
}

type submission struct {
	sessionID, field, answer string
}

func (f *fakeClient) Upload(_ context.Context, in domain.UploadFile) (domain.UploadResult, error) {
	f.calls = append(f.calls, "upload")
	if in.Content != nil {
		_, _ = io.ReadAll(in.Content)
	}
	return f.uploadOut, f.uploadErr
}

func (f *fakeClient) NextQuestion(_ context.Context, sessionID string) (domain.Question, error) {
	f.calls = append(f.calls, "question")
	if len(f.questions) == 0 {
		return domain.Question{}, errors.New("no question configured")
	}
	idx := f.qIdx
	if idx >= len(f.questions) {
		idx = len(f.questions) - 1
	}
	f.qIdx++
	return f.questions[idx].q, f.questions[idx].err
}

func (f *fakeClient) SubmitAnswer(_ context.Context, sessionID, fieldName, answer string) (domain.AnswerAck, error) {
	f.calls = append(f.calls, "answer")
	f.submitted = append(f.submitted, submission{sessionID, fieldName, answer})
	var err error
	if f.sIdx < len(f.submitErrs) {
		err = f.submitErrs[f.sIdx]
	}
	f.sIdx++
	if err != nil {
		return domain.AnswerAck{}, err
	}
	ack := f.ack
	if ack.ProcessedValue == "" {
		ack.ProcessedValue = answer
	}
	return ack, nil
}

func (f *fakeClient) Status(_ context.Context, sessionID string) (domain.Status, error) {
	f.calls = append(f.calls, "status")
	if f.steIdx < len(f.statusErrs) {
		err := f.statusErrs[f.steIdx]
		f.steIdx++
		if err != nil {
			return domain.Status{}, err
		}
	}
	if f.statusErr != nil {
		return domain.Status{}, f.statusErr
	}
	if len(f.statuses) == 0 {
		return domain.Status{}, nil
	}
	idx := f.stIdx
	if idx >= len(f.statuses) {
		idx = len(f.statuses) - 1
	}
	f.stIdx++
	return f.statuses[idx], nil
}

func (f *fakeClient) Complete(_ context.Context, sessionID string) (domain.Completion, error) {
	f.calls = append(f.calls, "complete")
	var err error
	if f.cIdx < len(f.completeErrs) {
		err = f.completeErrs[f.cIdx]
	}
	f.cIdx++
	if err != nil {
		return domain.Completion{}, err
	}
	return f.completeOut, nil
}

func (f *fakeClient) Download(_ context.Context, sessionID string, w io.Writer) (int64, error) {
	f.calls = append(f.calls, "download")
	if f.downloadErr != nil {
		return 0, f.downloadErr
	}
	n, err := io.Copy(w, strings.NewReader(f.downloadBody))
	return n, err
}

func (f *fakeClient) ResolveURL(ref string) string {
	return "http://svc" + ref
}

func ask(field string, typ domain.FieldType, text string) questionResult {
	return questionResult{q: domain.Question{Text: text, FieldName: field, FieldType: typ}}
}

func done() questionResult {
	return questionResult{q: domain.Question{Text: "All fields have been filled!", IsComplete: true}}
}

func failQ(err error) questionResult {
	return questionResult{err: err}
}

func serviceErr(msg string) *domain.Error {
	return &domain.Error{Kind: domain.KindService, Message: msg, StatusCode: 400}
}

type fakeStore struct {
	saved     []domain.Bookmark
	deleted   []string
	saveErr   error
	deleteErr error
	bookmarks map[string]domain.Bookmark
}

func (s *fakeStore) SaveBookmark(_ context.Context, b domain.Bookmark) error {
	s.saved = append(s.saved, b)
	return s.saveErr
}

func (s *fakeStore) DeleteBookmark(_ context.Context, owner, sessionID string) error {
	s.deleted = append(s.deleted, owner+"/"+sessionID)
	return s.deleteErr
}

func (s *fakeStore) GetBookmark(_ context.Context, owner, sessionID string) (domain.Bookmark, bool, error) {
	b, ok := s.bookmarks[sessionID]
	return b, ok, nil
}
