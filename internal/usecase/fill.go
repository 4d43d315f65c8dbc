package usecase

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"

	"pdf-form-filler/internal/domain"
)

const opFill = "fill"

// BookmarkLookup resolves a bookmarked session.
type BookmarkLookup interface {
	GetBookmark(ctx context.Context, owner, sessionID string) (domain.Bookmark, bool, error)
}

// FillInput describes a non-interactive fill. Either SessionID (resume) or
// Content (upload) must be set.
type FillInput struct {
	SessionID string
	Filename  string
	Content   []byte
	Answers   map[string]string
	Default   string
}

type FillOutput struct {
	SessionID   string
	Filename    string
	DownloadURL string
	Progress    domain.Progress
	Transcript  []domain.ConversationEntry
}

// FillService drives the wizard with scripted answers.
type FillService struct {
	client SessionClient
	store  BookmarkStore
	owner  string
	logger *slog.Logger
}

type FillOption func(*FillService)

func WithFillBookmarks(store BookmarkStore, owner string) FillOption {
	return func(s *FillService) {
		s.store = store
		s.owner = owner
	}
}

func WithFillLogger(logger *slog.Logger) FillOption {
	return func(s *FillService) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func NewFillService(client SessionClient, opts ...FillOption) (*FillService, error) {
	if client == nil {
		return nil, errors.New("usecase: session client must not be nil")
	}
	s := &FillService{client: client, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Fill runs one session to completion. Each call builds its own wizard, so
// no state is shared between fills.
func (s *FillService) Fill(ctx context.Context, in FillInput) (FillOutput, error) {
	sessionID := strings.TrimSpace(in.SessionID)
	if sessionID == "" && len(in.Content) == 0 {
		return FillOutput{}, domain.NewValidationError(opFill, "Either a session id or a PDF file is required")
	}

	opts := []WizardOption{WithLogger(s.logger)}
	if s.store != nil {
		opts = append(opts, WithBookmarks(s.store, s.owner))
	}
	w, err := NewWizard(s.client, opts...)
	if err != nil {
		return FillOutput{}, err
	}
	r, err := NewRunner(w, NewScriptedSurface(in.Answers, in.Default, false), WithRunnerLogger(s.logger))
	if err != nil {
		return FillOutput{}, err
	}

	start := Start{SessionID: sessionID, Filename: in.Filename}
	if sessionID == "" {
		start.File = &domain.UploadFile{Name: in.Filename, Size: int64(len(in.Content)), Content: bytes.NewReader(in.Content)}
	} else if start.Filename == "" {
		start.Filename = s.lookupFilename(ctx, sessionID)
	}

	res, err := r.Run(ctx, start)
	if err != nil {
		return FillOutput{}, domain.Classify(err)
	}
	return FillOutput{
		SessionID:   res.Session.ID,
		Filename:    res.Session.Filename,
		DownloadURL: res.DownloadURL,
		Progress:    domain.Progress{Filled: res.Session.FilledFields, Total: res.Session.TotalFields},
		Transcript:  res.Transcript,
	}, nil
}

func (s *FillService) lookupFilename(ctx context.Context, sessionID string) string {
	lookup, ok := s.store.(BookmarkLookup)
	if !ok {
		return ""
	}
	b, found, err := lookup.GetBookmark(ctx, s.owner, sessionID)
	if err != nil {
		s.logger.Warn("bookmark lookup failed", "session_id", sessionID, "err", err)
		return ""
	}
	if !found {
		return ""
	}
	return b.Filename
}
