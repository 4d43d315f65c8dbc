package usecase

import (
	"context"
	"io"

	"pdf-form-filler/internal/domain"
)

// SessionClient is the remote session surface consumed by the usecases.
// *formapi.Client satisfies it.
type SessionClient interface {
	Upload(ctx context.Context, f domain.UploadFile) (domain.UploadResult, error)
	NextQuestion(ctx context.Context, sessionID string) (domain.Question, error)
	SubmitAnswer(ctx context.Context, sessionID, fieldName, answer string) (domain.AnswerAck, error)
	Status(ctx context.Context, sessionID string) (domain.Status, error)
	Complete(ctx context.Context, sessionID string) (domain.Completion, error)
	Download(ctx context.Context, sessionID string, w io.Writer) (int64, error)
}

// BookmarkStore persists session pointers. Failures are logged, never fatal.
type BookmarkStore interface {
	SaveBookmark(ctx context.Context, b domain.Bookmark) error
	DeleteBookmark(ctx context.Context, owner, sessionID string) error
}

// SessionContext holds everything scoped to one session. It is created on
// upload (or resume) and dropped on start-over; nothing outlives it.
type SessionContext struct {
	ID           string
	Filename     string
	Progress     *domain.Tracker
	Conversation *domain.Conversation

	// LastProcessed is the value the service stored for the latest answer.
	LastProcessed string
}

func newSessionContext(id, filename string, total int) *SessionContext {
	return &SessionContext{
		ID:           id,
		Filename:     filename,
		Progress:     domain.NewTracker(total),
		Conversation: &domain.Conversation{},
	}
}

// Session returns the derived session record.
func (s *SessionContext) Session() domain.Session {
	p := s.Progress.Snapshot()
	return domain.Session{ID: s.ID, Filename: s.Filename, TotalFields: p.Total, FilledFields: p.Filled}
}
