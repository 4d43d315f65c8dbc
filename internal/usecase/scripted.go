package usecase

import (
	"context"
	"fmt"

	"pdf-form-filler/internal/domain"
)

const opScript = "scripted answers"

// ScriptedSurface answers questions from a fixed map and never recovers
// from failures. It drives non-interactive fills.
type ScriptedSurface struct {
	answers  map[string]string
	fallback string
	download bool

	downloaded bool
	saved      []string
}

// NewScriptedSurface answers each field from answers, or with fallback when
// a field is not listed and fallback is non-empty. When download is set the
// completed form is downloaded once before quitting.
func NewScriptedSurface(answers map[string]string, fallback string, download bool) *ScriptedSurface {
	copied := make(map[string]string, len(answers))
	for k, v := range answers {
		copied[k] = v
	}
	return &ScriptedSurface{answers: copied, fallback: fallback, download: download}
}

func (s *ScriptedSurface) ChooseFile(context.Context) (string, error) {
	return "", domain.NewValidationError(opScript, "No file to upload")
}

func (s *ScriptedSurface) Answer(_ context.Context, _ *SessionContext, q domain.Question) (string, error) {
	if v, ok := s.answers[q.FieldName]; ok {
		return v, nil
	}
	if s.fallback != "" {
		return s.fallback, nil
	}
	return "", domain.NewValidationError(opScript, fmt.Sprintf("No answer provided for field %q", q.FieldName))
}

func (s *ScriptedSurface) Failure(context.Context, Phase, string) (Action, error) {
	return ActionQuit, nil
}

func (s *ScriptedSurface) Completed(context.Context, *SessionContext, *Completion) (Action, error) {
	if s.download && !s.downloaded {
		s.downloaded = true
		return ActionDownload, nil
	}
	return ActionQuit, nil
}

func (s *ScriptedSurface) Saved(path string) {
	s.saved = append(s.saved, path)
}
