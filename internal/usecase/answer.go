package usecase

import (
	"fmt"
	"strings"

	"pdf-form-filler/internal/domain"
)

const opAnswer = "validate answer"

// NormalizeAnswer applies the field's input constraint to a raw answer. The
// returned value is what gets submitted.
func NormalizeAnswer(f domain.Field, raw string) (string, error) {
	answer := strings.TrimSpace(raw)
	if answer == "" {
		return "", domain.NewValidationError(opAnswer, "Answer must not be empty")
	}
	if f.Type == domain.FieldCheckbox {
		v := strings.ToLower(answer)
		if v != domain.AnswerYes && v != domain.AnswerNo {
			return "", domain.NewValidationError(opAnswer, fmt.Sprintf("Answer for %q must be yes or no", f.Name))
		}
		return v, nil
	}
	return answer, nil
}
