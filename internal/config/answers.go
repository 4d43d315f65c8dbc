package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Answers is a scripted answer source for non-interactive fills.
//
//	default: "N/A"
//	answers:
//	  applicant_name: Jane Doe
//	  agree_terms: "yes"
type Answers struct {
	// Default answers any field not listed in Fields; empty means none.
	Default string            `yaml:"default"`
	Fields  map[string]string `yaml:"answers"`
}

// LoadAnswers reads an answers file.
func LoadAnswers(path string) (Answers, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Answers{}, fmt.Errorf("config: read answers %s: %w", path, err)
	}
	a, err := ParseAnswers(data)
	if err != nil {
		return Answers{}, fmt.Errorf("config: %s: %w", path, err)
	}
	return a, nil
}

// ParseAnswers decodes an answers document. Unknown top-level keys are
// rejected so a misspelled "answers" key does not silently drop every answer.
func ParseAnswers(data []byte) (Answers, error) {
	var a Answers
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&a); err != nil && !errors.Is(err, io.EOF) {
		return Answers{}, fmt.Errorf("parse answers: %w", err)
	}
	fields := make(map[string]string, len(a.Fields))
	for name, value := range a.Fields {
		name = strings.TrimSpace(name)
		if name == "" {
			return Answers{}, errors.New("parse answers: empty field name")
		}
		fields[name] = value
	}
	a.Fields = fields
	a.Default = strings.TrimSpace(a.Default)
	return a, nil
}
