package formapi

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"pdf-form-filler/internal/domain"
)

// errorEnvelope is the structured failure body the service emits.
type errorEnvelope struct {
	Detail json.RawMessage `json:"detail"`
}

// validationIssue is one entry of a list-shaped detail.
type validationIssue struct {
	Msg string `json:"msg"`
}

// classify applies the single failure policy to every call: a structured
// detail wins, then 413, then the 5xx class, then the raw transport message.
func classify(op string, status int, body []byte, cause error) *domain.Error {
	if detail := parseDetail(body); detail != "" {
		return &domain.Error{Kind: domain.KindService, Op: op, Message: detail, StatusCode: status, Err: cause}
	}
	switch {
	case status == http.StatusRequestEntityTooLarge:
		return &domain.Error{Kind: domain.KindPayloadTooLarge, Op: op, Message: domain.MessageFileTooLarge, StatusCode: status}
	case status >= http.StatusInternalServerError:
		return &domain.Error{Kind: domain.KindServer, Op: op, Message: domain.MessageServerError, StatusCode: status}
	}

	msg := domain.MessageUnexpected
	switch {
	case cause != nil && cause.Error() != "":
		msg = cause.Error()
	case status != 0:
		msg = fmt.Sprintf("Request failed with status code %d", status)
	}
	return &domain.Error{Kind: domain.KindTransfer, Op: op, Message: msg, StatusCode: status, Err: cause}
}

// parseDetail extracts a human-readable detail from an error body. String
// details are returned verbatim; list details join their messages.
func parseDetail(body []byte) string {
	body = bytes.TrimSpace(body)
	if len(body) == 0 || body[0] != '{' {
		return ""
	}
	var env errorEnvelope
	if err := json.Unmarshal(body, &env); err != nil || len(env.Detail) == 0 {
		return ""
	}

	var text string
	if err := json.Unmarshal(env.Detail, &text); err == nil {
		return text
	}

	var issues []validationIssue
	if err := json.Unmarshal(env.Detail, &issues); err == nil {
		msgs := make([]string, 0, len(issues))
		for _, is := range issues {
			if m := strings.TrimSpace(is.Msg); m != "" {
				msgs = append(msgs, m)
			}
		}
		return strings.Join(msgs, "; ")
	}

	if string(env.Detail) == "null" {
		return ""
	}
	return string(env.Detail)
}
