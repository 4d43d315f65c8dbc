package handler

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/aws/aws-lambda-go/events"
	"github.com/google/uuid"

	"pdf-form-filler/internal/domain"
	"pdf-form-filler/internal/usecase"
)

const (
	fillPath          = "/fill"
	correlationHeader = "X-Correlation-Id"

	errorInvalidInput = "INVALID_INPUT"
	errorNotFound     = "NOT_FOUND"
	errorMethod       = "METHOD_NOT_ALLOWED"
	errorInternal     = "INTERNAL"
)

// Filler runs a scripted fill. *usecase.FillService satisfies it.
type Filler interface {
	Fill(ctx context.Context, in usecase.FillInput) (usecase.FillOutput, error)
}

type Handler struct {
	filler Filler
	logger *slog.Logger
}

type Option func(*Handler)

func WithLogger(logger *slog.Logger) Option {
	return func(h *Handler) {
		if logger != nil {
			h.logger = logger
		}
	}
}

func NewHandler(f Filler, opts ...Option) (*Handler, error) {
	if f == nil {
		return nil, errors.New("handler: filler must not be nil")
	}
	h := &Handler{filler: f, logger: slog.Default()}
	for _, opt := range opts {
		opt(h)
	}
	return h, nil
}

type fillRequest struct {
	SessionID  string            `json:"session_id"`
	Filename   string            `json:"filename"`
	FileBase64 string            `json:"file_base64"`
	Answers    map[string]string `json:"answers"`
	Default    string            `json:"default"`
}

type fillResponse struct {
	SessionID    string                     `json:"session_id"`
	Filename     string                     `json:"filename"`
	DownloadURL  string                     `json:"download_url"`
	FilledFields int                        `json:"filled_fields"`
	TotalFields  int                        `json:"total_fields"`
	Transcript   []domain.ConversationEntry `json:"transcript"`
}

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// Handle serves POST /fill from API Gateway.
func (h *Handler) Handle(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	correlationID := headerValue(req.Headers, correlationHeader)
	if correlationID == "" {
		correlationID = uuid.NewString()
	}
	logger := h.logger.With("correlation_id", correlationID)

	if !strings.HasSuffix(strings.TrimRight(req.Path, "/"), fillPath) {
		return respond(correlationID, http.StatusNotFound, errorResponse{Error: errorNotFound}), nil
	}
	if req.HTTPMethod != http.MethodPost {
		return respond(correlationID, http.StatusMethodNotAllowed, errorResponse{Error: errorMethod}), nil
	}

	in, err := decodeRequest(req)
	if err != nil {
		logger.Warn("invalid fill request", "err", err)
		return respond(correlationID, http.StatusBadRequest, errorResponse{Error: errorInvalidInput, Message: err.Error()}), nil
	}

	out, err := h.filler.Fill(ctx, in)
	if err != nil {
		status, body := mapError(err)
		logger.Error("fill failed", "status", status, "err", domain.Classify(err))
		return respond(correlationID, status, body), nil
	}

	logger.Info("fill completed", "session_id", out.SessionID, "filled_fields", out.Progress.Filled, "total_fields", out.Progress.Total)
	return respond(correlationID, http.StatusOK, fillResponse{
		SessionID:    out.SessionID,
		Filename:     out.Filename,
		DownloadURL:  out.DownloadURL,
		FilledFields: out.Progress.Filled,
		TotalFields:  out.Progress.Total,
		Transcript:   out.Transcript,
	}), nil
}

func decodeRequest(req events.APIGatewayProxyRequest) (usecase.FillInput, error) {
	body := req.Body
	if req.IsBase64Encoded {
		raw, err := base64.StdEncoding.DecodeString(body)
		if err != nil {
			return usecase.FillInput{}, errors.New("request body is not valid base64")
		}
		body = string(raw)
	}

	var r fillRequest
	if err := json.Unmarshal([]byte(body), &r); err != nil {
		return usecase.FillInput{}, errors.New("request body must be a JSON object")
	}

	in := usecase.FillInput{
		SessionID: strings.TrimSpace(r.SessionID),
		Filename:  strings.TrimSpace(r.Filename),
		Answers:   r.Answers,
		Default:   r.Default,
	}
	if r.FileBase64 != "" {
		content, err := base64.StdEncoding.DecodeString(r.FileBase64)
		if err != nil {
			return usecase.FillInput{}, errors.New("file_base64 is not valid base64")
		}
		in.Content = content
		if in.Filename == "" {
			return usecase.FillInput{}, errors.New("filename is required with file_base64")
		}
	}
	if in.SessionID == "" && len(in.Content) == 0 {
		return usecase.FillInput{}, errors.New("session_id or file_base64 is required")
	}
	return in, nil
}

// mapError maps the failure taxonomy onto HTTP statuses.
func mapError(err error) (int, errorResponse) {
	var classified *domain.Error
	if !errors.As(err, &classified) {
		return http.StatusInternalServerError, errorResponse{Error: errorInternal}
	}
	body := errorResponse{Error: string(classified.Kind), Message: classified.Message}
	switch classified.Kind {
	case domain.KindValidation:
		return http.StatusBadRequest, body
	case domain.KindPayloadTooLarge:
		return http.StatusRequestEntityTooLarge, body
	case domain.KindService:
		return http.StatusUnprocessableEntity, body
	case domain.KindServer:
		return http.StatusBadGateway, body
	case domain.KindTransfer:
		if errors.Is(classified, context.DeadlineExceeded) {
			return http.StatusGatewayTimeout, body
		}
		return http.StatusBadGateway, body
	default:
		return http.StatusInternalServerError, errorResponse{Error: errorInternal}
	}
}

func respond(correlationID string, status int, v any) events.APIGatewayProxyResponse {
	body, err := json.Marshal(v)
	if err != nil {
		status = http.StatusInternalServerError
		body = []byte(`{"error":"` + errorInternal + `"}`)
	}
	return events.APIGatewayProxyResponse{
		StatusCode: status,
		Headers: map[string]string{
			"Content-Type":    "application/json",
			correlationHeader: correlationID,
		},
		Body: string(body),
	}
}

// headerValue looks up a header case-insensitively.
func headerValue(headers map[string]string, key string) string {
	for k, v := range headers {
		if strings.EqualFold(k, key) {
			return strings.TrimSpace(v)
		}
	}
	return ""
}
