package formapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"pdf-form-filler/internal/domain"
)

const (
	// DefaultMaxUploadBytes is the client-side upload ceiling (10 MiB).
	DefaultMaxUploadBytes int64 = 10 * 1024 * 1024
	// DefaultTimeout is the per-request deadline of the underlying HTTP client.
	DefaultTimeout = 30 * time.Second
	// AcceptedExtension is the only upload suffix the service accepts.
	AcceptedExtension = ".pdf"

	maxErrorBody    = 4096
	maxResponseBody = 1 << 20
)

// operation names used in classified errors and logs.
const (
	opUpload       = "upload"
	opNextQuestion = "fetch next question"
	opSubmitAnswer = "submit answer"
	opStatus       = "fetch status"
	opFields       = "fetch fields"
	opComplete     = "complete form"
	opDownload     = "download form"
	opHealth       = "health check"
)

// answerRequest is the body of POST /session/{id}/answer.
type answerRequest struct {
	FieldName string `json:"field_name"`
	Answer    string `json:"answer"`
}

// Client is the Session Client: one method per remote capability of the form
// service. Every failure it returns is a *domain.Error.
type Client struct {
	baseURL        string
	httpClient     *http.Client
	apiToken       string
	maxUploadBytes int64
	logger         *slog.Logger
	newRequestID   func() string
}

type Option func(*Client)

func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithTimeout replaces the HTTP client with one bounded by d.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.httpClient = &http.Client{Timeout: d}
		}
	}
}

// WithAPIToken sends the token as a bearer credential on every request.
func WithAPIToken(token string) Option {
	return func(c *Client) {
		c.apiToken = strings.TrimSpace(token)
	}
}

func WithMaxUploadBytes(n int64) Option {
	return func(c *Client) {
		if n > 0 {
			c.maxUploadBytes = n
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewClient creates a Client for the service rooted at baseURL. A trailing
// separator on baseURL is dropped.
func NewClient(baseURL string, opts ...Option) (*Client, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, errors.New("formapi: base URL must not be empty")
	}
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("formapi: parse base URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("formapi: base URL %q must use http or https", baseURL)
	}
	c := &Client{
		baseURL:        baseURL,
		httpClient:     &http.Client{Timeout: DefaultTimeout},
		maxUploadBytes: DefaultMaxUploadBytes,
		logger:         slog.Default(),
		newRequestID:   uuid.NewString,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// BaseURL returns the normalized service root.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// MaxUploadBytes returns the configured upload ceiling.
func (c *Client) MaxUploadBytes() int64 {
	return c.maxUploadBytes
}

// DownloadURL returns the absolute download location for a session.
func (c *Client) DownloadURL(sessionID string) string {
	return c.baseURL + "/download/" + url.PathEscape(sessionID)
}

// ResolveURL makes a service-relative reference such as "/download/abc"
// absolute. Absolute references are returned unchanged.
func (c *Client) ResolveURL(ref string) string {
	if ref == "" {
		return ""
	}
	if u, err := url.Parse(ref); err == nil && u.IsAbs() {
		return ref
	}
	return c.baseURL + "/" + strings.TrimLeft(ref, "/")
}

// ValidateUpload applies the client-side upload preconditions.
func (c *Client) ValidateUpload(name string, size int64) error {
	if strings.TrimSpace(name) == "" {
		return domain.NewValidationError(opUpload, "Please select a file to upload")
	}
	if !strings.EqualFold(filepath.Ext(name), AcceptedExtension) {
		return domain.NewValidationError(opUpload, "Please select a valid PDF file")
	}
	if size > c.maxUploadBytes {
		return domain.NewValidationError(opUpload, fmt.Sprintf("File size must be less than %s", formatBytes(c.maxUploadBytes)))
	}
	return nil
}

// Upload sends the file as multipart field "file". Extension and size are
// checked before any network call.
func (c *Client) Upload(ctx context.Context, f domain.UploadFile) (domain.UploadResult, error) {
	if err := c.ValidateUpload(f.Name, f.Size); err != nil {
		return domain.UploadResult{}, err
	}
	if f.Content == nil {
		return domain.UploadResult{}, domain.NewValidationError(opUpload, "Please select a file to upload")
	}
	content, err := io.ReadAll(io.LimitReader(f.Content, c.maxUploadBytes+1))
	if err != nil {
		return domain.UploadResult{}, &domain.Error{Kind: domain.KindTransfer, Op: opUpload, Message: err.Error(), Err: err}
	}
	if err := c.ValidateUpload(f.Name, int64(len(content))); err != nil {
		return domain.UploadResult{}, err
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", filepath.Base(f.Name))
	if err != nil {
		return domain.UploadResult{}, c.fail(opUpload, 0, nil, err)
	}
	if _, err := part.Write(content); err != nil {
		return domain.UploadResult{}, c.fail(opUpload, 0, nil, err)
	}
	if err := mw.Close(); err != nil {
		return domain.UploadResult{}, c.fail(opUpload, 0, nil, err)
	}

	var out domain.UploadResult
	if err := c.doJSON(ctx, opUpload, http.MethodPost, "/upload", &body, mw.FormDataContentType(), &out); err != nil {
		return domain.UploadResult{}, err
	}
	return out, nil
}

// NextQuestion fetches the question for the next unfilled field.
func (c *Client) NextQuestion(ctx context.Context, sessionID string) (domain.Question, error) {
	path, err := sessionPath(opNextQuestion, sessionID, "question")
	if err != nil {
		return domain.Question{}, err
	}
	var out domain.Question
	if err := c.doJSON(ctx, opNextQuestion, http.MethodGet, path, nil, "", &out); err != nil {
		return domain.Question{}, err
	}
	return out, nil
}

// SubmitAnswer records answer for fieldName.
func (c *Client) SubmitAnswer(ctx context.Context, sessionID, fieldName, answer string) (domain.AnswerAck, error) {
	path, err := sessionPath(opSubmitAnswer, sessionID, "answer")
	if err != nil {
		return domain.AnswerAck{}, err
	}
	if strings.TrimSpace(fieldName) == "" {
		return domain.AnswerAck{}, domain.NewValidationError(opSubmitAnswer, "No field is awaiting an answer")
	}
	if strings.TrimSpace(answer) == "" {
		return domain.AnswerAck{}, domain.NewValidationError(opSubmitAnswer, "Answer must not be empty")
	}
	body, err := json.Marshal(answerRequest{FieldName: fieldName, Answer: answer})
	if err != nil {
		return domain.AnswerAck{}, c.fail(opSubmitAnswer, 0, nil, err)
	}
	var out domain.AnswerAck
	if err := c.doJSON(ctx, opSubmitAnswer, http.MethodPost, path, bytes.NewReader(body), "application/json", &out); err != nil {
		return domain.AnswerAck{}, err
	}
	return out, nil
}

// Status fetches the filled/total counters.
func (c *Client) Status(ctx context.Context, sessionID string) (domain.Status, error) {
	path, err := sessionPath(opStatus, sessionID, "status")
	if err != nil {
		return domain.Status{}, err
	}
	var out domain.Status
	if err := c.doJSON(ctx, opStatus, http.MethodGet, path, nil, "", &out); err != nil {
		return domain.Status{}, err
	}
	return out, nil
}

// Fields lists every field of the session with its fill state.
func (c *Client) Fields(ctx context.Context, sessionID string) ([]domain.FieldState, error) {
	path, err := sessionPath(opFields, sessionID, "fields")
	if err != nil {
		return nil, err
	}
	var out []domain.FieldState
	if err := c.doJSON(ctx, opFields, http.MethodGet, path, nil, "", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Complete asks the service to render the filled PDF.
func (c *Client) Complete(ctx context.Context, sessionID string) (domain.Completion, error) {
	path, err := sessionPath(opComplete, sessionID, "complete")
	if err != nil {
		return domain.Completion{}, err
	}
	var out domain.Completion
	if err := c.doJSON(ctx, opComplete, http.MethodGet, path, nil, "", &out); err != nil {
		return domain.Completion{}, err
	}
	return out, nil
}

// Download streams the completed PDF into w and returns the bytes written.
func (c *Client) Download(ctx context.Context, sessionID string, w io.Writer) (int64, error) {
	if strings.TrimSpace(sessionID) == "" {
		return 0, domain.NewValidationError(opDownload, "Session id must not be empty")
	}
	res, err := c.send(ctx, opDownload, http.MethodGet, "/download/"+url.PathEscape(sessionID), nil, "")
	if err != nil {
		return 0, err
	}
	defer func() { _ = res.Body.Close() }()

	n, err := io.Copy(w, res.Body)
	if err != nil {
		return n, c.fail(opDownload, 0, nil, err)
	}
	return n, nil
}

// Health probes service liveness.
func (c *Client) Health(ctx context.Context) (domain.Health, error) {
	var out domain.Health
	if err := c.doJSON(ctx, opHealth, http.MethodGet, "/health", nil, "", &out); err != nil {
		return domain.Health{}, err
	}
	return out, nil
}

func sessionPath(op, sessionID, leaf string) (string, error) {
	if strings.TrimSpace(sessionID) == "" {
		return "", domain.NewValidationError(op, "Session id must not be empty")
	}
	return "/session/" + url.PathEscape(sessionID) + "/" + leaf, nil
}

func (c *Client) doJSON(ctx context.Context, op, method, path string, body io.Reader, contentType string, out any) error {
	res, err := c.send(ctx, op, method, path, body, contentType)
	if err != nil {
		return err
	}
	defer func() { _ = res.Body.Close() }()

	buf, err := io.ReadAll(io.LimitReader(res.Body, maxResponseBody))
	if err != nil {
		return c.fail(op, 0, nil, fmt.Errorf("read response body: %w", err))
	}
	if err := json.Unmarshal(buf, out); err != nil {
		return c.fail(op, 0, nil, fmt.Errorf("decode response: %w", err))
	}
	return nil
}

// send performs one request and returns the response only for 2xx statuses.
// Every other outcome is classified.
func (c *Client) send(ctx context.Context, op, method, path string, body io.Reader, contentType string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, c.fail(op, 0, nil, err)
	}
	requestID := c.newRequestID()
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", requestID)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if c.apiToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiToken)
	}

	c.logger.Debug("formapi request", "method", method, "path", path, "request_id", requestID)

	res, err := c.resolvedHTTPClient().Do(req)
	if err != nil {
		return nil, c.fail(op, 0, nil, err)
	}
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		buf, _ := io.ReadAll(io.LimitReader(res.Body, maxErrorBody))
		_ = res.Body.Close()
		return nil, c.fail(op, res.StatusCode, buf, nil)
	}
	return res, nil
}

func (c *Client) fail(op string, status int, body []byte, cause error) *domain.Error {
	classified := classify(op, status, body, cause)
	c.logger.Warn("formapi request failed", "err", classified)
	return classified
}

func (c *Client) resolvedHTTPClient() *http.Client {
	if c.httpClient != nil {
		return c.httpClient
	}
	return &http.Client{Timeout: DefaultTimeout}
}

func formatBytes(n int64) string {
	const mib = 1024 * 1024
	if n%mib == 0 {
		return fmt.Sprintf("%dMB", n/mib)
	}
	return fmt.Sprintf("%d bytes", n)
}
