package formapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"pdf-form-filler/internal/domain"
)

// ---------------------------------------------------------------------------
// helpers
// ---------------------------------------------------------------------------

func newTestClient(t *testing.T, srv *httptest.Server, opts ...Option) *Client {
	t.Helper()
	opts = append([]Option{WithHTTPClient(&http.Client{Timeout: 2 * time.Second})}, opts...)
	c, err := NewClient(srv.URL+"/", opts...)
	require.NoError(t, err)
	return c
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func expectKind(t *testing.T, err error, kind domain.ErrorKind, msg string) {
	t.Helper()
	var classified *domain.Error
	require.ErrorAs(t, err, &classified)
	require.Equal(t, kind, classified.Kind)
	require.Equal(t, msg, classified.Error())
}

// ---------------------------------------------------------------------------
// NewClient
// ---------------------------------------------------------------------------

func TestNewClient_Validation(t *testing.T) {
	_, err := NewClient("  ")
	require.Error(t, err)

	_, err = NewClient("ftp://example.com")
	require.Error(t, err)

	c, err := NewClient("http://localhost:8000///")
	require.NoError(t, err)
	require.Equal(t, "http://localhost:8000", c.BaseURL())
	require.Equal(t, DefaultMaxUploadBytes, c.MaxUploadBytes())
}

func TestDownloadURL_NormalizesTrailingSeparator(t *testing.T) {
	c, err := NewClient("https://forms.example.com/api/")
	require.NoError(t, err)
	require.Equal(t, "https://forms.example.com/api/download/abc", c.DownloadURL("abc"))
	require.Equal(t, "https://forms.example.com/api/download/abc", c.ResolveURL("/download/abc"))
	require.Equal(t, "https://cdn.example.com/x.pdf", c.ResolveURL("https://cdn.example.com/x.pdf"))
	require.Equal(t, "", c.ResolveURL(""))
}

// ---------------------------------------------------------------------------
// Upload
// ---------------------------------------------------------------------------

func TestUpload_RejectsWrongExtensionWithoutNetwork(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
	}))
	defer srv.Close()
	c := newTestClient(t, srv)

	_, err := c.Upload(context.Background(), domain.UploadFile{Name: "form.docx", Size: 10, Content: strings.NewReader("x")})
	expectKind(t, err, domain.KindValidation, "Please select a valid PDF file")
	require.Zero(t, atomic.LoadInt32(&calls))
}

func TestUpload_RejectsOversizeWithoutNetwork(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
	}))
	defer srv.Close()
	c := newTestClient(t, srv, WithMaxUploadBytes(1024))

	_, err := c.Upload(context.Background(), domain.UploadFile{Name: "form.pdf", Size: 2048, Content: bytes.NewReader(make([]byte, 2048))})
	expectKind(t, err, domain.KindValidation, "File size must be less than 1024 bytes")

	// size unknown up front: the content itself is measured before sending
	_, err = c.Upload(context.Background(), domain.UploadFile{Name: "form.pdf", Content: bytes.NewReader(make([]byte, 2048))})
	expectKind(t, err, domain.KindValidation, "File size must be less than 1024 bytes")
	require.Zero(t, atomic.LoadInt32(&calls))
}

func TestUpload_FiveMegabytePDFReachesService(t *testing.T) {
	payload := bytes.Repeat([]byte("a"), 5*1024*1024)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/upload", r.URL.Path)
		require.NotEmpty(t, r.Header.Get("X-Request-ID"))
		require.NoError(t, r.ParseMultipartForm(16<<20))
		f, hdr, err := r.FormFile("file")
		require.NoError(t, err)
		defer f.Close()
		require.Equal(t, "form.PDF", hdr.Filename)
		got, _ := io.ReadAll(f)
		require.Len(t, got, len(payload))
		writeJSON(w, http.StatusOK, map[string]any{"session_id": "s-1", "filename": "form.PDF", "total_fields": 4, "status": "active"})
	}))
	defer srv.Close()
	c := newTestClient(t, srv)

	out, err := c.Upload(context.Background(), domain.UploadFile{Name: "form.PDF", Size: int64(len(payload)), Content: bytes.NewReader(payload)})
	require.NoError(t, err)
	require.Equal(t, domain.UploadResult{SessionID: "s-1", Filename: "form.PDF", TotalFields: 4, Status: "active"}, out)
}

// ---------------------------------------------------------------------------
// Question / answer / status
// ---------------------------------------------------------------------------

func TestNextQuestion_Decodes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/session/s-1/question", r.URL.Path)
		writeJSON(w, http.StatusOK, map[string]any{
			"question": "What is the applicant's SSN?", "field_name": "ssn", "field_type": "text", "is_complete": false,
		})
	}))
	defer srv.Close()
	c := newTestClient(t, srv)

	q, err := c.NextQuestion(context.Background(), "s-1")
	require.NoError(t, err)
	require.False(t, q.IsComplete)
	require.Equal(t, domain.Field{Name: "ssn", Type: domain.FieldText}, q.Field())
}

func TestNextQuestion_CompleteWithNullField(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"question":"All fields have been filled!","field_name":null,"field_type":null,"is_complete":true}`)
	}))
	defer srv.Close()
	c := newTestClient(t, srv)

	q, err := c.NextQuestion(context.Background(), "s-1")
	require.NoError(t, err)
	require.True(t, q.IsComplete)
	require.Empty(t, q.FieldName)
}

func TestSubmitAnswer_SendsExactValues(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/session/s-1/answer", r.URL.Path)
		require.Equal(t, "application/json", r.Header.Get("Content-Type"))
		var body answerRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		require.Equal(t, answerRequest{FieldName: "ssn", Answer: "123-45-6789"}, body)
		writeJSON(w, http.StatusOK, map[string]any{"message": "Answer submitted successfully", "processed_value": "123-45-6789"})
	}))
	defer srv.Close()
	c := newTestClient(t, srv)

	ack, err := c.SubmitAnswer(context.Background(), "s-1", "ssn", "123-45-6789")
	require.NoError(t, err)
	require.Equal(t, "123-45-6789", ack.ProcessedValue)
}

func TestSubmitAnswer_EmptyAnswerNeverSent(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
	}))
	defer srv.Close()
	c := newTestClient(t, srv)

	_, err := c.SubmitAnswer(context.Background(), "s-1", "ssn", "   ")
	require.Equal(t, domain.KindValidation, domain.KindOf(err))
	_, err = c.SubmitAnswer(context.Background(), "s-1", "", "x")
	require.Equal(t, domain.KindValidation, domain.KindOf(err))
	_, err = c.NextQuestion(context.Background(), "")
	require.Equal(t, domain.KindValidation, domain.KindOf(err))
	require.Zero(t, atomic.LoadInt32(&calls))
}

func TestStatusAndFields(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/session/s-1/status":
			writeJSON(w, http.StatusOK, map[string]any{"session_id": "s-1", "status": "active", "filled_fields": 2, "total_fields": 5, "progress": 40.0})
		case "/session/s-1/fields":
			_, _ = io.WriteString(w, `[{"field_name":"ssn","field_type":"text","is_filled":true,"value":"123"},{"field_name":"agree","field_type":"checkbox","is_filled":false,"value":null}]`)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()
	c := newTestClient(t, srv)

	st, err := c.Status(context.Background(), "s-1")
	require.NoError(t, err)
	require.Equal(t, 2, st.FilledFields)
	require.Equal(t, 5, st.TotalFields)
	require.Equal(t, "active", st.Status)

	fields, err := c.Fields(context.Background(), "s-1")
	require.NoError(t, err)
	require.Len(t, fields, 2)
	require.NotNil(t, fields[0].Value)
	require.Equal(t, "123", *fields[0].Value)
	require.Nil(t, fields[1].Value)
	require.Equal(t, domain.FieldCheckbox, fields[1].FieldType)
}

// ---------------------------------------------------------------------------
// Complete / download / health
// ---------------------------------------------------------------------------

func TestCompleteAndDownload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/session/s-1/complete":
			writeJSON(w, http.StatusOK, map[string]any{"session_id": "s-1", "download_url": "/download/s-1", "filled_fields": 3, "total_fields": 3})
		case "/download/s-1":
			w.Header().Set("Content-Type", "application/pdf")
			_, _ = io.WriteString(w, "%PDF-1.7 filled")
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()
	c := newTestClient(t, srv, WithAPIToken("tok"))

	done, err := c.Complete(context.Background(), "s-1")
	require.NoError(t, err)
	require.Equal(t, "/download/s-1", done.DownloadURL)

	var buf bytes.Buffer
	n, err := c.Download(context.Background(), "s-1", &buf)
	require.NoError(t, err)
	require.Equal(t, int64(buf.Len()), n)
	require.Equal(t, "%PDF-1.7 filled", buf.String())
}

func TestHealth_SendsBearerToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		writeJSON(w, http.StatusOK, map[string]any{"status": "healthy", "service": "AI PDF Form Filler API"})
	}))
	defer srv.Close()
	c := newTestClient(t, srv, WithAPIToken(" tok "))

	h, err := c.Health(context.Background())
	require.NoError(t, err)
	require.Equal(t, "healthy", h.Status)
}

// ---------------------------------------------------------------------------
// Failure classification
// ---------------------------------------------------------------------------

func TestFailureClassification(t *testing.T) {
	cases := []struct {
		name   string
		status int
		body   string
		kind   domain.ErrorKind
		msg    string
	}{
		{name: "string detail", status: http.StatusNotFound, body: `{"detail":"session expired"}`, kind: domain.KindService, msg: "session expired"},
		{name: "detail beats 5xx", status: http.StatusInternalServerError, body: `{"detail":"Error completing form: boom"}`, kind: domain.KindService, msg: "Error completing form: boom"},
		{name: "detail beats 413", status: http.StatusRequestEntityTooLarge, body: `{"detail":"File size exceeds limit"}`, kind: domain.KindService, msg: "File size exceeds limit"},
		{name: "list detail", status: http.StatusUnprocessableEntity, body: `{"detail":[{"loc":["body","answer"],"msg":"field required"},{"msg":"bad type"}]}`, kind: domain.KindService, msg: "field required; bad type"},
		{name: "payload too large", status: http.StatusRequestEntityTooLarge, body: `<html>too big</html>`, kind: domain.KindPayloadTooLarge, msg: domain.MessageFileTooLarge},
		{name: "server error", status: http.StatusBadGateway, body: ``, kind: domain.KindServer, msg: domain.MessageServerError},
		{name: "null detail", status: http.StatusServiceUnavailable, body: `{"detail":null}`, kind: domain.KindServer, msg: domain.MessageServerError},
		{name: "other status", status: http.StatusNotFound, body: `not json`, kind: domain.KindTransfer, msg: "Request failed with status code 404"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = io.WriteString(w, tc.body)
			}))
			defer srv.Close()
			c := newTestClient(t, srv)

			_, err := c.Complete(context.Background(), "s-1")
			expectKind(t, err, tc.kind, tc.msg)
		})
	}
}

func TestFailureClassification_TransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	c := newTestClient(t, srv)
	srv.Close()

	_, err := c.Health(context.Background())
	var classified *domain.Error
	require.ErrorAs(t, err, &classified)
	require.Equal(t, domain.KindTransfer, classified.Kind)
	require.NotEmpty(t, classified.Message)
	require.NotNil(t, classified.Unwrap())
}

func TestFailureClassification_Timeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
	}))
	defer srv.Close()
	defer close(release)
	c := newTestClient(t, srv, WithTimeout(50*time.Millisecond))

	_, err := c.Status(context.Background(), "s-1")
	require.Equal(t, domain.KindTransfer, domain.KindOf(err))
}

func TestFailureClassification_MalformedSuccessBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"question":`)
	}))
	defer srv.Close()
	c := newTestClient(t, srv)

	_, err := c.NextQuestion(context.Background(), "s-1")
	require.Equal(t, domain.KindTransfer, domain.KindOf(err))
	require.Contains(t, err.Error(), "decode response")
}

func TestClassify_Total(t *testing.T) {
	// every combination resolves to exactly one of the client kinds
	statuses := []int{0, 400, 401, 404, 413, 422, 500, 503}
	bodies := [][]byte{nil, []byte(`{"detail":"x"}`), []byte(`{}`), []byte(`[1]`)}
	causes := []error{nil, errors.New("boom")}
	for _, s := range statuses {
		for _, b := range bodies {
			for _, c := range causes {
				got := classify("op", s, b, c)
				require.NotNil(t, got)
				require.NotEmpty(t, got.Message)
				require.Contains(t, []domain.ErrorKind{domain.KindService, domain.KindPayloadTooLarge, domain.KindServer, domain.KindTransfer}, got.Kind)
			}
		}
	}
}
