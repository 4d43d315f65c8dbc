package domain

import "io"

// Session is the client's derived copy of one server-tracked form fill.
type Session struct {
	ID           string
	Filename     string
	TotalFields  int
	FilledFields int
}

// UploadResult is returned by POST /upload.
type UploadResult struct {
	SessionID   string `json:"session_id"`
	Filename    string `json:"filename"`
	TotalFields int    `json:"total_fields"`
	Status      string `json:"status,omitempty"`
}

// Status is returned by GET /session/{id}/status.
type Status struct {
	SessionID    string  `json:"session_id,omitempty"`
	Status       string  `json:"status,omitempty"`
	FilledFields int     `json:"filled_fields"`
	TotalFields  int     `json:"total_fields"`
	Progress     float64 `json:"progress,omitempty"`
}

// AnswerAck is returned by POST /session/{id}/answer.
type AnswerAck struct {
	Message        string `json:"message,omitempty"`
	ProcessedValue string `json:"processed_value,omitempty"`
}

// Completion is returned by GET /session/{id}/complete.
type Completion struct {
	SessionID    string `json:"session_id,omitempty"`
	DownloadURL  string `json:"download_url"`
	FilledFields int    `json:"filled_fields,omitempty"`
	TotalFields  int    `json:"total_fields,omitempty"`
}

// FieldState is one entry of GET /session/{id}/fields.
type FieldState struct {
	FieldName string    `json:"field_name"`
	FieldType FieldType `json:"field_type"`
	IsFilled  bool      `json:"is_filled"`
	Value     *string   `json:"value,omitempty"`
}

// Health is returned by GET /health.
type Health struct {
	Status  string `json:"status"`
	Service string `json:"service,omitempty"`
}

// UploadFile is a local file offered for upload. Size may be 0 when unknown.
type UploadFile struct {
	Name    string
	Size    int64
	Content io.Reader
}
