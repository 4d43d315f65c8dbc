package domain

// Bookmark is a persisted pointer to an in-progress session so it can be
// listed and resumed later. It never holds the conversation log.
type Bookmark struct {
	Owner        string
	SessionID    string
	Filename     string
	Phase        string
	FilledFields int
	TotalFields  int
	UpdatedAt    string
	TTL          int64
}
