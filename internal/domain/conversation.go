package domain

// EntryKind distinguishes the two sides of a conversation log.
type EntryKind string

const (
	EntryQuestion EntryKind = "question"
	EntryAnswer   EntryKind = "answer"
)

// ConversationEntry is a display-only log record. FieldName is set on
// question entries.
type ConversationEntry struct {
	Kind      EntryKind `json:"kind"`
	Text      string    `json:"text"`
	FieldName string    `json:"field_name,omitempty"`
}

// Conversation is the append-only log for one session. It is never sent to
// the form service.
type Conversation struct {
	entries []ConversationEntry
}

// Record appends a question and the answer that was accepted for it.
func (c *Conversation) Record(q Question, answer string) {
	c.entries = append(c.entries,
		ConversationEntry{Kind: EntryQuestion, Text: q.Text, FieldName: q.FieldName},
		ConversationEntry{Kind: EntryAnswer, Text: answer},
	)
}

// Entries returns a copy of the log in insertion order.
func (c *Conversation) Entries() []ConversationEntry {
	out := make([]ConversationEntry, len(c.entries))
	copy(out, c.entries)
	return out
}

func (c *Conversation) Len() int {
	return len(c.entries)
}
