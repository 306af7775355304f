package domain

import "strings"

// Message is one inbound email as fetched from the mailbox or loaded from a project
// dataset. Date is the raw header value and is not guaranteed to be parseable.
type Message struct {
	ID             string   `json:"id"`
	From           string   `json:"from"`
	To             string   `json:"to,omitempty"`
	Subject        string   `json:"subject"`
	Body           string   `json:"body"`
	Date           string   `json:"date"`
	Snippet        string   `json:"snippet,omitempty"`
	RoleVisibility []string `json:"role_visibility,omitempty"`

	// Dataset-only fields (demo projects carry pre-assigned triage values).
	Category string `json:"category,omitempty"`
	Priority string `json:"priority,omitempty"`
	DueDate  string `json:"due_date,omitempty"`

	// Set by the inbox pipeline.
	CleanStatus    string           `json:"clean_status,omitempty"`
	Attachments    []AttachmentInfo `json:"attachments,omitempty"`
	HasAttachments bool             `json:"has_attachments,omitempty"`
}

// MergeKey returns the identity used when persisting records derived from this message.
// Messages without an id fall back to from+subject.
func (m Message) MergeKey() string {
	return FallbackKey(m.ID, m.From, m.Subject)
}

// VisibleTo reports whether role is listed in the message's role_visibility.
func (m Message) VisibleTo(role string) bool {
	for _, r := range m.RoleVisibility {
		if r == role {
			return true
		}
	}
	return false
}

// FallbackKey is id when present, otherwise from+subject.
func FallbackKey(id, from, subject string) string {
	if strings.TrimSpace(id) != "" {
		return id
	}
	return from + subject
}

// Attachment is a raw attachment payload returned by the mail source.
type Attachment struct {
	Filename string
	MimeType string
	Data     []byte
}

// AttachmentInfo describes an attachment saved to disk.
type AttachmentInfo struct {
	Filename string  `json:"filename"`
	Path     string  `json:"path"`
	MimeType string  `json:"mimeType"`
	SizeKB   float64 `json:"size_kb"`
}
