package api

import "time"

// DocumentType classifies the source material of a library entry.
type DocumentType string

const (
	DocumentTypePaper DocumentType = "paper"
	DocumentTypeBook  DocumentType = "book"
	DocumentTypeBlog  DocumentType = "blog"
	DocumentTypeOther DocumentType = "other"
)

// ProcessingStatus is the backend ingestion state for a document or job.
type ProcessingStatus string

const (
	StatusPending    ProcessingStatus = "pending"
	StatusQueued     ProcessingStatus = "queued"
	StatusProcessing ProcessingStatus = "processing"
	StatusCompleted  ProcessingStatus = "completed"
	StatusFailed     ProcessingStatus = "failed"
)

// Document is one entry of the research library. The server owns it; the
// client only patches fields in direct response to a confirmed mutation.
type Document struct {
	ID                 string           `json:"id"`
	Title              string           `json:"title"`
	URL                string           `json:"url"`
	Type               DocumentType     `json:"type"`
	Status             ProcessingStatus `json:"status"`
	IsRead             bool             `json:"isRead"`
	Tags               []string         `json:"tags"`
	CodeAnalysisStatus ProcessingStatus `json:"codeAnalysisStatus,omitempty"`
	AIEditStatus       ProcessingStatus `json:"aiEditStatus,omitempty"`
	CreatedAt          time.Time        `json:"createdAt"`
}

// Tag is a filterable label, immutable for the session once fetched.
type Tag struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Color string `json:"color"`
}

// DocumentList is the paginated /documents payload. HasMore is optional on
// the wire; older backends only return Items.
type DocumentList struct {
	Items   []Document `json:"items"`
	Total   int        `json:"total,omitempty"`
	HasMore *bool      `json:"hasMore,omitempty"`
}

// NoteKind selects one of the two note bodies in a bundle.
type NoteKind string

const (
	NotePaper NoteKind = "paper"
	NoteCode  NoteKind = "code"
)

// Note is one half of a notes bundle: either inline content, a URL to a
// hosted rendering, or both.
type Note struct {
	Available bool   `json:"available"`
	Content   string `json:"content,omitempty"`
	URL       string `json:"url,omitempty"`
}

// NotesBundle is the combined paper/code annotation payload for one document.
type NotesBundle struct {
	DocumentID string           `json:"documentId"`
	Paper      Note             `json:"paperNotes"`
	Code       Note             `json:"codeNotes"`
	Status     ProcessingStatus `json:"status"`
	ReaderMode bool             `json:"readerMode"`
}

// UserNote is a free-form user-authored markdown note scoped to a document.
type UserNote struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// AIEditState reports the status of an asynchronous note-rewrite job.
// Active is false when no job exists for the document.
type AIEditState struct {
	Active bool             `json:"active"`
	Status ProcessingStatus `json:"status,omitempty"`
	Error  string           `json:"error,omitempty"`
}

// VerifyResult is the /auth/verify payload. AuthDisabled means the backend
// runs without auth and every caller is implicitly trusted.
type VerifyResult struct {
	Valid        bool `json:"valid"`
	AuthDisabled bool `json:"authDisabled"`
}

// SortOrder is a presentation ordering for document lists.
type SortOrder string

const (
	SortNewest SortOrder = "newest"
	SortOldest SortOrder = "oldest"
	SortTitle  SortOrder = "title"
)

// ReadFilter narrows a listing by read state.
type ReadFilter string

const (
	ReadAll    ReadFilter = ""
	ReadUnread ReadFilter = "unread"
	ReadRead   ReadFilter = "read"
)

// ListQuery is the full parameter set for one /documents request.
type ListQuery struct {
	Limit      int
	Offset     int
	Sort       SortOrder
	Search     string
	ReadFilter ReadFilter
	Tag        string
}
