package content

import (
	"io"
	"time"
)

// FileInput describes an uploaded file. Open may be called more than once
// only if the underlying source supports it; spooled inputs always do.
type FileInput struct {
	Name     string
	Size     int64
	MIMEType string
	Open     func() (io.ReadCloser, error)
}

type SubmitInput struct {
	Title        string      `validate:"required,max=300"`
	Description  string      `validate:"max=5000"`
	ContentType  ContentType `validate:"required"`
	File         *FileInput
	ExternalURL  string `validate:"omitempty,max=2048"`
	Thumbnail    *FileInput
	ThumbnailURL string `validate:"omitempty,max=2048"`
	CategoryIDs  []string
	IsPremium    bool
}

type UpdateInput struct {
	Title        *string   `validate:"omitempty,max=300"`
	Description  *string   `validate:"omitempty,max=5000"`
	ThumbnailURL *string   `validate:"omitempty,max=2048"`
	IsPremium    *bool
	CategoryIDs  *[]string
}

type Resolution string

const (
	ResolutionReplace Resolution = "replace"
	ResolutionCancel  Resolution = "cancel"
)

type State string

const (
	StateDone            State = "done"
	StateDoneWithWarning State = "done_with_warning"
	StateCancelled       State = "cancelled"
)

// Result is what a write returns. Warnings are set when the item was saved
// but a secondary step (thumbnail, categories) was not.
type Result struct {
	Item        *Item
	CategoryIDs []string
	State       State
	Warnings    []string
}

func (r *Result) warn(msg string) {
	r.Warnings = append(r.Warnings, msg)
	r.State = StateDoneWithWarning
}

type ListFilter struct {
	Type        string
	Search      string
	CategoryIDs []string
}

// ItemView is an Item as shown to a particular caller.
type ItemView struct {
	ID               string      `json:"id"`
	Title            string      `json:"title"`
	Description      string      `json:"description"`
	ContentType      ContentType `json:"content_type"`
	SourceKind       SourceKind  `json:"source_kind"`
	ContentURL       string      `json:"content_url,omitempty"`
	DownloadURL      string      `json:"download_url,omitempty"`
	OriginalFilename string      `json:"original_filename,omitempty"`
	ThumbnailURL     string      `json:"thumbnail_url,omitempty"`
	Icon             string      `json:"icon"`
	IsPremium        bool        `json:"is_premium"`
	Locked           bool        `json:"locked"`
	CategoryIDs      []string    `json:"category_ids"`
	CreatedBy        string      `json:"created_by"`
	CreatedAt        time.Time   `json:"created_at"`
	UpdatedAt        time.Time   `json:"updated_at"`
}

// Download is either a stream of a stored file or a redirect target.
type Download struct {
	Body        io.ReadCloser
	Filename    string
	RedirectURL string
}
