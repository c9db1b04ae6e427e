package content

import "strings"

type ContentType string

const (
	TypeVideo        ContentType = "video"
	TypeDocument     ContentType = "document"
	TypeSpreadsheet  ContentType = "spreadsheet"
	TypePresentation ContentType = "presentation"
	TypeReport       ContentType = "report"
)

func (t ContentType) Valid() bool {
	_, ok := typeIcons[t]
	return ok
}

// Icon is the fallback shown when an item has no thumbnail.
func (t ContentType) Icon() string {
	if icon, ok := typeIcons[t]; ok {
		return icon
	}
	return "file"
}

var typeIcons = map[ContentType]string{
	TypeVideo:        "video",
	TypeDocument:     "file-text",
	TypeSpreadsheet:  "table",
	TypePresentation: "presentation",
	TypeReport:       "file-text",
}

type SourceKind string

const (
	SourceUploadedFile SourceKind = "uploaded_file"
	SourceExternalURL  SourceKind = "external_url"
)

const typeFilterAll = "all"

// typeFilters maps the ids the library tabs send to a content type.
var typeFilters = map[string]ContentType{
	"videos":        TypeVideo,
	"documents":     TypeDocument,
	"spreadsheets":  TypeSpreadsheet,
	"presentations": TypePresentation,
	"reports":       TypeReport,
	"video":         TypeVideo,
	"document":      TypeDocument,
	"spreadsheet":   TypeSpreadsheet,
	"presentation":  TypePresentation,
	"report":        TypeReport,
}

// ParseTypeFilter resolves a tab id. An empty result with ok=true means no
// filtering.
func ParseTypeFilter(raw string) (ContentType, bool) {
	raw = strings.ToLower(strings.TrimSpace(raw))
	if raw == "" || raw == typeFilterAll {
		return "", true
	}
	t, ok := typeFilters[raw]
	return t, ok
}
