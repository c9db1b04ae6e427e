package content

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Item is one piece of library content: an uploaded file or an external link.
type Item struct {
	ID               string      `gorm:"column:id;primaryKey;size:36" json:"id"`
	Title            string      `gorm:"column:title;not null" json:"title"`
	Description      string      `gorm:"column:description" json:"description"`
	ContentType      ContentType `gorm:"column:content_type;not null;index" json:"content_type"`
	SourceKind       SourceKind  `gorm:"column:source_kind;not null" json:"source_kind"`
	StorageKey       string      `gorm:"column:storage_key;index" json:"-"`
	ContentURL       string      `gorm:"column:content_url;not null" json:"content_url"`
	OriginalFilename string      `gorm:"column:original_filename" json:"original_filename,omitempty"`
	ThumbnailURL     string      `gorm:"column:thumbnail_url" json:"thumbnail_url,omitempty"`
	IsPremium        bool        `gorm:"column:is_premium;not null;default:false" json:"is_premium"`
	CreatedBy        string      `gorm:"column:created_by;index" json:"created_by"`
	CreatedAt        time.Time   `gorm:"column:created_at;index" json:"created_at"`
	UpdatedAt        time.Time   `gorm:"column:updated_at" json:"updated_at"`
}

func (Item) TableName() string { return "content" }

func (i *Item) BeforeCreate(*gorm.DB) error {
	if i.ID == "" {
		i.ID = uuid.NewString()
	}
	return nil
}

// ItemCategory links content to categories.
type ItemCategory struct {
	ContentID  string `gorm:"column:content_id;primaryKey;size:36"`
	CategoryID string `gorm:"column:category_id;primaryKey;size:36;index"`
}

func (ItemCategory) TableName() string { return "content_categories" }
