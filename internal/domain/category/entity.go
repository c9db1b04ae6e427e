package category

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Category is a flat label content items can be tagged with.
type Category struct {
	ID        string    `gorm:"column:id;primaryKey;size:36" json:"id"`
	Name      string    `gorm:"column:name;uniqueIndex;not null" json:"name"`
	CreatedAt time.Time `gorm:"column:created_at" json:"created_at"`
}

func (Category) TableName() string { return "categories" }

func (c *Category) BeforeCreate(*gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	return nil
}

// associationTable is owned by the content package; category deletion has to
// clear it when the store does not cascade.
const associationTable = "content_categories"
