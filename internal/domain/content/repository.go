package content

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"
)

type ListQuery struct {
	Type   ContentType
	Search string
	IDs    []string
	Limit  int
}

type Repository interface {
	Create(ctx context.Context, item *Item) error
	Save(ctx context.Context, item *Item) error
	GetByID(ctx context.Context, id string) (*Item, error)
	GetByStorageKey(ctx context.Context, key string) (*Item, error)
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, q ListQuery) ([]Item, error)
	ReferencedURLs(ctx context.Context) ([]Item, error)

	ReplaceCategories(ctx context.Context, contentID string, categoryIDs []string) error
	CategoryIDs(ctx context.Context, contentIDs []string) (map[string][]string, error)
	ContentIDsInCategories(ctx context.Context, categoryIDs []string) ([]string, error)
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, item *Item) error {
	return r.db.WithContext(ctx).Create(item).Error
}

func (r *repository) Save(ctx context.Context, item *Item) error {
	return r.db.WithContext(ctx).Save(item).Error
}

func (r *repository) GetByID(ctx context.Context, id string) (*Item, error) {
	var item Item
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// GetByStorageKey returns the newest row stored under key.
func (r *repository) GetByStorageKey(ctx context.Context, key string) (*Item, error) {
	var item Item
	err := r.db.WithContext(ctx).
		Where("storage_key = ? AND source_kind = ?", key, SourceUploadedFile).
		Order("created_at DESC").
		First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// Delete removes the row and its category links in one transaction.
func (r *repository) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("content_id = ?", id).Delete(&ItemCategory{}).Error; err != nil {
			return err
		}
		res := tx.Where("id = ?", id).Delete(&Item{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
}

func (r *repository) List(ctx context.Context, q ListQuery) ([]Item, error) {
	tx := r.db.WithContext(ctx).Model(&Item{})
	if q.Type != "" {
		tx = tx.Where("content_type = ?", q.Type)
	}
	if q.Search != "" {
		pattern := "%" + escapeLike(r.fold(q.Search)) + "%"
		tx = tx.Where(`(LOWER(title) LIKE ? ESCAPE '\' OR LOWER(description) LIKE ? ESCAPE '\')`, pattern, pattern)
	}
	if q.IDs != nil {
		tx = tx.Where("id IN ?", q.IDs)
	}
	if q.Limit > 0 {
		tx = tx.Limit(q.Limit)
	}

	var items []Item
	err := tx.Order("created_at DESC").Find(&items).Error
	return items, err
}

func (r *repository) ReferencedURLs(ctx context.Context) ([]Item, error) {
	var items []Item
	err := r.db.WithContext(ctx).
		Select("id", "source_kind", "content_url", "thumbnail_url").
		Find(&items).Error
	return items, err
}

// ReplaceCategories deletes every link of the item and inserts the given
// set.
func (r *repository) ReplaceCategories(ctx context.Context, contentID string, categoryIDs []string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("content_id = ?", contentID).Delete(&ItemCategory{}).Error; err != nil {
			return err
		}
		if len(categoryIDs) == 0 {
			return nil
		}
		links := make([]ItemCategory, 0, len(categoryIDs))
		for _, id := range categoryIDs {
			links = append(links, ItemCategory{ContentID: contentID, CategoryID: id})
		}
		return tx.Create(&links).Error
	})
}

func (r *repository) CategoryIDs(ctx context.Context, contentIDs []string) (map[string][]string, error) {
	out := make(map[string][]string, len(contentIDs))
	if len(contentIDs) == 0 {
		return out, nil
	}
	var links []ItemCategory
	err := r.db.WithContext(ctx).
		Where("content_id IN ?", contentIDs).
		Order("category_id").
		Find(&links).Error
	if err != nil {
		return nil, err
	}
	for _, l := range links {
		out[l.ContentID] = append(out[l.ContentID], l.CategoryID)
	}
	return out, nil
}

func (r *repository) ContentIDsInCategories(ctx context.Context, categoryIDs []string) ([]string, error) {
	ids := []string{}
	err := r.db.WithContext(ctx).
		Model(&ItemCategory{}).
		Where("category_id IN ?", categoryIDs).
		Distinct().
		Pluck("content_id", &ids).Error
	return ids, err
}

// fold lowercases a search term the way the database's LOWER() does, so
// the pattern and the column are folded alike. SQLite only folds ASCII.
func (r *repository) fold(s string) string {
	if r.db.Dialector.Name() != "sqlite" {
		return strings.ToLower(s)
	}
	b := []byte(s)
	for i, c := range b {
		if 'A' <= c && c <= 'Z' {
			b[i] = c + ('a' - 'A')
		}
	}
	return string(b)
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
