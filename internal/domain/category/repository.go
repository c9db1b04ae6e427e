package category

import (
	"context"
	"errors"

	"gorm.io/gorm"
)

type Repository interface {
	List(ctx context.Context) ([]Category, error)
	GetByID(ctx context.Context, id string) (*Category, error)
	Create(ctx context.Context, c *Category) error
	Rename(ctx context.Context, id, name string) error
	Delete(ctx context.Context, id string) error
	CountByIDs(ctx context.Context, ids []string) (int64, error)
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) List(ctx context.Context) ([]Category, error) {
	var out []Category
	err := r.db.WithContext(ctx).Order("name ASC").Find(&out).Error
	return out, err
}

func (r *repository) GetByID(ctx context.Context, id string) (*Category, error) {
	var c Category
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&c).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrCategoryNotFound
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *repository) Create(ctx context.Context, c *Category) error {
	err := r.db.WithContext(ctx).Create(c).Error
	if err != nil && isUniqueViolation(err) {
		return ErrCategoryExists
	}
	return err
}

func (r *repository) Rename(ctx context.Context, id, name string) error {
	res := r.db.WithContext(ctx).Model(&Category{}).Where("id = ?", id).Update("name", name)
	if res.Error != nil {
		if isUniqueViolation(res.Error) {
			return ErrCategoryExists
		}
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrCategoryNotFound
	}
	return nil
}

// Delete removes the category and every association pointing at it.
func (r *repository) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec("DELETE FROM "+associationTable+" WHERE category_id = ?", id).Error; err != nil {
			return err
		}
		res := tx.Where("id = ?", id).Delete(&Category{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrCategoryNotFound
		}
		return nil
	})
}

func (r *repository) CountByIDs(ctx context.Context, ids []string) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&Category{}).Where("id IN ?", ids).Count(&n).Error
	return n, err
}
