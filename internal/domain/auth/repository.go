package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Repository interface {
	Create(ctx context.Context, p *Profile) error
	GetByEmail(ctx context.Context, email string) (*Profile, error)
	GetByID(ctx context.Context, id string) (*Profile, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)

	Revoke(ctx context.Context, t *RevokedToken) error
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
	PurgeExpiredRevocations(ctx context.Context, now time.Time) (int64, error)
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, p *Profile) error {
	return r.db.WithContext(ctx).Create(p).Error
}

func (r *repository) GetByEmail(ctx context.Context, email string) (*Profile, error) {
	var p Profile
	err := r.db.WithContext(ctx).Where("email = ?", normalizeEmail(email)).First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrProfileNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *repository) GetByID(ctx context.Context, id string) (*Profile, error) {
	var p Profile
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrProfileNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *repository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&Profile{}).Where("email = ?", normalizeEmail(email)).Count(&count).Error
	return count > 0, err
}

// Revoke is idempotent: revoking the same token twice keeps the first row.
func (r *repository) Revoke(ctx context.Context, t *RevokedToken) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(t).Error
}

func (r *repository) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&RevokedToken{}).Where("token_id = ?", tokenID).Count(&count).Error
	return count > 0, err
}

func (r *repository) PurgeExpiredRevocations(ctx context.Context, now time.Time) (int64, error) {
	res := r.db.WithContext(ctx).Where("expires_at < ?", now).Delete(&RevokedToken{})
	return res.RowsAffected, res.Error
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
