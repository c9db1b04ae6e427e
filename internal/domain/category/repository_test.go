package category

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupMockRepository(t *testing.T) (Repository, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		SkipDefaultTransaction: true,
		Logger:                 logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	return NewRepository(db), mock
}

func TestRepository_RenameMapsUniqueViolation(t *testing.T) {
	repo, mock := setupMockRepository(t)

	mock.ExpectExec(regexp.QuoteMeta(`UPDATE "categories" SET "name"=$1 WHERE id = $2`)).
		WithArgs("Growth", "cat-1").
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "idx_categories_name"})

	err := repo.Rename(context.Background(), "cat-1", "Growth")
	assert.ErrorIs(t, err, ErrCategoryExists)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_RenamePassesOtherErrors(t *testing.T) {
	repo, mock := setupMockRepository(t)

	boom := errors.New("connection reset")
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE "categories"`)).WillReturnError(boom)

	err := repo.Rename(context.Background(), "cat-1", "Growth")
	assert.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, ErrCategoryExists)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_RenameMissingRow(t *testing.T) {
	repo, mock := setupMockRepository(t)

	mock.ExpectExec(regexp.QuoteMeta(`UPDATE "categories"`)).WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Rename(context.Background(), "nope", "Growth")
	assert.ErrorIs(t, err, ErrCategoryNotFound)
}
