package content

import (
	"context"
	"fmt"
	"io"
	"strings"
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"advisoryhub/internal/changefeed"
	"advisoryhub/internal/domain/auth"
	"advisoryhub/internal/domain/category"
	"advisoryhub/internal/storage"
)

var (
	consultant      = &auth.Session{UserID: "consultant-1", Role: auth.UserTypeConsultant}
	otherConsultant = &auth.Session{UserID: "consultant-2", Role: auth.UserTypeConsultant}
	client          = &auth.Session{UserID: "client-1", Role: auth.UserTypeClient}
)

// flakyStore wraps a real store and fails selected operations per bucket.
type flakyStore struct {
	*storage.LocalStore
	uploadErr map[string]error
	removeErr map[string]error
}

func (f *flakyStore) Upload(ctx context.Context, bucket, key string, r io.Reader, opts storage.UploadOptions) (string, error) {
	if err := f.uploadErr[bucket]; err != nil {
		return "", err
	}
	return f.LocalStore.Upload(ctx, bucket, key, r, opts)
}

func (f *flakyStore) Remove(ctx context.Context, bucket string, keys []string) error {
	if err := f.removeErr[bucket]; err != nil {
		return err
	}
	return f.LocalStore.Remove(ctx, bucket, keys)
}

// failingRepo wraps the real repository and fails selected writes.
type failingRepo struct {
	Repository
	createErr          error
	replaceCategoryErr error
}

func (r *failingRepo) Create(ctx context.Context, item *Item) error {
	if r.createErr != nil {
		return r.createErr
	}
	return r.Repository.Create(ctx, item)
}

func (r *failingRepo) ReplaceCategories(ctx context.Context, contentID string, ids []string) error {
	if r.replaceCategoryErr != nil {
		return r.replaceCategoryErr
	}
	return r.Repository.ReplaceCategories(ctx, contentID, ids)
}

type testEnv struct {
	svc        *Service
	db         *gorm.DB
	repo       *failingRepo
	blobs      *flakyStore
	feed       *changefeed.Feed
	categories *category.Service
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	dsn := fmt.Sprintf("file:content_test_%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		t.Fatalf("failed to open sqlite db: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed to get sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := db.AutoMigrate(&Item{}, &ItemCategory{}, &category.Category{}); err != nil {
		t.Fatalf("failed to migrate db: %v", err)
	}

	local, err := storage.NewLocalStore(t.TempDir(), "/static/blobs", storage.ContentBucket, storage.ThumbnailBucket)
	if err != nil {
		t.Fatalf("failed to create blob store: %v", err)
	}
	blobs := &flakyStore{LocalStore: local, uploadErr: map[string]error{}, removeErr: map[string]error{}}

	feed := changefeed.NewFeed()
	t.Cleanup(feed.Close)

	repo := &failingRepo{Repository: NewRepository(db)}
	cats := category.NewService(category.NewRepository(db), nil, nil)
	svc := NewService(repo, blobs, cats, NewPendingStore(time.Minute, 0), feed, Options{MaxUploadSize: 1 << 20, ListLimit: 100}, nil)

	return &testEnv{svc: svc, db: db, repo: repo, blobs: blobs, feed: feed, categories: cats}
}

func fileOf(name, body string) *FileInput {
	return &FileInput{
		Name:     name,
		Size:     int64(len(body)),
		MIMEType: "application/octet-stream",
		Open: func() (io.ReadCloser, error) {
			return io.NopCloser(strings.NewReader(body)), nil
		},
	}
}

func imageOf(name, body string) *FileInput {
	f := fileOf(name, body)
	f.MIMEType = "image/png"
	return f
}

func (e *testEnv) readBlob(t *testing.T, bucket, key string) string {
	t.Helper()
	rc, err := e.blobs.Open(context.Background(), bucket, key)
	if err != nil {
		t.Fatalf("open %s/%s: %v", bucket, key, err)
	}
	defer rc.Close()
	b, err := io.ReadAll(rc)
	if err != nil {
		t.Fatalf("read %s/%s: %v", bucket, key, err)
	}
	return string(b)
}

func (e *testEnv) mustCategory(t *testing.T, name string) string {
	t.Helper()
	c, err := e.categories.Create(context.Background(), consultant, name)
	if err != nil {
		t.Fatalf("create category %s: %v", name, err)
	}
	return c.ID
}

type storeSnapshot struct {
	Items   []Item
	Links   []ItemCategory
	Objects map[string][]string
}

func (e *testEnv) snapshot(t *testing.T) storeSnapshot {
	t.Helper()
	var snap storeSnapshot
	if err := e.db.Order("id").Find(&snap.Items).Error; err != nil {
		t.Fatalf("snapshot items: %v", err)
	}
	if err := e.db.Order("content_id, category_id").Find(&snap.Links).Error; err != nil {
		t.Fatalf("snapshot links: %v", err)
	}
	snap.Objects = make(map[string][]string)
	for _, bucket := range []string{storage.ContentBucket, storage.ThumbnailBucket} {
		objs, err := e.blobs.List(context.Background(), bucket, "")
		if err != nil {
			t.Fatalf("snapshot %s: %v", bucket, err)
		}
		for _, o := range objs {
			snap.Objects[bucket] = append(snap.Objects[bucket], fmt.Sprintf("%s:%d", o.Name, o.Size))
		}
	}
	return snap
}

func stringsReader(s string) io.Reader { return strings.NewReader(s) }
