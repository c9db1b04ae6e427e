package storage

import (
	"context"
	"errors"
	"io"
	"net/url"
	"path"
	"strings"
	"time"
)

const (
	ContentBucket   = "content_files"
	ThumbnailBucket = "thumbnails"
)

var (
	ErrObjectExists   = errors.New("object already exists")
	ErrObjectNotFound = errors.New("object not found")
	ErrInvalidKey     = errors.New("invalid object key")
	ErrInvalidBucket  = errors.New("invalid bucket")
)

// Object is one entry returned by List.
type Object struct {
	Name      string
	Size      int64
	UpdatedAt time.Time
}

type UploadOptions struct {
	// Upsert overwrites an existing object. Without it Upload fails with
	// ErrObjectExists when the key is taken, including when a concurrent
	// upload wins the race.
	Upsert      bool
	ContentType string
}

// BlobStore is the key-addressed file storage the content service writes to.
type BlobStore interface {
	List(ctx context.Context, bucket, prefix string) ([]Object, error)
	Upload(ctx context.Context, bucket, key string, r io.Reader, opts UploadOptions) (string, error)
	Remove(ctx context.Context, bucket string, keys []string) error
	Open(ctx context.Context, bucket, key string) (io.ReadCloser, error)
	PublicURL(bucket, key string) string
	KeyFromURL(bucket, rawURL string) (string, bool)
}

// ValidateKey rejects keys that could escape the bucket directory.
func ValidateKey(key string) error {
	if key == "" || len(key) > 512 {
		return ErrInvalidKey
	}
	if strings.ContainsAny(key, "\\\x00") || strings.HasPrefix(key, "/") {
		return ErrInvalidKey
	}
	for _, part := range strings.Split(key, "/") {
		if part == "" || part == "." || part == ".." {
			return ErrInvalidKey
		}
	}
	return nil
}

// keyFromPublicURL extracts the object key from a URL built as
// <base>/<bucket>/<key>. Only the path is considered so absolute and
// relative URLs both work.
func keyFromPublicURL(base, bucket, rawURL string) (string, bool) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", false
	}
	basePath := base
	if bu, err := url.Parse(base); err == nil {
		basePath = bu.Path
	}
	prefix := path.Join("/", basePath, bucket) + "/"
	p := u.Path
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	if !strings.HasPrefix(p, prefix) {
		return "", false
	}
	key := strings.TrimPrefix(p, prefix)
	if ValidateKey(key) != nil {
		return "", false
	}
	return key, true
}
