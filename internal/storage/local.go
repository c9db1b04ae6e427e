package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// LocalStore keeps objects on the local filesystem under <baseDir>/<bucket>/<key>
// and serves them from <publicBase>/<bucket>/<key>.
type LocalStore struct {
	baseDir    string
	publicBase string
	buckets    map[string]bool
}

func NewLocalStore(baseDir, publicBase string, buckets ...string) (*LocalStore, error) {
	if len(buckets) == 0 {
		buckets = []string{ContentBucket, ThumbnailBucket}
	}
	s := &LocalStore{
		baseDir:    baseDir,
		publicBase: strings.TrimRight(publicBase, "/"),
		buckets:    make(map[string]bool, len(buckets)),
	}
	for _, b := range buckets {
		if err := os.MkdirAll(filepath.Join(baseDir, b), 0755); err != nil {
			return nil, fmt.Errorf("failed to create bucket directory %s: %w", b, err)
		}
		s.buckets[b] = true
	}
	return s, nil
}

// BaseDir is the directory to mount under PublicBase for static serving.
func (s *LocalStore) BaseDir() string { return s.baseDir }

func (s *LocalStore) PublicBase() string { return s.publicBase }

func (s *LocalStore) path(bucket, key string) (string, error) {
	if !s.buckets[bucket] {
		return "", ErrInvalidBucket
	}
	if err := ValidateKey(key); err != nil {
		return "", err
	}
	return filepath.Join(s.baseDir, bucket, filepath.FromSlash(key)), nil
}

func (s *LocalStore) List(ctx context.Context, bucket, prefix string) ([]Object, error) {
	if !s.buckets[bucket] {
		return nil, ErrInvalidBucket
	}
	root := filepath.Join(s.baseDir, bucket)

	var objects []Object
	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if d.IsDir() || strings.HasPrefix(d.Name(), ".tmp-") {
			return nil
		}
		rel, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}
		name := filepath.ToSlash(rel)
		if !strings.HasPrefix(name, prefix) {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		objects = append(objects, Object{Name: name, Size: info.Size(), UpdatedAt: info.ModTime()})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list bucket %s: %w", bucket, err)
	}

	sort.Slice(objects, func(i, j int) bool { return objects[i].Name < objects[j].Name })
	return objects, nil
}

func (s *LocalStore) Upload(ctx context.Context, bucket, key string, r io.Reader, opts UploadOptions) (string, error) {
	dst, err := s.path(bucket, key)
	if err != nil {
		return "", err
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return "", fmt.Errorf("failed to create directory: %w", err)
	}

	if opts.Upsert {
		if err := s.writeReplace(dst, r); err != nil {
			return "", err
		}
		return s.PublicURL(bucket, key), nil
	}

	// O_EXCL makes the filesystem the tie-breaker between concurrent uploads.
	f, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			return "", ErrObjectExists
		}
		return "", fmt.Errorf("failed to create file: %w", err)
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		_ = os.Remove(dst)
		return "", fmt.Errorf("failed to write file: %w", err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(dst)
		return "", fmt.Errorf("failed to write file: %w", err)
	}

	return s.PublicURL(bucket, key), nil
}

func (s *LocalStore) writeReplace(dst string, r io.Reader) error {
	tmp, err := os.CreateTemp(filepath.Dir(dst), ".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to write file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to write file: %w", err)
	}
	if err := os.Rename(tmpName, dst); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to replace file: %w", err)
	}
	return nil
}

// Remove deletes every key. Missing keys are skipped; the first other
// failure is returned after all keys were attempted.
func (s *LocalStore) Remove(ctx context.Context, bucket string, keys []string) error {
	var firstErr error
	for _, key := range keys {
		p, err := s.path(bucket, key)
		if err == nil {
			err = os.Remove(p)
		}
		if err != nil && !errors.Is(err, fs.ErrNotExist) && firstErr == nil {
			firstErr = fmt.Errorf("failed to remove %s/%s: %w", bucket, key, err)
		}
	}
	return firstErr
}

func (s *LocalStore) Open(ctx context.Context, bucket, key string) (io.ReadCloser, error) {
	p, err := s.path(bucket, key)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(p)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrObjectNotFound
	}
	return f, err
}

func (s *LocalStore) PublicURL(bucket, key string) string {
	return s.publicBase + "/" + bucket + "/" + key
}

func (s *LocalStore) KeyFromURL(bucket, rawURL string) (string, bool) {
	return keyFromPublicURL(s.publicBase, bucket, rawURL)
}
