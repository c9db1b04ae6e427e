package content

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"advisoryhub/internal/changefeed"
	"advisoryhub/internal/domain/auth"
	"advisoryhub/internal/pkg/validator"
	"advisoryhub/internal/storage"
)

const changeTable = "content"

// CategoryChecker validates association targets.
type CategoryChecker interface {
	ExistAll(ctx context.Context, ids []string) (bool, error)
}

type Options struct {
	MaxUploadSize int64
	ListLimit     int
	// DownloadBase is where the content routes are mounted; uploaded files
	// are fetched from DownloadBase/<id>/download.
	DownloadBase string
}

// Service is the content asset manager. It coordinates the blob store and
// the content tables; the blob write always happens before the row write
// and is never rolled back.
type Service struct {
	repo       Repository
	blobs      storage.BlobStore
	categories CategoryChecker
	pending    *PendingStore
	publisher  changefeed.Publisher
	opts       Options
	log        *zap.Logger
}

func NewService(
	repo Repository,
	blobs storage.BlobStore,
	categories CategoryChecker,
	pending *PendingStore,
	publisher changefeed.Publisher,
	opts Options,
	log *zap.Logger,
) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	if pending == nil {
		pending = NewPendingStore(15*time.Minute, 0)
	}
	if opts.MaxUploadSize <= 0 {
		opts.MaxUploadSize = 50 << 20
	}
	if opts.ListLimit <= 0 {
		opts.ListLimit = 500
	}
	if opts.DownloadBase == "" {
		opts.DownloadBase = "/api/v1/content"
	}
	return &Service{
		repo:       repo,
		blobs:      blobs,
		categories: categories,
		pending:    pending,
		publisher:  publisher,
		opts:       opts,
		log:        log,
	}
}

func (s *Service) Pending() *PendingStore { return s.pending }

// Submit creates a content item. When the file name collides with a stored
// object nothing is written and a *DuplicateError carrying the suspended
// submission is returned.
func (s *Service) Submit(ctx context.Context, sess *auth.Session, in SubmitInput) (*Result, error) {
	if !sess.IsConsultant() {
		return nil, ErrForbidden
	}
	if err := s.validateSubmit(ctx, &in); err != nil {
		return nil, err
	}
	if in.File == nil {
		return s.submitExternal(ctx, sess, in)
	}

	key := storage.KeyForFilename(in.File.Name)
	exists, err := s.objectExists(ctx, storage.ContentBucket, key)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, s.suspend(sess, key, in)
	}

	// The existence check and this upload race with concurrent submissions of
	// the same name; the store's no-overwrite upload decides the winner.
	contentURL, err := s.upload(ctx, storage.ContentBucket, key, in.File, false)
	if err != nil {
		return nil, err
	}

	res := &Result{State: StateDone}
	item := &Item{
		ID:               uuid.NewString(),
		Title:            in.Title,
		Description:      in.Description,
		ContentType:      in.ContentType,
		SourceKind:       SourceUploadedFile,
		StorageKey:       key,
		ContentURL:       contentURL,
		OriginalFilename: in.File.Name,
		IsPremium:        in.IsPremium,
		CreatedBy:        sess.UserID,
	}
	item.ThumbnailURL = s.storeThumbnail(ctx, key, in, false, res)

	if err := s.repo.Create(ctx, item); err != nil {
		s.log.Warn("content row insert failed after upload, blobs left for the orphan sweep",
			zap.String("bucket", storage.ContentBucket),
			zap.String("key", key),
			zap.String("thumbnail_url", item.ThumbnailURL),
			zap.Error(err))
		return nil, fmt.Errorf("%w: insert content: %w", ErrMetadata, err)
	}

	s.saveCategories(ctx, item.ID, in.CategoryIDs, false, res)
	s.publish(ctx, changefeed.OpInsert, item.ID)

	res.Item = item
	res.CategoryIDs = in.CategoryIDs
	return res, nil
}

func (s *Service) submitExternal(ctx context.Context, sess *auth.Session, in SubmitInput) (*Result, error) {
	res := &Result{State: StateDone}
	item := &Item{
		ID:          uuid.NewString(),
		Title:       in.Title,
		Description: in.Description,
		ContentType: in.ContentType,
		SourceKind:  SourceExternalURL,
		ContentURL:  in.ExternalURL,
		IsPremium:   in.IsPremium,
		CreatedBy:   sess.UserID,
	}
	item.ThumbnailURL = s.storeThumbnail(ctx, item.ID, in, false, res)

	if err := s.repo.Create(ctx, item); err != nil {
		s.log.Warn("content row insert failed", zap.String("thumbnail_url", item.ThumbnailURL), zap.Error(err))
		return nil, fmt.Errorf("%w: insert content: %w", ErrMetadata, err)
	}

	s.saveCategories(ctx, item.ID, in.CategoryIDs, false, res)
	s.publish(ctx, changefeed.OpInsert, item.ID)

	res.Item = item
	res.CategoryIDs = in.CategoryIDs
	return res, nil
}

func (s *Service) suspend(sess *auth.Session, key string, in SubmitInput) error {
	file, err := spool(in.File, s.opts.MaxUploadSize)
	if err != nil {
		return err
	}
	thumb, err := spool(in.Thumbnail, s.opts.MaxUploadSize)
	if err != nil {
		return err
	}
	in.File = file
	in.Thumbnail = thumb

	p := &PendingSubmission{Owner: sess.UserID, Key: key, Input: in}
	if err := s.pending.Put(p); err != nil {
		return err
	}
	s.log.Info("submission suspended on duplicate name", zap.String("key", key), zap.String("token", p.Token))
	return &DuplicateError{Key: key, Pending: p}
}

// ResolvePending resolves a suspended submission by token. Only the
// consultant who raised it may resolve it.
func (s *Service) ResolvePending(ctx context.Context, sess *auth.Session, token string, r Resolution) (*Result, error) {
	if !sess.IsConsultant() {
		return nil, ErrForbidden
	}
	if r != ResolutionReplace && r != ResolutionCancel {
		return nil, invalid("resolution", "oneof")
	}
	p, err := s.pending.Take(token, sess.UserID)
	if err != nil {
		return nil, err
	}
	return s.ResolveDuplicate(ctx, sess, p, r)
}

// ResolveDuplicate finishes a suspended submission. Cancel has no side
// effects. Replace overwrites the object at the colliding key and updates
// the row stored under it, or inserts one if there is none.
func (s *Service) ResolveDuplicate(ctx context.Context, sess *auth.Session, p *PendingSubmission, r Resolution) (*Result, error) {
	if !sess.IsConsultant() {
		return nil, ErrForbidden
	}
	if p == nil {
		return nil, ErrPendingNotFound
	}
	if p.Owner != sess.UserID {
		return nil, ErrForbidden
	}

	switch r {
	case ResolutionCancel:
		s.log.Info("duplicate submission cancelled", zap.String("key", p.Key))
		return &Result{State: StateCancelled}, nil
	case ResolutionReplace:
		return s.replace(ctx, sess, p)
	default:
		return nil, invalid("resolution", "oneof")
	}
}

func (s *Service) replace(ctx context.Context, sess *auth.Session, p *PendingSubmission) (*Result, error) {
	in := p.Input
	key := p.Key
	if in.File == nil {
		return nil, invalid("file", "required")
	}

	existing, err := s.repo.GetByStorageKey(ctx, key)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("%w: find content by key: %w", ErrMetadata, err)
	}

	if err := s.blobs.Remove(ctx, storage.ContentBucket, []string{key}); err != nil {
		return nil, fmt.Errorf("%w: remove %s/%s: %w", ErrStorage, storage.ContentBucket, key, err)
	}
	contentURL, err := s.upload(ctx, storage.ContentBucket, key, in.File, false)
	if err != nil {
		return nil, err
	}

	res := &Result{State: StateDone}
	thumbnailURL := s.storeThumbnail(ctx, key, in, true, res)
	if existing != nil {
		s.dropReplacedThumbnail(ctx, existing.ThumbnailURL, thumbnailURL)
	}

	item := existing
	op := changefeed.OpUpdate
	if item == nil {
		item = &Item{
			ID:         uuid.NewString(),
			SourceKind: SourceUploadedFile,
			StorageKey: key,
			CreatedBy:  sess.UserID,
		}
		op = changefeed.OpInsert
	}
	item.Title = in.Title
	item.Description = in.Description
	item.ContentType = in.ContentType
	item.ContentURL = contentURL
	item.ThumbnailURL = thumbnailURL
	item.OriginalFilename = in.File.Name
	item.IsPremium = in.IsPremium

	if op == changefeed.OpInsert {
		err = s.repo.Create(ctx, item)
	} else {
		err = s.repo.Save(ctx, item)
	}
	if err != nil {
		s.log.Warn("content row write failed after replacing blob",
			zap.String("bucket", storage.ContentBucket), zap.String("key", key), zap.Error(err))
		return nil, fmt.Errorf("%w: write content: %w", ErrMetadata, err)
	}

	s.saveCategories(ctx, item.ID, in.CategoryIDs, true, res)
	s.publish(ctx, op, item.ID)

	res.Item = item
	res.CategoryIDs = in.CategoryIDs
	return res, nil
}

func (s *Service) validateSubmit(ctx context.Context, in *SubmitInput) error {
	in.Title = strings.TrimSpace(in.Title)
	in.Description = strings.TrimSpace(in.Description)
	in.ExternalURL = strings.TrimSpace(in.ExternalURL)
	in.ThumbnailURL = strings.TrimSpace(in.ThumbnailURL)
	in.CategoryIDs = uniqueIDs(in.CategoryIDs)

	fields := validator.Validate(*in)
	if fields == nil {
		fields = make(map[string]string)
	}
	if in.ContentType != "" && !in.ContentType.Valid() {
		fields["ContentType"] = "oneof"
	}

	hasFile := in.File != nil
	hasURL := in.ExternalURL != ""
	switch {
	case hasFile == hasURL:
		fields["source"] = "exactly_one"
	case hasFile:
		if strings.TrimSpace(in.File.Name) == "" || in.File.Open == nil {
			fields["File"] = "required"
		} else if in.File.Size == 0 {
			fields["File"] = "empty"
		} else if in.File.Size > s.opts.MaxUploadSize {
			fields["File"] = "too_large"
		}
	case !isHTTPURL(in.ExternalURL):
		fields["ExternalURL"] = "url"
	}

	if in.Thumbnail != nil && in.ThumbnailURL != "" {
		fields["thumbnail"] = "exactly_one"
	}
	if in.Thumbnail != nil {
		switch {
		case strings.TrimSpace(in.Thumbnail.Name) == "" || in.Thumbnail.Open == nil:
			fields["Thumbnail"] = "required"
		case in.Thumbnail.MIMEType != "" && !strings.HasPrefix(in.Thumbnail.MIMEType, "image/"):
			fields["Thumbnail"] = "image"
		case in.Thumbnail.Size > s.opts.MaxUploadSize:
			fields["Thumbnail"] = "too_large"
		}
	}
	if in.ThumbnailURL != "" && !isHTTPURL(in.ThumbnailURL) {
		fields["ThumbnailURL"] = "url"
	}

	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return s.checkCategories(ctx, in.CategoryIDs)
}

func (s *Service) checkCategories(ctx context.Context, ids []string) error {
	if len(ids) == 0 || s.categories == nil {
		return nil
	}
	ok, err := s.categories.ExistAll(ctx, ids)
	if err != nil {
		return fmt.Errorf("%w: check categories: %w", ErrMetadata, err)
	}
	if !ok {
		return invalid("CategoryIDs", "unknown")
	}
	return nil
}

func (s *Service) objectExists(ctx context.Context, bucket, key string) (bool, error) {
	objs, err := s.blobs.List(ctx, bucket, key)
	if err != nil {
		return false, fmt.Errorf("%w: list %s: %w", ErrStorage, bucket, err)
	}
	for _, o := range objs {
		if o.Name == key {
			return true, nil
		}
	}
	return false, nil
}

func (s *Service) upload(ctx context.Context, bucket, key string, f *FileInput, upsert bool) (string, error) {
	rc, err := f.Open()
	if err != nil {
		return "", fmt.Errorf("%w: open %s: %w", ErrStorage, f.Name, err)
	}
	defer rc.Close()

	u, err := s.blobs.Upload(ctx, bucket, key, rc, storage.UploadOptions{Upsert: upsert, ContentType: f.MIMEType})
	if errors.Is(err, storage.ErrObjectExists) {
		return "", fmt.Errorf("%w: %s/%s was written by a concurrent upload: %w", ErrStorage, bucket, key, err)
	}
	if err != nil {
		return "", fmt.Errorf("%w: upload %s/%s: %w", ErrStorage, bucket, key, err)
	}
	return u, nil
}

// storeThumbnail returns the thumbnail URL to persist. Upload failures
// become a warning on res and an empty URL.
func (s *Service) storeThumbnail(ctx context.Context, contentKey string, in SubmitInput, upsert bool, res *Result) string {
	if in.ThumbnailURL != "" {
		return in.ThumbnailURL
	}
	if in.Thumbnail == nil {
		return ""
	}
	key := storage.ThumbnailKey(contentKey, in.Thumbnail.Name)
	u, err := s.upload(ctx, storage.ThumbnailBucket, key, in.Thumbnail, upsert)
	if err != nil {
		s.log.Warn("thumbnail upload failed, continuing without thumbnail",
			zap.String("bucket", storage.ThumbnailBucket), zap.String("key", key), zap.Error(err))
		res.warn("thumbnail could not be stored; the item was saved without one")
		return ""
	}
	return u
}

// dropReplacedThumbnail removes a stored thumbnail that is no longer
// referenced after a replace or edit.
func (s *Service) dropReplacedThumbnail(ctx context.Context, oldURL, newURL string) {
	oldKey, ok := s.blobs.KeyFromURL(storage.ThumbnailBucket, oldURL)
	if !ok {
		return
	}
	if newKey, ok := s.blobs.KeyFromURL(storage.ThumbnailBucket, newURL); ok && newKey == oldKey {
		return
	}
	s.removeBestEffort(ctx, storage.ThumbnailBucket, oldKey)
}

func (s *Service) removeBestEffort(ctx context.Context, bucket, key string) {
	if err := s.blobs.Remove(ctx, bucket, []string{key}); err != nil {
		s.log.Warn("blob cleanup failed", zap.String("bucket", bucket), zap.String("key", key), zap.Error(err))
	}
}

// saveCategories writes the associations. With replace=false an empty set is
// a no-op; with replace=true it clears existing links.
func (s *Service) saveCategories(ctx context.Context, contentID string, ids []string, replace bool, res *Result) {
	if len(ids) == 0 && !replace {
		return
	}
	if err := s.repo.ReplaceCategories(ctx, contentID, ids); err != nil {
		s.log.Warn("category association write failed", zap.String("content_id", contentID), zap.Error(err))
		res.warn("categories could not be saved; the item was saved without them")
	}
}

func (s *Service) publish(ctx context.Context, op, id string) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, changefeed.Event{Table: changeTable, Op: op, ID: id}); err != nil {
		s.log.Warn("failed to publish content change", zap.String("op", op), zap.String("id", id), zap.Error(err))
	}
}

func isHTTPURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

func uniqueIDs(ids []string) []string {
	if len(ids) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
