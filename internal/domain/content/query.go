package content

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"

	"go.uber.org/zap"

	"advisoryhub/internal/changefeed"
	"advisoryhub/internal/domain/auth"
	"advisoryhub/internal/pkg/validator"
	"advisoryhub/internal/storage"
)

// List returns matching items, newest first. Category ids match with OR
// semantics. Anonymous callers see premium items locked.
func (s *Service) List(ctx context.Context, sess *auth.Session, f ListFilter) ([]ItemView, error) {
	t, ok := ParseTypeFilter(f.Type)
	if !ok {
		return nil, invalid("type", "unknown")
	}
	q := ListQuery{
		Type:   t,
		Search: strings.TrimSpace(f.Search),
		Limit:  s.opts.ListLimit,
	}

	if categoryIDs := uniqueIDs(f.CategoryIDs); len(categoryIDs) > 0 {
		ids, err := s.repo.ContentIDsInCategories(ctx, categoryIDs)
		if err != nil {
			return nil, fmt.Errorf("resolve category filter: %w", err)
		}
		if len(ids) == 0 {
			return []ItemView{}, nil
		}
		q.IDs = ids
	}

	items, err := s.repo.List(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("list content: %w", err)
	}
	return s.views(ctx, sess, items)
}

func (s *Service) Get(ctx context.Context, sess *auth.Session, id string) (*ItemView, error) {
	item, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	views, err := s.views(ctx, sess, []Item{*item})
	if err != nil {
		return nil, err
	}
	return &views[0], nil
}

// Update edits an item's descriptive fields. A non-nil CategoryIDs replaces
// every association.
func (s *Service) Update(ctx context.Context, sess *auth.Session, id string, in UpdateInput) (*Result, error) {
	if !sess.IsConsultant() {
		return nil, ErrForbidden
	}
	if err := s.validateUpdate(ctx, &in); err != nil {
		return nil, err
	}

	item, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	oldThumbnail := item.ThumbnailURL
	if in.Title != nil {
		item.Title = *in.Title
	}
	if in.Description != nil {
		item.Description = *in.Description
	}
	if in.IsPremium != nil {
		item.IsPremium = *in.IsPremium
	}
	if in.ThumbnailURL != nil {
		item.ThumbnailURL = *in.ThumbnailURL
	}

	if err := s.repo.Save(ctx, item); err != nil {
		return nil, fmt.Errorf("%w: update content: %w", ErrMetadata, err)
	}
	if item.ThumbnailURL != oldThumbnail {
		s.dropReplacedThumbnail(ctx, oldThumbnail, item.ThumbnailURL)
	}

	res := &Result{Item: item, State: StateDone}
	if in.CategoryIDs != nil {
		s.saveCategories(ctx, item.ID, *in.CategoryIDs, true, res)
		res.CategoryIDs = *in.CategoryIDs
	} else if cats, err := s.repo.CategoryIDs(ctx, []string{item.ID}); err == nil {
		res.CategoryIDs = cats[item.ID]
	}

	s.publish(ctx, changefeed.OpUpdate, item.ID)
	return res, nil
}

// Delete removes the row first, then makes a best-effort attempt at the
// blobs. Blob failures are logged and never restore the row.
func (s *Service) Delete(ctx context.Context, sess *auth.Session, id string, confirmed bool) error {
	if !sess.IsConsultant() {
		return ErrForbidden
	}
	if !confirmed {
		return ErrConfirmationRequired
	}

	item, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, ErrNotFound) {
			return err
		}
		return fmt.Errorf("%w: delete content: %w", ErrMetadata, err)
	}

	if key, ok := s.contentKey(item); ok {
		s.removeBestEffort(ctx, storage.ContentBucket, key)
	}
	if key, ok := s.blobs.KeyFromURL(storage.ThumbnailBucket, item.ThumbnailURL); ok {
		s.removeBestEffort(ctx, storage.ThumbnailBucket, key)
	}

	s.log.Info("content deleted", zap.String("id", id), zap.String("by", sess.UserID))
	s.publish(ctx, changefeed.OpDelete, id)
	return nil
}

// Download opens a stored file, or returns the target of an external item.
func (s *Service) Download(ctx context.Context, sess *auth.Session, id string) (*Download, error) {
	item, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if item.IsPremium && sess == nil {
		return nil, ErrSignInRequired
	}
	if item.SourceKind == SourceExternalURL {
		return &Download{RedirectURL: item.ContentURL}, nil
	}

	key, ok := s.contentKey(item)
	if !ok {
		return nil, ErrNotFound
	}
	body, err := s.blobs.Open(ctx, storage.ContentBucket, key)
	if errors.Is(err, storage.ErrObjectNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: open %s/%s: %w", ErrStorage, storage.ContentBucket, key, err)
	}
	return &Download{Body: body, Filename: downloadName(item, key)}, nil
}

func (s *Service) views(ctx context.Context, sess *auth.Session, items []Item) ([]ItemView, error) {
	ids := make([]string, 0, len(items))
	for _, it := range items {
		ids = append(ids, it.ID)
	}
	cats, err := s.repo.CategoryIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("load categories: %w", err)
	}

	views := make([]ItemView, 0, len(items))
	for _, it := range items {
		views = append(views, s.view(it, cats[it.ID], it.IsPremium && sess == nil))
	}
	return views, nil
}

// view shapes an item for a caller. Stored files are only reachable
// through the download route, so their blob URL never leaves the service.
// A locked view drops everything that points at the file.
func (s *Service) view(it Item, categoryIDs []string, locked bool) ItemView {
	v := ItemView{
		ID:               it.ID,
		Title:            it.Title,
		Description:      it.Description,
		ContentType:      it.ContentType,
		SourceKind:       it.SourceKind,
		ContentURL:       it.ContentURL,
		OriginalFilename: it.OriginalFilename,
		ThumbnailURL:     it.ThumbnailURL,
		Icon:             it.ContentType.Icon(),
		IsPremium:        it.IsPremium,
		CategoryIDs:      categoryIDs,
		CreatedBy:        it.CreatedBy,
		CreatedAt:        it.CreatedAt,
		UpdatedAt:        it.UpdatedAt,
	}
	if v.CategoryIDs == nil {
		v.CategoryIDs = []string{}
	}
	if it.SourceKind == SourceUploadedFile {
		v.ContentURL = ""
		v.DownloadURL = strings.TrimSuffix(s.opts.DownloadBase, "/") + "/" + it.ID + "/download"
	}
	if locked {
		v.ContentURL = ""
		v.DownloadURL = ""
		v.OriginalFilename = ""
		v.Locked = true
	}
	return v
}

func (s *Service) validateUpdate(ctx context.Context, in *UpdateInput) error {
	fields := validator.Validate(*in)
	if fields == nil {
		fields = make(map[string]string)
	}
	if in.Title != nil {
		t := strings.TrimSpace(*in.Title)
		in.Title = &t
		if t == "" {
			fields["Title"] = "required"
		}
	}
	if in.Description != nil {
		d := strings.TrimSpace(*in.Description)
		in.Description = &d
	}
	if in.ThumbnailURL != nil {
		u := strings.TrimSpace(*in.ThumbnailURL)
		in.ThumbnailURL = &u
		if u != "" && !isHTTPURL(u) {
			fields["ThumbnailURL"] = "url"
		}
	}
	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	if in.CategoryIDs != nil {
		ids := uniqueIDs(*in.CategoryIDs)
		if ids == nil {
			ids = []string{}
		}
		in.CategoryIDs = &ids
		return s.checkCategories(ctx, ids)
	}
	return nil
}

// contentKey derives the object key from the stored URL, falling back to
// the recorded key.
func (s *Service) contentKey(item *Item) (string, bool) {
	if item.SourceKind != SourceUploadedFile {
		return "", false
	}
	if key, ok := s.blobs.KeyFromURL(storage.ContentBucket, item.ContentURL); ok {
		return key, true
	}
	if item.StorageKey != "" {
		return item.StorageKey, true
	}
	return "", false
}

func downloadName(item *Item, key string) string {
	name := path.Base(strings.ReplaceAll(item.OriginalFilename, "\\", "/"))
	if name == "" || name == "." || name == "/" {
		return key
	}
	return name
}
