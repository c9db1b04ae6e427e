package category

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"advisoryhub/internal/changefeed"
	"advisoryhub/internal/domain/auth"
)

const maxNameLength = 100

type Service struct {
	repo      Repository
	publisher changefeed.Publisher
	log       *zap.Logger
}

func NewService(repo Repository, publisher changefeed.Publisher, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{repo: repo, publisher: publisher, log: log}
}

// List returns every category ordered by name.
func (s *Service) List(ctx context.Context) ([]Category, error) {
	return s.repo.List(ctx)
}

func (s *Service) Create(ctx context.Context, sess *auth.Session, name string) (*Category, error) {
	if !sess.IsConsultant() {
		return nil, ErrForbidden
	}
	name, err := cleanName(name)
	if err != nil {
		return nil, err
	}

	c := &Category{Name: name}
	if err := s.repo.Create(ctx, c); err != nil {
		return nil, err
	}
	s.publish(ctx, changefeed.OpInsert, c.ID)
	return c, nil
}

func (s *Service) Rename(ctx context.Context, sess *auth.Session, id, name string) (*Category, error) {
	if !sess.IsConsultant() {
		return nil, ErrForbidden
	}
	name, err := cleanName(name)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Rename(ctx, id, name); err != nil {
		return nil, err
	}
	s.publish(ctx, changefeed.OpUpdate, id)
	return s.repo.GetByID(ctx, id)
}

func (s *Service) Delete(ctx context.Context, sess *auth.Session, id string) error {
	if !sess.IsConsultant() {
		return ErrForbidden
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.publish(ctx, changefeed.OpDelete, id)
	return nil
}

// ExistAll reports whether every id names an existing category.
func (s *Service) ExistAll(ctx context.Context, ids []string) (bool, error) {
	uniq := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		uniq[id] = struct{}{}
	}
	if len(uniq) == 0 {
		return true, nil
	}
	keys := make([]string, 0, len(uniq))
	for id := range uniq {
		keys = append(keys, id)
	}
	n, err := s.repo.CountByIDs(ctx, keys)
	if err != nil {
		return false, err
	}
	return n == int64(len(keys)), nil
}

func (s *Service) publish(ctx context.Context, op, id string) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, changefeed.Event{Table: "categories", Op: op, ID: id}); err != nil {
		s.log.Warn("failed to publish category change", zap.String("op", op), zap.String("id", id), zap.Error(err))
	}
}

func cleanName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" || len(name) > maxNameLength {
		return "", ErrInvalidName
	}
	return name, nil
}
