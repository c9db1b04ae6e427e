package auth

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"advisoryhub/internal/pkg/jwt"
)

type TokenService interface {
	GenerateToken(userID, role string) (string, *jwt.Claims, error)
	ValidateToken(token string) (*jwt.Claims, error)
}

type SignInResult struct {
	Profile     *Profile
	AccessToken string
	Session     *Session
}

// Service registers profiles and owns the session lifecycle. It implements
// SessionContext.
type Service struct {
	repo   Repository
	tokens TokenService
	log    *zap.Logger

	mu        sync.Mutex
	nextSub   int
	listeners map[int]func(SessionEvent)
}

var _ SessionContext = (*Service)(nil)

func NewService(repo Repository, tokens TokenService, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{
		repo:      repo,
		tokens:    tokens,
		log:       log,
		listeners: make(map[int]func(SessionEvent)),
	}
}

// Register creates a client profile. Consultants are provisioned out of band.
func (s *Service) Register(ctx context.Context, req RegisterRequest) (*Profile, error) {
	email := normalizeEmail(req.Email)
	exists, err := s.repo.ExistsByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, ErrEmailAlreadyExists
	}

	hash, err := HashPassword(req.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	p := &Profile{
		Email:        email,
		FullName:     req.FullName,
		UserType:     UserTypeClient,
		PasswordHash: hash,
	}
	if err := s.repo.Create(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *Service) SignIn(ctx context.Context, req LoginRequest) (*SignInResult, error) {
	p, err := s.repo.GetByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, ErrProfileNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if err := CheckPassword(req.Password, p.PasswordHash); err != nil {
		return nil, ErrInvalidCredentials
	}

	token, claims, err := s.tokens.GenerateToken(p.ID, string(p.UserType))
	if err != nil {
		return nil, err
	}
	sess := sessionFromClaims(claims)

	s.log.Info("profile signed in", zap.String("user_id", p.ID), zap.String("role", string(p.UserType)))
	s.emit(SessionEvent{Kind: SessionSignedIn, Session: *sess})

	return &SignInResult{Profile: p, AccessToken: token, Session: sess}, nil
}

func (s *Service) GetSession(ctx context.Context, token string) (*Session, error) {
	claims, err := s.tokens.ValidateToken(token)
	if err != nil {
		return nil, ErrUnauthorized
	}
	revoked, err := s.repo.IsRevoked(ctx, claims.ID)
	if err != nil {
		return nil, err
	}
	if revoked {
		return nil, ErrSessionRevoked
	}
	sess := sessionFromClaims(claims)
	if !sess.Role.Valid() {
		return nil, ErrUnauthorized
	}
	return sess, nil
}

// SignOut revokes the token behind the session until it would have expired.
func (s *Service) SignOut(ctx context.Context, sess *Session) error {
	if sess == nil || sess.TokenID == "" {
		return ErrUnauthorized
	}
	err := s.repo.Revoke(ctx, &RevokedToken{
		TokenID:   sess.TokenID,
		ProfileID: sess.UserID,
		ExpiresAt: sess.ExpiresAt,
		RevokedAt: time.Now(),
	})
	if err != nil {
		return err
	}
	s.log.Info("profile signed out", zap.String("user_id", sess.UserID))
	s.emit(SessionEvent{Kind: SessionSignedOut, Session: *sess})
	return nil
}

func (s *Service) OnSessionChange(fn func(SessionEvent)) func() {
	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.listeners[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.listeners, id)
		s.mu.Unlock()
	}
}

func (s *Service) CurrentProfile(ctx context.Context, sess *Session) (*Profile, error) {
	if sess == nil {
		return nil, ErrUnauthorized
	}
	return s.repo.GetByID(ctx, sess.UserID)
}

func (s *Service) PurgeExpiredRevocations(ctx context.Context) (int64, error) {
	return s.repo.PurgeExpiredRevocations(ctx, time.Now())
}

func (s *Service) emit(ev SessionEvent) {
	s.mu.Lock()
	fns := make([]func(SessionEvent), 0, len(s.listeners))
	for _, fn := range s.listeners {
		fns = append(fns, fn)
	}
	s.mu.Unlock()

	for _, fn := range fns {
		fn(ev)
	}
}

func sessionFromClaims(c *jwt.Claims) *Session {
	sess := &Session{
		UserID:  c.Subject,
		Role:    UserType(c.Role),
		TokenID: c.ID,
	}
	if c.ExpiresAt != nil {
		sess.ExpiresAt = c.ExpiresAt.Time
	}
	return sess
}

func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

func CheckPassword(password, hash string) error {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
}
