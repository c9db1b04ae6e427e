package auth

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
)

// ContextSessionKey is the gin context key the auth middleware stores the
// current *Session under.
const ContextSessionKey = "session"

// Session is the identity of the caller as far as the rest of the service
// is concerned.
type Session struct {
	UserID    string    `json:"user_id"`
	Role      UserType  `json:"role"`
	TokenID   string    `json:"-"`
	ExpiresAt time.Time `json:"expires_at"`
}

func (s *Session) IsConsultant() bool {
	return s != nil && s.Role == UserTypeConsultant
}

type SessionEventKind string

const (
	SessionSignedIn  SessionEventKind = "signed_in"
	SessionSignedOut SessionEventKind = "signed_out"
)

type SessionEvent struct {
	Kind    SessionEventKind
	Session Session
}

// SessionContext is the identity provider other components are handed.
// Nothing reads session state from globals.
type SessionContext interface {
	GetSession(ctx context.Context, token string) (*Session, error)
	OnSessionChange(fn func(SessionEvent)) (unsubscribe func())
	SignOut(ctx context.Context, s *Session) error
}

// CurrentSession returns the session set by the auth middleware, or nil for
// anonymous requests.
func CurrentSession(c *gin.Context) *Session {
	v, ok := c.Get(ContextSessionKey)
	if !ok {
		return nil
	}
	s, _ := v.(*Session)
	return s
}
