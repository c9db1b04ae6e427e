package realtime

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"advisoryhub/internal/domain/auth"
	"advisoryhub/internal/pkg/response"
)

// Handler upgrades /ws/content requests. A token is optional; when given it
// must be valid and the connection is dropped on sign-out.
type Handler struct {
	hub         *Hub
	sessions    auth.SessionContext
	upgrader    websocket.Upgrader
	log         *zap.Logger
	unsubscribe func()
}

func NewHandler(hub *Hub, sessions auth.SessionContext, allowedOrigins []string, log *zap.Logger) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	h := &Handler{
		hub:      hub,
		sessions: sessions,
		log:      log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(allowedOrigins),
		},
	}
	h.unsubscribe = sessions.OnSessionChange(func(ev auth.SessionEvent) {
		if ev.Kind == auth.SessionSignedOut {
			hub.DisconnectToken(ev.Session.TokenID)
		}
	})
	return h
}

// Close stops listening for session changes.
func (h *Handler) Close() { h.unsubscribe() }

// Serve godoc
// @Summary Content change notifications
// @Description Pushes {"type":"refresh","table":...} whenever content or categories change.
// @Tags Realtime
// @Param token query string false "JWT access token"
// @Router /ws/content [get]
func (h *Handler) Serve(c *gin.Context) {
	var sess *auth.Session
	if token := c.Query("token"); token != "" {
		s, err := h.sessions.GetSession(c.Request.Context(), token)
		if err != nil {
			response.CustomError(c, http.StatusUnauthorized, "UNAUTHORIZED", "Invalid or expired token")
			return
		}
		sess = s
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	var userID, tokenID string
	if sess != nil {
		userID, tokenID = sess.UserID, sess.TokenID
	}
	h.hub.ServeWS(conn, userID, tokenID)
}

// originChecker allows same-origin requests, requests without an Origin
// header, and the configured origins. "*" allows everything.
func originChecker(allowed []string) func(r *http.Request) bool {
	set := make(map[string]bool, len(allowed))
	for _, o := range allowed {
		set[strings.TrimRight(strings.TrimSpace(o), "/")] = true
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" || set["*"] || set[origin] {
			return true
		}
		u, err := url.Parse(origin)
		return err == nil && strings.EqualFold(u.Host, r.Host)
	}
}
