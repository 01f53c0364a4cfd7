package httpapi

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Divy1030/duelcore/internal/apperr"
	"github.com/Divy1030/duelcore/internal/session"
	"github.com/Divy1030/duelcore/internal/store"
)

// SessionHandler upgrades an authenticated request into a session.Client and
// runs its read/write pumps for the lifetime of the connection.
type SessionHandler struct {
	store  store.Store
	deps   session.Deps
	logger *zap.Logger
}

// NewSessionHandler constructs a SessionHandler.
func NewSessionHandler(st store.Store, deps session.Deps, logger *zap.Logger) *SessionHandler {
	return &SessionHandler{store: st, deps: deps, logger: logger}
}

// Connect handles GET /ws, the session gateway's sole entry point. The
// caller must already be authenticated (see RequireAuth); the user's
// current rating is loaded fresh so a stale token can't smuggle in a
// mismatched rating for matchmaking pairing.
func (h *SessionHandler) Connect(c *gin.Context) {
	uid, ok := userID(c)
	if !ok {
		respondError(c, apperr.ErrUnauthorized)
		return
	}

	user, err := h.store.GetUser(c.Request.Context(), uid)
	if err != nil {
		respondError(c, err)
		return
	}

	client, err := session.NewClient(c.Writer, c.Request, user.ID, user.Username, user.Rating, h.deps)
	if err != nil {
		h.logger.Warn("session handler: websocket upgrade failed", zap.String("user_id", uid), zap.Error(err))
		return
	}
	client.Run()
}
