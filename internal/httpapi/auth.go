package httpapi

import (
	"github.com/gin-gonic/gin"

	"github.com/Divy1030/duelcore/internal/apperr"
	"github.com/Divy1030/duelcore/internal/security"
	"github.com/Divy1030/duelcore/internal/store"
)

const contextUserKey = "duelcore_user_id"

// RequireAuth rejects the request with 401 unless it carries a valid access
// token (cookie accessToken or Authorization: Bearer), attaching the
// resulting user ID to the gin context for handlers to read via userID.
func RequireAuth(tokens *security.TokenService) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw, err := security.ExtractBearer(c.Request)
		if err != nil {
			respondError(c, err)
			c.Abort()
			return
		}
		claims, err := tokens.Verify(raw)
		if err != nil {
			respondError(c, err)
			c.Abort()
			return
		}
		c.Set(contextUserKey, claims.UserID)
		c.Next()
	}
}

// OptionalAuth attaches a user ID to the context when a valid token is
// present, but never rejects the request when one is absent or invalid.
func OptionalAuth(tokens *security.TokenService) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw, err := security.ExtractBearer(c.Request)
		if err != nil {
			c.Next()
			return
		}
		claims, err := tokens.Verify(raw)
		if err != nil {
			c.Next()
			return
		}
		c.Set(contextUserKey, claims.UserID)
		c.Next()
	}
}

// userID returns the authenticated caller's ID, if any.
func userID(c *gin.Context) (string, bool) {
	v, ok := c.Get(contextUserKey)
	if !ok {
		return "", false
	}
	id, ok := v.(string)
	return id, ok
}

// requireParticipant loads contestID and returns apperr.ErrForbidden unless
// the authenticated caller is registered as a participant.
func requireParticipant(c *gin.Context, st store.Store, contestID string) (string, error) {
	uid, ok := userID(c)
	if !ok {
		return "", apperr.ErrUnauthorized
	}
	contest, err := st.GetContest(c.Request.Context(), contestID)
	if err != nil {
		return "", err
	}
	if !contest.HasParticipant(uid) {
		return "", apperr.ErrForbidden
	}
	return uid, nil
}
