package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

const (
	userIDKey = "userId"

	errMissingAuth  = "missing Authorization header"
	errAuthFormat   = "invalid Authorization header format"
	errInvalidToken = "invalid or expired token"
)

// userIdMiddleware accepts "Bearer <jwt>" (scheme is case-insensitive) and
// stores the operator id under userIDKey.
func (h *Handler) userIdMiddleware(c *gin.Context) {
	header := strings.TrimSpace(c.GetHeader("Authorization"))
	if header == "" {
		h.rejectUnauthorized(c, errMissingAuth, nil)
		return
	}

	scheme, token, ok := strings.Cut(header, " ")
	token = strings.TrimSpace(token)
	if !ok || !strings.EqualFold(scheme, "Bearer") || token == "" {
		h.rejectUnauthorized(c, errAuthFormat, nil)
		return
	}

	userID, err := h.services.ParseToken(token)
	if err != nil {
		h.rejectUnauthorized(c, errInvalidToken, err)
		return
	}

	c.Set(userIDKey, userID)
	c.Next()
}

func (h *Handler) rejectUnauthorized(c *gin.Context, msg string, err error) {
	if h.log != nil {
		h.log.Infow("auth_rejected", "path", c.FullPath(), "reason", msg, "err", err)
	}
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": msg})
}
