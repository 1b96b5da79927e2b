package middleware

import (
	"net/http"
	"strings"

	chat "petchat/internal/pkg/chat/application/domain"

	"github.com/gin-gonic/gin"
)

const (
	viewerKey = "viewer"
	userIDKey = "userId"
)

// Auth verifies the caller's token and stores the viewer in the context. The token
// comes from "Authorization: Bearer <token>" or, for websocket upgrades where browsers
// cannot set headers, the "token" query parameter.
func Auth(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString, ok := bearerToken(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authorization required"})
			return
		}

		viewer, err := ParseViewerToken(secret, tokenString)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired token"})
			return
		}

		c.Set(viewerKey, viewer)
		c.Set(userIDKey, viewer.UserID)
		c.Next()
	}
}

// ViewerFrom returns the viewer stored by Auth.
func ViewerFrom(c *gin.Context) (chat.Viewer, bool) {
	v, ok := c.Get(viewerKey)
	if !ok {
		return chat.Viewer{}, false
	}
	viewer, ok := v.(chat.Viewer)
	return viewer, ok
}

// SetViewer is used by tests and internal callers that authenticate by other means.
func SetViewer(c *gin.Context, v chat.Viewer) {
	c.Set(viewerKey, v)
	c.Set(userIDKey, v.UserID)
}

func bearerToken(c *gin.Context) (string, bool) {
	if header := c.GetHeader("Authorization"); header != "" {
		scheme, token, found := strings.Cut(header, " ")
		if !found || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
			return "", false
		}
		return strings.TrimSpace(token), true
	}
	if token := c.Query("token"); token != "" {
		return token, true
	}
	return "", false
}
