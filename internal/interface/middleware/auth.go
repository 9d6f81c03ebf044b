package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/oksasatya/profile-sync/internal/domain/entity"
	"github.com/oksasatya/profile-sync/internal/domain/repository"
	"github.com/oksasatya/profile-sync/internal/infrastructure/redisstore"
	"github.com/oksasatya/profile-sync/pkg/helpers"
	"github.com/oksasatya/profile-sync/pkg/response"
)

const CtxUserIDKey = "userID"

type sessionCtxKey struct{}

// WithSession returns a copy of ctx carrying sess.
func WithSession(ctx context.Context, sess *entity.Session) context.Context {
	return context.WithValue(ctx, sessionCtxKey{}, sess)
}

// ContextSessions is a SessionProvider that reads the session Auth stored on
// the request context.
type ContextSessions struct{}

func (ContextSessions) Current(ctx context.Context) (*entity.Session, bool) {
	sess, ok := ctx.Value(sessionCtxKey{}).(*entity.Session)
	return sess, ok && sess != nil && sess.UserID != ""
}

var _ repository.SessionProvider = ContextSessions{}

// Auth validates the access token (Bearer header or access_token cookie) and
// ensures an active session exists in Redis. The session is put on the request
// context and userID/userEmail are set on the Gin context.
func Auth(sessions *redisstore.SessionStore, jwt *helpers.JWTManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c)
		if token == "" {
			response.Error[any](c, http.StatusUnauthorized, "missing access token", nil)
			c.Abort()
			return
		}
		claims, err := jwt.ParseAccessToken(token)
		if err != nil {
			response.Error[any](c, http.StatusUnauthorized, "invalid access token", err.Error())
			c.Abort()
			return
		}

		sess, err := sessions.Get(c.Request.Context(), claims.UserID)
		if err != nil {
			response.Error[any](c, http.StatusUnauthorized, "session not found", nil)
			c.Abort()
			return
		}

		c.Set(CtxUserIDKey, sess.UserID)
		c.Set("userEmail", sess.Email)
		c.Request = c.Request.WithContext(WithSession(c.Request.Context(), sess))
		c.Next()
	}
}

func bearerToken(c *gin.Context) string {
	if h := c.GetHeader("Authorization"); h != "" {
		if scheme, tok, ok := strings.Cut(h, " "); ok && strings.EqualFold(scheme, "Bearer") {
			return strings.TrimSpace(tok)
		}
	}
	tok, err := c.Cookie("access_token")
	if err != nil {
		return ""
	}
	return tok
}
