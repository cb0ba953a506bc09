package middlewares

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/geocoder89/mural/internal/actorctx"
	"github.com/geocoder89/mural/internal/auth"
	"github.com/geocoder89/mural/internal/observability"
	"github.com/gin-gonic/gin"
)

// Keep this small interface so tests can fake it easily.
type TokenVerifier interface {
	Verify(token string) (auth.Identity, error)
}

type AuthMiddleware struct {
	tokens TokenVerifier
	log    *slog.Logger
	prom   *observability.Prom
}

func NewAuthMiddleware(tokens TokenVerifier, log *slog.Logger, prom *observability.Prom) *AuthMiddleware {
	if log == nil {
		log = slog.Default()
	}
	return &AuthMiddleware{tokens: tokens, log: log, prom: prom}
}

// RequireAuth rejects requests without a valid bearer token with 403 and
// otherwise exposes the caller's identity to the handler chain.
func (m *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := bearerToken(c.GetHeader("Authorization"))

		identity, err := m.tokens.Verify(raw)
		if err != nil {
			reqID, _ := c.Get(CtxRequestID)

			if errors.Is(err, auth.ErrMissingToken) {
				m.prom.ObserveAuth("missing")
				m.log.InfoContext(c.Request.Context(), "access denied: missing token",
					"path", c.Request.URL.Path, "request_id", reqID)
				abortForbidden(c, "access_denied", "Access denied")
				return
			}

			m.prom.ObserveAuth("invalid")
			m.log.InfoContext(c.Request.Context(), "access denied: invalid token",
				"path", c.Request.URL.Path, "request_id", reqID, "err", err)
			abortForbidden(c, "invalid_token", "Invalid token")
			return
		}

		m.prom.ObserveAuth("ok")

		c.Request = c.Request.WithContext(actorctx.WithIdentity(c.Request.Context(), identity))

		c.Next()
	}
}

// bearerToken returns the token of a "Bearer <token>" header, or "" when the
// header is absent or uses another scheme.
func bearerToken(header string) string {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

func abortForbidden(c *gin.Context, code, message string) {
	abortWithError(c, http.StatusForbidden, code, message)
}

// abortWithError writes the same error envelope the handlers use.
func abortWithError(c *gin.Context, status int, code, message string) {
	reqID, _ := c.Get(CtxRequestID)
	s, _ := reqID.(string)

	c.AbortWithStatusJSON(status, gin.H{
		"error": gin.H{
			"code":      code,
			"message":   message,
			"requestId": s,
		},
	})
}
