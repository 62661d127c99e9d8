package http

import (
	"crypto/subtle"
	"log/slog"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/chinoiserie/catalog/internal/domains/catalog/application"
	apierrors "github.com/chinoiserie/catalog/internal/shared/errors"
)

const adminSubject = "admin"

// RequireAdmin admits requests carrying "Authorization: Bearer <token>" and records an
// application.AuthContext on the request context. An empty token locks the admin routes.
func RequireAdmin(token string, logger *slog.Logger) gin.HandlerFunc {
	expected := []byte(token)
	return func(c *gin.Context) {
		presented, ok := bearerToken(c.GetHeader("Authorization"))
		if !ok || len(expected) == 0 || subtle.ConstantTimeCompare([]byte(presented), expected) != 1 {
			if logger != nil {
				logger.WarnContext(c.Request.Context(), "admin access denied",
					slog.String("route", c.FullPath()),
					slog.String("client_ip", c.ClientIP()),
				)
			}
			apierrors.Abort(c, apierrors.ErrUnauthorized.WithDetail("admin token required"))
			return
		}
		ctx := application.WithAuth(c.Request.Context(), application.AuthContext{
			Subject:   adminSubject,
			GrantedAt: time.Now().UTC(),
		})
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

func bearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
