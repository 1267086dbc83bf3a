package ginserver

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	gin "github.com/gin-gonic/gin"

	"stayly/internal/app/policies"
	domainauth "stayly/internal/domain/auth"
)

const principalContextKey = "stayly.principal"

// TokenResolver turns a bearer token into the calling principal.
type TokenResolver interface {
	Resolve(ctx context.Context, token string) (policies.Principal, error)
}

type AuthMiddleware struct {
	Resolver TokenResolver
	Logger   *slog.Logger
}

// Handle attaches the principal when a valid token is present. Anonymous requests pass through;
// handlers decide whether they need a caller.
func (m AuthMiddleware) Handle(c *gin.Context) {
	token := extractBearerToken(c.GetHeader("Authorization"))
	if token == "" || m.Resolver == nil {
		c.Next()
		return
	}
	p, err := m.Resolver.Resolve(c.Request.Context(), token)
	if err != nil {
		if !errors.Is(err, domainauth.ErrInvalidToken) && m.Logger != nil {
			m.Logger.Warn("token validation failed", "error", err)
		}
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired session"})
		return
	}
	setPrincipal(c, p)
	c.Next()
}

func setPrincipal(c *gin.Context, p policies.Principal) {
	c.Set(principalContextKey, p)
	c.Request = c.Request.WithContext(policies.WithPrincipal(c.Request.Context(), p))
}

func currentPrincipal(c *gin.Context) (policies.Principal, bool) {
	val, exists := c.Get(principalContextKey)
	if !exists {
		return policies.Principal{}, false
	}
	p, ok := val.(policies.Principal)
	return p, ok && p.UserID != ""
}

func requireRole(c *gin.Context, role string) (policies.Principal, bool) {
	p, ok := currentPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "auth required"})
		return policies.Principal{}, false
	}
	if role != "" && !p.HasRole(role) {
		c.JSON(http.StatusForbidden, gin.H{"error": "insufficient permissions"})
		return policies.Principal{}, false
	}
	return p, true
}

func extractBearerToken(header string) string {
	if header == "" {
		return ""
	}
	if !strings.HasPrefix(strings.ToLower(header), "bearer ") {
		return ""
	}
	return strings.TrimSpace(header[7:])
}
