package policies

import (
	"context"
	"errors"
	"strings"
)

var (
	ErrUnauthenticated = errors.New("auth: authentication required")
	ErrForbidden       = errors.New("auth: forbidden")
)

// Principal is the authenticated caller.
type Principal struct {
	UserID string
	Email  string
	Roles  []string
}

func (p Principal) HasRole(role string) bool {
	for _, r := range p.Roles {
		if strings.EqualFold(r, role) {
			return true
		}
	}
	return false
}

type principalKey struct{}

func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(Principal)
	return p, ok && p.UserID != ""
}

// RoleRestricted is implemented by messages that only some roles may send.
type RoleRestricted interface {
	RequiredRole() string
}

// RoleAuthorizer checks RoleRestricted messages against the principal in the context.
type RoleAuthorizer struct{}

func (RoleAuthorizer) Authorize(ctx context.Context, message any) error {
	restricted, ok := message.(RoleRestricted)
	if !ok || restricted.RequiredRole() == "" {
		return nil
	}
	p, ok := PrincipalFromContext(ctx)
	if !ok {
		return ErrUnauthenticated
	}
	if !p.HasRole(restricted.RequiredRole()) {
		return ErrForbidden
	}
	return nil
}
