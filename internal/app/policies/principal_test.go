package policies_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"stayly/internal/app/policies"
)

type hostOnly struct{}

func (hostOnly) RequiredRole() string { return "host" }

func TestRoleAuthorizer(t *testing.T) {
	host := policies.WithPrincipal(context.Background(), policies.Principal{UserID: "u1", Roles: []string{"guest", "HOST"}})
	guest := policies.WithPrincipal(context.Background(), policies.Principal{UserID: "u2", Roles: []string{"guest"}})

	tests := []struct {
		name    string
		ctx     context.Context
		message any
		wantErr error
	}{
		{"unrestricted message", context.Background(), struct{}{}, nil},
		{"anonymous caller", context.Background(), hostOnly{}, policies.ErrUnauthenticated},
		{"missing role", guest, hostOnly{}, policies.ErrForbidden},
		{"role matches case-insensitively", host, hostOnly{}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := policies.RoleAuthorizer{}.Authorize(tt.ctx, tt.message)
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestPrincipalWithoutUserIsAnonymous(t *testing.T) {
	ctx := policies.WithPrincipal(context.Background(), policies.Principal{Roles: []string{"host"}})
	_, ok := policies.PrincipalFromContext(ctx)
	assert.False(t, ok)
}
