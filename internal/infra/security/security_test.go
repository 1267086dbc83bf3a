package security_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	domainauth "stayly/internal/domain/auth"
	"stayly/internal/infra/security"
)

func TestDigitCodeGenerator(t *testing.T) {
	gen := security.DigitCodeGenerator{Digits: 6}
	for i := 0; i < 50; i++ {
		code, err := gen.NewCode()
		require.NoError(t, err)
		assert.Len(t, code, 6)
		for _, r := range code {
			assert.True(t, r >= '0' && r <= '9', code)
		}
	}
}

func TestBcryptHasher(t *testing.T) {
	h := security.BcryptHasher{Cost: bcrypt.MinCost}
	hash, err := h.Hash("123456")
	require.NoError(t, err)
	assert.NoError(t, h.Compare(hash, "123456"))
	assert.Error(t, h.Compare(hash, "654321"))
}

func TestJWTIssuerRoundTrip(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	issuer := security.JWTIssuer{Secret: []byte("s3cret"), Issuer: "stayly", TTL: time.Hour, Now: func() time.Time { return now }}

	token, exp, err := issuer.Issue(domainauth.Claims{UserID: "u1", Email: "a@example.com", Roles: []string{"guest", "host"}})
	require.NoError(t, err)
	assert.Equal(t, now.Add(time.Hour), exp)

	claims, err := issuer.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.UserID)
	assert.Equal(t, []string{"guest", "host"}, claims.Roles)

	other := issuer
	other.Secret = []byte("different")
	_, err = other.Parse(token)
	assert.ErrorIs(t, err, domainauth.ErrInvalidToken)

	later := issuer
	later.Now = func() time.Time { return now.Add(2 * time.Hour) }
	_, err = later.Parse(token)
	assert.ErrorIs(t, err, domainauth.ErrInvalidToken)
}
