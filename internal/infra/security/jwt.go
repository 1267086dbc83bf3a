package security

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	domainauth "stayly/internal/domain/auth"
)

var ErrSecretRequired = errors.New("security: jwt secret is required")

type sessionClaims struct {
	Email string   `json:"email"`
	Roles []string `json:"roles"`
	jwt.RegisteredClaims
}

// JWTIssuer signs HS256 session tokens.
type JWTIssuer struct {
	Secret []byte
	Issuer string
	TTL    time.Duration
	Now    func() time.Time
}

func (j JWTIssuer) Issue(c domainauth.Claims) (string, time.Time, error) {
	if len(j.Secret) == 0 {
		return "", time.Time{}, ErrSecretRequired
	}
	now := j.now()
	expires := now.Add(j.ttl())
	claims := sessionClaims{
		Email: c.Email,
		Roles: c.Roles,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   c.UserID,
			Issuer:    j.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(j.Secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("security: sign token: %w", err)
	}
	return signed, expires, nil
}

func (j JWTIssuer) Parse(token string) (domainauth.Claims, error) {
	if len(j.Secret) == 0 {
		return domainauth.Claims{}, ErrSecretRequired
	}
	var claims sessionClaims
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(j.now),
		jwt.WithExpirationRequired(),
	}
	if j.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(j.Issuer))
	}
	_, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return j.Secret, nil
	}, opts...)
	if err != nil || claims.Subject == "" {
		return domainauth.Claims{}, domainauth.ErrInvalidToken
	}
	return domainauth.Claims{
		UserID:    claims.Subject,
		Email:     claims.Email,
		Roles:     claims.Roles,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}

func (j JWTIssuer) ttl() time.Duration {
	if j.TTL > 0 {
		return j.TTL
	}
	return 24 * time.Hour
}

func (j JWTIssuer) now() time.Time {
	if j.Now != nil {
		return j.Now()
	}
	return time.Now()
}
