package auth

import (
	"context"
	"errors"
	"strings"
	"time"
)

var (
	ErrEmailRequired     = errors.New("auth: email is required")
	ErrCodeHashRequired  = errors.New("auth: code hash is required")
	ErrTTLInvalid        = errors.New("auth: ttl must be positive")
	ErrChallengeNotFound = errors.New("auth: no pending code for this email")
	ErrChallengeExpired  = errors.New("auth: code expired")
	ErrTooManyAttempts   = errors.New("auth: too many attempts")
	ErrInvalidCode       = errors.New("auth: invalid code")
	ErrInvalidToken      = errors.New("auth: invalid session token")
)

const MaxAttempts = 5

// Challenge is a pending one-time login code. Only the hash of the code is kept.
type Challenge struct {
	Email     string    `json:"email"`
	CodeHash  string    `json:"code_hash"`
	Attempts  int       `json:"attempts"`
	WantsHost bool      `json:"wants_host"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

type NewChallengeParams struct {
	Email     string
	CodeHash  string
	WantsHost bool
	TTL       time.Duration
	Now       time.Time
}

func NewChallenge(params NewChallengeParams) (*Challenge, error) {
	email := strings.TrimSpace(params.Email)
	if email == "" {
		return nil, ErrEmailRequired
	}
	if strings.TrimSpace(params.CodeHash) == "" {
		return nil, ErrCodeHashRequired
	}
	if params.TTL <= 0 {
		return nil, ErrTTLInvalid
	}
	now := params.Now
	if now.IsZero() {
		now = time.Now()
	}
	now = now.UTC()
	return &Challenge{
		Email:     email,
		CodeHash:  params.CodeHash,
		WantsHost: params.WantsHost,
		CreatedAt: now,
		ExpiresAt: now.Add(params.TTL),
	}, nil
}

func (c *Challenge) Expired(at time.Time) bool {
	if at.IsZero() {
		at = time.Now()
	}
	return !c.ExpiresAt.After(at.UTC())
}

// CheckUsable reports why the challenge can no longer be verified, if it cannot.
func (c *Challenge) CheckUsable(at time.Time) error {
	if c.Expired(at) {
		return ErrChallengeExpired
	}
	if c.Attempts >= MaxAttempts {
		return ErrTooManyAttempts
	}
	return nil
}

// RegisterFailure counts a wrong code and returns the remaining attempts.
func (c *Challenge) RegisterFailure() int {
	c.Attempts++
	left := MaxAttempts - c.Attempts
	if left < 0 {
		left = 0
	}
	return left
}

// ChallengeStore keeps one pending challenge per email until it expires.
// Save resets the failure count of the email.
type ChallengeStore interface {
	Save(ctx context.Context, challenge *Challenge) error
	Get(ctx context.Context, email string) (*Challenge, error)
	Delete(ctx context.Context, email string) error
	// RegisterFailure atomically counts a wrong code and returns the attempts so far.
	RegisterFailure(ctx context.Context, email string) (int, error)
}

// Claims identify the subject of an issued session token.
type Claims struct {
	UserID    string
	Email     string
	Roles     []string
	ExpiresAt time.Time
}
