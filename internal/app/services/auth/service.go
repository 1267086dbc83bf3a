package auth

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"stayly/internal/app/policies"
	domainauth "stayly/internal/domain/auth"
	domainuser "stayly/internal/domain/user"
)

const (
	defaultCodeTTL = 10 * time.Minute
	codeTemplate   = "login_code"
)

type CodeHasher interface {
	Hash(code string) (string, error)
	Compare(hash, code string) error
}

type CodeGenerator interface {
	NewCode() (string, error)
}

type TokenIssuer interface {
	Issue(claims domainauth.Claims) (string, time.Time, error)
	Parse(token string) (domainauth.Claims, error)
}

// Service implements passwordless login with one-time email codes.
type Service struct {
	Users      domainuser.Repository
	Challenges domainauth.ChallengeStore
	Hasher     CodeHasher
	Codes      CodeGenerator
	Tokens     TokenIssuer
	Notifier   policies.Notifier
	CodeTTL    time.Duration
	Now        func() time.Time
	Logger     *slog.Logger
}

type RequestCodeParams struct {
	Email     string
	WantsHost bool
}

type RequestCodeResult struct {
	Email     string
	ExpiresAt time.Time
}

type VerifyCodeParams struct {
	Email string
	Code  string
}

type AuthResult struct {
	User      *domainuser.User
	Token     string
	ExpiresAt time.Time
	Created   bool
}

// RequestCode issues a fresh code, replacing any pending one for the email.
func (s *Service) RequestCode(ctx context.Context, params RequestCodeParams) (*RequestCodeResult, error) {
	if err := s.ensureDependencies(); err != nil {
		return nil, err
	}
	email, err := domainuser.NormalizeEmail(params.Email)
	if err != nil {
		return nil, err
	}
	code, err := s.Codes.NewCode()
	if err != nil {
		return nil, err
	}
	hash, err := s.Hasher.Hash(code)
	if err != nil {
		return nil, err
	}
	challenge, err := domainauth.NewChallenge(domainauth.NewChallengeParams{
		Email:     email,
		CodeHash:  hash,
		WantsHost: params.WantsHost,
		TTL:       s.codeTTL(),
		Now:       s.now(),
	})
	if err != nil {
		return nil, err
	}
	if err := s.Challenges.Save(ctx, challenge); err != nil {
		return nil, err
	}
	err = s.Notifier.Send(ctx, policies.Notification{
		To:       email,
		Template: codeTemplate,
		Data:     map[string]any{"code": code, "expires_at": challenge.ExpiresAt},
	})
	if err != nil {
		_ = s.Challenges.Delete(ctx, email)
		return nil, err
	}
	s.logger().InfoContext(ctx, "login code issued", "email", email)
	return &RequestCodeResult{Email: email, ExpiresAt: challenge.ExpiresAt}, nil
}

// VerifyCode exchanges a valid code for a session token, creating the user on first login.
func (s *Service) VerifyCode(ctx context.Context, params VerifyCodeParams) (*AuthResult, error) {
	if err := s.ensureDependencies(); err != nil {
		return nil, err
	}
	email, err := domainuser.NormalizeEmail(params.Email)
	if err != nil {
		return nil, err
	}
	now := s.now()
	challenge, err := s.Challenges.Get(ctx, email)
	if err != nil {
		return nil, err
	}
	if err := challenge.CheckUsable(now); err != nil {
		_ = s.Challenges.Delete(ctx, email)
		return nil, err
	}
	if err := s.Hasher.Compare(challenge.CodeHash, params.Code); err != nil {
		attempts, regErr := s.Challenges.RegisterFailure(ctx, email)
		if regErr != nil {
			if errors.Is(regErr, domainauth.ErrChallengeNotFound) {
				return nil, regErr
			}
			return nil, errors.Join(domainauth.ErrInvalidCode, regErr)
		}
		if attempts >= domainauth.MaxAttempts {
			_ = s.Challenges.Delete(ctx, email)
			s.logger().WarnContext(ctx, "login code locked after failed attempts", "email", email)
			return nil, domainauth.ErrTooManyAttempts
		}
		return nil, domainauth.ErrInvalidCode
	}
	if err := s.Challenges.Delete(ctx, email); err != nil {
		return nil, err
	}

	user, created, err := s.loadOrCreate(ctx, email, challenge.WantsHost, now)
	if err != nil {
		return nil, err
	}
	token, expiresAt, err := s.Tokens.Issue(domainauth.Claims{
		UserID: string(user.ID),
		Email:  user.Email,
		Roles:  user.RoleNames(),
	})
	if err != nil {
		return nil, err
	}
	s.logger().InfoContext(ctx, "user authenticated", "user_id", user.ID, "new_user", created)
	return &AuthResult{User: user, Token: token, ExpiresAt: expiresAt, Created: created}, nil
}

// Resolve validates a session token and returns the caller.
func (s *Service) Resolve(ctx context.Context, token string) (policies.Principal, error) {
	if s.Tokens == nil {
		return policies.Principal{}, errors.New("auth: token issuer required")
	}
	claims, err := s.Tokens.Parse(token)
	if err != nil {
		return policies.Principal{}, err
	}
	return policies.Principal{UserID: claims.UserID, Email: claims.Email, Roles: claims.Roles}, nil
}

func (s *Service) loadOrCreate(ctx context.Context, email string, wantsHost bool, now time.Time) (*domainuser.User, bool, error) {
	user, err := s.Users.ByEmail(ctx, email)
	created := false
	switch {
	case errors.Is(err, domainuser.ErrNotFound):
		user, err = domainuser.NewUser(domainuser.CreateParams{
			ID:        domainuser.ID(uuid.NewString()),
			Email:     email,
			CreatedAt: now,
		})
		if err != nil {
			return nil, false, err
		}
		created = true
	case err != nil:
		return nil, false, err
	}
	if wantsHost {
		if err := user.EnsureRole(domainuser.RoleHost, now); err != nil {
			return nil, false, err
		}
	}
	user.RecordLogin(now)
	if err := s.Users.Save(ctx, user); err != nil {
		return nil, false, err
	}
	return user, created, nil
}

func (s *Service) codeTTL() time.Duration {
	if s.CodeTTL > 0 {
		return s.CodeTTL
	}
	return defaultCodeTTL
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

func (s *Service) logger() *slog.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return slog.Default()
}

func (s *Service) ensureDependencies() error {
	switch {
	case s.Users == nil:
		return errors.New("auth: user repository required")
	case s.Challenges == nil:
		return errors.New("auth: challenge store required")
	case s.Hasher == nil:
		return errors.New("auth: code hasher required")
	case s.Codes == nil:
		return errors.New("auth: code generator required")
	case s.Tokens == nil:
		return errors.New("auth: token issuer required")
	case s.Notifier == nil:
		return errors.New("auth: notifier required")
	default:
		return nil
	}
}
