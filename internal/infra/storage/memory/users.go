package memory

import (
	"context"
	"errors"
	"strings"
	"sync"

	domainauth "stayly/internal/domain/auth"
	domainuser "stayly/internal/domain/user"
)

var ErrEmailTaken = errors.New("memory: email already belongs to another user")

// UserRepository stores users in memory.
type UserRepository struct {
	mu      sync.RWMutex
	byID    map[domainuser.ID]*domainuser.User
	byEmail map[string]domainuser.ID
}

func NewUserRepository() *UserRepository {
	return &UserRepository{
		byID:    make(map[domainuser.ID]*domainuser.User),
		byEmail: make(map[string]domainuser.ID),
	}
}

func (r *UserRepository) ByID(ctx context.Context, id domainuser.ID) (*domainuser.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if user, ok := r.byID[id]; ok {
		return cloneUser(user), nil
	}
	return nil, domainuser.ErrNotFound
}

func (r *UserRepository) ByEmail(ctx context.Context, email string) (*domainuser.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byEmail[strings.ToLower(strings.TrimSpace(email))]
	if !ok {
		return nil, domainuser.ErrNotFound
	}
	if user, ok := r.byID[id]; ok {
		return cloneUser(user), nil
	}
	return nil, domainuser.ErrNotFound
}

func (r *UserRepository) Save(ctx context.Context, user *domainuser.User) error {
	if user == nil || strings.TrimSpace(string(user.ID)) == "" {
		return domainuser.ErrIDRequired
	}
	emailKey := strings.ToLower(strings.TrimSpace(user.Email))
	if emailKey == "" {
		return domainuser.ErrEmailRequired
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if existingID, ok := r.byEmail[emailKey]; ok && existingID != user.ID {
		return ErrEmailTaken
	}
	r.byEmail[emailKey] = user.ID
	r.byID[user.ID] = cloneUser(user)
	return nil
}

func cloneUser(u *domainuser.User) *domainuser.User {
	c := *u
	c.Roles = append([]domainuser.Role(nil), u.Roles...)
	return &c
}

// ChallengeStore keeps login challenges in memory. Expiry is checked by the caller.
type ChallengeStore struct {
	mu    sync.Mutex
	items map[string]domainauth.Challenge
}

func NewChallengeStore() *ChallengeStore {
	return &ChallengeStore{items: make(map[string]domainauth.Challenge)}
}

func (s *ChallengeStore) Save(ctx context.Context, c *domainauth.Challenge) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[c.Email] = *c
	return nil
}

func (s *ChallengeStore) Get(ctx context.Context, email string) (*domainauth.Challenge, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.items[email]
	if !ok {
		return nil, domainauth.ErrChallengeNotFound
	}
	return &c, nil
}

func (s *ChallengeStore) Delete(ctx context.Context, email string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.items, email)
	return nil
}

func (s *ChallengeStore) RegisterFailure(ctx context.Context, email string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.items[email]
	if !ok {
		return 0, domainauth.ErrChallengeNotFound
	}
	c.RegisterFailure()
	s.items[email] = c
	return c.Attempts, nil
}

var (
	_ domainuser.Repository     = (*UserRepository)(nil)
	_ domainauth.ChallengeStore = (*ChallengeStore)(nil)
)
