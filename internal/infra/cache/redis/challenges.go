package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	domainauth "stayly/internal/domain/auth"
)

const defaultPrefix = "stayly:otp:"

// ChallengeStore keeps login challenges as JSON strings that expire with the challenge.
// Failed attempts live in a sibling counter key so concurrent guesses are all counted.
type ChallengeStore struct {
	Client *goredis.Client
	Prefix string
	Now    func() time.Time
}

func NewClient(addr, password string, db int) *goredis.Client {
	return goredis.NewClient(&goredis.Options{Addr: addr, Password: password, DB: db})
}

func NewChallengeStore(client *goredis.Client) *ChallengeStore {
	return &ChallengeStore{Client: client, Prefix: defaultPrefix}
}

func (s *ChallengeStore) Save(ctx context.Context, c *domainauth.Challenge) error {
	ttl := c.ExpiresAt.Sub(s.now())
	if ttl <= 0 {
		return s.Delete(ctx, c.Email)
	}
	raw, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("redis: encode challenge: %w", err)
	}
	_, err = s.Client.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		pipe.Set(ctx, s.key(c.Email), raw, ttl)
		pipe.Del(ctx, s.attemptsKey(c.Email))
		return nil
	})
	return err
}

func (s *ChallengeStore) Get(ctx context.Context, email string) (*domainauth.Challenge, error) {
	vals, err := s.Client.MGet(ctx, s.key(email), s.attemptsKey(email)).Result()
	if err != nil {
		return nil, err
	}
	raw, ok := vals[0].(string)
	if !ok {
		return nil, domainauth.ErrChallengeNotFound
	}
	var c domainauth.Challenge
	if err := json.Unmarshal([]byte(raw), &c); err != nil {
		return nil, fmt.Errorf("redis: decode challenge: %w", err)
	}
	if counted, ok := vals[1].(string); ok {
		n, err := strconv.Atoi(counted)
		if err != nil {
			return nil, fmt.Errorf("redis: decode attempts: %w", err)
		}
		c.Attempts = max(c.Attempts, n)
	}
	return &c, nil
}

func (s *ChallengeStore) Delete(ctx context.Context, email string) error {
	return s.Client.Del(ctx, s.key(email), s.attemptsKey(email)).Err()
}

// registerFailure increments the counter only while the challenge exists and
// gives the counter the challenge's remaining lifetime.
var registerFailure = goredis.NewScript(`
local ttl = redis.call("PTTL", KEYS[1])
if ttl <= 0 then
	return -1
end
local n = redis.call("INCR", KEYS[2])
redis.call("PEXPIRE", KEYS[2], ttl)
return n
`)

func (s *ChallengeStore) RegisterFailure(ctx context.Context, email string) (int, error) {
	n, err := registerFailure.Run(ctx, s.Client, []string{s.key(email), s.attemptsKey(email)}).Int()
	if err != nil {
		return 0, err
	}
	if n < 0 {
		return 0, domainauth.ErrChallengeNotFound
	}
	return n, nil
}

// Ping checks connectivity for readiness probes.
func (s *ChallengeStore) Ping(ctx context.Context) error {
	return s.Client.Ping(ctx).Err()
}

func (s *ChallengeStore) key(email string) string {
	prefix := s.Prefix
	if prefix == "" {
		prefix = defaultPrefix
	}
	return prefix + strings.ToLower(strings.TrimSpace(email))
}

func (s *ChallengeStore) attemptsKey(email string) string {
	return s.key(email) + ":attempts"
}

func (s *ChallengeStore) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

var _ domainauth.ChallengeStore = (*ChallengeStore)(nil)
