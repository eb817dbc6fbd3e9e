package conversation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const DefaultTTL = 15 * time.Minute

// Store keeps one conversation state per operator in Redis. Idle is stored
// as the absence of a key.
type Store struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewStore(rdb *redis.Client, ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Store{rdb: rdb, ttl: ttl}
}

func key(userID int64) string {
	return fmt.Sprintf("conversation:%d", userID)
}

func (s *Store) Get(ctx context.Context, userID int64) (State, error) {
	v, err := s.rdb.Get(ctx, key(userID)).Result()
	if errors.Is(err, redis.Nil) {
		return Idle, nil
	}
	if err != nil {
		return Idle, fmt.Errorf("load conversation state: %w", err)
	}
	st := State(v)
	if !st.Valid() {
		return Idle, nil
	}
	return st, nil
}

func (s *Store) Set(ctx context.Context, userID int64, st State) error {
	if st == Idle {
		return s.rdb.Del(ctx, key(userID)).Err()
	}
	if err := s.rdb.Set(ctx, key(userID), string(st), s.ttl).Err(); err != nil {
		return fmt.Errorf("save conversation state: %w", err)
	}
	return nil
}

// Apply loads the current state, runs Next and persists the result.
func (s *Store) Apply(ctx context.Context, userID int64, e Event) (State, error) {
	cur, err := s.Get(ctx, userID)
	if err != nil {
		return Idle, err
	}
	next, err := Next(cur, e)
	if err != nil {
		return cur, err
	}
	if err := s.Set(ctx, userID, next); err != nil {
		return cur, err
	}
	return next, nil
}
