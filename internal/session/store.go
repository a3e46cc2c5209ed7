package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/palava-labs/school-portal-api/internal/models"
)

// ErrNotFound is returned when a session id resolves to nothing, either
// because it never existed or because the idle reaper expired it.
var ErrNotFound = errors.New("session not found")

const keyPrefix = "session:"

// Store keeps session records in Redis. The Redis TTL mirrors the idle
// timeout so abandoned sessions expire without a reaper process.
type Store struct {
	client      *redis.Client
	idleTimeout time.Duration
	rotateEvery time.Duration
	now         func() time.Time
}

// NewStore constructs a session store.
func NewStore(client *redis.Client, idleTimeout, rotateEvery time.Duration) *Store {
	return &Store{
		client:      client,
		idleTimeout: idleTimeout,
		rotateEvery: rotateEvery,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// Create opens a new session for the user.
func (s *Store) Create(ctx context.Context, user *models.User) (*models.Session, error) {
	now := s.now()
	sess := &models.Session{
		ID:           uuid.NewString(),
		UserID:       user.ID,
		Email:        user.Email,
		Role:         user.Role,
		CreatedAt:    now,
		LastActivity: now,
	}
	if err := s.write(ctx, sess); err != nil {
		return nil, err
	}
	return sess, nil
}

// Touch validates and refreshes a session. It enforces the idle timeout (gap
// between requests above the limit invalidates the session) and rotates the
// session id on a fixed interval from creation to narrow fixation windows.
// The returned rotated flag tells the middleware to hand the client a new
// token.
func (s *Store) Touch(ctx context.Context, id string) (sess *models.Session, rotated bool, err error) {
	sess, err = s.get(ctx, id)
	if err != nil {
		return nil, false, err
	}

	now := s.now()
	if evaluateTouch(sess, now, s.idleTimeout, s.rotateEvery) == touchExpired {
		_ = s.client.Del(ctx, keyPrefix+id).Err()
		return nil, false, ErrNotFound
	}

	dropID, rotated := applyTouch(sess, now, s.rotateEvery)
	if rotated {
		if err := s.client.Del(ctx, keyPrefix+dropID).Err(); err != nil {
			return nil, false, fmt.Errorf("drop rotated session: %w", err)
		}
	}

	if err := s.write(ctx, sess); err != nil {
		return nil, false, err
	}
	return sess, rotated, nil
}

type touchOutcome int

const (
	touchExpired touchOutcome = iota
	touchRefreshed
	touchRotated
)

// evaluateTouch applies the idle-timeout and rotation rules to a session at
// the given instant. An idle gap over the limit expires the session outright;
// otherwise a session older than the rotation interval is due for a new id.
func evaluateTouch(sess *models.Session, now time.Time, idleTimeout, rotateEvery time.Duration) touchOutcome {
	if now.Sub(sess.LastActivity) > idleTimeout {
		return touchExpired
	}
	if now.Sub(sess.CreatedAt) >= rotateEvery {
		return touchRotated
	}
	return touchRefreshed
}

// applyTouch stamps the activity time and, when the session is due, swaps in
// a fresh id. It returns the superseded id so the caller can drop it.
func applyTouch(sess *models.Session, now time.Time, rotateEvery time.Duration) (dropID string, rotated bool) {
	sess.LastActivity = now
	if now.Sub(sess.CreatedAt) >= rotateEvery {
		dropID = sess.ID
		sess.ID = uuid.NewString()
		sess.CreatedAt = now
		return dropID, true
	}
	return "", false
}

// Destroy removes a session, ending it immediately.
func (s *Store) Destroy(ctx context.Context, id string) error {
	if err := s.client.Del(ctx, keyPrefix+id).Err(); err != nil {
		return fmt.Errorf("destroy session: %w", err)
	}
	return nil
}

func (s *Store) get(ctx context.Context, id string) (*models.Session, error) {
	raw, err := s.client.Get(ctx, keyPrefix+id).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("load session: %w", err)
	}
	var sess models.Session
	if err := json.Unmarshal(raw, &sess); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	return &sess, nil
}

func (s *Store) write(ctx context.Context, sess *models.Session) error {
	raw, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	if err := s.client.Set(ctx, keyPrefix+sess.ID, raw, s.idleTimeout).Err(); err != nil {
		return fmt.Errorf("store session: %w", err)
	}
	return nil
}
