package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/unitedunion/uubank/internal/storage"
)

const (
	sessionKeyPrefix = "session:v1:"
	maxUpdateRetries = 5
)

// RedisStore keeps sessions as JSON values that expire after ttl of
// inactivity. Updates run under WATCH so concurrent writers from any
// process serialize on the session key.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl}
}

func (s *RedisStore) Create(ctx context.Context, session Session) error {
	payload, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	if err := s.client.Set(ctx, sessionKey(session.ID), payload, s.ttl).Err(); err != nil {
		return storage.Classify(err)
	}
	return nil
}

func (s *RedisStore) Get(ctx context.Context, id string) (Session, error) {
	raw, err := s.client.Get(ctx, sessionKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return Session{}, ErrSessionNotFound
		}
		return Session{}, storage.Classify(err)
	}
	return decodeSession(raw)
}

func (s *RedisStore) Update(ctx context.Context, id string, fn func(*Session) error) error {
	key := sessionKey(id)
	txf := func(tx *redis.Tx) error {
		raw, err := tx.Get(ctx, key).Bytes()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				return ErrSessionNotFound
			}
			return err
		}
		session, err := decodeSession(raw)
		if err != nil {
			return err
		}
		if err := fn(&session); err != nil {
			return callbackError{err}
		}
		payload, err := json.Marshal(session)
		if err != nil {
			return fmt.Errorf("encode session: %w", err)
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, payload, s.ttl)
			return nil
		})
		return err
	}

	for i := 0; i < maxUpdateRetries; i++ {
		err := s.client.Watch(ctx, txf, key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return s.classify(err)
	}
	return fmt.Errorf("%w: session %s contended", storage.ErrStorageUnavailable, id)
}

func (s *RedisStore) Delete(ctx context.Context, id string) error {
	if err := s.client.Del(ctx, sessionKey(id)).Err(); err != nil {
		return storage.Classify(err)
	}
	return nil
}

// classify returns callback errors unchanged and maps everything raised by
// the client.
func (s *RedisStore) classify(err error) error {
	if err == nil {
		return nil
	}
	var cb callbackError
	if errors.As(err, &cb) {
		return cb.err
	}
	if errors.Is(err, ErrSessionNotFound) || errors.Is(err, errDecode) {
		return err
	}
	return storage.Classify(err)
}

var errDecode = errors.New("decode session")

func decodeSession(raw []byte) (Session, error) {
	var session Session
	if err := json.Unmarshal(raw, &session); err != nil {
		return Session{}, fmt.Errorf("%w: %v", errDecode, err)
	}
	return session, nil
}

func sessionKey(id string) string {
	return sessionKeyPrefix + id
}

type callbackError struct{ err error }

func (e callbackError) Error() string { return e.err.Error() }
func (e callbackError) Unwrap() error { return e.err }
