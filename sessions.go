package penpost

import (
	"context"
	"database/sql"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/gorilla/securecookie"
	"github.com/redis/go-redis/v9"
)

// SessionStore keeps server-side sessions. Get returns ErrNotFound for
// unknown, deleted and expired sessions.
type SessionStore interface {
	Create(ctx context.Context, id Identity, ttl time.Duration) (Session, error)
	Get(ctx context.Context, sessionID string) (Session, error)
	Delete(ctx context.Context, sessionID string) error
}

func newSessionID() (string, error) {
	key := securecookie.GenerateRandomKey(32)
	if key == nil {
		return "", errors.New("generate session id: no randomness")
	}
	return base64.RawURLEncoding.EncodeToString(key), nil
}

// SQLSessionStore keeps sessions in the sessions table of a Store.
type SQLSessionStore struct {
	store *Store
	now   func() time.Time
}

// NewSQLSessionStore returns a SessionStore backed by s.
func NewSQLSessionStore(s *Store) *SQLSessionStore {
	return &SQLSessionStore{store: s, now: time.Now}
}

// Create implements SessionStore.
func (ss *SQLSessionStore) Create(ctx context.Context, id Identity, ttl time.Duration) (Session, error) {
	sid, err := newSessionID()
	if err != nil {
		return Session{}, err
	}
	now := ss.now().UTC()
	sess := Session{
		ID:        sid,
		UserID:    id.UserID,
		Username:  id.Username,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}
	_, err = ss.store.exec(ctx, `INSERT INTO sessions (id, user_id, username, created_at, expires_at) VALUES (?, ?, ?, ?, ?)`,
		sess.ID, sess.UserID, sess.Username, toMillis(sess.CreatedAt), toMillis(sess.ExpiresAt))
	if err != nil {
		return Session{}, fmt.Errorf("insert session: %w", err)
	}
	return sess, nil
}

// Get implements SessionStore.
func (ss *SQLSessionStore) Get(ctx context.Context, sessionID string) (Session, error) {
	s := ss.store
	ctx, cancel := s.opContext(ctx)
	defer cancel()
	var sess Session
	var created, expires int64
	err := s.db.QueryRowContext(ctx, s.rebind(`SELECT id, user_id, username, created_at, expires_at FROM sessions WHERE id = ?`), sessionID).
		Scan(&sess.ID, &sess.UserID, &sess.Username, &created, &expires)
	if errors.Is(err, sql.ErrNoRows) {
		return Session{}, ErrNotFound
	}
	if err != nil {
		return Session{}, s.wrapErr(err)
	}
	sess.CreatedAt = fromMillis(created)
	sess.ExpiresAt = fromMillis(expires)
	if !ss.now().Before(sess.ExpiresAt) {
		return Session{}, ErrNotFound
	}
	return sess, nil
}

// Delete implements SessionStore. Deleting an unknown session is not an error.
func (ss *SQLSessionStore) Delete(ctx context.Context, sessionID string) error {
	_, err := ss.store.exec(ctx, `DELETE FROM sessions WHERE id = ?`, sessionID)
	return err
}

// DeleteExpired removes sessions that expired before now and reports how
// many were removed.
func (ss *SQLSessionStore) DeleteExpired(ctx context.Context) (int64, error) {
	res, err := ss.store.exec(ctx, `DELETE FROM sessions WHERE expires_at <= ?`, toMillis(ss.now()))
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// RedisSessionStore keeps sessions in Redis with a native TTL.
type RedisSessionStore struct {
	rdb    redis.UniversalClient
	prefix string
	now    func() time.Time
}

// NewRedisSessionStore returns a SessionStore that stores each session
// under "penpost:session:<id>".
func NewRedisSessionStore(rdb redis.UniversalClient) *RedisSessionStore {
	return &RedisSessionStore{rdb: rdb, prefix: "penpost:session:", now: time.Now}
}

// Create implements SessionStore.
func (rs *RedisSessionStore) Create(ctx context.Context, id Identity, ttl time.Duration) (Session, error) {
	sid, err := newSessionID()
	if err != nil {
		return Session{}, err
	}
	now := rs.now().UTC()
	sess := Session{
		ID:        sid,
		UserID:    id.UserID,
		Username:  id.Username,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}
	data, err := json.Marshal(sess)
	if err != nil {
		return Session{}, err
	}
	if err := rs.rdb.Set(ctx, rs.prefix+sid, data, ttl).Err(); err != nil {
		return Session{}, fmt.Errorf("%w: store session: %w", ErrUpstreamUnavailable, err)
	}
	return sess, nil
}

// Get implements SessionStore.
func (rs *RedisSessionStore) Get(ctx context.Context, sessionID string) (Session, error) {
	data, err := rs.rdb.Get(ctx, rs.prefix+sessionID).Bytes()
	if errors.Is(err, redis.Nil) {
		return Session{}, ErrNotFound
	}
	if err != nil {
		return Session{}, fmt.Errorf("%w: load session: %w", ErrUpstreamUnavailable, err)
	}
	var sess Session
	if err := json.Unmarshal(data, &sess); err != nil {
		return Session{}, fmt.Errorf("decode session: %w", err)
	}
	return sess, nil
}

// Delete implements SessionStore.
func (rs *RedisSessionStore) Delete(ctx context.Context, sessionID string) error {
	if err := rs.rdb.Del(ctx, rs.prefix+sessionID).Err(); err != nil {
		return fmt.Errorf("%w: delete session: %w", ErrUpstreamUnavailable, err)
	}
	return nil
}
