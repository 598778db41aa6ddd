package penpost

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func newTestCredentials(t *testing.T) (*Credentials, *Store) {
	t.Helper()
	s := newTestStore(t)
	return NewCredentials(s, bcrypt.MinCost, zerolog.Nop()), s
}

func TestRegisterAndVerify(t *testing.T) {
	c, s := newTestCredentials(t)
	ctx := context.Background()

	u, err := c.Register(ctx, "alice", "s3cret")
	require.NoError(t, err)
	assert.NotEmpty(t, u.ID)
	assert.Equal(t, "alice", u.Username)

	stored, err := s.FindUserByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.NotEqual(t, "s3cret", stored.PasswordHash, "password must be hashed")
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(stored.PasswordHash), []byte("s3cret")))

	got, err := c.Verify(ctx, "alice", "s3cret")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)

	_, err = c.Verify(ctx, "alice", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = c.Verify(ctx, "alice", "")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestVerifyUnknownUserSameError(t *testing.T) {
	c, _ := newTestCredentials(t)
	_, err := c.Verify(context.Background(), "nobody", "whatever")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestRegisterPasswordLength(t *testing.T) {
	c, _ := newTestCredentials(t)
	ctx := context.Background()

	_, err := c.Register(ctx, "long", strings.Repeat("p", MaxPasswordLen+1))
	assert.ErrorIs(t, err, ErrValidation)

	_, err = c.Register(ctx, "edge", strings.Repeat("p", MaxPasswordLen))
	require.NoError(t, err)
	_, err = c.Verify(ctx, "edge", strings.Repeat("p", MaxPasswordLen))
	assert.NoError(t, err)
}

func TestRegisterDuplicate(t *testing.T) {
	c, _ := newTestCredentials(t)
	ctx := context.Background()

	_, err := c.Register(ctx, "alice", "p1")
	require.NoError(t, err)
	_, err = c.Register(ctx, "alice", "p2")
	assert.ErrorIs(t, err, ErrDuplicateUsername)

	// The original password still works.
	_, err = c.Verify(ctx, "alice", "p1")
	assert.NoError(t, err)
}

func TestRegisterValidation(t *testing.T) {
	c, _ := newTestCredentials(t)
	ctx := context.Background()

	_, err := c.Register(ctx, "", "p")
	assert.ErrorIs(t, err, ErrValidation)
	_, err = c.Register(ctx, "   ", "p")
	assert.ErrorIs(t, err, ErrValidation)
	_, err = c.Register(ctx, "bob", "")
	assert.ErrorIs(t, err, ErrValidation)
}

// Concurrent signups for one name all pass the existence check; the unique
// index lets exactly one of them through.
func TestRegisterConcurrentSameUsername(t *testing.T) {
	c, s := newTestCredentials(t)
	ctx := context.Background()

	const workers = 8
	var wg sync.WaitGroup
	results := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := c.Register(ctx, "racer", "pw")
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	ok := 0
	for err := range results {
		if err == nil {
			ok++
			continue
		}
		assert.ErrorIs(t, err, ErrDuplicateUsername)
	}
	assert.Equal(t, 1, ok)

	exists, err := s.UsernameExists(ctx, "racer")
	require.NoError(t, err)
	assert.True(t, exists)
}

type failingUsers struct{ err error }

func (f failingUsers) UsernameExists(context.Context, string) (bool, error) { return false, f.err }
func (f failingUsers) CreateUser(context.Context, User) error               { return f.err }
func (f failingUsers) FindUserByUsername(context.Context, string) (User, error) {
	return User{}, f.err
}

func TestCredentialsStoreErrors(t *testing.T) {
	boom := errors.New("db down")
	c := NewCredentials(failingUsers{err: boom}, bcrypt.MinCost, zerolog.Nop())

	_, err := c.Register(context.Background(), "a", "b")
	assert.ErrorIs(t, err, boom)

	_, err = c.Verify(context.Background(), "a", "b")
	assert.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, ErrInvalidCredentials)
}
