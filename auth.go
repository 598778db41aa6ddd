package penpost

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"
)

// PasswordCost is the bcrypt cost used for new password hashes.
const PasswordCost = 10

// MaxPasswordLen is the longest password bcrypt accepts, in bytes.
const MaxPasswordLen = 72

// UserStore is the persistence Credentials needs.
type UserStore interface {
	UsernameExists(ctx context.Context, username string) (bool, error)
	CreateUser(ctx context.Context, u User) error
	FindUserByUsername(ctx context.Context, username string) (User, error)
}

// Credentials registers users and checks their passwords.
type Credentials struct {
	users     UserStore
	cost      int
	now       func() time.Time
	log       zerolog.Logger
	dummyHash []byte
}

// NewCredentials returns a Credentials hashing with cost. A cost of 0 means
// PasswordCost.
func NewCredentials(users UserStore, cost int, log zerolog.Logger) *Credentials {
	if cost == 0 {
		cost = PasswordCost
	}
	// Compared against when the user does not exist, so unknown usernames
	// cost as much as wrong passwords.
	dummy, err := bcrypt.GenerateFromPassword([]byte("penpost-dummy-password"), cost)
	if err != nil {
		panic(fmt.Sprintf("penpost: bcrypt cost %d: %v", cost, err))
	}
	return &Credentials{users: users, cost: cost, now: time.Now, log: log, dummyHash: dummy}
}

// Register creates a user. It fails with ErrValidation for an empty username
// or password or a password over MaxPasswordLen bytes, and with
// ErrDuplicateUsername if the name is taken.
func (c *Credentials) Register(ctx context.Context, username, password string) (User, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return User{}, fmt.Errorf("%w: username and password are required", ErrValidation)
	}
	if len(password) > MaxPasswordLen {
		return User{}, fmt.Errorf("%w: password must be at most %d bytes", ErrValidation, MaxPasswordLen)
	}
	exists, err := c.users.UsernameExists(ctx, username)
	if err != nil {
		return User{}, fmt.Errorf("check username: %w", err)
	}
	if exists {
		return User{}, ErrDuplicateUsername
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), c.cost)
	if err != nil {
		return User{}, fmt.Errorf("hash password: %w", err)
	}
	u := User{
		ID:           uuid.NewString(),
		Username:     username,
		PasswordHash: string(hash),
		CreatedAt:    c.now().UTC(),
	}
	// The unique index catches a concurrent signup that passed the check above.
	if err := c.users.CreateUser(ctx, u); err != nil {
		return User{}, err
	}
	c.log.Info().Str("username", username).Str("user_id", u.ID).Msg("user registered")
	return u, nil
}

// Verify returns the user if password matches, ErrInvalidCredentials
// otherwise. Unknown users and wrong passwords are indistinguishable.
func (c *Credentials) Verify(ctx context.Context, username, password string) (User, error) {
	u, err := c.users.FindUserByUsername(ctx, strings.TrimSpace(username))
	if errors.Is(err, ErrNotFound) {
		_ = bcrypt.CompareHashAndPassword(c.dummyHash, []byte(password))
		return User{}, ErrInvalidCredentials
	}
	if err != nil {
		return User{}, fmt.Errorf("find user: %w", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return User{}, ErrInvalidCredentials
	}
	return u, nil
}
