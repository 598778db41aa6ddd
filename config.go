package penpost

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/eringen/penpost/imagehost"
)

// Config holds all configuration for a penpost site.
type Config struct {
	Name string // Site name (default "Penpost")

	Addr        string // Listen address (default ":3000")
	DatabaseURL string // sqlite://path or postgres://... (default "sqlite://data/penpost.db")
	RedisURL    string // Optional: keep sessions in Redis instead of the database

	SessionSecret string        // Signs the session cookie; random per process when empty
	JWTSecret     string        // Required: signs login tokens
	TokenTTL      time.Duration // Login token lifetime (default 7 days)
	SessionTTL    time.Duration // Server-side session lifetime (default 7 days)
	CookieSecure  bool          // Set true for HTTPS

	StaticDir       string        // Directory for static assets (default "public")
	DefaultImageURL string        // Fallback post image (default "/images/bg.jpg")
	MaxImageSize    int64         // Upload limit in bytes (default 1 MiB)
	UploadTimeout   time.Duration // Image host call limit (default 15s)

	StoreTimeout        time.Duration // Per-operation database limit (default 10s)
	StoreConnectTimeout time.Duration // Startup ping limit (default 30s)

	PostCacheTTL time.Duration // Published post cache TTL (default 1min)
	HomeSample   int           // Posts suggested on the home page (default 5)

	LoginAttempts int           // Login/signup attempts per window and IP (default 5)
	LoginWindow   time.Duration // default 1min

	PasswordCost int // bcrypt cost (default PasswordCost)
}

func (c *Config) setDefaults() {
	if c.Name == "" {
		c.Name = "Penpost"
	}
	if c.Addr == "" {
		c.Addr = ":3000"
	}
	if c.DatabaseURL == "" {
		c.DatabaseURL = "sqlite://data/penpost.db"
	}
	if c.TokenTTL == 0 {
		c.TokenTTL = 7 * 24 * time.Hour
	}
	if c.SessionTTL == 0 {
		c.SessionTTL = 7 * 24 * time.Hour
	}
	if c.StaticDir == "" {
		c.StaticDir = "public"
	}
	if c.DefaultImageURL == "" {
		c.DefaultImageURL = DefaultImageURL
	}
	if c.MaxImageSize == 0 {
		c.MaxImageSize = 1 << 20
	}
	if c.UploadTimeout == 0 {
		c.UploadTimeout = 15 * time.Second
	}
	if c.StoreTimeout == 0 {
		c.StoreTimeout = 10 * time.Second
	}
	if c.StoreConnectTimeout == 0 {
		c.StoreConnectTimeout = 30 * time.Second
	}
	if c.PostCacheTTL == 0 {
		c.PostCacheTTL = time.Minute
	}
	if c.HomeSample == 0 {
		c.HomeSample = 5
	}
	if c.LoginAttempts == 0 {
		c.LoginAttempts = 5
	}
	if c.LoginWindow == 0 {
		c.LoginWindow = time.Minute
	}
	if c.PasswordCost == 0 {
		c.PasswordCost = PasswordCost
	}
}

// Option configures additional App behavior.
type Option func(*App)

// WithLogger replaces the default logger.
func WithLogger(l zerolog.Logger) Option {
	return func(a *App) {
		a.Log = l
	}
}

// WithStore uses an already opened store instead of opening Config.DatabaseURL.
func WithStore(s *Store) Option {
	return func(a *App) {
		a.Store = s
	}
}

// WithSessionStore overrides where server-side sessions are kept.
func WithSessionStore(s SessionStore) Option {
	return func(a *App) {
		a.Sessions = s
	}
}

// WithImageHost sets the remote host post images are uploaded to.
// Without it, images are written below StaticDir.
func WithImageHost(h imagehost.Host) Option {
	return func(a *App) {
		a.imageHost = h
	}
}

// WithViews replaces the built-in templates.
func WithViews(v ViewFuncs) Option {
	return func(a *App) {
		a.Views = v
	}
}

// WithClock overrides time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(a *App) {
		a.now = now
	}
}
