// Package penpost is a multi-author blogging application built with Go, Echo,
// and templ. Users sign up, log in, publish posts with an optional header
// image and browse posts by author.
//
// Pages are rendered through the ViewFuncs struct, so the built-in templates
// in the views package can be replaced, while penpost owns the handlers,
// middleware, sessions and storage.
package penpost

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"net/http"
	"path/filepath"
	"sync"
	"time"

	"github.com/a-h/templ"
	"github.com/gorilla/securecookie"
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/eringen/penpost/imagehost"
	"github.com/eringen/penpost/views"
)

// ViewFuncs holds the templ components the handlers render. DefaultViews
// returns the built-in set.
type ViewFuncs struct {
	SignUp      func(page views.Page, form views.AuthForm) templ.Component
	Login       func(page views.Page, form views.AuthForm) templ.Component
	Home        func(page views.Page, posts []views.Post) templ.Component
	PostList    func(page views.Page, posts []views.Post, author string, own bool) templ.Component
	Post        func(page views.Page, post views.Post) templ.Component
	Dashboard   func(page views.Page, posts []views.Post, totalViews int64) templ.Component
	CreatePost  func(page views.Page, form views.PostForm) templ.Component
	NotFound    func(page views.Page) templ.Component
	ServerError func(page views.Page) templ.Component
}

// DefaultViews returns the templates shipped in the views package.
func DefaultViews() ViewFuncs {
	return ViewFuncs{
		SignUp:      views.SignUp,
		Login:       views.Login,
		Home:        views.Home,
		PostList:    views.PostList,
		Post:        views.PostDetail,
		Dashboard:   views.Dashboard,
		CreatePost:  views.CreatePost,
		NotFound:    views.NotFound,
		ServerError: views.ServerError,
	}
}

// App is the central penpost application. It wires together the store,
// sessions, image pipeline, handlers and middleware.
type App struct {
	Config   Config
	Echo     *echo.Echo
	Store    *Store
	Sessions SessionStore
	Cache    *PostCache
	Views    ViewFuncs
	Log      zerolog.Logger

	credentials *Credentials
	tokens      *TokenIssuer
	slugs       *SlugResolver
	images      *ImagePipeline
	limiter     *AttemptLimiter
	imageHost   imagehost.Host
	redis       *redis.Client
	stopSweep   func()
	ownsStore   bool
	now         func() time.Time

	rngMu sync.Mutex
	rng   *rand.Rand
}

// New creates an App. Nothing is opened until Init or Start.
func New(cfg Config, opts ...Option) *App {
	cfg.setDefaults()

	a := &App{
		Config: cfg,
		Echo:   echo.New(),
		Views:  DefaultViews(),
		Log:    NewLogger("info", false),
		now:    time.Now,
		rng:    rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
	}
	a.Echo.HideBanner = true
	a.Echo.HidePort = true

	for _, opt := range opts {
		opt(a)
	}

	return a
}

// Init opens the store and session backend unless they were injected,
// builds the services and registers middleware and routes. After Init,
// a.Echo is a ready http.Handler.
func (a *App) Init(ctx context.Context) error {
	if a.Config.JWTSecret == "" {
		return errors.New("penpost: JWTSecret is required")
	}

	if a.Store == nil {
		connectCtx, cancel := context.WithTimeout(ctx, a.Config.StoreConnectTimeout)
		defer cancel()
		store, err := NewStore(connectCtx, a.Config.DatabaseURL, a.Config.StoreTimeout)
		if err != nil {
			return fmt.Errorf("penpost: init store: %w", err)
		}
		a.Store = store
		a.ownsStore = true
	}

	if a.Sessions == nil {
		sessions, err := a.openSessions(ctx)
		if err != nil {
			return fmt.Errorf("penpost: init sessions: %w", err)
		}
		a.Sessions = sessions
	}
	if ex, ok := a.Sessions.(sessionExpirer); ok {
		a.stopSweep = a.sweepSessions(ex, time.Hour)
	}

	if a.Config.SessionSecret == "" {
		a.Config.SessionSecret = string(securecookie.GenerateRandomKey(32))
		a.Log.Warn().Msg("SESSION_SECRET not set, using a random key; sessions will not survive a restart")
	}

	if a.imageHost == nil {
		a.imageHost = imagehost.NewLocal(filepath.Join(a.Config.StaticDir, "uploads"), "/uploads")
	}

	tokens, err := NewTokenIssuer(a.Config.JWTSecret, a.Config.TokenTTL)
	if err != nil {
		return fmt.Errorf("penpost: init tokens: %w", err)
	}
	tokens.now = a.now
	a.tokens = tokens

	a.credentials = NewCredentials(a.Store, a.Config.PasswordCost, a.Log)
	a.credentials.now = a.now
	a.slugs = NewSlugResolver(a.Store)
	a.images = NewImagePipeline(a.imageHost, a.Config, a.Log)
	a.images.now = a.now
	a.Cache = NewPostCache(a.Store, a.Config.PostCacheTTL)
	a.limiter = NewAttemptLimiter(a.Config.LoginAttempts, a.Config.LoginWindow)

	a.setupMiddleware()
	a.setupRoutes()
	return nil
}

func (a *App) openSessions(ctx context.Context) (SessionStore, error) {
	if a.Config.RedisURL == "" {
		ss := NewSQLSessionStore(a.Store)
		ss.now = a.now
		return ss, nil
	}
	opts, err := redis.ParseURL(a.Config.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	rdb := redis.NewClient(opts)
	pingCtx, cancel := context.WithTimeout(ctx, a.Config.StoreConnectTimeout)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("%w: redis: %w", ErrUpstreamUnavailable, err)
	}
	a.redis = rdb
	rs := NewRedisSessionStore(rdb)
	rs.now = a.now
	return rs, nil
}

type sessionExpirer interface {
	DeleteExpired(ctx context.Context) (int64, error)
}

// sweepSessions deletes expired sessions every interval until the returned
// stop function is called.
func (a *App) sweepSessions(ex sessionExpirer, interval time.Duration) (stop func()) {
	done := make(chan struct{})
	var once sync.Once
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				n, err := ex.DeleteExpired(context.Background())
				if err != nil {
					a.Log.Warn().Err(err).Msg("sweep sessions")
					continue
				}
				if n > 0 {
					a.Log.Debug().Int64("removed", n).Msg("expired sessions swept")
				}
			}
		}
	}()
	return func() { once.Do(func() { close(done) }) }
}

// Start initializes the app and serves HTTP until ctx is canceled, then
// shuts the server down gracefully.
func (a *App) Start(ctx context.Context) error {
	if err := a.Init(ctx); err != nil {
		return err
	}

	errc := make(chan error, 1)
	go func() {
		a.Log.Info().Str("addr", a.Config.Addr).Msg("listening")
		errc <- a.Echo.Start(a.Config.Addr)
	}()

	select {
	case err := <-errc:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	a.Log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := a.Echo.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("penpost: shutdown: %w", err)
	}
	return nil
}

func (a *App) setupRoutes() {
	e := a.Echo

	e.Static("/css", filepath.Join(a.Config.StaticDir, "css"))
	e.Static("/images", filepath.Join(a.Config.StaticDir, "images"))
	e.Static("/uploads", filepath.Join(a.Config.StaticDir, "uploads"))

	e.GET("/signup", a.handleSignUpForm)
	e.POST("/signup", a.handleSignUp)
	e.GET("/login", a.handleLoginForm)
	e.POST("/login", a.handleLogin)
	e.GET("/logout", a.handleLogout)

	e.GET("/", a.handleHome)
	e.GET("/posts", a.handlePosts)
	e.GET("/posts/author/:author", a.handleAuthorPosts)
	e.GET("/authors", a.handleAuthors)
	e.GET("/post/:slug", a.handlePost)

	e.GET("/my-posts", a.handleMyPosts, RequireSession)
	e.GET("/dashboard", a.handleDashboard, RequireSession)
	e.GET("/admin/create", a.handleCreateForm, RequireSession)
	e.POST("/create-post", a.handleCreatePost, RequireSession)
}

// Close releases what the app opened. Injected stores are left to their
// owners.
func (a *App) Close() error {
	if a.limiter != nil {
		a.limiter.Stop()
	}
	if a.stopSweep != nil {
		a.stopSweep()
	}
	var errs []error
	if a.redis != nil {
		errs = append(errs, a.redis.Close())
	}
	if a.ownsStore && a.Store != nil {
		errs = append(errs, a.Store.Close())
	}
	return errors.Join(errs...)
}

func (a *App) suggest(posts []Post) []Post {
	a.rngMu.Lock()
	defer a.rngMu.Unlock()
	return samplePosts(posts, a.Config.HomeSample, a.rng)
}
