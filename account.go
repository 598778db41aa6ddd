package penpost

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/eringen/penpost/views"
)

// Login checks the password, opens a server-side session and signs a token
// bound to it.
func (a *App) Login(ctx context.Context, username, password string) (Session, string, time.Time, error) {
	u, err := a.credentials.Verify(ctx, username, password)
	if err != nil {
		return Session{}, "", time.Time{}, err
	}
	sess, err := a.Sessions.Create(ctx, Identity{UserID: u.ID, Username: u.Username}, a.Config.SessionTTL)
	if err != nil {
		return Session{}, "", time.Time{}, fmt.Errorf("create session: %w", err)
	}
	token, exp, err := a.tokens.Issue(sess.Identity(), sess.ID)
	if err != nil {
		return Session{}, "", time.Time{}, err
	}
	return sess, token, exp, nil
}

func (a *App) handleSignUpForm(c echo.Context) error {
	return Render(c, a.Views.SignUp(a.page(c), views.AuthForm{}))
}

func (a *App) handleSignUp(c echo.Context) error {
	if !a.limiter.Allow(c.RealIP()) {
		return c.String(http.StatusTooManyRequests, "Too many attempts. Try again later.")
	}
	username := strings.TrimSpace(c.FormValue("username"))
	_, err := a.credentials.Register(c.Request().Context(), username, c.FormValue("password"))
	switch {
	case err == nil:
		return c.Redirect(http.StatusSeeOther, "/login")
	case errors.Is(err, ErrValidation):
		return RenderStatus(c, http.StatusBadRequest, a.Views.SignUp(a.page(c), views.AuthForm{
			Username: username,
			Error:    validationMessage(err),
		}))
	case errors.Is(err, ErrDuplicateUsername):
		return RenderStatus(c, http.StatusConflict, a.Views.SignUp(a.page(c), views.AuthForm{
			Username: username,
			Error:    "Could not create the account. Try another username.",
		}))
	default:
		return err
	}
}

func (a *App) handleLoginForm(c echo.Context) error {
	return Render(c, a.Views.Login(a.page(c), views.AuthForm{}))
}

func (a *App) handleLogin(c echo.Context) error {
	ip := c.RealIP()
	if !a.limiter.Allow(ip) {
		return c.String(http.StatusTooManyRequests, "Too many attempts. Try again later.")
	}
	username := strings.TrimSpace(c.FormValue("username"))
	sess, token, exp, err := a.Login(c.Request().Context(), username, c.FormValue("password"))
	if errors.Is(err, ErrInvalidCredentials) {
		return RenderStatus(c, http.StatusUnauthorized, a.Views.Login(a.page(c), views.AuthForm{
			Username: username,
			Error:    "Invalid credentials",
		}))
	}
	if err != nil {
		return err
	}
	a.limiter.Reset(ip)

	if err := setSession(c, sess.ID); err != nil {
		return err
	}
	c.SetCookie(&http.Cookie{
		Name:     TokenCookie,
		Value:    token,
		Path:     "/",
		Expires:  exp,
		MaxAge:   int(a.Config.TokenTTL.Seconds()),
		HttpOnly: true,
		Secure:   a.Config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
	a.Log.Info().Str("username", sess.Username).Msg("logged in")
	return c.Redirect(http.StatusSeeOther, "/")
}

func (a *App) handleLogout(c echo.Context) error {
	if sid := currentSessionID(c); sid != "" {
		if err := a.Sessions.Delete(c.Request().Context(), sid); err != nil {
			a.Log.Warn().Err(err).Msg("delete session")
		}
	}
	if err := clearSession(c); err != nil {
		return err
	}
	c.SetCookie(&http.Cookie{
		Name:     TokenCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   a.Config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
	return c.Redirect(http.StatusSeeOther, "/")
}

// validationMessage turns an ErrValidation chain into text for a form.
func validationMessage(err error) string {
	msg := strings.TrimPrefix(err.Error(), ErrValidation.Error()+": ")
	if msg == "" {
		return "Invalid input"
	}
	return strings.ToUpper(msg[:1]) + msg[1:]
}
