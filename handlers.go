package penpost

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
)

func (a *App) handleHome(c echo.Context) error {
	posts, err := a.Cache.ListPublished(c.Request().Context())
	if err != nil {
		return err
	}
	return Render(c, a.Views.Home(a.page(c), toViews(a.suggest(posts))))
}

func (a *App) handlePosts(c echo.Context) error {
	posts, err := a.Cache.ListPublished(c.Request().Context())
	if err != nil {
		return err
	}
	return Render(c, a.Views.PostList(a.page(c), toViews(posts), "", false))
}

func (a *App) handleAuthorPosts(c echo.Context) error {
	author := c.Param("author")
	posts, err := a.Cache.ListByAuthor(c.Request().Context(), author)
	if err != nil {
		return err
	}
	return Render(c, a.Views.PostList(a.page(c), toViews(posts), author, false))
}

func (a *App) handleAuthors(c echo.Context) error {
	authors, err := a.Cache.Authors(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, authors)
}

// handlePost renders a published post and counts the view.
func (a *App) handlePost(c echo.Context) error {
	ctx := c.Request().Context()
	post, err := a.Store.FindBySlug(ctx, c.Param("slug"))
	if err != nil {
		return err
	}
	count, err := a.Store.IncrementViews(ctx, post.Slug)
	if err != nil {
		return err
	}
	post.Views = count
	return Render(c, a.Views.Post(a.page(c), toView(post)))
}

func (a *App) httpErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	var he *echo.HTTPError
	isHTTP := errors.As(err, &he)
	if errors.Is(err, ErrNotFound) || (isHTTP && he.Code == http.StatusNotFound) {
		_ = RenderStatus(c, http.StatusNotFound, a.Views.NotFound(a.page(c)))
		return
	}
	code := http.StatusInternalServerError
	if isHTTP {
		code = he.Code
	}
	if code >= 500 {
		a.Log.Error().Err(err).
			Str("method", c.Request().Method).
			Str("uri", c.Request().RequestURI).
			Msg("server error")
		_ = RenderStatus(c, code, a.Views.ServerError(a.page(c)))
		return
	}
	a.Echo.DefaultHTTPErrorHandler(err, c)
}
