package penpost

import (
	"net/http"

	"github.com/a-h/templ"
	"github.com/labstack/echo/v4"

	"github.com/eringen/penpost/views"
)

// Render writes a templ component as an HTTP 200 HTML response.
func Render(c echo.Context, cmp templ.Component) error {
	return RenderStatus(c, http.StatusOK, cmp)
}

// RenderStatus writes a templ component with a specific HTTP status code.
func RenderStatus(c echo.Context, code int, cmp templ.Component) error {
	c.Response().Header().Set(echo.HeaderContentType, echo.MIMETextHTMLCharsetUTF8)
	c.Response().WriteHeader(code)
	return cmp.Render(c.Request().Context(), c.Response().Writer)
}

// page builds the chrome every view shares: site name, the logged-in user
// and the CSRF token for forms.
func (a *App) page(c echo.Context) views.Page {
	p := views.Page{
		Site: views.SiteConfig{Name: a.Config.Name},
		CSRF: CsrfToken(c),
	}
	if id, ok := CurrentIdentity(c); ok {
		p.Viewer = views.Viewer{Username: id.Username}
	}
	return p
}

func toView(p Post) views.Post {
	return views.Post{
		Title:     p.Title,
		Content:   p.Content,
		Author:    p.Author,
		Slug:      p.Slug,
		Status:    p.Status,
		ImageURL:  p.ImageURL,
		Link:      p.Link(),
		CreatedAt: p.CreatedAt,
		Views:     p.Views,
	}
}

func toViews(posts []Post) []views.Post {
	out := make([]views.Post, len(posts))
	for i, p := range posts {
		out[i] = toView(p)
	}
	return out
}
