package penpost

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/eringen/penpost/views"
)

// maxSlugRetries bounds how often a create re-resolves the slug after losing
// an insert race to another post with the same title.
const maxSlugRetries = 3

func (a *App) handleMyPosts(c echo.Context) error {
	id, _ := CurrentIdentity(c)
	posts, err := a.Store.ListAllByAuthor(c.Request().Context(), id.Username)
	if err != nil {
		return err
	}
	return Render(c, a.Views.PostList(a.page(c), toViews(posts), id.Username, true))
}

// handleDashboard lists the viewer's posts and their total views. A store
// failure is logged and shows an empty dashboard.
func (a *App) handleDashboard(c echo.Context) error {
	id, _ := CurrentIdentity(c)
	posts, err := a.Store.ListAllByAuthor(c.Request().Context(), id.Username)
	if err != nil {
		a.Log.Error().Err(err).Str("author", id.Username).Msg("load dashboard")
		posts = nil
	}
	var total int64
	for _, p := range posts {
		total += p.Views
	}
	return Render(c, a.Views.Dashboard(a.page(c), toViews(posts), total))
}

func (a *App) handleCreateForm(c echo.Context) error {
	return Render(c, a.Views.CreatePost(a.page(c), views.PostForm{}))
}

// handleCreatePost publishes a post. The image upload runs while the slug
// is resolved; a failed upload still publishes the post with the default
// image.
func (a *App) handleCreatePost(c echo.Context) error {
	id, _ := CurrentIdentity(c)
	ctx := c.Request().Context()

	form := views.PostForm{
		Title:   strings.TrimSpace(c.FormValue("title")),
		Content: strings.TrimSpace(c.FormValue("content")),
	}
	badRequest := func(msg string) error {
		form.Error = msg
		return RenderStatus(c, http.StatusBadRequest, a.Views.CreatePost(a.page(c), form))
	}
	if form.Title == "" || form.Content == "" {
		return badRequest("Title and content are required.")
	}

	var upload <-chan UploadResult
	fh, err := c.FormFile("image")
	switch {
	case errors.Is(err, http.ErrMissingFile), errors.Is(err, http.ErrNotMultipart):
	case err != nil:
		return badRequest("Could not read the uploaded file.")
	default:
		if err := a.images.Validate(fh); err != nil {
			return badRequest(validationMessage(err))
		}
		data, err := readFormFile(fh, a.Config.MaxImageSize)
		if err != nil {
			return fmt.Errorf("read upload: %w", err)
		}
		upload = a.images.Start(ctx, data, fh.Header.Get(echo.HeaderContentType))
	}

	slug, err := a.slugs.Resolve(ctx, form.Title)
	if err != nil {
		return err
	}

	post := Post{
		ID:        uuid.NewString(),
		Title:     form.Title,
		Content:   form.Content,
		Author:    id.Username,
		Status:    StatusPublished,
		CreatedAt: a.now().UTC(),
		ImageURL:  a.Config.DefaultImageURL,
	}
	if upload != nil {
		post.ImageURL = (<-upload).URL
	}

	for retries := 0; ; retries++ {
		post.Slug = slug
		err = a.Store.CreatePost(ctx, post)
		if !errors.Is(err, ErrSlugTaken) || retries == maxSlugRetries {
			break
		}
		if slug, err = a.slugs.Resolve(ctx, form.Title); err != nil {
			return err
		}
	}
	if err != nil {
		return err
	}
	a.Cache.Invalidate()

	a.Log.Info().
		Str("slug", post.Slug).
		Str("author", post.Author).
		Str("image", post.ImageURL).
		Msg("post created")
	return c.Redirect(http.StatusSeeOther, "/dashboard")
}

func readFormFile(fh *multipart.FileHeader, limit int64) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(io.LimitReader(f, limit+1))
}
