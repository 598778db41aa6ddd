// Package views holds penpost's built-in pages. Each page is a
// templ.Component drawn inside the shared layout; text and attribute values
// are escaped with templ.EscapeString.
package views

import (
	"context"
	"io"
	"net/url"
	"strconv"

	"github.com/a-h/templ"
)

// htmlWriter writes markup to w and keeps the first error.
type htmlWriter struct {
	w   io.Writer
	err error
}

func (h *htmlWriter) raw(parts ...string) {
	for _, s := range parts {
		if h.err != nil {
			return
		}
		_, h.err = io.WriteString(h.w, s)
	}
}

func (h *htmlWriter) text(s string) {
	h.raw(templ.EscapeString(s))
}

// attr writes ` name="value"` with value escaped.
func (h *htmlWriter) attr(name, value string) {
	h.raw(" ", name, `="`, templ.EscapeString(value), `"`)
}

func (h *htmlWriter) link(href, label string) {
	h.raw("<a")
	h.attr("href", href)
	h.raw(">")
	h.text(label)
	h.raw("</a>")
}

func postPath(slug string) string     { return "/post/" + url.PathEscape(slug) }
func authorPath(author string) string { return "/posts/author/" + url.PathEscape(author) }

func layout(page Page, body func(h *htmlWriter)) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := &htmlWriter{w: w}
		h.raw(`<!DOCTYPE html><html lang="en"><head><meta charset="utf-8">`,
			`<meta name="viewport" content="width=device-width, initial-scale=1"><title>`)
		if page.Title != "" {
			h.text(page.Title)
			h.raw(" · ")
		}
		h.text(page.Site.Name)
		h.raw(`</title><link rel="stylesheet" href="/css/site.css"></head><body>`,
			`<header class="site-header"><a class="brand" href="/">`)
		h.text(page.Site.Name)
		h.raw(`</a><nav><a href="/posts">Posts</a>`)
		if page.Viewer.LoggedIn() {
			h.raw(`<a href="/my-posts">My posts</a><a href="/dashboard">Dashboard</a>`,
				`<a href="/admin/create">Write</a><a href="/logout">Log out (`)
			h.text(page.Viewer.Username)
			h.raw(`)</a>`)
		} else {
			h.raw(`<a href="/login">Log in</a><a href="/signup">Sign up</a>`)
		}
		h.raw(`</nav></header><main>`)
		body(h)
		h.raw(`</main></body></html>`)
		return h.err
	})
}

func formError(h *htmlWriter, msg string) {
	if msg == "" {
		return
	}
	h.raw(`<p class="error" role="alert">`)
	h.text(msg)
	h.raw(`</p>`)
}

func csrfInput(h *htmlWriter, token string) {
	h.raw(`<input type="hidden" name="_csrf"`)
	h.attr("value", token)
	h.raw(">")
}

type authPage struct {
	heading, action, button, autocomplete string
	footer, footerLink, footerLabel       string
}

func (p authPage) render(page Page, form AuthForm) templ.Component {
	return layout(page, func(h *htmlWriter) {
		h.raw("<h1>")
		h.text(p.heading)
		h.raw("</h1>")
		formError(h, form.Error)
		h.raw(`<form method="post" class="auth-form"`)
		h.attr("action", p.action)
		h.raw(">")
		csrfInput(h, page.CSRF)
		h.raw(`<label>Username <input name="username"`)
		h.attr("value", form.Username)
		h.raw(` required autocomplete="username"></label>`,
			`<label>Password <input type="password" name="password" required`)
		h.attr("autocomplete", p.autocomplete)
		h.raw(`></label><button type="submit">`)
		h.text(p.button)
		h.raw(`</button></form><p>`)
		h.text(p.footer)
		h.raw(" ")
		h.link(p.footerLink, p.footerLabel)
		h.raw(".</p>")
	})
}

// SignUp renders the signup form.
func SignUp(page Page, form AuthForm) templ.Component {
	page.Title = "Sign up"
	return authPage{
		heading: "Create an account", action: "/signup", button: "Sign up", autocomplete: "new-password",
		footer: "Already have an account?", footerLink: "/login", footerLabel: "Log in",
	}.render(page, form)
}

// Login renders the login form.
func Login(page Page, form AuthForm) templ.Component {
	page.Title = "Log in"
	return authPage{
		heading: "Log in", action: "/login", button: "Log in", autocomplete: "current-password",
		footer: "New here?", footerLink: "/signup", footerLabel: "Sign up",
	}.render(page, form)
}

// Home renders the suggested posts.
func Home(page Page, posts []Post) templ.Component {
	return layout(page, func(h *htmlWriter) {
		h.raw(`<section class="hero"><h1>`)
		h.text(page.Site.Name)
		h.raw("</h1>")
		if page.Viewer.LoggedIn() {
			h.raw("<p>Welcome back, ")
			h.text(page.Viewer.Username)
			h.raw(".</p>")
		}
		h.raw(`</section><h2>Suggested reading</h2>`)
		if len(posts) == 0 {
			h.raw(`<p>No posts yet.</p>`)
		} else {
			h.raw(`<ul class="cards">`)
			for _, p := range posts {
				h.raw(`<li class="card"><a`)
				h.attr("href", postPath(p.Slug))
				h.raw("><img")
				h.attr("src", string(templ.URL(p.ImageURL)))
				h.raw(` alt="" loading="lazy"></a><h3>`)
				h.link(postPath(p.Slug), p.Title)
				h.raw(`</h3><p class="meta">by `)
				h.link(authorPath(p.Author), p.Author)
				h.raw(" · ")
				h.text(formatDate(p.CreatedAt))
				h.raw("</p><p>")
				h.text(excerpt(p.Content, 160))
				h.raw("</p></li>")
			}
			h.raw("</ul>")
		}
		h.raw(`<p><a href="/posts">See all posts</a></p>`)
	})
}

// PostList renders a list of posts. With author set the list is headed by
// the author's name; own marks the viewer's own posts page, which also
// shows each post's status.
func PostList(page Page, posts []Post, author string, own bool) templ.Component {
	page.Title = "All posts"
	if author != "" {
		page.Title = "Posts by " + author
	}
	return layout(page, func(h *htmlWriter) {
		h.raw("<h1>")
		h.text(page.Title)
		h.raw("</h1>")
		if len(posts) == 0 {
			h.raw("<p>No posts found.</p>")
			return
		}
		h.raw(`<ul class="post-list">`)
		for _, p := range posts {
			h.raw("<li>")
			h.link(postPath(p.Slug), p.Title)
			h.raw(`<span class="meta">by `)
			h.link(authorPath(p.Author), p.Author)
			h.raw(" · ")
			h.text(formatDate(p.CreatedAt))
			h.raw(" · ", strconv.FormatInt(p.Views, 10), " views")
			if own {
				h.raw(" · ")
				h.text(p.Status)
			}
			h.raw("</span></li>")
		}
		h.raw("</ul>")
	})
}

// PostDetail renders a single post.
func PostDetail(page Page, post Post) templ.Component {
	page.Title = post.Title
	return layout(page, func(h *htmlWriter) {
		h.raw(`<article class="post"><img class="cover"`)
		h.attr("src", string(templ.URL(post.ImageURL)))
		h.raw(` alt=""><h1>`)
		h.text(post.Title)
		h.raw(`</h1><p class="meta">by `)
		h.link(authorPath(post.Author), post.Author)
		h.raw(" · ")
		h.text(formatDate(post.CreatedAt))
		h.raw(" · ", strconv.FormatInt(post.Views, 10), " views</p>")
		for _, para := range paragraphs(post.Content) {
			h.raw("<p>")
			h.text(para)
			h.raw("</p>")
		}
		h.raw("</article>")
	})
}

// Dashboard renders the viewer's posts and their total views.
func Dashboard(page Page, posts []Post, totalViews int64) templ.Component {
	page.Title = "Dashboard"
	return layout(page, func(h *htmlWriter) {
		h.raw(`<h1>Dashboard</h1><p class="stats"><strong>`, strconv.Itoa(len(posts)),
			`</strong> posts · <strong>`, strconv.FormatInt(totalViews, 10), `</strong> total views</p>`,
			`<p><a class="button" href="/admin/create">Write a new post</a></p>`)
		if len(posts) == 0 {
			h.raw("<p>You have not written anything yet.</p>")
			return
		}
		h.raw(`<table class="dashboard"><thead><tr><th>Title</th><th>Status</th><th>Created</th><th>Views</th></tr></thead><tbody>`)
		for _, p := range posts {
			h.raw("<tr><td>")
			h.link(postPath(p.Slug), p.Title)
			h.raw("</td><td>")
			h.text(p.Status)
			h.raw("</td><td>")
			h.text(formatDate(p.CreatedAt))
			h.raw("</td><td>", strconv.FormatInt(p.Views, 10), "</td></tr>")
		}
		h.raw("</tbody></table>")
	})
}

// CreatePost renders the new-post form.
func CreatePost(page Page, form PostForm) templ.Component {
	page.Title = "New post"
	return layout(page, func(h *htmlWriter) {
		h.raw("<h1>New post</h1>")
		formError(h, form.Error)
		h.raw(`<form method="post" action="/create-post" enctype="multipart/form-data" class="post-form">`)
		csrfInput(h, page.CSRF)
		h.raw(`<label>Title <input name="title"`)
		h.attr("value", form.Title)
		h.raw(` required></label><label>Content <textarea name="content" rows="16" required>`)
		h.text(form.Content)
		h.raw(`</textarea></label>`,
			`<label>Cover image (max 1 MB) <input type="file" name="image" accept="image/*"></label>`,
			`<button type="submit">Publish</button></form>`)
	})
}

// NotFound renders the 404 page.
func NotFound(page Page) templ.Component {
	page.Title = "Not found"
	return layout(page, func(h *htmlWriter) {
		h.raw(`<h1>Page not found</h1><p>The page you were looking for does not exist.</p>`,
			`<p><a href="/">Back to the home page</a></p>`)
	})
}

// ServerError renders the 500 page.
func ServerError(page Page) templ.Component {
	page.Title = "Something went wrong"
	return layout(page, func(h *htmlWriter) {
		h.raw(`<h1>Something went wrong</h1><p>We could not complete your request. Please try again later.</p>`)
	})
}
