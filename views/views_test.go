package views

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/a-h/templ"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func renderString(t *testing.T, c templ.Component) string {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, c.Render(context.Background(), &buf))
	return buf.String()
}

var page = Page{Site: SiteConfig{Name: "Test Blog"}, CSRF: "tok123"}

func TestLayoutNavigation(t *testing.T) {
	anon := renderString(t, NotFound(page))
	assert.Contains(t, anon, `href="/login"`)
	assert.NotContains(t, anon, `href="/logout"`)
	assert.Contains(t, anon, "<title>Not found · Test Blog</title>")

	p := page
	p.Viewer = Viewer{Username: "alice"}
	logged := renderString(t, NotFound(p))
	assert.Contains(t, logged, `href="/logout"`)
	assert.Contains(t, logged, "alice")
}

func TestFormsCarryCSRF(t *testing.T) {
	for _, c := range []templ.Component{
		SignUp(page, AuthForm{}),
		Login(page, AuthForm{}),
		CreatePost(page, PostForm{}),
	} {
		assert.Contains(t, renderString(t, c), `name="_csrf" value="tok123"`)
	}
}

func TestLoginShowsError(t *testing.T) {
	out := renderString(t, Login(page, AuthForm{Username: "bob", Error: "Invalid credentials"}))
	assert.Contains(t, out, "Invalid credentials")
	assert.Contains(t, out, `value="bob"`)
}

func TestPostEscapesContent(t *testing.T) {
	out := renderString(t, PostDetail(page, Post{
		Title:     "<script>alert(1)</script>",
		Content:   "first paragraph\n\nsecond <b>para</b>",
		Author:    "alice",
		Slug:      "x",
		ImageURL:  "/images/bg.jpg",
		CreatedAt: time.Date(2024, 3, 9, 0, 0, 0, 0, time.UTC),
		Views:     12,
	}))
	assert.NotContains(t, out, "<script>alert(1)</script>")
	assert.Contains(t, out, "&lt;script&gt;")
	assert.Contains(t, out, "<p>first paragraph</p>")
	assert.Contains(t, out, "second &lt;b&gt;para&lt;/b&gt;")
	assert.Contains(t, out, "March 9, 2024")
	assert.Contains(t, out, "12 views")
	assert.Contains(t, out, `src="/images/bg.jpg"`)
}

func TestPostListOwnShowsStatus(t *testing.T) {
	posts := []Post{{Title: "Draft one", Slug: "d", Author: "alice", Status: "draft"}}
	own := renderString(t, PostList(page, posts, "alice", true))
	assert.Contains(t, own, "Posts by alice")
	assert.Contains(t, own, "draft")

	public := renderString(t, PostList(page, posts, "", false))
	assert.Contains(t, public, "All posts")
	assert.NotContains(t, public, "· draft")
}

func TestDashboardTotals(t *testing.T) {
	out := renderString(t, Dashboard(page, []Post{{Title: "A", Slug: "a"}, {Title: "B", Slug: "b"}}, 42))
	assert.Contains(t, out, "<strong>2</strong> posts")
	assert.Contains(t, out, "<strong>42</strong> total views")
}

func TestHomeEmpty(t *testing.T) {
	assert.Contains(t, renderString(t, Home(page, nil)), "No posts yet.")
}

func TestExcerpt(t *testing.T) {
	assert.Equal(t, "short", excerpt("short", 10))
	assert.Equal(t, "one two…", excerpt("one two three four", 10))
	assert.Equal(t, "a b c", excerpt("a\n b\t c", 10))
}

func TestParagraphs(t *testing.T) {
	assert.Equal(t, []string{"a", "b\nc"}, paragraphs("a\r\n\r\n\n\nb\nc\n\n"))
	assert.Nil(t, paragraphs("  "))
}

func TestAttributesEscaped(t *testing.T) {
	out := renderString(t, Login(page, AuthForm{Username: `"><script>x</script>`}))
	assert.NotContains(t, out, `"><script>`)
	assert.Contains(t, out, `value="&#34;&gt;&lt;script&gt;x&lt;/script&gt;"`)
}

func TestUnsafeImageURLSanitized(t *testing.T) {
	out := renderString(t, PostDetail(page, Post{Title: "t", ImageURL: "javascript:alert(1)"}))
	assert.NotContains(t, out, "javascript:")
	assert.Contains(t, out, "about:invalid#TemplFailedSanitizationURL")
}

func TestPathsEscaped(t *testing.T) {
	out := renderString(t, PostList(page, []Post{{Title: "q", Slug: "a b", Author: "x/y"}}, "", false))
	assert.Contains(t, out, `href="/post/a%20b"`)
	assert.Contains(t, out, `href="/posts/author/x%2Fy"`)
}
