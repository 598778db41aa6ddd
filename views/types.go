package views

import "time"

// SiteConfig holds site-wide settings every page needs.
type SiteConfig struct {
	Name string
}

// Viewer is the logged-in user looking at the page. The zero value is an
// anonymous visitor.
type Viewer struct {
	Username string
}

// LoggedIn reports whether the viewer has a session.
func (v Viewer) LoggedIn() bool {
	return v.Username != ""
}

// Page carries what the layout renders around every page.
type Page struct {
	Site   SiteConfig
	Viewer Viewer
	CSRF   string
	Title  string
}

// Post is the view model of a blog post.
type Post struct {
	Title     string
	Content   string
	Author    string
	Slug      string
	Status    string
	ImageURL  string
	Link      string
	CreatedAt time.Time
	Views     int64
}

// AuthForm re-populates the signup and login forms.
type AuthForm struct {
	Username string
	Error    string
}

// PostForm re-populates the create-post form.
type PostForm struct {
	Title   string
	Content string
	Error   string
}
