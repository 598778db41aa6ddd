package penpost

import "time"

// StatusPublished is the only status the application writes. Public listings
// show published posts only.
const StatusPublished = "published"

// DefaultImageURL is used whenever a post has no uploaded image or the image
// host could not store one.
const DefaultImageURL = "/images/bg.jpg"

// Post is the core content type stored in the database and rendered by views.
type Post struct {
	ID        string
	Title     string
	Content   string
	Author    string // username, not a foreign key
	Slug      string
	Status    string
	CreatedAt time.Time
	Views     int64
	Category  string // never set; stored as NULL
	ImageURL  string
}

// Link returns the public path of the post.
func (p Post) Link() string {
	return "/post/" + p.Slug
}

// User is an account that can log in and publish.
type User struct {
	ID           string
	Username     string
	PasswordHash string
	CreatedAt    time.Time
}

// Identity is the authenticated caller carried by a session.
type Identity struct {
	UserID   string
	Username string
}

// Session is the server-side record behind a session cookie.
type Session struct {
	ID        string
	UserID    string
	Username  string
	CreatedAt time.Time
	ExpiresAt time.Time
}

// Identity returns the caller the session authenticates.
func (s Session) Identity() Identity {
	return Identity{UserID: s.UserID, Username: s.Username}
}
