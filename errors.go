package penpost

import "errors"

var (
	// ErrValidation is returned for missing or malformed input.
	ErrValidation = errors.New("invalid input")
	// ErrDuplicateUsername is returned when signing up with a taken username.
	ErrDuplicateUsername = errors.New("username already taken")
	// ErrInvalidCredentials covers both unknown users and wrong passwords.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrNotFound is returned when a requested post does not exist.
	ErrNotFound = errors.New("not found")
	// ErrSlugTaken is returned by CreatePost when another post already owns the slug.
	ErrSlugTaken = errors.New("slug already taken")
	// ErrUpstreamUnavailable wraps failures to reach the store or the image host.
	ErrUpstreamUnavailable = errors.New("upstream unavailable")
	// ErrInvalidToken is returned for tokens with a bad signature or shape.
	ErrInvalidToken = errors.New("invalid token")
	// ErrTokenExpired is returned for well-formed tokens past their expiry.
	ErrTokenExpired = errors.New("token expired")
)
