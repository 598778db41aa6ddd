package penpost

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
)

const postColumns = `id, slug, title, content, author, status, created_at, views, category, image_url`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPost(r rowScanner) (Post, error) {
	var p Post
	var created int64
	var category sql.NullString
	if err := r.Scan(&p.ID, &p.Slug, &p.Title, &p.Content, &p.Author, &p.Status, &created, &p.Views, &category, &p.ImageURL); err != nil {
		return Post{}, err
	}
	p.CreatedAt = fromMillis(created)
	p.Category = category.String
	return p, nil
}

// CreatePost inserts p. Returns ErrSlugTaken if another post owns p.Slug.
func (s *Store) CreatePost(ctx context.Context, p Post) error {
	var category sql.NullString
	if p.Category != "" {
		category = sql.NullString{String: p.Category, Valid: true}
	}
	_, err := s.exec(ctx, `INSERT INTO posts (`+postColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.Slug, p.Title, p.Content, p.Author, p.Status, toMillis(p.CreatedAt), p.Views, category, p.ImageURL)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrSlugTaken
		}
		return fmt.Errorf("insert post: %w", err)
	}
	return nil
}

// SlugExists reports whether any post, whatever its status, uses slug.
func (s *Store) SlugExists(ctx context.Context, slug string) (bool, error) {
	ctx, cancel := s.opContext(ctx)
	defer cancel()
	var one int
	err := s.db.QueryRowContext(ctx, s.rebind(`SELECT 1 FROM posts WHERE slug = ?`), slug).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, s.wrapErr(err)
	}
	return true, nil
}

// FindBySlug returns a single published post.
func (s *Store) FindBySlug(ctx context.Context, slug string) (Post, error) {
	ctx, cancel := s.opContext(ctx)
	defer cancel()
	row := s.db.QueryRowContext(ctx, s.rebind(`SELECT `+postColumns+` FROM posts WHERE slug = ? AND status = ?`), slug, StatusPublished)
	p, err := scanPost(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Post{}, ErrNotFound
	}
	if err != nil {
		return Post{}, s.wrapErr(err)
	}
	return p, nil
}

// ListPublished returns all published posts, newest first.
func (s *Store) ListPublished(ctx context.Context) ([]Post, error) {
	return s.queryPosts(ctx, `SELECT `+postColumns+` FROM posts WHERE status = ? ORDER BY created_at DESC, id`, StatusPublished)
}

// ListByAuthor returns the author's published posts, newest first.
func (s *Store) ListByAuthor(ctx context.Context, author string) ([]Post, error) {
	return s.queryPosts(ctx, `SELECT `+postColumns+` FROM posts WHERE author = ? AND status = ? ORDER BY created_at DESC, id`, author, StatusPublished)
}

// ListAllByAuthor returns every post of the author regardless of status,
// newest first. Only the author's own pages use it.
func (s *Store) ListAllByAuthor(ctx context.Context, author string) ([]Post, error) {
	return s.queryPosts(ctx, `SELECT `+postColumns+` FROM posts WHERE author = ? ORDER BY created_at DESC, id`, author)
}

// DistinctAuthors returns the sorted usernames that have published posts.
func (s *Store) DistinctAuthors(ctx context.Context) ([]string, error) {
	ctx, cancel := s.opContext(ctx)
	defer cancel()
	rows, err := s.db.QueryContext(ctx, s.rebind(`SELECT DISTINCT author FROM posts WHERE status = ?`), StatusPublished)
	if err != nil {
		return nil, s.wrapErr(err)
	}
	defer rows.Close()

	authors := []string{}
	for rows.Next() {
		var a string
		if err := rows.Scan(&a); err != nil {
			return nil, err
		}
		authors = append(authors, a)
	}
	if err := rows.Err(); err != nil {
		return nil, s.wrapErr(err)
	}
	sort.Strings(authors)
	return authors, nil
}

// IncrementViews adds one view to the post and returns the new count.
// The increment happens in a single UPDATE, so concurrent readers never
// lose each other's views.
func (s *Store) IncrementViews(ctx context.Context, slug string) (int64, error) {
	ctx, cancel := s.opContext(ctx)
	defer cancel()
	var views int64
	err := s.db.QueryRowContext(ctx, s.rebind(`UPDATE posts SET views = views + 1 WHERE slug = ? RETURNING views`), slug).Scan(&views)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrNotFound
	}
	if err != nil {
		return 0, s.wrapErr(err)
	}
	return views, nil
}

func (s *Store) queryPosts(ctx context.Context, query string, args ...any) ([]Post, error) {
	ctx, cancel := s.opContext(ctx)
	defer cancel()
	rows, err := s.db.QueryContext(ctx, s.rebind(query), args...)
	if err != nil {
		return nil, s.wrapErr(err)
	}
	defer rows.Close()

	var posts []Post
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return nil, err
		}
		posts = append(posts, p)
	}
	if err := rows.Err(); err != nil {
		return nil, s.wrapErr(err)
	}
	return posts, nil
}
