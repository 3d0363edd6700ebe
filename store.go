package chainpost

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// MetadataStore is the capability surface shared by every post metadata
// backend: the embedded local store, the document database, and the table
// service. Implementations return ErrNotFound from FindBySlug when the slug
// is absent.
type MetadataStore interface {
	ListAll(ctx context.Context) ([]Post, error)
	FindBySlug(ctx context.Context, slug string) (Post, error)
	ExistsBySlug(ctx context.Context, slug string) (bool, error)
	Insert(ctx context.Context, p Post) error
	Name() string
	Close() error
}

// LocalStore is the authoritative, always-available metadata store backed by
// an embedded SQLite database. It replaces the original design's habit of
// appending records to a compiled-in table definition: the same insertion
// ordering and slug uniqueness, without rewriting source text at runtime.
type LocalStore struct {
	db *sql.DB
}

// NewLocalStore opens (or creates) the SQLite database at path, ensures the
// data directory exists, and runs schema migrations.
func NewLocalStore(path string) (*LocalStore, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// WAL allows concurrent readers during a write; the busy timeout makes
	// writers wait instead of returning SQLITE_BUSY immediately.
	if _, err := db.Exec(`
		PRAGMA journal_mode=WAL;
		PRAGMA busy_timeout=5000;
		PRAGMA synchronous=NORMAL;
	`); err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(4)
	s := &LocalStore{db: db}
	if err := s.ensureSchema(); err != nil {
		return nil, err
	}
	return s, nil
}

// Name identifies the backend in logs.
func (s *LocalStore) Name() string { return "local" }

// Close closes the underlying database connection.
func (s *LocalStore) Close() error {
	return s.db.Close()
}

func (s *LocalStore) ensureSchema() error {
	_, err := s.db.Exec(`
CREATE TABLE IF NOT EXISTS posts (
    slug TEXT PRIMARY KEY,
    title TEXT NOT NULL,
    excerpt TEXT NOT NULL,
    author TEXT NOT NULL,
    category TEXT NOT NULL,
    date TEXT NOT NULL,
    published_at TEXT NOT NULL,
    content_path TEXT NOT NULL,
    image TEXT NOT NULL DEFAULT '',
    featured INTEGER NOT NULL DEFAULT 0
);
`)
	return err
}

const localColumns = `slug, title, excerpt, author, category, date, published_at, content_path, image, featured`

// ListAll returns every post in insertion order. Callers that want
// newest-first sort by PublishedAt themselves.
func (s *LocalStore) ListAll(ctx context.Context) ([]Post, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+localColumns+` FROM posts ORDER BY rowid`)
	if err != nil {
		return nil, err
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
	return posts, rows.Err()
}

// FindBySlug returns the post with the given slug, or ErrNotFound.
func (s *LocalStore) FindBySlug(ctx context.Context, slug string) (Post, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+localColumns+` FROM posts WHERE slug = ?`, slug)
	p, err := scanPost(row)
	if err == sql.ErrNoRows {
		return Post{}, ErrNotFound
	}
	if err != nil {
		return Post{}, err
	}
	return p, nil
}

// ExistsBySlug reports whether a post with the given slug is stored.
func (s *LocalStore) ExistsBySlug(ctx context.Context, slug string) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM posts WHERE slug = ?`, slug).Scan(&n)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Insert appends a new post. The slug primary key rejects duplicates at the
// storage layer even if the pipeline's advisory check raced.
func (s *LocalStore) Insert(ctx context.Context, p Post) error {
	featured := 0
	if p.Featured {
		featured = 1
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO posts (`+localColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.Slug, p.Title, p.Excerpt, p.Author, p.Category, p.Date,
		p.PublishedAt.UTC().Format(time.RFC3339), p.ContentPath, p.Image, featured)
	return err
}

// scanner covers both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanPost(row scanner) (Post, error) {
	var p Post
	var publishedAt string
	var featured int
	err := row.Scan(&p.Slug, &p.Title, &p.Excerpt, &p.Author, &p.Category,
		&p.Date, &publishedAt, &p.ContentPath, &p.Image, &featured)
	if err != nil {
		return Post{}, err
	}
	t, err := time.Parse(time.RFC3339, publishedAt)
	if err != nil {
		return Post{}, fmt.Errorf("parse published_at for %q: %w", p.Slug, err)
	}
	p.PublishedAt = t
	p.Featured = featured == 1
	return p, nil
}
