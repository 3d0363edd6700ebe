package chainpost

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// TableStore is the table-service metadata backend, a Postgres table reached
// through a connection pool. Like DocumentStore, every operation is bounded
// by a per-call timeout so the fallback path stays reachable.
type TableStore struct {
	pool    *pgxpool.Pool
	timeout time.Duration

	mu    sync.Mutex
	ready bool // posts table confirmed to exist
}

const tableSchema = `
CREATE TABLE IF NOT EXISTS posts (
    slug TEXT PRIMARY KEY,
    title TEXT NOT NULL,
    excerpt TEXT NOT NULL,
    author TEXT NOT NULL,
    category TEXT NOT NULL,
    date TEXT NOT NULL,
    published_at TIMESTAMPTZ NOT NULL,
    content_path TEXT NOT NULL,
    image TEXT NOT NULL DEFAULT '',
    featured BOOLEAN NOT NULL DEFAULT FALSE
)`

// NewTableStore prepares a pool for the database at dsn. The schema check is
// best-effort here and retried lazily per operation: a backend that is down
// at startup must not keep the process (and its local fallback) from serving.
func NewTableStore(ctx context.Context, dsn string, timeout time.Duration) (*TableStore, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, &RemoteStoreError{Backend: "postgres", Op: "connect", Err: err}
	}
	s := &TableStore{pool: pool, timeout: timeout}
	if err := s.ensureSchema(ctx); err != nil {
		log.Printf("tableservice: schema check deferred, serving from local until reachable: %v", err)
	}
	return s, nil
}

// ensureSchema creates the posts table on first contact. Once it has
// succeeded it never touches the database again.
func (s *TableStore) ensureSchema(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ready {
		return nil
	}
	ctx, cancel := s.bound(ctx)
	defer cancel()
	if _, err := s.pool.Exec(ctx, tableSchema); err != nil {
		return &RemoteStoreError{Backend: "postgres", Op: "ensure schema", Err: err}
	}
	s.ready = true
	return nil
}

// Name identifies the backend in logs.
func (s *TableStore) Name() string { return "postgres" }

// Close releases the connection pool.
func (s *TableStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *TableStore) bound(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.timeout)
}

const tableColumns = `slug, title, excerpt, author, category, date, published_at, content_path, image, featured`

// ListAll returns every post, newest first by canonical timestamp.
func (s *TableStore) ListAll(ctx context.Context) ([]Post, error) {
	if err := s.ensureSchema(ctx); err != nil {
		return nil, err
	}
	ctx, cancel := s.bound(ctx)
	defer cancel()

	rows, err := s.pool.Query(ctx, `SELECT `+tableColumns+` FROM posts ORDER BY published_at DESC`)
	if err != nil {
		return nil, &RemoteStoreError{Backend: "postgres", Op: "list", Err: err}
	}
	defer rows.Close()

	var posts []Post
	for rows.Next() {
		var p Post
		if err := rows.Scan(&p.Slug, &p.Title, &p.Excerpt, &p.Author, &p.Category,
			&p.Date, &p.PublishedAt, &p.ContentPath, &p.Image, &p.Featured); err != nil {
			return nil, &RemoteStoreError{Backend: "postgres", Op: "scan", Err: err}
		}
		posts = append(posts, p)
	}
	if err := rows.Err(); err != nil {
		return nil, &RemoteStoreError{Backend: "postgres", Op: "list", Err: err}
	}
	return posts, nil
}

// FindBySlug returns the post with the given slug, or ErrNotFound.
func (s *TableStore) FindBySlug(ctx context.Context, slug string) (Post, error) {
	if err := s.ensureSchema(ctx); err != nil {
		return Post{}, err
	}
	ctx, cancel := s.bound(ctx)
	defer cancel()

	var p Post
	err := s.pool.QueryRow(ctx, `SELECT `+tableColumns+` FROM posts WHERE slug = $1`, slug).
		Scan(&p.Slug, &p.Title, &p.Excerpt, &p.Author, &p.Category,
			&p.Date, &p.PublishedAt, &p.ContentPath, &p.Image, &p.Featured)
	if errors.Is(err, pgx.ErrNoRows) {
		return Post{}, ErrNotFound
	}
	if err != nil {
		return Post{}, &RemoteStoreError{Backend: "postgres", Op: "find", Err: err}
	}
	return p, nil
}

// ExistsBySlug reports whether a post with the given slug is stored.
func (s *TableStore) ExistsBySlug(ctx context.Context, slug string) (bool, error) {
	if err := s.ensureSchema(ctx); err != nil {
		return false, err
	}
	ctx, cancel := s.bound(ctx)
	defer cancel()

	var exists bool
	err := s.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM posts WHERE slug = $1)`, slug).Scan(&exists)
	if err != nil {
		return false, &RemoteStoreError{Backend: "postgres", Op: "exists", Err: err}
	}
	return exists, nil
}

// Insert mirrors a post into the table. The slug primary key rejects
// duplicates server-side.
func (s *TableStore) Insert(ctx context.Context, p Post) error {
	if err := s.ensureSchema(ctx); err != nil {
		return err
	}
	ctx, cancel := s.bound(ctx)
	defer cancel()

	_, err := s.pool.Exec(ctx,
		`INSERT INTO posts (`+tableColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		p.Slug, p.Title, p.Excerpt, p.Author, p.Category, p.Date,
		p.PublishedAt, p.ContentPath, p.Image, p.Featured)
	if err != nil {
		return &RemoteStoreError{Backend: "postgres", Op: "insert", Err: err}
	}
	return nil
}
