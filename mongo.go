package chainpost

import (
	"context"
	"log"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// DocumentStore is the document-database metadata backend, backed by a
// MongoDB collection. Every operation carries a bounded timeout so a slow or
// unreachable cluster hands control back to the fallback path instead of
// stalling the request.
type DocumentStore struct {
	client  *mongo.Client
	posts   *mongo.Collection
	timeout time.Duration

	mu      sync.Mutex
	indexed bool // unique slug index confirmed to exist
}

// NewDocumentStore prepares a client for the cluster at uri. The unique slug
// index is best-effort here and retried lazily on writes: a cluster that is
// down at startup must not keep the process (and its local fallback) from
// serving.
func NewDocumentStore(ctx context.Context, uri, database string, timeout time.Duration) (*DocumentStore, error) {
	connectCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(uri).SetMaxPoolSize(8))
	if err != nil {
		return nil, &RemoteStoreError{Backend: "mongodb", Op: "connect", Err: err}
	}
	s := &DocumentStore{
		client:  client,
		posts:   client.Database(database).Collection("posts"),
		timeout: timeout,
	}
	if err := s.ensureIndex(ctx); err != nil {
		log.Printf("mongo: index check deferred, serving from local until reachable: %v", err)
	}
	return s, nil
}

// ensureIndex creates the unique slug index on first contact. Reads work
// without it, so only Insert requires it.
func (s *DocumentStore) ensureIndex(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.indexed {
		return nil
	}
	ctx, cancel := s.bound(ctx)
	defer cancel()
	_, err := s.posts.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "slug", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return &RemoteStoreError{Backend: "mongodb", Op: "ensure index", Err: err}
	}
	s.indexed = true
	return nil
}

// Name identifies the backend in logs.
func (s *DocumentStore) Name() string { return "mongodb" }

// Close disconnects from the cluster.
func (s *DocumentStore) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	return s.client.Disconnect(ctx)
}

func (s *DocumentStore) bound(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.timeout)
}

// ListAll returns every post, newest first by canonical timestamp.
func (s *DocumentStore) ListAll(ctx context.Context) ([]Post, error) {
	ctx, cancel := s.bound(ctx)
	defer cancel()

	cur, err := s.posts.Find(ctx, bson.D{},
		options.Find().SetSort(bson.D{{Key: "published_at", Value: -1}}))
	if err != nil {
		return nil, &RemoteStoreError{Backend: "mongodb", Op: "list", Err: err}
	}
	var posts []Post
	if err := cur.All(ctx, &posts); err != nil {
		return nil, &RemoteStoreError{Backend: "mongodb", Op: "decode", Err: err}
	}
	return posts, nil
}

// FindBySlug returns the post with the given slug, or ErrNotFound.
func (s *DocumentStore) FindBySlug(ctx context.Context, slug string) (Post, error) {
	ctx, cancel := s.bound(ctx)
	defer cancel()

	var p Post
	err := s.posts.FindOne(ctx, bson.D{{Key: "slug", Value: slug}}).Decode(&p)
	if err == mongo.ErrNoDocuments {
		return Post{}, ErrNotFound
	}
	if err != nil {
		return Post{}, &RemoteStoreError{Backend: "mongodb", Op: "find", Err: err}
	}
	return p, nil
}

// ExistsBySlug reports whether a post with the given slug is stored.
func (s *DocumentStore) ExistsBySlug(ctx context.Context, slug string) (bool, error) {
	ctx, cancel := s.bound(ctx)
	defer cancel()

	n, err := s.posts.CountDocuments(ctx, bson.D{{Key: "slug", Value: slug}},
		options.Count().SetLimit(1))
	if err != nil {
		return false, &RemoteStoreError{Backend: "mongodb", Op: "count", Err: err}
	}
	return n > 0, nil
}

// Insert mirrors a post into the collection. The unique slug index rejects
// duplicates server-side.
func (s *DocumentStore) Insert(ctx context.Context, p Post) error {
	if err := s.ensureIndex(ctx); err != nil {
		return err
	}
	ctx, cancel := s.bound(ctx)
	defer cancel()

	if _, err := s.posts.InsertOne(ctx, p); err != nil {
		return &RemoteStoreError{Backend: "mongodb", Op: "insert", Err: err}
	}
	return nil
}
