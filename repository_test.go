package chainpost

import (
	"context"
	"errors"
	"testing"
	"time"
)

// stubStore is an in-memory MetadataStore whose reads can be forced to fail,
// standing in for an unreachable remote backend.
type stubStore struct {
	posts []Post
	fail  bool
}

func (s *stubStore) Name() string { return "stub" }
func (s *stubStore) Close() error { return nil }

func (s *stubStore) ListAll(ctx context.Context) ([]Post, error) {
	if s.fail {
		return nil, &RemoteStoreError{Backend: "stub", Op: "list", Err: errors.New("connection refused")}
	}
	return s.posts, nil
}

func (s *stubStore) FindBySlug(ctx context.Context, slug string) (Post, error) {
	if s.fail {
		return Post{}, &RemoteStoreError{Backend: "stub", Op: "find", Err: errors.New("connection refused")}
	}
	for _, p := range s.posts {
		if p.Slug == slug {
			return p, nil
		}
	}
	return Post{}, ErrNotFound
}

func (s *stubStore) ExistsBySlug(ctx context.Context, slug string) (bool, error) {
	if s.fail {
		return false, &RemoteStoreError{Backend: "stub", Op: "exists", Err: errors.New("connection refused")}
	}
	for _, p := range s.posts {
		if p.Slug == slug {
			return true, nil
		}
	}
	return false, nil
}

func (s *stubStore) Insert(ctx context.Context, p Post) error {
	if s.fail {
		return &RemoteStoreError{Backend: "stub", Op: "insert", Err: errors.New("connection refused")}
	}
	s.posts = append(s.posts, p)
	return nil
}

func TestRepositoryPrefersRemote(t *testing.T) {
	local := setupLocalStore(t)
	ctx := context.Background()
	if err := local.Insert(ctx, storedPost("local-only", time.Now())); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	remote := &stubStore{posts: []Post{storedPost("remote-post", time.Now())}}
	repo := NewRepository(local, remote)

	posts, err := repo.ListPosts(ctx)
	if err != nil {
		t.Fatalf("ListPosts failed: %v", err)
	}
	if len(posts) != 1 || posts[0].Slug != "remote-post" {
		t.Errorf("ListPosts should serve the remote content, got %+v", posts)
	}
}

func TestRepositoryFallsBackOnRemoteFailure(t *testing.T) {
	local := setupLocalStore(t)
	ctx := context.Background()
	if err := local.Insert(ctx, storedPost("local-post", time.Now())); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	repo := NewRepository(local, &stubStore{fail: true})

	posts, err := repo.ListPosts(ctx)
	if err != nil {
		t.Fatalf("ListPosts should not surface a remote failure, got %v", err)
	}
	if len(posts) != 1 || posts[0].Slug != "local-post" {
		t.Errorf("ListPosts should fall back to local content, got %+v", posts)
	}

	got, err := repo.GetPostBySlug(ctx, "local-post")
	if err != nil {
		t.Fatalf("GetPostBySlug should not surface a remote failure, got %v", err)
	}
	if got.Slug != "local-post" {
		t.Errorf("GetPostBySlug = %q, want local-post", got.Slug)
	}
}

func TestRepositoryRemoteMissRetriesLocal(t *testing.T) {
	local := setupLocalStore(t)
	ctx := context.Background()
	if err := local.Insert(ctx, storedPost("unmirrored", time.Now())); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	// Healthy remote without the post: mirror never landed there.
	repo := NewRepository(local, &stubStore{})

	got, err := repo.GetPostBySlug(ctx, "unmirrored")
	if err != nil {
		t.Fatalf("GetPostBySlug failed: %v", err)
	}
	if got.Slug != "unmirrored" {
		t.Errorf("GetPostBySlug = %q, want unmirrored", got.Slug)
	}
}

func TestRepositoryWithoutRemote(t *testing.T) {
	local := setupLocalStore(t)
	ctx := context.Background()
	if err := local.Insert(ctx, storedPost("solo", time.Now())); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	repo := NewRepository(local, nil)

	posts, err := repo.ListPosts(ctx)
	if err != nil || len(posts) != 1 {
		t.Fatalf("ListPosts = %v, %v; want one post", posts, err)
	}
	if _, err := repo.GetPostBySlug(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetPostBySlug of missing = %v, want ErrNotFound", err)
	}
}
