package chainpost

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/jpeg"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

type publishFixture struct {
	publisher *Publisher
	local     *LocalStore
	content   *ContentStore
	uploadDir string
}

func setupPublisher(t *testing.T, remote MetadataStore) *publishFixture {
	t.Helper()
	local := setupLocalStore(t)
	content := NewContentStore(filepath.Join(t.TempDir(), "content"))
	staticDir := t.TempDir()
	uploads := NewUploadStore(staticDir)

	p := NewPublisher(local, remote, content, uploads)
	p.now = func() time.Time {
		return time.Date(2025, 11, 5, 10, 0, 0, 0, time.UTC)
	}
	return &publishFixture{
		publisher: p,
		local:     local,
		content:   content,
		uploadDir: filepath.Join(staticDir, "uploads"),
	}
}

func validInput() PostInput {
	return PostInput{
		Title:    "Test",
		Slug:     "Test Post!",
		Excerpt:  "e",
		Author:   "A",
		Category: "Markets",
		Content:  "body",
	}
}

func TestCreatePost(t *testing.T) {
	f := setupPublisher(t, nil)
	ctx := context.Background()

	post, err := f.publisher.CreatePost(ctx, validInput(), nil)
	if err != nil {
		t.Fatalf("CreatePost failed: %v", err)
	}
	if post.Slug != "test-post" {
		t.Errorf("Slug = %q, want test-post", post.Slug)
	}
	if post.Date != "Nov 5, 2025" {
		t.Errorf("Date = %q, want Nov 5, 2025", post.Date)
	}
	if post.ContentPath != "content/test-post.md" {
		t.Errorf("ContentPath = %q, want content/test-post.md", post.ContentPath)
	}

	stored, err := f.local.FindBySlug(ctx, "test-post")
	if err != nil {
		t.Fatalf("FindBySlug after create failed: %v", err)
	}
	if stored.Title != "Test" || stored.Category != "Markets" {
		t.Errorf("stored post = %+v", stored)
	}

	raw, err := f.content.Read(post.ContentPath)
	if err != nil {
		t.Fatalf("Read body failed: %v", err)
	}
	text := string(raw)
	if !strings.HasPrefix(text, "---\n") {
		t.Error("body should begin with a header block")
	}
	for _, want := range []string{`title: "Test"`, `category: "Markets"`} {
		if !strings.Contains(text, want) {
			t.Errorf("header missing %q", want)
		}
	}
	if !strings.HasSuffix(text, "body\n") {
		t.Errorf("body should end with the submitted content, got %q", text)
	}
}

func TestCreatePostDuplicate(t *testing.T) {
	f := setupPublisher(t, nil)
	ctx := context.Background()

	if _, err := f.publisher.CreatePost(ctx, validInput(), nil); err != nil {
		t.Fatalf("first CreatePost failed: %v", err)
	}
	before, _ := f.content.Count()

	_, err := f.publisher.CreatePost(ctx, validInput(), nil)
	if !errors.Is(err, ErrDuplicateSlug) {
		t.Fatalf("second CreatePost = %v, want ErrDuplicateSlug", err)
	}
	after, _ := f.content.Count()
	if after != before {
		t.Errorf("duplicate rejection must not write a body: count %d -> %d", before, after)
	}

	// Normalized-equal slugs collide too.
	in := validInput()
	in.Slug = "  TEST   post "
	if _, err := f.publisher.CreatePost(ctx, in, nil); !errors.Is(err, ErrDuplicateSlug) {
		t.Errorf("normalized-equal slug = %v, want ErrDuplicateSlug", err)
	}
}

func TestCreatePostMissingField(t *testing.T) {
	f := setupPublisher(t, nil)
	ctx := context.Background()

	in := validInput()
	in.Title = ""
	_, err := f.publisher.CreatePost(ctx, in, nil)
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("CreatePost = %v, want ValidationError", err)
	}
	if verr.Field != "title" {
		t.Errorf("Field = %q, want title", verr.Field)
	}

	// No side effects: nothing written anywhere.
	if n, _ := f.content.Count(); n != 0 {
		t.Errorf("content count = %d, want 0", n)
	}
	posts, _ := f.local.ListAll(ctx)
	if len(posts) != 0 {
		t.Errorf("local store has %d posts, want 0", len(posts))
	}
}

func TestCreatePostInvalidSlug(t *testing.T) {
	f := setupPublisher(t, nil)

	in := validInput()
	in.Slug = "!!!"
	if _, err := f.publisher.CreatePost(context.Background(), in, nil); !errors.Is(err, ErrInvalidSlug) {
		t.Errorf("CreatePost = %v, want ErrInvalidSlug", err)
	}
	if n, _ := f.content.Count(); n != 0 {
		t.Errorf("content count = %d, want 0", n)
	}
}

func TestCreatePostWithImage(t *testing.T) {
	f := setupPublisher(t, nil)

	in := validInput()
	in.Slug = "my-post"
	img := &ImageUpload{Filename: "photo.jpg", Data: encodeTestJPEG(t, 100, 60)}

	post, err := f.publisher.CreatePost(context.Background(), in, img)
	if err != nil {
		t.Fatalf("CreatePost failed: %v", err)
	}
	if post.Image != "/uploads/my-post.jpg" {
		t.Errorf("Image = %q, want /uploads/my-post.jpg", post.Image)
	}
	if _, err := os.Stat(filepath.Join(f.uploadDir, "my-post.jpg")); err != nil {
		t.Errorf("uploaded image not on disk: %v", err)
	}

	raw, _ := f.content.Read(post.ContentPath)
	if !strings.Contains(string(raw), `image: "/uploads/my-post.jpg"`) {
		t.Errorf("header missing image reference:\n%s", raw)
	}
}

func TestCreatePostImageDefaultExtension(t *testing.T) {
	f := setupPublisher(t, nil)

	in := validInput()
	in.Slug = "no-ext"
	img := &ImageUpload{Filename: "pasted", Data: []byte("not really an image")}

	post, err := f.publisher.CreatePost(context.Background(), in, img)
	if err != nil {
		t.Fatalf("CreatePost failed: %v", err)
	}
	if post.Image != "/uploads/no-ext.png" {
		t.Errorf("Image = %q, want /uploads/no-ext.png", post.Image)
	}
}

func TestCreatePostMirrorsToRemote(t *testing.T) {
	remote := &stubStore{}
	f := setupPublisher(t, remote)

	if _, err := f.publisher.CreatePost(context.Background(), validInput(), nil); err != nil {
		t.Fatalf("CreatePost failed: %v", err)
	}
	if len(remote.posts) != 1 || remote.posts[0].Slug != "test-post" {
		t.Errorf("remote mirror = %+v, want the created post", remote.posts)
	}
}

func TestCreatePostRemoteFailureIsNonFatal(t *testing.T) {
	f := setupPublisher(t, &stubStore{fail: true})
	ctx := context.Background()

	// Both the advisory duplicate check and the mirror fail; the create
	// still succeeds on the local copy.
	post, err := f.publisher.CreatePost(ctx, validInput(), nil)
	if err != nil {
		t.Fatalf("CreatePost with failing remote = %v, want success", err)
	}
	if _, err := f.local.FindBySlug(ctx, post.Slug); err != nil {
		t.Errorf("local copy missing after create: %v", err)
	}
}

func TestCreatePostRemoteDuplicate(t *testing.T) {
	remote := &stubStore{posts: []Post{storedPost("test-post", time.Now())}}
	f := setupPublisher(t, remote)

	if _, err := f.publisher.CreatePost(context.Background(), validInput(), nil); !errors.Is(err, ErrDuplicateSlug) {
		t.Errorf("CreatePost = %v, want ErrDuplicateSlug from remote check", err)
	}
	if n, _ := f.content.Count(); n != 0 {
		t.Errorf("content count = %d, want 0", n)
	}
}

func TestCreatePostContentWriteError(t *testing.T) {
	f := setupPublisher(t, nil)
	ctx := context.Background()

	// A regular file where the content directory should be makes the body
	// write fail before any metadata is touched.
	if err := os.WriteFile(f.content.dir, []byte("in the way"), 0o644); err != nil {
		t.Fatalf("plant blocking file: %v", err)
	}

	_, err := f.publisher.CreatePost(ctx, validInput(), nil)
	var werr *ContentWriteError
	if !errors.As(err, &werr) {
		t.Fatalf("CreatePost = %v, want *ContentWriteError", err)
	}
	if !strings.Contains(werr.Path, "test-post.md") {
		t.Errorf("Path = %q, want the body file path", werr.Path)
	}
	posts, _ := f.local.ListAll(ctx)
	if len(posts) != 0 {
		t.Errorf("local store has %d posts after failed body write, want 0", len(posts))
	}
}

// insertFailStore behaves like its embedded store except that Insert always
// fails, simulating a local database write error after the body landed.
type insertFailStore struct {
	MetadataStore
}

func (s *insertFailStore) Insert(ctx context.Context, p Post) error {
	return errors.New("disk full")
}

func TestCreatePostMetadataWriteError(t *testing.T) {
	local := setupLocalStore(t)
	content := NewContentStore(filepath.Join(t.TempDir(), "content"))
	uploads := NewUploadStore(t.TempDir())
	p := NewPublisher(&insertFailStore{local}, nil, content, uploads)
	ctx := context.Background()

	_, err := p.CreatePost(ctx, validInput(), nil)
	var werr *MetadataWriteError
	if !errors.As(err, &werr) {
		t.Fatalf("CreatePost = %v, want *MetadataWriteError", err)
	}
	if werr.Slug != "test-post" {
		t.Errorf("Slug = %q, want test-post", werr.Slug)
	}
	if werr.BodyPath != "content/test-post.md" {
		t.Errorf("BodyPath = %q, want content/test-post.md", werr.BodyPath)
	}
	if !strings.Contains(werr.Error(), "content/test-post.md") {
		t.Errorf("message %q should name the orphaned body file", werr.Error())
	}

	// The body write happened before the insert failed; the orphan stays on
	// disk for the operator to reconcile.
	if n, _ := content.Count(); n != 1 {
		t.Errorf("content count = %d, want the orphaned body", n)
	}
}

func encodeTestJPEG(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, image.NewRGBA(image.Rect(0, 0, w, h)), nil); err != nil {
		t.Fatalf("encode test jpeg: %v", err)
	}
	return buf.Bytes()
}
