package chainpost

import (
	"context"
	"log"
	"sync"
	"time"
)

// Publisher runs the publication pipeline: validation, slug normalization,
// duplicate checks, the body write, the authoritative local insert, and the
// best-effort remote mirror. A per-process mutex serializes the whole
// check-then-write sequence so two concurrent requests for the same slug
// cannot both pass the duplicate check.
type Publisher struct {
	mu      sync.Mutex
	local   MetadataStore
	remote  MetadataStore // nil when no remote backend is configured
	content *ContentStore
	uploads *UploadStore
	now     func() time.Time
}

// NewPublisher wires the pipeline's collaborators. remote may be nil.
func NewPublisher(local MetadataStore, remote MetadataStore, content *ContentStore, uploads *UploadStore) *Publisher {
	return &Publisher{
		local:   local,
		remote:  remote,
		content: content,
		uploads: uploads,
		now:     time.Now,
	}
}

// CreatePost turns a creation request into a persisted, readable post and
// returns the stored record. The two writes are deliberately non-atomic:
// phase 1 (body file, then local metadata) must succeed; phase 2 (remote
// mirror) is best-effort and never fails the request.
func (p *Publisher) CreatePost(ctx context.Context, in PostInput, img *ImageUpload) (Post, error) {
	if err := validateInput(in); err != nil {
		return Post{}, err
	}
	slug := Slugify(in.Slug)
	if slug == "" {
		return Post{}, ErrInvalidSlug
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.checkDuplicate(ctx, slug); err != nil {
		return Post{}, err
	}

	now := p.now().UTC()
	post := Post{
		Slug:        slug,
		Title:       in.Title,
		Excerpt:     in.Excerpt,
		Author:      in.Author,
		Category:    in.Category,
		Date:        now.Format(displayDateFormat),
		PublishedAt: now,
		ContentPath: p.content.PathFor(slug),
		Featured:    in.Featured,
	}

	if img != nil {
		ref, err := p.uploads.Save(slug, img.Filename, img.Data)
		if err != nil {
			return Post{}, err
		}
		post.Image = ref
	}

	// Body first. A post is never considered persisted unless its body
	// write succeeded; metadata follows only after.
	if err := p.content.Write(post, in.Content); err != nil {
		return Post{}, err
	}
	if err := p.local.Insert(ctx, post); err != nil {
		return Post{}, &MetadataWriteError{Slug: slug, BodyPath: post.ContentPath, Err: err}
	}

	if p.remote != nil {
		if err := p.remote.Insert(ctx, post); err != nil {
			log.Printf("publish: %s mirror for %q failed, local copy is authoritative: %v", p.remote.Name(), slug, err)
		}
	}
	return post, nil
}

// checkDuplicate queries the body file namespace and the local store, plus
// the remote store when configured. The remote check is advisory: if the
// remote is unreachable the pipeline proceeds on the local answer alone.
func (p *Publisher) checkDuplicate(ctx context.Context, slug string) error {
	if p.content.Exists(slug) {
		return ErrDuplicateSlug
	}
	exists, err := p.local.ExistsBySlug(ctx, slug)
	if err != nil {
		return err
	}
	if exists {
		return ErrDuplicateSlug
	}
	if p.remote != nil {
		exists, err := p.remote.ExistsBySlug(ctx, slug)
		if err != nil {
			log.Printf("publish: %s duplicate check for %q failed, continuing on local answer: %v", p.remote.Name(), slug, err)
		} else if exists {
			return ErrDuplicateSlug
		}
	}
	return nil
}

func validateInput(in PostInput) error {
	required := []struct {
		name  string
		value string
	}{
		{"title", in.Title},
		{"slug", in.Slug},
		{"excerpt", in.Excerpt},
		{"author", in.Author},
		{"category", in.Category},
		{"content", in.Content},
	}
	for _, f := range required {
		if f.value == "" {
			return &ValidationError{Field: f.name}
		}
	}
	return nil
}
