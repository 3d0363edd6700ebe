package chainpost

import (
	"context"
	"errors"
	"log"
)

// Repository serves every page read. It prefers the configured remote store
// and degrades to the always-available local store when the remote read
// fails: listing pages never hard-fail because a remote backend is down,
// they just serve the local copy. Both methods are pure reads.
type Repository struct {
	local  *LocalStore
	remote MetadataStore // nil when no remote backend is configured
}

// NewRepository wires the local store and the optional remote store chosen at
// startup. Backend selection never happens per request.
func NewRepository(local *LocalStore, remote MetadataStore) *Repository {
	return &Repository{local: local, remote: remote}
}

// OpenRemoteStore builds the remote metadata store named by cfg, or returns
// (nil, nil) when none is configured. cfg.validate has already rejected the
// case where both backends are set.
func OpenRemoteStore(ctx context.Context, cfg SiteConfig) (MetadataStore, error) {
	switch {
	case cfg.PostgresDSN != "":
		return NewTableStore(ctx, cfg.PostgresDSN, cfg.RemoteTimeout)
	case cfg.MongoURI != "":
		return NewDocumentStore(ctx, cfg.MongoURI, cfg.MongoDatabase, cfg.RemoteTimeout)
	}
	return nil, nil
}

// ListPosts returns all posts from the active backend. A remote failure is
// logged and answered from the local store instead of surfacing.
func (r *Repository) ListPosts(ctx context.Context) ([]Post, error) {
	if r.remote != nil {
		posts, err := r.remote.ListAll(ctx)
		if err == nil {
			return posts, nil
		}
		log.Printf("repository: %s list failed, falling back to local: %v", r.remote.Name(), err)
	}
	return r.local.ListAll(ctx)
}

// GetPostBySlug returns a single post by slug. Remote failures fall back to
// the local store; a remote "not found" is also retried locally, since every
// write lands locally while the remote mirror is only best-effort.
func (r *Repository) GetPostBySlug(ctx context.Context, slug string) (Post, error) {
	if r.remote != nil {
		post, err := r.remote.FindBySlug(ctx, slug)
		if err == nil {
			return post, nil
		}
		if !errors.Is(err, ErrNotFound) {
			log.Printf("repository: %s find %q failed, falling back to local: %v", r.remote.Name(), slug, err)
		}
	}
	return r.local.FindBySlug(ctx, slug)
}
