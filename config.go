package chainpost

import (
	"fmt"
	"os"
	"strings"
	"time"
)

// SiteConfig holds all configuration for a chainpost site. It is built once
// at process start (see ConfigFromEnv) and passed into New; nothing reads the
// environment after that.
type SiteConfig struct {
	Name        string // Site name (default "Chainpost")
	URL         string // Canonical URL (default "http://localhost:3000")
	Description string // Site description for RSS and meta tags

	Addr string // Listen address (default ":3000")
	Env  string // "production" suppresses storage detail in error responses

	DatabasePath    string // Local SQLite metadata store (default "data/posts.db")
	ContentDir      string // Markup body files (default "content")
	StaticDir       string // Public assets; uploads land in <StaticDir>/uploads (default "public")
	SubscribersPath string // Newsletter signup list (default "data/subscribers.json")

	// Remote metadata backends. At most one may be set; both set is a
	// startup error, never a silent priority pick.
	MongoURI      string // Document-database backend (empty = not configured)
	MongoDatabase string // Mongo database name (default "chainpost")
	PostgresDSN   string // Table-service backend (empty = not configured)

	RemoteTimeout time.Duration // Per-call bound on remote store operations (default 3s)
	PostCacheTTL  time.Duration // Listing cache TTL (default 5min)
}

func (c *SiteConfig) setDefaults() {
	if c.Name == "" {
		c.Name = "Chainpost"
	}
	if c.URL == "" {
		c.URL = "http://localhost:3000"
	}
	if c.Addr == "" {
		c.Addr = ":3000"
	}
	if c.DatabasePath == "" {
		c.DatabasePath = "data/posts.db"
	}
	if c.ContentDir == "" {
		c.ContentDir = "content"
	}
	if c.StaticDir == "" {
		c.StaticDir = "public"
	}
	if c.SubscribersPath == "" {
		c.SubscribersPath = "data/subscribers.json"
	}
	if c.MongoDatabase == "" {
		c.MongoDatabase = "chainpost"
	}
	if c.RemoteTimeout == 0 {
		c.RemoteTimeout = 3 * time.Second
	}
	if c.PostCacheTTL == 0 {
		c.PostCacheTTL = 5 * time.Minute
	}
}

func (c *SiteConfig) validate() error {
	if c.MongoURI != "" && c.PostgresDSN != "" {
		return fmt.Errorf("chainpost: MONGODB_URI and POSTGRES_DSN are both set; only one remote backend may be configured")
	}
	return nil
}

// Production reports whether client-facing error detail should be suppressed.
func (c *SiteConfig) Production() bool {
	return strings.EqualFold(c.Env, "production")
}

// ConfigFromEnv builds a SiteConfig from environment variables. Unset values
// fall back to defaults inside New.
func ConfigFromEnv() SiteConfig {
	return SiteConfig{
		Name:            os.Getenv("SITE_NAME"),
		URL:             strings.TrimSuffix(os.Getenv("SITE_URL"), "/"),
		Description:     os.Getenv("SITE_DESCRIPTION"),
		Addr:            os.Getenv("LISTEN_ADDR"),
		Env:             os.Getenv("ENV"),
		DatabasePath:    os.Getenv("DATABASE_PATH"),
		ContentDir:      os.Getenv("CONTENT_DIR"),
		StaticDir:       os.Getenv("STATIC_DIR"),
		SubscribersPath: os.Getenv("SUBSCRIBERS_PATH"),
		MongoURI:        os.Getenv("MONGODB_URI"),
		MongoDatabase:   os.Getenv("MONGODB_DATABASE"),
		PostgresDSN:     os.Getenv("POSTGRES_DSN"),
	}
}
