// Package chainpost is a content-driven blog publishing service built with Go
// and Echo. Posts live in a local embedded metadata store plus flat markdown
// body files; an optional remote backend (MongoDB or Postgres) is preferred
// for reads and mirrored on writes, with silent fallback to the local copy
// whenever the remote is unavailable.
package chainpost

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	_ "modernc.org/sqlite"
)

// App is the central chainpost application. It wires together the stores, the
// repository facade, the publication pipeline, the renderer, and the HTTP
// surface.
type App struct {
	Config      SiteConfig
	Echo        *echo.Echo
	Local       *LocalStore
	Remote      MetadataStore // nil when no remote backend is configured
	Repo        *Repository
	Cache       *PostCache
	Publisher   *Publisher
	Renderer    *ContentRenderer
	Subscribers *SubscriberStore

	limiter *WriteLimiter
	uploads *UploadStore
}

// New creates a chainpost App with the given configuration. Backend selection
// happens exactly once here, from explicit configuration; nothing re-detects
// backends per request.
func New(cfg SiteConfig) (*App, error) {
	cfg.setDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	local, err := NewLocalStore(cfg.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("chainpost: init local store: %w", err)
	}

	remote, err := OpenRemoteStore(context.Background(), cfg)
	if err != nil {
		local.Close()
		return nil, fmt.Errorf("chainpost: init remote store: %w", err)
	}

	content := NewContentStore(cfg.ContentDir)
	uploads := NewUploadStore(cfg.StaticDir)
	repo := NewRepository(local, remote)

	a := &App{
		Config:      cfg,
		Echo:        echo.New(),
		Local:       local,
		Remote:      remote,
		Repo:        repo,
		Cache:       NewPostCache(repo, cfg.PostCacheTTL),
		Publisher:   NewPublisher(local, remote, content, uploads),
		Renderer:    NewContentRenderer(content),
		Subscribers: NewSubscriberStore(cfg.SubscribersPath),
		limiter:     NewWriteLimiter(30, time.Minute),
		uploads:     uploads,
	}
	a.setupMiddleware()
	a.setupRoutes()
	return a, nil
}

// Start runs the HTTP server until it is shut down.
func (a *App) Start() error {
	if err := a.Echo.Start(a.Config.Addr); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Close cleans up resources. Call this when the app is shutting down.
func (a *App) Close() error {
	if a.limiter != nil {
		a.limiter.Close()
	}
	if a.Local != nil {
		a.Local.Close()
	}
	if a.Remote != nil {
		a.Remote.Close()
	}
	return nil
}

func (a *App) setupMiddleware() {
	e := a.Echo

	e.IPExtractor = echo.ExtractIPFromXFFHeader(
		echo.TrustLoopback(true),
		echo.TrustLinkLocal(false),
		echo.TrustPrivateNet(true),
	)

	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus:  true,
		LogURI:     true,
		LogMethod:  true,
		LogLatency: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			c.Logger().Infof("%s %s -> %d (%s)", v.Method, v.URI, v.Status, v.Latency)
			return nil
		},
	}))

	e.Use(middleware.Recover())

	e.Use(middleware.BodyLimit("10M"))

	e.Use(middleware.SecureWithConfig(middleware.SecureConfig{
		XSSProtection:      "1; mode=block",
		ContentTypeNosniff: "nosniff",
		XFrameOptions:      "DENY",
		ReferrerPolicy:     "strict-origin-when-cross-origin",
		HSTSMaxAge:         31536000,
	}))

	e.Use(middleware.GzipWithConfig(middleware.GzipConfig{
		Level: 5,
		Skipper: func(c echo.Context) bool {
			return strings.HasPrefix(c.Request().URL.Path, "/uploads/") ||
				strings.HasPrefix(c.Request().URL.Path, "/public/")
		},
	}))

	e.Use(cacheControlMiddleware)
}

// cacheControlMiddleware sets Cache-Control headers based on the request path.
func cacheControlMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		path := c.Request().URL.Path
		switch {
		case strings.HasPrefix(path, "/uploads/") || strings.HasPrefix(path, "/public/"):
			c.Response().Header().Set("Cache-Control", "public, max-age=31536000, immutable")
		case path == "/sitemap.xml" || path == "/feed.xml" || path == "/robots.txt":
			c.Response().Header().Set("Cache-Control", "public, max-age=86400")
		default:
			c.Response().Header().Set("Cache-Control", "no-store")
		}
		return next(c)
	}
}

func (a *App) setupRoutes() {
	e := a.Echo

	e.Static("/public", a.Config.StaticDir)
	e.Static("/uploads", a.uploads.Dir())
	e.GET("/robots.txt", a.handleRobots)
	e.GET("/sitemap.xml", a.handleSitemap)
	e.GET("/feed.xml", a.handleFeed)

	e.GET("/api/posts", a.handleListPosts)
	e.GET("/api/posts/:slug", a.handleGetPost)
	e.POST("/api/admin/posts", a.handleCreatePost)
	e.POST("/api/newsletter", a.handleSubscribe)
}
