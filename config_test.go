package chainpost

import (
	"path/filepath"
	"testing"
)

func TestConfigDefaults(t *testing.T) {
	var cfg SiteConfig
	cfg.setDefaults()
	if cfg.Addr != ":3000" {
		t.Errorf("Addr = %q, want :3000", cfg.Addr)
	}
	if cfg.RemoteTimeout <= 0 || cfg.PostCacheTTL <= 0 {
		t.Errorf("timeouts not defaulted: %v %v", cfg.RemoteTimeout, cfg.PostCacheTTL)
	}
}

func TestConfigRejectsTwoRemoteBackends(t *testing.T) {
	dir := t.TempDir()
	_, err := New(SiteConfig{
		DatabasePath: filepath.Join(dir, "posts.db"),
		MongoURI:     "mongodb://localhost:27017",
		PostgresDSN:  "postgres://localhost:5432/chainpost",
	})
	if err == nil {
		t.Fatal("New with two remote backends configured should fail at startup")
	}
}

func TestProductionFlag(t *testing.T) {
	cfg := SiteConfig{Env: "Production"}
	if !cfg.Production() {
		t.Error("Production should be case-insensitive")
	}
	empty := SiteConfig{}
	if empty.Production() {
		t.Error("empty Env is not production")
	}
}
