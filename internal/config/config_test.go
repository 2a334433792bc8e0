package config

import (
	"os"
	"testing"
)

// chdir is a stand-in for t.Chdir, which requires Go 1.24+.
func chdir(t *testing.T, dir string) {
	t.Helper()
	old, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		if err := os.Chdir(old); err != nil {
			t.Fatal(err)
		}
	})
}

func TestValidate_InvalidPort(t *testing.T) {
	cfg := Config{}
	cfg.ApplyDefaults()

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected error for invalid port")
	}
}

func TestValidate_InvalidCacheDriver(t *testing.T) {
	cfg := Config{
		HTTP:  HTTPConfig{Port: 8080},
		Cache: CacheConfig{Driver: "memcached"},
	}
	cfg.ApplyDefaults()

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected error for unknown cache driver")
	}

	expected := `cache.driver must be "redis" or "memory", got "memcached"`
	if err.Error() != expected {
		t.Errorf("unexpected error message:\ngot:  %q\nwant: %q", err.Error(), expected)
	}
}

func TestValidate_RedisRequiresAddrs(t *testing.T) {
	cfg := Config{
		HTTP:  HTTPConfig{Port: 8080},
		Cache: CacheConfig{Driver: "redis"},
	}
	cfg.ApplyDefaults()

	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for missing redis addrs")
	}
}

func TestValidate_MemoryNeedsNoAddrs(t *testing.T) {
	cfg := Config{
		HTTP:  HTTPConfig{Port: 8080},
		Cache: CacheConfig{Driver: "memory"},
	}
	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidate_BaseURLTrailingSlash(t *testing.T) {
	cfg := Config{
		HTTP:     HTTPConfig{Port: 8080},
		Upstream: UpstreamConfig{BaseURL: "https://pokeapi.co/api/v2"},
	}
	cfg.ApplyDefaults()

	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for base_url without trailing slash")
	}
}

func TestApplyDefaults(t *testing.T) {
	cfg := Config{}
	cfg.ApplyDefaults()

	if cfg.HTTP.ReadTimeoutSec != 10 {
		t.Errorf("expected ReadTimeoutSec=10, got %d", cfg.HTTP.ReadTimeoutSec)
	}
	if cfg.Cache.Driver != "memory" {
		t.Errorf("expected memory driver, got %q", cfg.Cache.Driver)
	}
	if cfg.Cache.TTLSec != 3600 {
		t.Errorf("expected TTLSec=3600, got %d", cfg.Cache.TTLSec)
	}
	if cfg.Upstream.BaseURL != "https://pokeapi.co/api/v2/" {
		t.Errorf("unexpected base url %q", cfg.Upstream.BaseURL)
	}
	if cfg.Recommender.Eps != 1.5 {
		t.Errorf("expected eps=1.5, got %v", cfg.Recommender.Eps)
	}
	if cfg.Recommender.MinSamples != 3 {
		t.Errorf("expected min_samples=3, got %d", cfg.Recommender.MinSamples)
	}
	if cfg.Recommender.DatasetLimit != 1025 {
		t.Errorf("expected dataset_limit=1025, got %d", cfg.Recommender.DatasetLimit)
	}
	if cfg.Recommender.MaxSearchResults != 50 {
		t.Errorf("expected max_search_results=50, got %d", cfg.Recommender.MaxSearchResults)
	}
}

func TestExpandEnvVars(t *testing.T) {
	t.Setenv("POKEDEX_TEST_VAR", "hello")

	got := string(expandEnvVars([]byte("a: ${POKEDEX_TEST_VAR}")))
	if got != "a: hello" {
		t.Errorf("expected substitution, got %q", got)
	}
}

func TestExpandEnvVars_Default(t *testing.T) {
	os.Unsetenv("POKEDEX_UNSET_VAR")

	got := string(expandEnvVars([]byte("a: ${POKEDEX_UNSET_VAR:-fallback}")))
	if got != "a: fallback" {
		t.Errorf("expected default value, got %q", got)
	}

	t.Setenv("POKEDEX_UNSET_VAR", "set")
	got = string(expandEnvVars([]byte("a: ${POKEDEX_UNSET_VAR:-fallback}")))
	if got != "a: set" {
		t.Errorf("expected env value over default, got %q", got)
	}
}

func TestLoad_FromFile(t *testing.T) {
	dir := t.TempDir()
	if err := os.Mkdir(dir+"/config", 0o755); err != nil {
		t.Fatal(err)
	}
	yaml := []byte(`
http:
  port: 9090
cache:
  driver: memory
upstream:
  base_url: https://pokeapi.co/api/v2/
`)
	if err := os.WriteFile(dir+"/config/test.yaml", yaml, 0o600); err != nil {
		t.Fatal(err)
	}
	chdir(t, dir)

	cfg, err := Load("test")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.HTTP.Port != 9090 {
		t.Errorf("expected port 9090, got %d", cfg.HTTP.Port)
	}
	// Defaults fill the rest.
	if cfg.Recommender.Eps != 1.5 {
		t.Errorf("expected default eps, got %v", cfg.Recommender.Eps)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	chdir(t, t.TempDir())

	if _, err := Load("nonexistent"); err == nil {
		t.Fatal("expected error for missing config file")
	}
}

func TestGetEnv(t *testing.T) {
	t.Setenv("ENV", "prod")
	if got := GetEnv(); got != "prod" {
		t.Errorf("expected prod, got %q", got)
	}

	os.Unsetenv("ENV")
	if got := GetEnv(); got != "local" {
		t.Errorf("expected local default, got %q", got)
	}
}
