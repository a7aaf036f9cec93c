package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestSaveLoadFile_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")

	cfg := Default()
	cfg.Generation.LLMProvider = ProviderOpenAI
	cfg.Generation.Model = "gpt-4o-mini"
	cfg.Jobs = []JobConfig{{
		Name:     "nightly-reviews",
		Schedule: "0 3 * * *",
		Input:    "https://example.com",
		Platform: "review",
		Tone:     "positive",
		Count:    2,
	}}
	if err := cfg.SaveFile(path); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, err := LoadFile(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got.Generation.LLMProvider != ProviderOpenAI || got.Generation.Model != "gpt-4o-mini" {
		t.Fatalf("generation=%+v", got.Generation)
	}
	if len(got.Jobs) != 1 || got.Jobs[0].Count != 2 || got.Jobs[0].Platform != "review" {
		t.Fatalf("jobs=%+v", got.Jobs)
	}
	if err := got.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
}

func TestLoadFile_PartialKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("[logging]\nlevel = \"debug\"\n"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	got, err := LoadFile(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got.Logging.Level != "debug" {
		t.Fatalf("level=%q", got.Logging.Level)
	}
	if got.Resolver.TimeoutMS != 3000 || got.Resolver.Attempts != 3 {
		t.Fatalf("resolver defaults lost: %+v", got.Resolver)
	}
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
		ok     bool
	}{
		{"defaults", func(*Config) {}, true},
		{"bad provider", func(c *Config) { c.Generation.LLMProvider = "cohere" }, false},
		{"no providers", func(c *Config) { c.Resolver.Providers = nil }, false},
		{"browser only", func(c *Config) { c.Resolver.Providers = nil; c.Resolver.UseBrowser = true }, true},
		{"zero attempts", func(c *Config) { c.Resolver.Attempts = 0 }, false},
		{"max chars above bound", func(c *Config) { c.Resolver.MaxChars = 1001 }, false},
		{"max chars zero", func(c *Config) { c.Resolver.MaxChars = 0 }, false},
		{"max chars lowered", func(c *Config) { c.Resolver.MaxChars = 400 }, true},
		{"job without schedule", func(c *Config) { c.Jobs = []JobConfig{{Name: "x"}} }, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(cfg)
			err := cfg.Validate()
			if tc.ok && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !tc.ok && err == nil {
				t.Fatalf("expected error")
			}
		})
	}
}

func TestApplyEnv_ProviderKey(t *testing.T) {
	t.Setenv("PROOFSHOT_API_KEY", "")
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("PROOFSHOT_LOG_LEVEL", "warn")

	cfg := Default()
	cfg.Generation.LLMProvider = ProviderOpenAI
	cfg.ApplyEnv()

	if cfg.Generation.APIKey != "sk-test" {
		t.Fatalf("api key=%q", cfg.Generation.APIKey)
	}
	if cfg.Logging.Level != "warn" {
		t.Fatalf("level=%q", cfg.Logging.Level)
	}
}
