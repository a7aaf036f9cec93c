package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// LLM provider names
const (
	ProviderAnthropic = "anthropic"
	ProviderOpenAI    = "openai"
)

// maxDescriptionChars bounds the text context handed to generation
const maxDescriptionChars = 1000

// Config holds all application configuration
type Config struct {
	Version    int              `toml:"version"`
	Resolver   ResolverConfig   `toml:"resolver"`
	Generation GenerationConfig `toml:"generation"`
	Export     ExportConfig     `toml:"export"`
	Store      StoreConfig      `toml:"store"`
	Server     ServerConfig     `toml:"server"`
	Logging    LoggingConfig    `toml:"logging"`
	Timezone   string           `toml:"timezone"` // for job schedules
	Jobs       []JobConfig      `toml:"jobs"`
}

type ResolverConfig struct {
	Providers   []string `toml:"providers"`
	Attempts    int      `toml:"attempts"`
	BackoffMS   int      `toml:"backoff_ms"`
	TimeoutMS   int      `toml:"timeout_ms"`
	MaxChars    int      `toml:"max_chars"`
	UseBrowser  bool     `toml:"use_browser"`
	BrowserPath string   `toml:"browser_path"`
}

type GenerationConfig struct {
	LLMProvider      string  `toml:"llm_provider"`
	APIKey           string  `toml:"api_key"`
	Model            string  `toml:"model"`
	BaseURL          string  `toml:"base_url"`
	Temperature      float64 `toml:"temperature"`
	PresencePenalty  float64 `toml:"presence_penalty"`
	FrequencyPenalty float64 `toml:"frequency_penalty"`
	CacheExchanges   bool    `toml:"cache_exchanges"`
}

type ExportConfig struct {
	Headless   bool    `toml:"headless"`
	SettleMS   int     `toml:"settle_ms"`
	PixelRatio float64 `toml:"pixel_ratio"`
	PaddingPX  float64 `toml:"padding_px"`
	OutputDir  string  `toml:"output_dir"`
}

type StoreConfig struct {
	Path string `toml:"path"`
}

type ServerConfig struct {
	Addr string `toml:"addr"`
}

type LoggingConfig struct {
	Level string `toml:"level"`
}

// JobConfig is a recurring generation run
type JobConfig struct {
	Name     string         `toml:"name"`
	Schedule string         `toml:"schedule"`
	Input    string         `toml:"input"`
	Platform string         `toml:"platform"`
	Tone     string         `toml:"tone"`
	Count    int            `toml:"count"`
	Metrics  map[string]any `toml:"metrics,omitempty"`
}

// Default returns a Config with sensible defaults
func Default() *Config {
	return &Config{
		Version: 1,
		Resolver: ResolverConfig{
			Providers: []string{"direct", "allorigins", "corsproxy", "codetabs"},
			Attempts:  3,
			BackoffMS: 1000,
			TimeoutMS: 3000,
			MaxChars:  1000,
		},
		Generation: GenerationConfig{
			LLMProvider:      ProviderAnthropic,
			Model:            "claude-sonnet-4-20250514",
			Temperature:      0.9,
			PresencePenalty:  0.6,
			FrequencyPenalty: 0.6,
			CacheExchanges:   true,
		},
		Export: ExportConfig{
			Headless:   true,
			SettleMS:   500,
			PixelRatio: 2,
			PaddingPX:  20,
		},
		Server: ServerConfig{
			Addr: "127.0.0.1:8787",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
		Timezone: "Local",
	}
}

// Validate checks values that would otherwise fail deep inside the pipeline
func (c *Config) Validate() error {
	switch c.Generation.LLMProvider {
	case ProviderAnthropic, ProviderOpenAI:
	default:
		return fmt.Errorf("unknown LLM provider: %s", c.Generation.LLMProvider)
	}
	if len(c.Resolver.Providers) == 0 && !c.Resolver.UseBrowser {
		return errors.New("resolver needs at least one provider")
	}
	if c.Resolver.Attempts < 1 {
		return errors.New("resolver.attempts must be >= 1")
	}
	if c.Resolver.TimeoutMS <= 0 || c.Resolver.BackoffMS < 0 {
		return errors.New("resolver timeouts must be positive")
	}
	if c.Resolver.MaxChars < 1 || c.Resolver.MaxChars > maxDescriptionChars {
		return fmt.Errorf("resolver.max_chars must be between 1 and %d", maxDescriptionChars)
	}
	if c.Export.PixelRatio <= 0 {
		return errors.New("export.pixel_ratio must be > 0")
	}
	for _, j := range c.Jobs {
		if j.Name == "" || j.Schedule == "" {
			return errors.New("every job needs a name and a schedule")
		}
	}
	return nil
}

// ApplyEnv loads .env (if present) and lets the environment override secrets
func (c *Config) ApplyEnv() {
	_ = godotenv.Load()

	if key := os.Getenv("PROOFSHOT_API_KEY"); key != "" {
		c.Generation.APIKey = key
	} else if c.Generation.APIKey == "" {
		switch c.Generation.LLMProvider {
		case ProviderAnthropic:
			c.Generation.APIKey = os.Getenv("ANTHROPIC_API_KEY")
		case ProviderOpenAI:
			c.Generation.APIKey = os.Getenv("OPENAI_API_KEY")
		}
	}
	if lvl := os.Getenv("PROOFSHOT_LOG_LEVEL"); lvl != "" {
		c.Logging.Level = lvl
	}
	if addr := os.Getenv("PROOFSHOT_ADDR"); addr != "" {
		c.Server.Addr = addr
	}
}

// ConfigDir returns the platform-appropriate config directory
func ConfigDir() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, "proofshot"), nil
}

// CacheDir returns the platform-appropriate cache directory
func CacheDir() (string, error) {
	cacheDir, err := os.UserCacheDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(cacheDir, "proofshot"), nil
}

// ConfigPath returns the full path to the config file
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// StorePath resolves the SQLite file, defaulting into the config dir
func (c *Config) StorePath() (string, error) {
	if c.Store.Path != "" {
		return c.Store.Path, nil
	}
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "artifacts.db"), nil
}

// OutputDir resolves where exported files are written
func (c *Config) OutputDir() (string, error) {
	if c.Export.OutputDir != "" {
		return c.Export.OutputDir, nil
	}
	dir, err := CacheDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "exports"), nil
}

// Load reads config from disk
func Load() (*Config, error) {
	path, err := ConfigPath()
	if err != nil {
		return nil, err
	}
	return LoadFile(path)
}

// LoadFile reads config from path on top of the defaults
func LoadFile(path string) (*Config, error) {
	cfg := Default()
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadOrDefault loads the config, writing defaults on first run
func LoadOrDefault() (*Config, error) {
	cfg, err := Load()
	if err == nil {
		return cfg, nil
	}
	if !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	cfg = Default()
	if err := cfg.Save(); err != nil {
		return nil, fmt.Errorf("failed to save default config: %w", err)
	}
	return cfg, nil
}

// Save writes config to disk
func (c *Config) Save() error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	return c.SaveFile(path)
}

// SaveFile writes config to path
func (c *Config) SaveFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return err
	}
	defer f.Close()

	encoder := toml.NewEncoder(f)
	return encoder.Encode(c)
}
