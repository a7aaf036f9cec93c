package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/ibeckermayer/proofshot/internal/config"
)

// LLMExchange represents a prompt/response pair for caching
type LLMExchange struct {
	Timestamp time.Time `json:"timestamp"`
	Provider  string    `json:"provider"` // e.g. "anthropic"
	Model     string    `json:"model"`
	System    string    `json:"system,omitempty"`
	Prompt    string    `json:"prompt"`
	Response  string    `json:"response"`
	Error     string    `json:"error,omitempty"`
}

// ExchangeCache writes LLM exchanges to a directory, one JSON file each
type ExchangeCache struct {
	dir string
}

// NewExchangeCache creates a cache rooted at dir
func NewExchangeCache(dir string) *ExchangeCache {
	return &ExchangeCache{dir: dir}
}

// DefaultExchangeCache returns the cache under the user cache directory.
// On macOS this is ~/Library/Caches/proofshot/llm/
func DefaultExchangeCache() (*ExchangeCache, error) {
	cacheDir, err := config.CacheDir()
	if err != nil {
		return nil, err
	}
	return NewExchangeCache(filepath.Join(cacheDir, "llm")), nil
}

// Dir returns the cache directory
func (c *ExchangeCache) Dir() string { return c.dir }

// Save serializes an exchange to a timestamped file and returns its path
func (c *ExchangeCache) Save(exchange LLMExchange) (string, error) {
	if err := os.MkdirAll(c.dir, 0755); err != nil {
		return "", err
	}

	if exchange.Timestamp.IsZero() {
		exchange.Timestamp = time.Now()
	}

	// Dashes instead of colons for filesystem compatibility; the suffix keeps
	// exchanges from the same second apart
	filename := fmt.Sprintf("%s-%s.json",
		exchange.Timestamp.Format("2006-01-02T15-04-05"), uuid.NewString()[:8])
	path := filepath.Join(c.dir, filename)

	data, err := json.MarshalIndent(exchange, "", "  ")
	if err != nil {
		return "", err
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", err
	}

	return path, nil
}
