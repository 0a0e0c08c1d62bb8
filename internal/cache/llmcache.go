// Package cache persists model analysis responses on disk so repeated
// analyses of an unchanged document skip the model call.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"os"
	"path/filepath"
	"time"
)

// LLMCache stores raw model responses keyed by a digest of model name and
// prompt. A zero Dir disables every operation with an error.
type LLMCache struct {
	Dir string
	// StrictPerms enforces 0700 on the cache directory and 0600 on files.
	StrictPerms bool
}

// KeyFrom builds the cache key for one model call.
func KeyFrom(model, prompt string) string {
	h := sha256.Sum256([]byte(model + "\n\n" + prompt))
	return hex.EncodeToString(h[:])
}

func (c *LLMCache) ensureDir() error {
	if c == nil || c.Dir == "" {
		return errors.New("cache dir not configured")
	}
	perm := os.FileMode(0o755)
	if c.StrictPerms {
		perm = 0o700
	}
	if err := os.MkdirAll(c.Dir, perm); err != nil {
		return err
	}
	if c.StrictPerms {
		if info, err := os.Stat(c.Dir); err == nil && info.Mode()&0o777 != 0o700 {
			_ = os.Chmod(c.Dir, 0o700)
		}
	}
	return nil
}

func (c *LLMCache) pathFor(key string) string {
	return filepath.Join(c.Dir, key+".json")
}

// Get returns the cached response if present. A read failure is treated as
// a miss. The file mtime is refreshed on hit so an external sweeper can
// evict least-recently-used entries.
func (c *LLMCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	if err := c.ensureDir(); err != nil {
		return nil, false, err
	}
	p := c.pathFor(key)
	b, err := os.ReadFile(p)
	if err != nil {
		return nil, false, nil
	}
	now := time.Now()
	_ = os.Chtimes(p, now, now)
	return b, true, nil
}

// Save writes one response to the cache.
func (c *LLMCache) Save(_ context.Context, key string, data []byte) error {
	if err := c.ensureDir(); err != nil {
		return err
	}
	mode := os.FileMode(0o644)
	if c.StrictPerms {
		mode = 0o600
	}
	return os.WriteFile(c.pathFor(key), data, mode)
}
