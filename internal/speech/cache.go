package speech

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/hammamikhairi/mysteryhost/internal/domain"
	"github.com/hammamikhairi/mysteryhost/internal/logger"
)

// AudioCache keeps synthesized payloads (base64 PCM16) in memory and,
// optionally, on disk. The key covers the namespace (backend and model),
// voice, tone and text, so changing any of them misses.
//
//	diskWrite=true  -> reads from mem, then disk; writes to both.
//	diskWrite=false -> reads from mem, then disk; writes to mem only.
//
// Preset lines and alerts repeat every game, so a warm disk cache means
// they play without a network round trip.
type AudioCache struct {
	mu        sync.RWMutex
	entries   map[string]string // hash -> base64 payload
	log       *logger.Logger
	cacheDir  string
	diskWrite bool
	namespace string
	hits      int64
	misses    int64
}

// CacheOption configures the AudioCache.
type CacheOption func(*AudioCache)

// WithCacheNamespace separates entries per synthesis backend, so audio
// from one provider or model is never replayed for another.
func WithCacheNamespace(ns string) CacheOption {
	return func(c *AudioCache) {
		c.namespace = ns
	}
}

// NewAudioCache creates a cache. An empty cacheDir disables the disk layer.
func NewAudioCache(cacheDir string, diskWrite bool, log *logger.Logger, opts ...CacheOption) *AudioCache {
	c := &AudioCache{
		entries:   make(map[string]string),
		log:       log,
		cacheDir:  cacheDir,
		diskWrite: diskWrite,
	}
	for _, opt := range opts {
		opt(c)
	}

	if cacheDir != "" && diskWrite {
		if err := os.MkdirAll(cacheDir, 0o755); err != nil {
			log.Error("cache: failed to create cache dir %s: %v", cacheDir, err)
		}
	}
	return c
}

// Get returns the cached payload for req.
func (c *AudioCache) Get(req domain.SynthesisRequest) (string, bool) {
	key := c.hashKey(req)

	c.mu.RLock()
	data, ok := c.entries[key]
	c.mu.RUnlock()

	if ok {
		c.mu.Lock()
		c.hits++
		c.mu.Unlock()
		c.log.Debug("cache hit (mem): %s", truncate(req.Text, 40))
		return data, true
	}

	if c.cacheDir != "" {
		if diskData, diskOK := c.readDisk(key); diskOK {
			c.mu.Lock()
			c.entries[key] = diskData
			c.hits++
			c.mu.Unlock()
			c.log.Debug("cache hit (disk): %s", truncate(req.Text, 40))
			return diskData, true
		}
	}

	c.mu.Lock()
	c.misses++
	c.mu.Unlock()
	return "", false
}

// Put stores payload for req.
func (c *AudioCache) Put(req domain.SynthesisRequest, payload string) {
	key := c.hashKey(req)

	c.mu.Lock()
	c.entries[key] = payload
	size := len(c.entries)
	c.mu.Unlock()

	c.log.Debug("cache store (mem): %s (%d entries)", truncate(req.Text, 40), size)

	if c.cacheDir != "" && c.diskWrite {
		c.writeDisk(key, payload)
	}
}

// Delete drops the entry for req from memory and disk. Used when a cached
// payload turns out to be unplayable.
func (c *AudioCache) Delete(req domain.SynthesisRequest) {
	key := c.hashKey(req)

	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()

	if c.cacheDir == "" {
		return
	}
	if err := os.Remove(c.diskPath(key)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		c.log.Warn("cache: removing %s: %v", c.diskPath(key), err)
		return
	}
	c.log.Debug("cache evict: %s", truncate(req.Text, 40))
}

// Len returns the number of in-memory entries.
func (c *AudioCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Stats returns hit and miss counts.
func (c *AudioCache) Stats() (hits, misses int64) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.hits, c.misses
}

func (c *AudioCache) hashKey(req domain.SynthesisRequest) string {
	h := sha256.Sum256([]byte(c.namespace + ":" + req.Voice + ":" + req.InstructionText()))
	return hex.EncodeToString(h[:])
}

func (c *AudioCache) diskPath(key string) string {
	return filepath.Join(c.cacheDir, key+".b64")
}

func (c *AudioCache) readDisk(key string) (string, bool) {
	data, err := os.ReadFile(c.diskPath(key))
	if err != nil || len(data) == 0 {
		return "", false
	}
	return string(data), true
}

// writeDisk writes through a temp file and a rename, so readers never see
// a partial entry.
func (c *AudioCache) writeDisk(key, payload string) {
	path := c.diskPath(key)
	tmp, err := os.CreateTemp(c.cacheDir, key[:12]+"-*.tmp")
	if err != nil {
		c.log.Error("cache: disk write failed for %s: %v", path, err)
		return
	}
	_, err = tmp.WriteString(payload)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err == nil {
		err = os.Rename(tmp.Name(), path)
	}
	if err != nil {
		os.Remove(tmp.Name())
		c.log.Error("cache: disk write failed for %s: %v", path, err)
		return
	}
	c.log.Debug("cache store (disk): %s", key[:12])
}

// truncate shortens a string for logging without splitting a rune.
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}
