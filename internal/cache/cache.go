package cache

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"localization-helpers/internal/lemma"
	"localization-helpers/internal/textutil"
)

// Backend persists translation memory entries keyed by hash.
type Backend interface {
	Get(ctx context.Context, pair, hash string) (string, bool, error)
	Set(ctx context.Context, pair string, entries map[string]string) error
	All(ctx context.Context, pair string) (map[string]string, error)
}

// TranslationCache provides in-memory caching of machine translations, backed
// by an optional persistent Backend. Entries are scoped by language pair.
type TranslationCache struct {
	backend Backend
	mu      sync.RWMutex
	memory  map[string]map[string]string // pair → hash → translated text
}

// NewTranslationCache creates a cache. A nil backend keeps entries in memory only.
func NewTranslationCache(backend Backend) *TranslationCache {
	return &TranslationCache{
		backend: backend,
		memory:  make(map[string]map[string]string),
	}
}

func pairKey(source, target string) string {
	return source + ":" + target
}

// Get retrieves a cached translation. Returns empty string and false if not found.
func (c *TranslationCache) Get(ctx context.Context, source, target, text string) (string, bool) {
	pair, hash := pairKey(source, target), textutil.Hash(text)

	c.mu.RLock()
	v, ok := c.memory[pair][hash]
	c.mu.RUnlock()
	if ok {
		return v, true
	}
	if c.backend == nil {
		return "", false
	}

	translated, found, err := c.backend.Get(ctx, pair, hash)
	if err != nil {
		log.Warn().Err(err).Str("pair", pair).Msg("Translation memory lookup failed")
		return "", false
	}
	if !found {
		return "", false
	}

	c.remember(pair, map[string]string{hash: translated})
	return translated, true
}

// SetBatch stores source text → translation pairs in memory and in the backend.
func (c *TranslationCache) SetBatch(ctx context.Context, source, target string, pairs map[string]string) error {
	if len(pairs) == 0 {
		return nil
	}
	pair := pairKey(source, target)
	entries := make(map[string]string, len(pairs))
	for text, translated := range pairs {
		entries[textutil.Hash(text)] = translated
	}
	c.remember(pair, entries)

	if c.backend == nil {
		return nil
	}
	if err := c.backend.Set(ctx, pair, entries); err != nil {
		return fmt.Errorf("cache set: %w", err)
	}
	return nil
}

// Preload loads all cached translations of a language pair into memory.
func (c *TranslationCache) Preload(ctx context.Context, source, target string) error {
	if c.backend == nil {
		return nil
	}
	pair := pairKey(source, target)
	entries, err := c.backend.All(ctx, pair)
	if err != nil {
		return fmt.Errorf("preload cache: %w", err)
	}
	c.remember(pair, entries)

	log.Debug().Str("pair", pair).Int("count", len(entries)).Msg("Preloaded translation memory")
	return nil
}

func (c *TranslationCache) remember(pair string, entries map[string]string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	m, ok := c.memory[pair]
	if !ok {
		m = make(map[string]string, len(entries))
		c.memory[pair] = m
	}
	for hash, translated := range entries {
		m[hash] = translated
	}
}

// RedisBackend keeps one hash per language pair named <prefix>memory:<pair>.
type RedisBackend struct {
	client *redis.Client
	prefix string
}

// NewRedisBackend creates a backend over client.
func NewRedisBackend(client *redis.Client, prefix string) *RedisBackend {
	return &RedisBackend{client: client, prefix: prefix}
}

func (b *RedisBackend) key(pair string) string {
	return b.prefix + "memory:" + pair
}

// Get implements Backend.
func (b *RedisBackend) Get(ctx context.Context, pair, hash string) (string, bool, error) {
	v, err := b.client.HGet(ctx, b.key(pair), hash).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return v, true, nil
}

// Set implements Backend.
func (b *RedisBackend) Set(ctx context.Context, pair string, entries map[string]string) error {
	fields := make([]any, 0, len(entries)*2)
	for _, hash := range lemma.SortedKeys(entries) {
		fields = append(fields, hash, entries[hash])
	}
	return b.client.HSet(ctx, b.key(pair), fields...).Err()
}

// All implements Backend.
func (b *RedisBackend) All(ctx context.Context, pair string) (map[string]string, error) {
	return b.client.HGetAll(ctx, b.key(pair)).Result()
}

// Close closes the Redis client.
func (b *RedisBackend) Close() error {
	return b.client.Close()
}
