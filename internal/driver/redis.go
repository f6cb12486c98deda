package driver

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"localization-helpers/internal/config"
	"localization-helpers/internal/langfile"
	"localization-helpers/internal/lemma"
)

const defaultRedisPrefix = "localization:"

// Redis keeps each group in a hash named <prefix><locale>:<group>.
type Redis struct {
	name     string
	client   *redis.Client
	prefix   string
	ttl      time.Duration
	store    *langfile.Store
	messages *Messages
}

// NewRedis connects to cfg.URL.
func NewRedis(name string, cfg config.DriverConfig, deps Deps) (Driver, error) {
	if cfg.URL == "" {
		return nil, &DriverError{Message: fmt.Sprintf("Driver [%s] requires a url", name)}
	}
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, &DriverError{Message: "Parse Redis URL", Cause: err}
	}
	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, &DriverError{Message: "Ping Redis", Cause: err}
	}
	log.Info().Msg("Connected to Redis")

	return NewRedisFromClient(name, client, cfg.TTL, cfg.Prefix, deps), nil
}

// NewRedisFromClient creates the driver over an existing client. A ttl of zero
// or less keeps keys forever.
func NewRedisFromClient(name string, client *redis.Client, ttlSeconds int, prefix string, deps Deps) *Redis {
	if prefix == "" {
		prefix = defaultRedisPrefix
	}
	var ttl time.Duration
	if ttlSeconds > 0 {
		ttl = time.Duration(ttlSeconds) * time.Second
	}
	return &Redis{
		name:     name,
		client:   client,
		prefix:   prefix,
		ttl:      ttl,
		store:    deps.Store,
		messages: NewMessages(),
	}
}

// Messages implements Driver.
func (r *Redis) Messages() *Messages { return r.messages }

func (r *Redis) key(locale, group string) string {
	return r.prefix + locale + ":" + group
}

// Put writes each group hash, replacing its previous content.
func (r *Redis) Put(ctx context.Context, locale string, groups []string) error {
	for _, group := range groups {
		values, err := GroupValues(r.store, locale, group)
		if err != nil {
			return err
		}
		if len(values) == 0 {
			r.messages.AddError("Group [%s] has no translations for [%s]", group, locale)
			continue
		}

		key := r.key(locale, group)
		fields := make([]any, 0, 2*len(values))
		for _, k := range lemma.SortedKeys(values) {
			fields = append(fields, k, values[k])
		}

		pipe := r.client.TxPipeline()
		pipe.Del(ctx, key)
		pipe.HSet(ctx, key, fields...)
		if r.ttl > 0 {
			pipe.Expire(ctx, key, r.ttl)
		}
		if _, err := pipe.Exec(ctx); err != nil {
			return &DriverError{Message: fmt.Sprintf("Cannot store group [%s]", group), Cause: err}
		}
		r.messages.Add("Group [%s] stored in [%s]", group, key)
	}
	return nil
}

// Get reads each group hash and merges it into the language files.
func (r *Redis) Get(ctx context.Context, locale string, groups []string) error {
	for _, group := range groups {
		key := r.key(locale, group)
		values, err := r.client.HGetAll(ctx, key).Result()
		if err != nil {
			return &DriverError{Message: fmt.Sprintf("Cannot load group [%s]", group), Cause: err}
		}
		if len(values) == 0 {
			r.messages.AddError("Key [%s] not found", key)
			continue
		}
		if err := r.store.Merge(locale, group, values); err != nil {
			return &DriverError{Message: fmt.Sprintf("Cannot write group [%s]", group), Cause: err}
		}
		r.messages.Add("Group [%s] imported successfully", group)
	}
	return nil
}

// Close closes the Redis connection.
func (r *Redis) Close() error {
	return r.client.Close()
}
