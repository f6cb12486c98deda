package driver

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"localization-helpers/internal/cache"
	"localization-helpers/internal/config"
	"localization-helpers/internal/interpolation"
	"localization-helpers/internal/langfile"
	"localization-helpers/internal/lemma"
	"localization-helpers/internal/textutil"
	"localization-helpers/internal/translation"
	"localization-helpers/internal/worker"
)

const defaultMachineBatch = 20

// Translator translates a batch of texts, preserving order.
type Translator interface {
	Translate(ctx context.Context, source, target string, texts []string) ([]string, error)
}

// Machine fills the missing strings of a locale by machine translation from
// the source locale.
type Machine struct {
	name       string
	source     string
	batchSize  int
	translator Translator
	store      *langfile.Store
	retry      RetryConfig
	memory     *cache.TranslationCache
	closer     func() error
	messages   *Messages
}

// NewMachine creates a machine translation driver backed by OpenAI.
func NewMachine(name string, cfg config.DriverConfig, deps Deps) (Driver, error) {
	apiKey := cfg.APIKey
	if apiKey == "" {
		apiKey = os.Getenv("OPENAI_API_KEY")
	}
	if apiKey == "" {
		return nil, &DriverError{Message: fmt.Sprintf("Driver [%s] requires an api_key", name)}
	}
	client := translation.NewClient(translation.Config{
		APIKey:  apiKey,
		Model:   cfg.Model,
		BaseURL: cfg.BaseURL,
	})
	m := NewMachineWithTranslator(name, cfg, client, deps)

	if cfg.CacheURL != "" {
		opts, err := redis.ParseURL(cfg.CacheURL)
		if err != nil {
			return nil, &DriverError{Message: "Parse cache URL", Cause: err}
		}
		rdb := redis.NewClient(opts)

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := rdb.Ping(ctx).Err(); err != nil {
			rdb.Close()
			return nil, &DriverError{Message: "Ping translation memory", Cause: err}
		}
		backend := cache.NewRedisBackend(rdb, cfg.Prefix)
		m.UseCache(cache.NewTranslationCache(backend), backend.Close)
		log.Info().Msg("Connected to translation memory")
	}
	return m, nil
}

// NewMachineWithTranslator creates the driver over an existing translator.
func NewMachineWithTranslator(name string, cfg config.DriverConfig, t Translator, deps Deps) *Machine {
	batch := cfg.BatchSize
	if batch <= 0 {
		batch = defaultMachineBatch
	}
	source := cfg.SourceLocale
	if source == "" {
		source = "en"
	}
	return &Machine{
		name:       name,
		source:     source,
		batchSize:  batch,
		translator: t,
		store:      deps.Store,
		retry:      DefaultRetryConfig(),
		memory:     cache.NewTranslationCache(nil),
		messages:   NewMessages(),
	}
}

// UseCache replaces the in-memory translation memory. closer, when set, is
// called by Close.
func (m *Machine) UseCache(c *cache.TranslationCache, closer func() error) {
	m.memory = c
	m.closer = closer
}

// Close releases the translation memory backend.
func (m *Machine) Close() error {
	if m.closer == nil {
		return nil
	}
	return m.closer()
}

// Messages implements Driver.
func (m *Machine) Messages() *Messages { return m.messages }

// Put is not supported: there is nothing to upload.
func (m *Machine) Put(ctx context.Context, locale string, groups []string) error {
	return &DriverError{Message: fmt.Sprintf("Driver [%s] does not support export.", m.name)}
}

// Get translates the source values missing or empty in locale and merges them.
func (m *Machine) Get(ctx context.Context, locale string, groups []string) error {
	if locale == m.source {
		return &DriverError{Message: fmt.Sprintf("Locale [%s] is the source locale", locale)}
	}

	for _, group := range groups {
		source, err := GroupValues(m.store, m.source, group)
		if err != nil {
			return err
		}
		target, err := GroupValues(m.store, locale, group)
		if err != nil {
			return err
		}

		var keys []string
		for _, key := range lemma.SortedKeys(source) {
			if target[key] == "" && source[key] != "" {
				keys = append(keys, key)
			}
		}
		if len(keys) == 0 {
			m.messages.Add("Group [%s] is already translated", group)
			continue
		}

		translated, failed := m.translate(ctx, locale, keys, source)
		if err := ctx.Err(); err != nil {
			return err
		}
		if failed > 0 {
			m.messages.AddError("Group [%s]: %d strings could not be translated", group, failed)
		}
		if len(translated) == 0 {
			continue
		}
		if err := m.store.Merge(locale, group, translated); err != nil {
			return &DriverError{Message: fmt.Sprintf("Cannot write group [%s]", group), Cause: err}
		}
		m.messages.Add("Group [%s]: %d strings translated", group, len(translated))
	}
	return nil
}

func (m *Machine) translate(ctx context.Context, locale string, keys []string, source lemma.Flat) (lemma.Flat, int) {
	out := make(lemma.Flat)
	failed := 0

	if err := m.memory.Preload(ctx, m.source, locale); err != nil {
		log.Warn().Err(err).Msg("Failed to preload translation memory")
	}

	texts := make(map[string]string, len(keys))
	mappings := make(map[string][]interpolation.Mapping, len(keys))
	var pending []string
	for _, key := range keys {
		texts[key], mappings[key] = interpolation.Protect(source[key])
		if cached, ok := m.memory.Get(ctx, m.source, locale, texts[key]); ok {
			out[key] = interpolation.Restore(cached, mappings[key])
			continue
		}
		pending = append(pending, key)
	}
	if hits := len(keys) - len(pending); hits > 0 {
		log.Debug().Int("hits", hits).Str("locale", locale).Msg("Reused translation memory")
	}

	for _, batch := range worker.Batch(pending, m.batchSize) {
		batchTexts := make([]string, len(batch))
		for i, key := range batch {
			batchTexts[i] = texts[key]
		}

		results, err := WithRetry(ctx, m.retry, func() ([]string, error) {
			res, err := m.translator.Translate(ctx, m.source, locale, batchTexts)
			if err != nil {
				return nil, &RemoteError{Message: "translate batch", Cause: err, Retryable: translation.IsRetryable(err)}
			}
			if len(res) != len(batchTexts) {
				return nil, &RemoteError{Message: fmt.Sprintf("expected %d translations, got %d", len(batchTexts), len(res)), Retryable: true}
			}
			return res, nil
		})
		if err != nil {
			log.Error().Err(err).Int("size", len(batch)).Msg("Batch translation failed")
			failed += len(batch)
			if ctx.Err() != nil {
				return out, failed
			}
			continue
		}

		learned := make(map[string]string, len(batch))
		for i, key := range batch {
			if lost := interpolation.Missing(results[i], mappings[key]); len(lost) > 0 {
				log.Warn().Str("key", key).Strs("placeholders", lost).Msg("Translation dropped placeholders, skipping")
				failed++
				continue
			}
			learned[texts[key]] = results[i]
			out[key] = interpolation.Restore(results[i], mappings[key])
			log.Debug().Str("key", key).Str("text", textutil.Truncate(out[key], 40)).Msg("Translated")
		}
		if err := m.memory.SetBatch(ctx, m.source, locale, learned); err != nil {
			log.Warn().Err(err).Msg("Failed to update translation memory")
		}
	}
	return out, failed
}
