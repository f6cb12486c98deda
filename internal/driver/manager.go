package driver

import (
	"fmt"
	"io"
	"sync"

	"github.com/rs/zerolog/log"

	"localization-helpers/internal/config"
)

// Manager resolves named drivers from the options and caches them.
type Manager struct {
	opts *config.Options
	deps Deps

	mu        sync.Mutex
	factories map[string]Factory
	drivers   map[string]Driver
}

// NewManager creates a Manager with the built-in driver kinds registered.
func NewManager(opts *config.Options, deps Deps) *Manager {
	m := &Manager{
		opts:      opts,
		deps:      deps,
		factories: make(map[string]Factory),
		drivers:   make(map[string]Driver),
	}
	m.Extend("local", NewLocal)
	m.Extend("onesky", NewOneSky)
	m.Extend("postgres", NewPostgres)
	m.Extend("redis", NewRedis)
	m.Extend("machine", NewMachine)
	return m
}

// DefaultDriver returns the name of the default driver.
func (m *Manager) DefaultDriver() string {
	return m.opts.DefaultDriver
}

// Driver returns the named driver, resolving it on first use. An empty name
// selects the default driver.
func (m *Manager) Driver(name string) (Driver, error) {
	if name == "" {
		name = m.DefaultDriver()
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if d, ok := m.drivers[name]; ok {
		return d, nil
	}
	d, err := m.resolve(name)
	if err != nil {
		return nil, err
	}
	m.drivers[name] = d
	return d, nil
}

func (m *Manager) resolve(name string) (Driver, error) {
	cfg, ok := m.opts.Drivers[name]
	if !ok || cfg.Kind == "" {
		return nil, fmt.Errorf("Driver [%s] does not have a configuration.", name)
	}

	factory, ok := m.factories[cfg.Kind]
	if !ok {
		return nil, fmt.Errorf("Driver [%s] is not supported.", cfg.Kind)
	}

	cfg = m.withDefaults(cfg.ExpandEnv())
	d, err := factory(name, cfg, m.deps)
	if err != nil {
		return nil, err
	}
	log.Debug().Str("driver", name).Str("kind", cfg.Kind).Msg("Resolved driver")
	return d, nil
}

func (m *Manager) withDefaults(cfg config.DriverConfig) config.DriverConfig {
	if cfg.ImportPath == "" {
		cfg.ImportPath = m.opts.ImportPath
	}
	if cfg.ExportPath == "" {
		cfg.ExportPath = m.opts.ExportPath
	}
	if cfg.SourceLocale == "" && m.deps.Env != nil {
		cfg.SourceLocale = m.deps.Env.Locale
	}
	return cfg
}

// Set stores a ready driver instance under name.
func (m *Manager) Set(name string, d Driver) {
	m.mu.Lock()
	m.drivers[name] = d
	m.mu.Unlock()
}

// Extend registers a factory for a driver kind, replacing a built-in one.
func (m *Manager) Extend(kind string, f Factory) {
	m.mu.Lock()
	m.factories[kind] = f
	m.mu.Unlock()
}

// Configure edits the configuration of a named driver and forgets any cached
// instance so the next Driver call resolves it again. An empty name selects
// the default driver.
func (m *Manager) Configure(name string, edit func(cfg *config.DriverConfig)) {
	if name == "" {
		name = m.DefaultDriver()
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.opts.Drivers == nil {
		m.opts.Drivers = make(map[string]config.DriverConfig)
	}
	cfg := m.opts.Drivers[name]
	edit(&cfg)
	m.opts.Drivers[name] = cfg
	delete(m.drivers, name)
}

// Forget drops resolved drivers from the cache.
func (m *Manager) Forget(names ...string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, name := range names {
		delete(m.drivers, name)
	}
}

// Purge closes the named driver (the default one when name is empty) and
// removes it from the cache.
func (m *Manager) Purge(name string) error {
	if name == "" {
		name = m.DefaultDriver()
	}

	m.mu.Lock()
	d, ok := m.drivers[name]
	delete(m.drivers, name)
	m.mu.Unlock()

	if c, isCloser := d.(io.Closer); ok && isCloser {
		if err := c.Close(); err != nil {
			return fmt.Errorf("close driver %s: %w", name, err)
		}
	}
	return nil
}

// Close purges every resolved driver.
func (m *Manager) Close() error {
	m.mu.Lock()
	names := make([]string, 0, len(m.drivers))
	for name := range m.drivers {
		names = append(names, name)
	}
	m.mu.Unlock()

	var firstErr error
	for _, name := range names {
		if err := m.Purge(name); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
