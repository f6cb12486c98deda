package driver

import (
	"context"
	"fmt"
	"sync"

	"github.com/spf13/afero"

	"localization-helpers/internal/config"
	"localization-helpers/internal/langfile"
	"localization-helpers/internal/lemma"
)

// Driver moves translation groups between the language files and an external
// location.
type Driver interface {
	// Put exports (uploads) the groups of a locale.
	Put(ctx context.Context, locale string, groups []string) error
	// Get imports (downloads) the groups of a locale into the language files.
	Get(ctx context.Context, locale string, groups []string) error
	// Messages returns the informational and error messages collected so far.
	Messages() *Messages
}

// Deps are the shared services handed to driver factories.
type Deps struct {
	Fs    afero.Fs
	Store *langfile.Store
	Paths *config.Paths
	Env   *config.Env
}

// Factory builds a driver from its configuration.
type Factory func(name string, cfg config.DriverConfig, deps Deps) (Driver, error)

// Message is a single entry of a Messages bag.
type Message struct {
	Text  string
	Error bool
}

// Messages collects driver output for the command to print.
type Messages struct {
	mu    sync.Mutex
	items []Message
}

// NewMessages creates an empty bag.
func NewMessages() *Messages {
	return &Messages{}
}

// Add records an informational message.
func (m *Messages) Add(format string, args ...any) {
	m.add(Message{Text: fmt.Sprintf(format, args...)})
}

// AddError records an error message.
func (m *Messages) AddError(format string, args ...any) {
	m.add(Message{Text: fmt.Sprintf(format, args...), Error: true})
}

func (m *Messages) add(msg Message) {
	m.mu.Lock()
	m.items = append(m.items, msg)
	m.mu.Unlock()
}

// All returns every message in insertion order.
func (m *Messages) All() []Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Message, len(m.items))
	copy(out, m.items)
	return out
}

// Infos returns the informational messages.
func (m *Messages) Infos() []string {
	return m.texts(false)
}

// Errors returns the error messages.
func (m *Messages) Errors() []string {
	return m.texts(true)
}

func (m *Messages) texts(errs bool) []string {
	var out []string
	for _, msg := range m.All() {
		if msg.Error == errs {
			out = append(out, msg.Text)
		}
	}
	return out
}

// HasErrors reports whether an error was recorded.
func (m *Messages) HasErrors() bool {
	return len(m.Errors()) > 0
}

// ErrorMessage returns the first error, or fallback when there is none.
func (m *Messages) ErrorMessage(fallback string) string {
	if errs := m.Errors(); len(errs) > 0 {
		return errs[0]
	}
	return fallback
}

// DriverError is a failure that aborts a driver operation.
type DriverError struct {
	Message string
	Cause   error
}

func (e *DriverError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *DriverError) Unwrap() error {
	return e.Cause
}

// GroupValues returns the group's dotted, trimmed values keyed with the group
// name as prefix.
func GroupValues(store *langfile.Store, locale, group string) (lemma.Flat, error) {
	values, err := store.Values(locale, group)
	if err != nil {
		return nil, &DriverError{Message: fmt.Sprintf("Cannot load group [%s]", group), Cause: err}
	}
	return values, nil
}

// flatten turns a decoded JSON object, flat or nested, into dotted keys.
func flatten(m map[string]any) lemma.Flat {
	return lemma.Dot(lemma.FromMap(m))
}

// remoteLocale maps a local locale through the configured locale table.
func remoteLocale(locales map[string]string, locale string) string {
	if remote, ok := locales[locale]; ok && remote != "" {
		return remote
	}
	return locale
}
