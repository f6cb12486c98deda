package langfile

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"

	"localization-helpers/internal/lemma"
)

// Store reads and writes <root>/<locale>/<group>.php files.
type Store struct {
	fs        afero.Fs
	root      string
	shorthand bool
}

// NewStore creates a Store rooted at the language directory.
func NewStore(fs afero.Fs, root string, shorthand bool) *Store {
	return &Store{fs: fs, root: root, shorthand: shorthand}
}

// Root returns the language directory.
func (s *Store) Root() string { return s.root }

// Path returns the file path of a locale group.
func (s *Store) Path(locale, group string) string {
	return filepath.Join(s.root, locale, group+".php")
}

// Load returns the translations of a group. A missing file is an empty group.
func (s *Store) Load(locale, group string) (lemma.Tree, error) {
	return s.LoadFile(s.Path(locale, group))
}

// LoadFile parses the language file at path.
func (s *Store) LoadFile(path string) (lemma.Tree, error) {
	data, err := afero.ReadFile(s.fs, path)
	if errors.Is(err, os.ErrNotExist) {
		return lemma.Tree{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read language file %s: %w", path, err)
	}
	tree, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return tree, nil
}

// Values returns the group's values flattened with the group name as prefix
// and surrounding whitespace trimmed.
func (s *Store) Values(locale, group string) (lemma.Flat, error) {
	tree, err := s.Load(locale, group)
	if err != nil {
		return nil, err
	}
	out := make(lemma.Flat)
	for k, v := range lemma.Dot(tree) {
		out[group+"."+k] = strings.TrimSpace(v)
	}
	return out, nil
}

// Save writes the group, creating the locale directory when needed.
func (s *Store) Save(locale, group string, tree lemma.Tree) error {
	return s.WriteFile(s.Path(locale, group), Dump(tree, s.shorthand))
}

// WriteFile writes rendered content to path, creating parent directories.
func (s *Store) WriteFile(path string, content []byte) error {
	if err := s.fs.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create language directory: %w", err)
	}
	if err := afero.WriteFile(s.fs, path, content, 0o644); err != nil {
		return fmt.Errorf("write language file %s: %w", path, err)
	}
	return nil
}

// Merge sets imported keys into the existing group and saves it. Keys may carry
// the group name as prefix.
func (s *Store) Merge(locale, group string, values lemma.Flat) error {
	tree, err := s.Load(locale, group)
	if err != nil {
		return err
	}
	prefix := group + "."
	for _, key := range lemma.SortedKeys(values) {
		lemma.Set(tree, lemma.EncodeKey(strings.TrimPrefix(key, prefix)), values[key])
	}
	if err := s.Save(locale, group, tree); err != nil {
		return err
	}
	log.Debug().Str("locale", locale).Str("group", group).Int("keys", len(values)).Msg("Merged translations")
	return nil
}

// Locales lists the locale directories under the root.
func (s *Store) Locales() ([]string, error) {
	entries, err := afero.ReadDir(s.fs, s.root)
	if err != nil {
		return nil, fmt.Errorf("list locales: %w", err)
	}
	var locales []string
	for _, e := range entries {
		if e.IsDir() {
			locales = append(locales, e.Name())
		}
	}
	sort.Strings(locales)
	return locales, nil
}

// Backup renames an existing language file to <name>.<YYYYMMDD_HHMMSS>.php and
// returns the new path. A missing file is not backed up.
func (s *Store) Backup(path string, now time.Time) (string, error) {
	if ok, _ := afero.Exists(s.fs, path); !ok {
		return "", nil
	}
	base := strings.TrimSuffix(path, filepath.Ext(path))
	backup := base + "." + now.Format("20060102_150405") + ".php"
	if err := s.fs.Rename(path, backup); err != nil {
		return "", fmt.Errorf("backup language file: %w", err)
	}
	return backup, nil
}
