package filewalker

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/gobwas/glob"
	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"
)

// DefaultExtensions lists the source file types scanned when none are configured.
var DefaultExtensions = []string{".php"}

// Walker traverses source folders and collects files to scan for lemmas.
type Walker struct {
	fs         afero.Fs
	extensions []string
	ignore     []glob.Glob
}

// NewWalker creates a Walker. Ignore patterns are globs matched against the
// slash-separated file path.
func NewWalker(fsys afero.Fs, extensions []string, ignore []string) (*Walker, error) {
	if len(extensions) == 0 {
		extensions = DefaultExtensions
	}
	w := &Walker{fs: fsys}
	for _, ext := range extensions {
		w.extensions = append(w.extensions, strings.ToLower(ext))
	}
	for _, pattern := range ignore {
		g, err := glob.Compile(pattern, '/')
		if err != nil {
			return nil, fmt.Errorf("compile ignore pattern %q: %w", pattern, err)
		}
		w.ignore = append(w.ignore, g)
	}
	return w, nil
}

// Walk returns every matching file below the given folders, sorted. Folders
// that do not exist are skipped.
func (w *Walker) Walk(folders []string) ([]string, error) {
	var files []string

	for _, root := range folders {
		info, err := w.fs.Stat(root)
		if errors.Is(err, os.ErrNotExist) {
			log.Debug().Str("folder", root).Msg("Folder does not exist")
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("stat folder: %w", err)
		}
		if !info.IsDir() {
			return nil, fmt.Errorf("not a directory: %s", root)
		}

		err = afero.Walk(w.fs, root, func(path string, info fs.FileInfo, err error) error {
			if err != nil {
				log.Warn().Err(err).Str("path", path).Msg("Error walking path")
				return nil
			}
			if info.IsDir() || !w.accepts(path) {
				return nil
			}
			files = append(files, path)
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("walk directory: %w", err)
		}
	}

	sort.Strings(files)
	files = compact(files)
	log.Debug().Int("count", len(files)).Strs("folders", folders).Msg("Discovered source files")
	return files, nil
}

func (w *Walker) accepts(path string) bool {
	lower := strings.ToLower(path)
	matched := false
	for _, ext := range w.extensions {
		if strings.HasSuffix(lower, ext) {
			matched = true
			break
		}
	}
	if !matched {
		return false
	}
	slashed := filepath.ToSlash(path)
	for _, g := range w.ignore {
		if g.Match(slashed) {
			return false
		}
	}
	return true
}

// compact removes adjacent duplicates from a sorted slice.
func compact(files []string) []string {
	out := files[:0]
	for i, f := range files {
		if i > 0 && files[i-1] == f {
			continue
		}
		out = append(out, f)
	}
	return out
}
