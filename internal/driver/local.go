package driver

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"

	"localization-helpers/internal/config"
	"localization-helpers/internal/csvfile"
	"localization-helpers/internal/langfile"
	"localization-helpers/internal/lemma"
)

// Local exports to and imports from CSV or JSON files on disk.
type Local struct {
	name       string
	fs         afero.Fs
	store      *langfile.Store
	format     string
	importPath string
	exportPath string
	dialect    csvfile.Dialect
	pretty     bool
	messages   *Messages
}

// NewLocal creates a local file driver.
func NewLocal(name string, cfg config.DriverConfig, deps Deps) (Driver, error) {
	format := strings.ToLower(cfg.Format)
	if format == "" {
		format = "csv"
	}
	if format != "csv" && format != "json" {
		return nil, &DriverError{Message: fmt.Sprintf("[%s] is not a valid export format.", cfg.Format)}
	}

	dialect, err := csvfile.ParseDialect(cfg.Options.Delimiter, cfg.Options.Enclosure, cfg.Options.Escape)
	if err != nil {
		return nil, &DriverError{Message: "Invalid CSV options", Cause: err}
	}

	resolve := func(p string) string {
		if deps.Paths != nil {
			return deps.Paths.Resolve(p)
		}
		return p
	}

	return &Local{
		name:       name,
		fs:         deps.Fs,
		store:      deps.Store,
		format:     format,
		importPath: resolve(cfg.ImportPath),
		exportPath: resolve(cfg.ExportPath),
		dialect:    dialect,
		pretty:     cfg.Options.Pretty,
		messages:   NewMessages(),
	}, nil
}

// Messages implements Driver.
func (l *Local) Messages() *Messages { return l.messages }

// Put writes <export_path>/<group>.<format> for every group.
func (l *Local) Put(ctx context.Context, locale string, groups []string) error {
	if err := l.fs.MkdirAll(l.exportPath, 0o755); err != nil {
		return &DriverError{Message: fmt.Sprintf("Cannot create export folder [%s]", l.exportPath), Cause: err}
	}

	for _, group := range groups {
		if err := ctx.Err(); err != nil {
			return err
		}
		values, err := GroupValues(l.store, locale, group)
		if err != nil {
			return err
		}

		var content []byte
		switch l.format {
		case "json":
			content, err = l.encodeJSON(values)
		default:
			content, err = l.encodeCSV(values)
		}
		if err != nil {
			return err
		}

		path := filepath.Join(l.exportPath, group+"."+l.format)
		if err := afero.WriteFile(l.fs, path, content, 0o644); err != nil {
			return &DriverError{Message: fmt.Sprintf("Can't open the export file [%s]", path), Cause: err}
		}
		log.Debug().Str("file", path).Int("keys", len(values)).Msg("Exported group")
	}

	l.messages.Add("Successfully exported to [%s]", l.exportPath)
	return nil
}

// Get reads <import_path>/<group>.<format> and merges it into the language files.
func (l *Local) Get(ctx context.Context, locale string, groups []string) error {
	for _, group := range groups {
		if err := ctx.Err(); err != nil {
			return err
		}

		name := group + "." + l.format
		data, err := afero.ReadFile(l.fs, filepath.Join(l.importPath, name))
		if errors.Is(err, os.ErrNotExist) {
			return &DriverError{Message: fmt.Sprintf("Import file [%s] not found", name)}
		}
		if err != nil {
			return &DriverError{Message: fmt.Sprintf("Can't open the import file [%s]", name), Cause: err}
		}

		var values lemma.Flat
		switch l.format {
		case "json":
			values, err = decodeJSON(data)
		default:
			values, err = l.decodeCSV(data)
		}
		if err != nil {
			return err
		}

		if err := l.store.Merge(locale, group, values); err != nil {
			return &DriverError{Message: fmt.Sprintf("Cannot write group [%s]", group), Cause: err}
		}
	}

	l.messages.Add("Successfully imported from [%s]", l.importPath)
	return nil
}

func (l *Local) encodeCSV(values lemma.Flat) ([]byte, error) {
	var buf bytes.Buffer
	w := csvfile.NewWriter(&buf, l.dialect)
	for _, key := range lemma.SortedKeys(values) {
		if err := w.Write([]string{key, values[key]}); err != nil {
			return nil, &DriverError{Message: "CSV encoding failed", Cause: err}
		}
	}
	if err := w.Flush(); err != nil {
		return nil, &DriverError{Message: "CSV encoding failed", Cause: err}
	}
	return buf.Bytes(), nil
}

func (l *Local) decodeCSV(data []byte) (lemma.Flat, error) {
	r := csvfile.NewReader(bytes.NewReader(data), l.dialect)
	values := make(lemma.Flat)
	for {
		record, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, &DriverError{Message: "CSV decoding failed", Cause: err}
		}
		if len(record) < 2 || record[0] == "" {
			continue
		}
		values[record[0]] = strings.TrimSpace(record[1])
	}
	return values, nil
}

func (l *Local) encodeJSON(values lemma.Flat) ([]byte, error) {
	var (
		data []byte
		err  error
	)
	if l.pretty {
		data, err = json.MarshalIndent(values, "", "    ")
	} else {
		data, err = json.Marshal(values)
	}
	if err != nil {
		return nil, &DriverError{Message: "JSON encoding failed", Cause: err}
	}
	return data, nil
}

func decodeJSON(data []byte) (lemma.Flat, error) {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, &DriverError{Message: "JSON decoding failed", Cause: err}
	}
	return flatten(raw), nil
}
