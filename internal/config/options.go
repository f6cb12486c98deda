package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"
)

// DefaultFile is the options file read when --config is not given.
const DefaultFile = "localization-helpers.yaml"

// Options mirrors the localization-helpers.yaml file.
type Options struct {
	Folders           []string                `yaml:"folders"`
	Extensions        []string                `yaml:"extensions"`
	IgnoreFiles       []string                `yaml:"ignore_files"`
	IgnoreLangFiles   []string                `yaml:"ignore_lang_files"`
	LangFolderPath    string                  `yaml:"lang_folder_path"`
	TransMethods      map[string][]string     `yaml:"trans_methods"`
	NeverObsoleteKeys []string                `yaml:"never_obsolete_keys"`
	DefaultLocaleOnly bool                    `yaml:"default_locale_only"`
	AskForValue       bool                    `yaml:"ask_for_value"`
	ArrayShorthand    *bool                   `yaml:"array_shorthand"`
	ImportPath        string                  `yaml:"import_path"`
	ExportPath        string                  `yaml:"export_path"`
	DefaultDriver     string                  `yaml:"default_driver"`
	Drivers           map[string]DriverConfig `yaml:"drivers"`
}

// DriverOptions holds format specific settings of the local driver.
type DriverOptions struct {
	Delimiter string `yaml:"delimiter"`
	Enclosure string `yaml:"enclosure"`
	Escape    string `yaml:"escape"`
	Pretty    bool   `yaml:"pretty"`
}

// DriverConfig configures one named driver. Kind selects the implementation.
type DriverConfig struct {
	Kind         string            `yaml:"driver"`
	Format       string            `yaml:"format"`
	ImportPath   string            `yaml:"import_path"`
	ExportPath   string            `yaml:"export_path"`
	Options      DriverOptions     `yaml:"options"`
	ProjectID    string            `yaml:"project_id"`
	APIKey       string            `yaml:"api_key"`
	Secret       string            `yaml:"secret"`
	BaseURL      string            `yaml:"base_url"`
	Locales      map[string]string `yaml:"locales"`
	DSN          string            `yaml:"dsn"`
	Table        string            `yaml:"table"`
	URL          string            `yaml:"url"`
	Prefix       string            `yaml:"prefix"`
	TTL          int               `yaml:"ttl"`
	Model        string            `yaml:"model"`
	SourceLocale string            `yaml:"source_locale"`
	BatchSize    int               `yaml:"batch_size"`
	CacheURL     string            `yaml:"cache_url"`
}

// DefaultTransMethods are the patterns used when the options file defines none.
// Capture group 1 holds the quoted lemma.
func DefaultTransMethods() map[string][]string {
	call := func(name string, withArgs bool) []string {
		tail := `\s*(,.*)*\)`
		if !withArgs {
			tail = `\s*,.*\)`
		}
		return []string{
			`(?U)` + name + `\(\s*('.*')` + tail,
			`(?U)` + name + `\(\s*(".*")` + tail,
		}
	}
	return map[string][]string{
		"trans":        call(`\btrans`, true),
		"__":           call(`\b__`, true),
		"Lang::get":    call(`Lang::[gG]et`, true),
		"trans_choice": call(`\btrans_choice`, false),
		"Lang::choice": call(`Lang::choice`, false),
		"@lang":        call(`@lang`, true),
		"@choice":      call(`@choice`, false),
	}
}

// Defaults returns the built-in options.
func Defaults() *Options {
	shorthand := true
	return &Options{
		Folders:           []string{"%BASE/resources/views", "%APP/Http/Controllers"},
		Extensions:        []string{".php"},
		IgnoreLangFiles:   []string{"validation"},
		TransMethods:      DefaultTransMethods(),
		NeverObsoleteKeys: []string{"dynamic", "fields"},
		ArrayShorthand:    &shorthand,
		ImportPath:        "%STORAGE/localization/import",
		ExportPath:        "%STORAGE/localization/export",
		DefaultDriver:     "local",
		Drivers: map[string]DriverConfig{
			"local": {
				Kind:       "local",
				Format:     "csv",
				ImportPath: "%STORAGE/localization/import",
				ExportPath: "%STORAGE/localization/export",
				Options:    DriverOptions{Delimiter: ",", Enclosure: `"`, Escape: `\`},
			},
			"onesky": {
				Kind:      "onesky",
				ProjectID: "${ONESKY_PROJECT_ID}",
				APIKey:    "${ONESKY_API_KEY}",
				Secret:    "${ONESKY_SECRET}",
			},
		},
	}
}

// Load reads the options file from fs. A missing file yields the defaults; a
// file overrides the defaults key by key.
func Load(fs afero.Fs, path string) (*Options, error) {
	opts := Defaults()
	explicit := path != ""
	if !explicit {
		path = DefaultFile
	}

	data, err := afero.ReadFile(fs, path)
	if errors.Is(err, os.ErrNotExist) && !explicit {
		log.Debug().Str("path", path).Msg("No options file found, using defaults")
		return opts, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read options file: %w", err)
	}

	var file Options
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse options file %s: %w", path, err)
	}
	opts.merge(&file)
	return opts, nil
}

func (o *Options) merge(f *Options) {
	if f.Folders != nil {
		o.Folders = f.Folders
	}
	if f.Extensions != nil {
		o.Extensions = f.Extensions
	}
	if f.IgnoreFiles != nil {
		o.IgnoreFiles = f.IgnoreFiles
	}
	if f.IgnoreLangFiles != nil {
		o.IgnoreLangFiles = f.IgnoreLangFiles
	}
	if f.LangFolderPath != "" {
		o.LangFolderPath = f.LangFolderPath
	}
	if f.TransMethods != nil {
		o.TransMethods = f.TransMethods
	}
	if f.NeverObsoleteKeys != nil {
		o.NeverObsoleteKeys = f.NeverObsoleteKeys
	}
	o.DefaultLocaleOnly = f.DefaultLocaleOnly
	o.AskForValue = f.AskForValue
	if f.ArrayShorthand != nil {
		o.ArrayShorthand = f.ArrayShorthand
	}
	if f.ImportPath != "" {
		o.ImportPath = f.ImportPath
	}
	if f.ExportPath != "" {
		o.ExportPath = f.ExportPath
	}
	if f.DefaultDriver != "" {
		o.DefaultDriver = f.DefaultDriver
	}
	for name, d := range f.Drivers {
		o.Drivers[name] = d
	}
}

// Shorthand reports whether language files use the [] array syntax.
func (o *Options) Shorthand() bool {
	return o.ArrayShorthand == nil || *o.ArrayShorthand
}

// Paths resolves the %APP, %BASE, %PUBLIC and %STORAGE keywords.
type Paths struct {
	env *Env
	fs  afero.Fs
}

// NewPaths creates a resolver over env.
func NewPaths(fs afero.Fs, env *Env) *Paths {
	return &Paths{env: env, fs: fs}
}

// Resolve replaces the path keywords in p.
func (p *Paths) Resolve(path string) string {
	r := strings.NewReplacer(
		"%APP", p.env.AppPath,
		"%BASE", p.env.BasePath,
		"%PUBLIC", p.env.PublicPath,
		"%STORAGE", p.env.StoragePath,
	)
	return filepath.Clean(r.Replace(path))
}

// ResolveAll resolves every path.
func (p *Paths) ResolveAll(paths []string) []string {
	out := make([]string, len(paths))
	for i, path := range paths {
		out[i] = p.Resolve(path)
	}
	return out
}

// Short returns path relative to the base path when it lies below it.
func (p *Paths) Short(path string) string {
	rel, err := filepath.Rel(p.env.BasePath, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return path
	}
	return rel
}

// LangPath returns the language root: the configured folder, or the first
// existing of %BASE/lang, %BASE/resources/lang and %APP/lang.
func (p *Paths) LangPath(configured string) (string, error) {
	if configured != "" {
		dir := p.Resolve(configured)
		if p.isDir(dir) {
			return dir, nil
		}
		return "", fmt.Errorf("no lang folder found in your custom path: %q", dir)
	}

	candidates := p.ResolveAll([]string{"%BASE/lang", "%BASE/resources/lang", "%APP/lang"})
	for _, dir := range candidates {
		if p.isDir(dir) {
			return dir, nil
		}
	}
	return "", fmt.Errorf("no lang folder found in these paths: %s", strings.Join(candidates, ", "))
}

func (p *Paths) isDir(path string) bool {
	ok, err := afero.IsDir(p.fs, path)
	return err == nil && ok
}

// ExpandEnv replaces ${NAME} references in the driver settings with values from
// the environment.
func (d DriverConfig) ExpandEnv() DriverConfig {
	expand := func(s string) string {
		return os.Expand(s, os.Getenv)
	}
	d.ProjectID = expand(d.ProjectID)
	d.APIKey = expand(d.APIKey)
	d.Secret = expand(d.Secret)
	d.BaseURL = expand(d.BaseURL)
	d.DSN = expand(d.DSN)
	d.URL = expand(d.URL)
	d.CacheURL = expand(d.CacheURL)
	return d
}
