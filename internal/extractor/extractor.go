// Package extractor finds translation-function calls in source files with
// configurable regular expressions.
package extractor

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"

	"localization-helpers/internal/lemma"
	"localization-helpers/internal/phpstr"
	"localization-helpers/internal/worker"
)

type method struct {
	name    string
	pattern *regexp.Regexp
}

// Extractor applies the configured translation-method patterns to files.
type Extractor struct {
	fs      afero.Fs
	methods []method
	workers int
}

// New compiles the patterns of every translation method. Capture group 1 of
// each pattern must hold the quoted lemma.
func New(fs afero.Fs, methods map[string][]string, workers int) (*Extractor, error) {
	names := make([]string, 0, len(methods))
	for name := range methods {
		names = append(names, name)
	}
	sort.Strings(names)

	e := &Extractor{fs: fs, workers: workers}
	for _, name := range names {
		for _, expr := range methods[name] {
			re, err := regexp.Compile(expr)
			if err != nil {
				return nil, fmt.Errorf("compile pattern for %s: %w", name, err)
			}
			if re.NumSubexp() < 1 {
				return nil, fmt.Errorf("pattern for %s has no capture group: %s", name, expr)
			}
			e.methods = append(e.methods, method{name: name, pattern: re})
		}
	}
	if len(e.methods) == 0 {
		return nil, fmt.Errorf("no translation methods configured")
	}
	return e, nil
}

// Methods returns the configured method names.
func (e *Extractor) Methods() []string {
	var names []string
	for _, m := range e.methods {
		if len(names) == 0 || names[len(names)-1] != m.name {
			names = append(names, m.name)
		}
	}
	return names
}

// Extract scans content and returns every lemma found. Literals containing "$"
// (dynamic lemmas) or "::" (package lemmas) are discarded, as are captures that
// are not a single string literal.
func (e *Extractor) Extract(filePath string, content string) *ExtractResult {
	result := &ExtractResult{FilePath: filePath}

	for _, m := range e.methods {
		for _, loc := range m.pattern.FindAllStringSubmatchIndex(content, -1) {
			if loc[2] < 0 {
				continue
			}
			raw := content[loc[2]:loc[3]]
			if strings.Contains(raw, "$") || strings.Contains(raw, "::") {
				result.Skipped++
				continue
			}

			key, err := phpstr.Unquote(raw)
			if err != nil {
				log.Debug().Str("file", filePath).Str("literal", raw).Msg("Skipping non-literal lemma")
				result.Skipped++
				continue
			}

			result.Lemmas = append(result.Lemmas, ExtractedLemma{
				Key:    key,
				File:   filePath,
				Line:   1 + strings.Count(content[:loc[0]], "\n"),
				Method: m.name,
			})
		}
	}

	return result
}

// ExtractFile reads and scans a single file.
func (e *Extractor) ExtractFile(filePath string) (*ExtractResult, error) {
	data, err := afero.ReadFile(e.fs, filePath)
	if err != nil {
		return nil, fmt.Errorf("read source file: %w", err)
	}
	return e.Extract(filePath, string(data)), nil
}

// Scan extracts all files through the worker pool and merges the results. When
// a lemma appears in several files the last file in input order wins.
func (e *Extractor) Scan(ctx context.Context, files []string) (lemma.Found, []*ExtractResult, error) {
	pool := worker.NewPool[string, *ExtractResult](e.workers,
		func(ctx context.Context, path string) (*ExtractResult, error) {
			return e.ExtractFile(path)
		},
	)

	tasks := pool.Execute(ctx, files)
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	found := make(lemma.Found)
	results := make([]*ExtractResult, 0, len(tasks))
	for _, task := range tasks {
		if task.Err != nil {
			log.Warn().Err(task.Err).Str("file", task.Input).Msg("Extraction failed")
			continue
		}
		if task.Result == nil {
			continue
		}
		results = append(results, task.Result)
		for _, key := range task.Result.Keys() {
			found[key] = task.Result.FilePath
		}
	}

	return found, results, nil
}
