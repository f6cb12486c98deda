package cli

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"localization-helpers/internal/extractor"
	"localization-helpers/internal/filewalker"
	"localization-helpers/internal/langfile"
	"localization-helpers/internal/lemma"
)

type missingOptions struct {
	force    bool
	newValue string
	backup   bool
	dirty    bool
	dryRun   bool
	yes      bool
}

// job is a language file waiting to be written.
type job struct {
	path    string
	content []byte
}

func missingCmd(a *app) *cobra.Command {
	o := &missingOptions{}

	cmd := &cobra.Command{
		Use:   "missing",
		Short: "Parse all translations in the code and generate the language files",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMissing(cmd.Context(), a, o)
		},
	}

	cmd.Flags().BoolVarP(&o.force, "force", "f", false, "Rewrite language files even when nothing changed")
	cmd.Flags().StringVarP(&o.newValue, "new-value", "l", lemma.Placeholder, "Value of new found lemmas ("+lemma.Placeholder+" is replaced by the lemma)")
	cmd.Flags().BoolVarP(&o.backup, "backup", "b", false, "Back up language files before writing them")
	cmd.Flags().BoolVarP(&o.dirty, "dirty", "d", false, "Only report through the exit code whether new lemmas exist")
	cmd.Flags().BoolVar(&o.dryRun, "dry-run", false, "Report changes without writing files")
	cmd.Flags().BoolVarP(&o.yes, "yes", "y", false, "Apply changes without asking")

	return cmd
}

func runMissing(ctx context.Context, a *app, o *missingOptions) error {
	if o.dirty {
		a.out = io.Discard
		zerolog.SetGlobalLevel(zerolog.Disabled)
	}

	store, err := a.store()
	if err != nil {
		return err
	}

	scan, err := a.scan(ctx)
	if err != nil {
		return err
	}
	if len(scan.found) == 0 {
		return scan.noLemmaError()
	}
	found := scan.found
	if len(found) == 1 {
		a.println("1 lemma has been found in the code")
	} else {
		a.printf("%d lemmas have been found in the code\n", len(found))
	}
	if a.verbose {
		for _, key := range lemma.SortedKeys(found) {
			if strings.Contains(key, ".") {
				a.printf("    %s in file %s\n", key, a.short(found[key]))
			}
		}
	}

	families := lemma.Structure(found, a.opts.IgnoreLangFiles)

	locales, err := a.locales(store)
	if err != nil {
		return err
	}

	a.println()
	a.println("Scan files:")

	var (
		jobs   []job
		hasNew bool
	)
	for _, locale := range locales {
		for _, family := range lemma.SortedKeys(families) {
			path := store.Path(locale, family)
			if a.verbose {
				a.println()
			}
			a.printf("    %s\n", a.short(path))

			plan, err := a.reconcile(store, path, family, families[family], o)
			if err != nil {
				return err
			}
			a.report(plan, families[family])

			if plan.HasNew {
				hasNew = true
			}
			if plan.Dirty || o.force {
				jobs = append(jobs, job{path: path, content: langfile.Dump(plan.Final, a.opts.Shorthand())})
			} else if a.verbose {
				a.println("        > Nothing to do for this file")
			}
		}
	}

	if o.dirty {
		if hasNew {
			return ErrDirty
		}
		return nil
	}

	return a.save(store, jobs, hasNew, o)
}

// scanResult is the outcome of walking and extracting the source folders.
type scanResult struct {
	found   lemma.Found
	results []*extractor.ExtractResult
	folders []string
	methods []string
}

// noLemmaError lists where lemmas were searched.
func (r *scanResult) noLemmaError() error {
	return fmt.Errorf("no lemma have been found in the code\nIn these directories:\n    %s\nFor these functions/methods:\n    %s",
		strings.Join(r.folders, "\n    "), strings.Join(r.methods, "\n    "))
}

// scan walks the configured folders and extracts every lemma.
func (a *app) scan(ctx context.Context) (*scanResult, error) {
	if err := a.load(); err != nil {
		return nil, err
	}

	folders := a.paths.ResolveAll(a.opts.Folders)
	if a.verbose {
		for _, folder := range folders {
			a.printf("    %s\n", folder)
		}
	}

	walker, err := filewalker.NewWalker(a.fs, a.opts.Extensions, a.paths.ResolveAll(a.opts.IgnoreFiles))
	if err != nil {
		return nil, err
	}
	files, err := walker.Walk(folders)
	if err != nil {
		return nil, fmt.Errorf("walk source folders: %w", err)
	}

	ext, err := extractor.New(a.fs, a.opts.TransMethods, a.env.WorkerCount)
	if err != nil {
		return nil, err
	}
	found, results, err := ext.Scan(ctx, files)
	if err != nil {
		return nil, fmt.Errorf("scan source files: %w", err)
	}
	log.Debug().Int("files", len(files)).Int("lemmas", len(found)).Msg("Scan finished")

	return &scanResult{
		found:   found,
		results: results,
		folders: folders,
		methods: ext.Methods(),
	}, nil
}

// locales returns the locales to reconcile.
func (a *app) locales(store *langfile.Store) ([]string, error) {
	if a.opts.DefaultLocaleOnly {
		return []string{a.env.Locale}, nil
	}
	locales, err := store.Locales()
	if err != nil {
		return nil, err
	}
	if len(locales) == 0 {
		log.Warn().Str("root", store.Root()).Msg("No locale directory found")
	}
	return locales, nil
}

func (a *app) reconcile(store *langfile.Store, path, family string, found lemma.Flat, o *missingOptions) (*lemma.Plan, error) {
	tree, err := store.LoadFile(path)
	if err != nil {
		return nil, err
	}
	old := lemma.EncodeFlat(lemma.Dot(tree))

	rules := lemma.Rules{
		NeverObsolete: a.opts.NeverObsoleteKeys,
		NewValue:      o.newValue,
		AskForValue:   a.opts.AskForValue,
	}
	if a.opts.AskForValue && !o.dirty {
		rules.Ask = func(key, suggestion string) string {
			return a.ask(family+"."+key, suggestion)
		}
	}
	return lemma.Reconcile(old, found, rules), nil
}

// report prints what reconciliation decided for one file.
func (a *app) report(plan *lemma.Plan, found lemma.Flat) {
	for _, key := range plan.ManualAdd {
		a.printf("        Manually add: %s\n", lemma.DecodeKey(key))
	}
	if len(plan.New) > 0 {
		a.printf("    %d new strings to translate\n", len(plan.New))
		if a.verbose {
			for _, key := range plan.New {
				a.printf("        %s in %s\n", lemma.DecodeKey(key), a.short(found[key]))
			}
		}
	}
	if len(plan.Existing) > 0 && a.verbose {
		a.printf("            %d already translated strings\n", len(plan.Existing))
	}
	if len(plan.Obsolete) > 0 {
		a.printf("    %d obsolete strings (will be deleted)\n", len(plan.Obsolete))
		if a.verbose {
			for _, key := range plan.Obsolete {
				a.printf("            %s\n", lemma.DecodeKey(key))
			}
		}
	}
}

// save writes the pending jobs after confirmation.
func (a *app) save(store *langfile.Store, jobs []job, hasNew bool, o *missingOptions) error {
	a.println()

	if len(jobs) == 0 {
		if hasNew {
			a.println("Not all translations are up to date.")
		} else {
			a.println("All translations are up to date.")
		}
		a.println()
		return nil
	}

	if o.dryRun {
		a.println("Dry run, these files would be written:")
		for _, j := range jobs {
			a.printf("    %s\n", a.short(j.path))
		}
		a.println()
		return nil
	}

	if !o.yes && !a.opts.AskForValue {
		if a.ask("Do you wish to apply these changes now? [yes|no]", "") != "yes" {
			a.println("Process aborted. No file have been changed.")
			a.println()
			return nil
		}
	}

	sort.Slice(jobs, func(i, j int) bool { return jobs[i].path < jobs[j].path })

	a.println()
	a.println("Save files:")
	for _, j := range jobs {
		if o.backup {
			backup, err := store.Backup(j.path, a.now())
			if err != nil {
				return err
			}
			if backup != "" {
				log.Debug().Str("file", j.path).Str("backup", backup).Msg("Backed up language file")
			}
		}
		if err := store.WriteFile(j.path, j.content); err != nil {
			return err
		}
		a.printf("    %s\n", a.short(j.path))
	}

	a.println()
	a.println("Process done!")
	a.println()
	return nil
}
