package cli

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/spf13/cobra"
)

type findOptions struct {
	regex bool
	short bool
}

func findCmd(a *app) *cobra.Command {
	o := &findOptions{}

	cmd := &cobra.Command{
		Use:   "find <lemma>",
		Short: "Display all files where the argument is used as a lemma",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFind(cmd.Context(), a, o, args[0])
		},
	}

	cmd.Flags().BoolVarP(&o.regex, "regex", "r", false, "Argument is a regular expression")
	cmd.Flags().BoolVarP(&o.short, "short", "s", false, "Short path relative to the project")

	return cmd
}

func runFind(ctx context.Context, a *app, o *findOptions, needle string) error {
	match := func(key string) bool { return strings.Contains(key, needle) }
	if o.regex {
		re, err := compilePattern(needle)
		if err != nil {
			return fmt.Errorf("the argument is not a valid regular expression: %w", err)
		}
		match = re.MatchString
	}

	if a.verbose {
		a.println("Lemmas will be searched in the following directories:")
	}
	scan, err := a.scan(ctx)
	if err != nil {
		return err
	}

	var files []string
	for _, result := range scan.results {
		for _, key := range result.Keys() {
			if !match(key) {
				continue
			}
			path := result.FilePath
			if o.short {
				path = a.short(path)
			}
			files = append(files, path)
			break
		}
	}

	if len(files) == 0 {
		return nil
	}
	a.printf("Lemma %s has been found in:\n", needle)
	for _, file := range files {
		a.printf("    %s\n", file)
	}
	return nil
}

var delimited = regexp.MustCompile(`^/(.*)/([imsU]*)$`)

// compilePattern accepts both a bare expression and the /pattern/flags form.
func compilePattern(pattern string) (*regexp.Regexp, error) {
	if m := delimited.FindStringSubmatch(pattern); m != nil {
		pattern = m[1]
		if m[2] != "" {
			pattern = "(?" + m[2] + ")" + pattern
		}
	}
	return regexp.Compile(pattern)
}
