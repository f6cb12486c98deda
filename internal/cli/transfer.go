package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"localization-helpers/internal/config"
	"localization-helpers/internal/driver"
	"localization-helpers/internal/textutil"
)

type transferOptions struct {
	driver    string
	delimiter string
	enclosure string
	escape    string
	path      string
	format    string
}

// direction selects what a transfer command does with the driver.
type direction int

const (
	exporting direction = iota
	importing
)

func exportCmd(a *app) *cobra.Command {
	return transferCmd(a, exporting, &cobra.Command{
		Use:   "export <locale> <group[,group...]>",
		Short: "Export language files through a driver",
	})
}

func importCmd(a *app) *cobra.Command {
	return transferCmd(a, importing, &cobra.Command{
		Use:   "import <locale> <group[,group...]>",
		Short: "Import translations through a driver into the language files",
	})
}

func transferCmd(a *app, dir direction, cmd *cobra.Command) *cobra.Command {
	o := &transferOptions{}

	cmd.Args = cobra.ExactArgs(2)
	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		return runTransfer(cmd.Context(), a, o, dir, cmd.Flags(), args[0], args[1])
	}

	cmd.Flags().StringVar(&o.driver, "driver", "", "Driver name (default from the options file)")
	cmd.Flags().StringVarP(&o.delimiter, "delimiter", "d", ",", "CSV field delimiter")
	cmd.Flags().StringVarP(&o.enclosure, "enclosure", "c", `"`, "CSV field enclosure")
	cmd.Flags().StringVarP(&o.escape, "escape", "e", `\`, "CSV escape character")
	cmd.Flags().StringVarP(&o.path, "path", "p", "", "Directory of the exported or imported files")
	cmd.Flags().StringVar(&o.format, "format", "", "File format of the local driver (csv or json)")

	return cmd
}

func runTransfer(ctx context.Context, a *app, o *transferOptions, dir direction, flags *pflag.FlagSet, locale, groupArg string) error {
	groups := textutil.Groups(groupArg)
	if len(groups) == 0 {
		return fmt.Errorf("no group given in %q", groupArg)
	}

	m, err := a.manager()
	if err != nil {
		return err
	}
	defer func() {
		if err := m.Close(); err != nil {
			log.Warn().Err(err).Msg("Failed to close drivers")
		}
	}()

	m.Configure(o.driver, func(cfg *config.DriverConfig) {
		if flags.Changed("delimiter") {
			cfg.Options.Delimiter = o.delimiter
		}
		if flags.Changed("enclosure") {
			cfg.Options.Enclosure = o.enclosure
		}
		if flags.Changed("escape") {
			cfg.Options.Escape = o.escape
		}
		if flags.Changed("format") {
			cfg.Format = o.format
		}
		if flags.Changed("path") {
			if dir == exporting {
				cfg.ExportPath = o.path
			} else {
				cfg.ImportPath = o.path
			}
		}
	})

	d, err := m.Driver(o.driver)
	if err != nil {
		return err
	}

	log.Debug().Str("locale", locale).Strs("groups", groups).Msg("Starting transfer")
	if dir == exporting {
		err = d.Put(ctx, locale, groups)
	} else {
		err = d.Get(ctx, locale, groups)
	}
	a.printMessages(d.Messages())
	if err != nil {
		var de *driver.DriverError
		if errors.As(err, &de) {
			return de
		}
		return fmt.Errorf("transfer %s: %w", locale, err)
	}

	if d.Messages().HasErrors() {
		return errors.New(d.Messages().ErrorMessage("transfer failed"))
	}
	return nil
}

func (a *app) printMessages(messages *driver.Messages) {
	for _, msg := range messages.All() {
		if msg.Error {
			a.printf("  ! %s\n", msg.Text)
			continue
		}
		a.printf("  %s\n", msg.Text)
	}
}
