package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"localization-helpers/internal/config"
	"localization-helpers/internal/driver"
	"localization-helpers/internal/langfile"
)

// ErrDirty is returned by `missing --dirty` when new lemmas exist.
var ErrDirty = errors.New("translations are not up to date")

// app carries what every command needs. Commands resolve options lazily so
// that --config is honoured.
type app struct {
	fs      afero.Fs
	env     *config.Env
	in      *bufio.Reader
	out     io.Writer
	now     func() time.Time
	cfgPath string
	verbose bool

	opts  *config.Options
	paths *config.Paths
}

// Execute runs the CLI application.
func Execute() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	a := &app{
		fs:  afero.NewOsFs(),
		env: config.LoadEnv(),
		in:  bufio.NewReader(os.Stdin),
		out: os.Stdout,
		now: time.Now,
	}

	ctx, cancel := setupContext()
	defer cancel()

	if err := newRootCmd(a).ExecuteContext(ctx); err != nil {
		if !errors.Is(err, ErrDirty) {
			log.Error().Err(err).Msg("Command failed")
		}
		os.Exit(1)
	}
}

func newRootCmd(a *app) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "localization-helpers",
		Short:         "Keep PHP language files in sync with the lemmas used in code",
		Long:          "Scans application sources for translation calls, reconciles them with the per-locale language files, and imports or exports translations through pluggable drivers.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if a.verbose {
				zerolog.SetGlobalLevel(zerolog.DebugLevel)
			}
		},
	}

	rootCmd.PersistentFlags().StringVar(&a.cfgPath, "config", "", "Options file (default "+config.DefaultFile+")")
	rootCmd.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "Verbose output")

	rootCmd.AddCommand(missingCmd(a))
	rootCmd.AddCommand(findCmd(a))
	rootCmd.AddCommand(exportCmd(a))
	rootCmd.AddCommand(importCmd(a))

	return rootCmd
}

// setupContext creates a cancellable context with signal handling.
func setupContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		select {
		case <-sigCh:
			log.Warn().Msg("Received shutdown signal, cancelling...")
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(sigCh)
	}()

	return ctx, cancel
}

// load reads the options file once.
func (a *app) load() error {
	if a.opts != nil {
		return nil
	}
	opts, err := config.Load(a.fs, a.cfgPath)
	if err != nil {
		return err
	}
	a.opts = opts
	a.paths = config.NewPaths(a.fs, a.env)
	return nil
}

// store opens the language directory.
func (a *app) store() (*langfile.Store, error) {
	if err := a.load(); err != nil {
		return nil, err
	}
	root, err := a.paths.LangPath(a.opts.LangFolderPath)
	if err != nil {
		return nil, err
	}
	return langfile.NewStore(a.fs, root, a.opts.Shorthand()), nil
}

// manager builds the driver manager over the language store.
func (a *app) manager() (*driver.Manager, error) {
	store, err := a.store()
	if err != nil {
		return nil, err
	}
	return driver.NewManager(a.opts, driver.Deps{
		Fs:    a.fs,
		Store: store,
		Paths: a.paths,
		Env:   a.env,
	}), nil
}

func (a *app) printf(format string, args ...any) {
	fmt.Fprintf(a.out, format, args...)
}

func (a *app) println(args ...any) {
	fmt.Fprintln(a.out, args...)
}

// ask prints question and returns the trimmed answer, or fallback when the
// answer is empty or input is exhausted.
func (a *app) ask(question, fallback string) string {
	if fallback != "" {
		a.printf("%s [%s]: ", question, fallback)
	} else {
		a.printf("%s: ", question)
	}
	line, _ := a.in.ReadString('\n')
	if line = strings.TrimSpace(line); line == "" {
		return fallback
	}
	return line
}

// short returns path relative to the base path.
func (a *app) short(path string) string {
	return a.paths.Short(path)
}
