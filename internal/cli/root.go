// Package cli defines the Cobra commands for the asamanthinks binary.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"asamanthinks/internal/app"
	"asamanthinks/internal/config"
	"asamanthinks/internal/observability"
)

var version = "dev" // set via ldflags at build time

type rootOptions struct {
	envFile  string
	logLevel string
	jsonOut  bool
}

// NewRootCmd builds a fresh command tree.
func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:   "asamanthinks",
		Short: "Emotional check-ins classified against the seven states",
		Long: `asamanthinks classifies free-text and voice check-ins into one of seven
states through a remote prompt service, keeps a journal of them and
suggests music for the current state.`,
		Version:       version,
		SilenceErrors: true,
		SilenceUsage:  true,
	}

	cmd.PersistentFlags().StringVar(&opts.envFile, "env-file", ".env", "Optional dotenv file loaded before reading the environment")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "Log level (debug, info, warn, error); overrides LOG_LEVEL")
	cmd.PersistentFlags().BoolVar(&opts.jsonOut, "json", false, "Print JSON even when stdout is a terminal")

	cmd.AddCommand(newServeCmd(opts))
	cmd.AddCommand(newCheckInCmd(opts))
	cmd.AddCommand(newVoiceCmd(opts))
	cmd.AddCommand(newCategoriesCmd(opts))
	return cmd
}

// Execute runs the root command. Called from main.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func (o *rootOptions) load() (config.Config, *slog.Logger, error) {
	cfg, err := config.Load(o.envFile)
	if err != nil {
		return config.Config{}, nil, err
	}
	level := cfg.LogLevel
	if o.logLevel != "" {
		level = o.logLevel
	}
	return cfg, observability.NewLogger(level, os.Stderr), nil
}

func (o *rootOptions) build(ctx context.Context, appOpts app.Options) (*app.App, config.Config, error) {
	cfg, log, err := o.load()
	if err != nil {
		return nil, config.Config{}, err
	}
	a, err := app.New(ctx, cfg, log, appOpts)
	if err != nil {
		return nil, config.Config{}, err
	}
	return a, cfg, nil
}

// pretty reports whether w should get human-readable output.
func (o *rootOptions) pretty(w io.Writer) bool {
	if o.jsonOut {
		return false
	}
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
