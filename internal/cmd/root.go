package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var (
	debug      bool
	configFile string
)

var rootCmd = &cobra.Command{
	Use:   "readme-footer",
	Short: "Add a standard footer to the README of every repository in a GitHub organization",
	Long: `readme-footer inserts or refreshes an HTML footer at the end of README.md in
many GitHub repositories at once.

For each repository it recreates an update branch from the base branch, merges
the footer into the README, commits the change and merges it back through a
pull request. Repositories come from an override list, the failure file of a
previous run, or the public repositories of an organization.

Settings are read from ~/.readme-footer/config.yaml, then environment
variables, then command line flags.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, _ []string) {
		logger := newLogger(cmd.ErrOrStderr(), debug)
		cmd.SetContext(logger.WithContext(cmd.Context()))
	},
}

func newLogger(out io.Writer, debug bool) zerolog.Logger {
	level := zerolog.InfoLevel
	if debug {
		level = zerolog.DebugLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: out}).Level(level).With().Timestamp().Logger()
}

// interruptContext is cancelled by the first interrupt. The signal handler is
// released at that point, so a second interrupt terminates the process even
// while a prompt is waiting for input.
func interruptContext(parent context.Context) (context.Context, context.CancelFunc) {
	ctx, stop := signal.NotifyContext(parent, os.Interrupt)
	go func() {
		<-ctx.Done()
		stop()
	}()
	return ctx, stop
}

func Execute() {
	ctx, stop := interruptContext(context.Background())

	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "Config file (default: ~/.readme-footer/config.yaml)")

	rootCmd.AddCommand(updateCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(previewCmd)
}
