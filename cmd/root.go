// Package cmd implements the folio command-line interface.
package cmd

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/foliobot/folio/internal/log"
)

var verbose bool

var rootCmd = &cobra.Command{
	Use:   "folio",
	Short: "Folio - a personal-website AI assistant",
	Long: `Folio serves a retrieval-grounded chat assistant that answers questions
about a person using their knowledge base, records visitor interest, and
flags questions it could not answer.`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
}

// newLogger builds the process logger honoring the --verbose flag.
func newLogger() *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return log.New(log.Config{Level: level})
}
