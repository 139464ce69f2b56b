package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/foliobot/folio/internal/app"
	"github.com/foliobot/folio/internal/config"
)

var indexReset bool

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Index the knowledge base into the vector store",
	Long: `Walks the configured knowledge directory, extracts and chunks every
supported document (.pdf, .txt, .md), and stores embedded chunks in the
vector store. Unsupported and unreadable files are skipped with a warning.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runIndex()
	},
}

func init() {
	indexCmd.Flags().BoolVar(&indexReset, "reset", false, "drop the existing collection before indexing")
	rootCmd.AddCommand(indexCmd)
}

func runIndex() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	logger := newLogger()
	a, err := app.Setup(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("initializing application: %w", err)
	}
	defer a.Close()

	summary, err := a.Indexer.Run(ctx, cfg.Knowledge.Dir, indexReset)
	if err != nil {
		return fmt.Errorf("indexing: %w", err)
	}

	fmt.Printf("Indexed %d files (%d chunks), skipped %d, failed %d\n",
		summary.FilesIndexed, summary.Chunks, summary.FilesSkipped, summary.FilesFailed)
	return nil
}
