package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/foliobot/folio/internal/cache"
	"github.com/foliobot/folio/internal/config"
	"github.com/foliobot/folio/internal/database"
	"github.com/foliobot/folio/internal/leads"
)

var dataCmd = &cobra.Command{
	Use:   "data",
	Short: "Inspect recorded leads, knowledge gaps, and cache usage",
	Long: `Reads the local database directly, so it works without model or
vector store credentials.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runData(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(dataCmd)
}

func runData(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	db, err := database.Open(cfg.DatabasePath)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer db.Close()

	logger := newLogger()
	store := leads.NewStore(db, logger)

	allLeads, err := store.ListLeads(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("Leads (%d):\n", len(allLeads))
	for _, l := range allLeads {
		fmt.Printf("  [%s] %s <%s> - %s\n",
			l.CreatedAt.Format("2006-01-02 15:04"), l.Name, l.Email, l.Notes)
	}

	gaps, err := store.ListGaps(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("\nKnowledge gaps (%d):\n", len(gaps))
	for _, g := range gaps {
		fmt.Printf("  [%s] %s\n", g.CreatedAt.Format("2006-01-02 15:04"), g.Question)
	}

	c := cache.New(db, cfg.Cache.TTL, cfg.Cache.MaxBytes, logger)
	stats, err := c.Stats(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("\nResponse cache: %d entries, %d bytes\n", stats.Entries, stats.SizeBytes)
	return nil
}
