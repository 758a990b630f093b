package cli

import (
	"fmt"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/harun/ingat/internal/config"
	"github.com/harun/ingat/pkg/store"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Summarize the knowledge store",
	Long:  `Print entry counts per category plus total size and age range.`,
	RunE:  runStats,
}

func init() {
	rootCmd.AddCommand(statsCmd)
}

func runStats(cmd *cobra.Command, args []string) error {
	cfg, err := config.NewLoader(cfgFile).Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	st, err := store.New(cfg.StoreRoot, zerolog.Nop())
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}

	stats, err := st.Stats()
	if err != nil {
		return fmt.Errorf("failed to collect stats: %w", err)
	}

	cmd.Printf("Store: %s\n", cfg.StoreRoot)
	cmd.Printf("Entries: %d (%d bytes)\n", stats.TotalFiles, stats.TotalSize)
	for _, c := range store.Categories() {
		cmd.Printf("  %-12s %d\n", c.String(), stats.PerCategory[c])
	}
	if !stats.Oldest.IsZero() {
		cmd.Printf("Oldest: %s\n", stats.Oldest.Format("2006-01-02"))
		cmd.Printf("Newest: %s\n", stats.Newest.Format("2006-01-02"))
	}

	return nil
}
