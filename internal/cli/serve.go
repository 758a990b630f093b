package cli

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/harun/ingat/internal/config"
	"github.com/harun/ingat/internal/host"
	"github.com/harun/ingat/internal/logger"
	"github.com/harun/ingat/pkg/engine"
	"github.com/harun/ingat/pkg/index"
	"github.com/harun/ingat/pkg/session"
	"github.com/harun/ingat/pkg/store"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the knowledge engine over stdin/stdout",
	Long: `Serve the knowledge engine as a JSON-lines protocol on stdin/stdout.
Each request line is {id, op, params}; each response line is
{id, ok, result|error}. The loop exits cleanly on stdin EOF, SIGINT, or
SIGTERM, capturing the session and flushing the index first.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.NewLoader(cfgFile).Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}

	// Stdout carries protocol lines only, so console logging stays on stderr.
	lg, err := logger.New(logger.Config{
		Level:   cfg.Logging.Level,
		File:    cfg.Logging.File,
		Console: cfg.Logging.Console,
		Pretty:  cfg.Logging.Pretty,
	})
	if err != nil {
		return fmt.Errorf("failed to init logger: %w", err)
	}
	defer lg.Close()
	zl := lg.Zerolog()

	st, err := store.New(cfg.StoreRoot, zl)
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}

	var provider index.Provider
	if cfg.Embedding.Provider == "openai" {
		provider = index.NewOpenAIProvider(cfg.Embedding.APIKey, cfg.Embedding.Model)
	}

	ix, err := index.Open(index.Config{
		Path:     cfg.IndexPath,
		Store:    st,
		Logger:   zl,
		Provider: provider,
		Alpha:    cfg.Search.Alpha,
	})
	if err != nil {
		return fmt.Errorf("failed to open index: %w", err)
	}

	eng, err := engine.New(engine.Config{
		Store:          st,
		Index:          ix,
		Tracker:        session.NewTracker(cfg.Session.MinToolCalls),
		Logger:         zl,
		PurgeThreshold: cfg.Curation.PurgeThreshold,
		DefaultLimit:   cfg.Search.DefaultLimit,
	})
	if err != nil {
		ix.Close()
		return fmt.Errorf("failed to build engine: %w", err)
	}
	defer eng.Close()

	h, err := host.New(host.Config{
		Engine:        eng,
		Logger:        zl,
		FlushInterval: cfg.Session.FlushInterval,
		In:            cmd.InOrStdin(),
		Out:           cmd.OutOrStdout(),
	})
	if err != nil {
		return fmt.Errorf("failed to build host: %w", err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return h.Serve(ctx)
}
