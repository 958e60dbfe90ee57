// Package cli implements the mnemo command-line interface using cobra.
// Commands are thin: they parse flags, call driving port services and
// format output. All wiring happens in Execute.
package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/kestrel-labs/mnemo-cli/internal/adapters/driven/config/file"
	"github.com/kestrel-labs/mnemo-cli/internal/adapters/driven/embedding"
	"github.com/kestrel-labs/mnemo-cli/internal/adapters/driven/embedding/ollama"
	"github.com/kestrel-labs/mnemo-cli/internal/adapters/driven/embedding/openai"
	"github.com/kestrel-labs/mnemo-cli/internal/adapters/driven/embedding/static"
	"github.com/kestrel-labs/mnemo-cli/internal/adapters/driven/storage/sqlite"
	chromemindex "github.com/kestrel-labs/mnemo-cli/internal/adapters/driven/vectorindex/chromem"
	"github.com/kestrel-labs/mnemo-cli/internal/core/domain"
	"github.com/kestrel-labs/mnemo-cli/internal/core/ports/driven"
	"github.com/kestrel-labs/mnemo-cli/internal/core/ports/driving"
	"github.com/kestrel-labs/mnemo-cli/internal/core/services"
	"github.com/kestrel-labs/mnemo-cli/internal/logger"
)

// version is set at build time via -ldflags.
var version = "dev"

var verbose bool

// Services injected at startup; package-level so commands and tests
// can swap them.
var (
	memoryService   driving.MemoryService
	searchService   driving.SearchService
	backfillService driving.BackfillService
	patternService  driving.PatternService
	embedderService driven.EmbeddingService
	embeddingStore  driven.EmbeddingStore
	vectorIndex     driven.VectorIndex
)

var rootCmd = &cobra.Command{
	Use:   "mnemo",
	Short: "Local-first memory for development sessions",
	Long: `mnemo captures structured notes from development sessions and
retrieves them by hybrid keyword + semantic search. Everything runs
locally: SQLite for storage, FTS5 for keyword relevance and a local
embedding model for meaning.`,
	SilenceUsage: true,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		logger.SetVerbose(verbose)
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
}

// Execute wires the adapters, runs the root command and tears down.
func Execute() {
	cleanup, err := initServices()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer cleanup()

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// initServices builds the adapter graph. Degradation is deliberate:
// a missing embedding backend leaves keyword search working, a failed
// index rebuild leaves the exhaustive scan working.
func initServices() (func(), error) {
	cfg, err := file.NewConfigStore("")
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}

	store, err := sqlite.NewStore("")
	if err != nil {
		cfg.Close()
		return nil, fmt.Errorf("open store: %w", err)
	}

	embedderService = buildEmbedder(cfg)
	dimensions := embedderService.Dimensions()

	// The index is a rebuildable in-memory projection; losing it only
	// costs speed.
	var index driven.VectorIndex
	if idx, err := chromemindex.New(domain.KindMemory, dimensions); err != nil {
		logger.Warn("Vector index unavailable, falling back to exact scan: %v", err)
	} else {
		index = idx
		vectorIndex = idx
	}

	es, err := store.EmbeddingStore(domain.KindMemory, embedderService, index, dimensions)
	if err != nil {
		store.Close()
		cfg.Close()
		return nil, fmt.Errorf("open embedding store: %w", err)
	}
	embeddingStore = es

	if index != nil {
		if n, err := es.Rebuild(context.Background()); err != nil {
			logger.Warn("Index rebuild failed: %v", err)
		} else {
			logger.Debug("Vector index rebuilt with %d vectors", n)
		}
	}

	memories := store.MemoryStore()
	keyword := store.KeywordIndex()

	backfillService = services.NewBackfillService(store.MemoryBacklog(), es)
	memoryService = services.NewMemoryService(memories, keyword, es)
	searchService = services.NewSearchService(memories, keyword, es, embedderService, backfillService)
	patternService = services.NewPatternService(memories, es)

	// Config edits (model switch, weights) apply on the next command;
	// the watcher keeps long-lived invocations current.
	if err := cfg.Watch(nil); err != nil {
		logger.Debug("Config watch unavailable: %v", err)
	}

	cleanup := func() {
		if embedderService != nil {
			embedderService.Release()
		}
		if vectorIndex != nil {
			_ = vectorIndex.Close()
		}
		_ = store.Close()
		_ = cfg.Close()
	}
	return cleanup, nil
}

// buildEmbedder constructs the embedding pool from config. Unknown or
// unconfigured providers fall back to the static hashed model so
// semantic search always has some backend.
func buildEmbedder(cfg driven.ConfigStore) driven.EmbeddingService {
	provider := cfg.GetString("embedding.provider")

	var model embedding.Model
	switch provider {
	case "openai":
		m, err := openai.New(openai.Config{
			APIKey:     cfg.GetString("embedding.api_key"),
			Model:      cfg.GetString("embedding.model"),
			Dimensions: cfg.GetInt("embedding.dimensions"),
		})
		if err != nil {
			logger.Warn("OpenAI backend unavailable (%v), using static embeddings", err)
			model = static.New(cfg.GetInt("embedding.dimensions"))
		} else {
			model = m
		}
	case "ollama":
		model = ollama.New(ollama.Config{
			BaseURL:    cfg.GetString("embedding.base_url"),
			Model:      cfg.GetString("embedding.model"),
			Dimensions: cfg.GetInt("embedding.dimensions"),
		})
	case "", "static":
		model = static.New(cfg.GetInt("embedding.dimensions"))
	default:
		logger.Warn("Unknown embedding provider %q, using static embeddings", provider)
		model = static.New(cfg.GetInt("embedding.dimensions"))
	}

	return embedding.NewPool(model, embedding.Config{})
}
