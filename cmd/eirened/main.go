// Eirened is the counseling conversation daemon.
//
// It serves the staged counseling chat API over HTTP with streaming
// responses, backed by an OpenAI-compatible LLM endpoint, an embedded
// or external vector store for long-term memory, and a SQLite registry
// for per-user stage persistence.
//
// Usage:
//
//	# Start the daemon with defaults
//	eirened serve
//
//	# Start with a config file
//	eirened serve --config /etc/eirene/config.yaml
//
//	# Load reference documents into a specialist corpus
//	eirened ingest --corpus medical docs/geriatrics.txt
//
// Configuration may also come from environment variables with the
// EIRENE_ prefix. See internal/config for the full mapping.
package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/eirene/internal/composer"
	"github.com/fyrsmithlabs/eirene/internal/config"
	"github.com/fyrsmithlabs/eirene/internal/embeddings"
	"github.com/fyrsmithlabs/eirene/internal/engine"
	"github.com/fyrsmithlabs/eirene/internal/httpapi"
	"github.com/fyrsmithlabs/eirene/internal/llm"
	"github.com/fyrsmithlabs/eirene/internal/logging"
	"github.com/fyrsmithlabs/eirene/internal/memory"
	"github.com/fyrsmithlabs/eirene/internal/registry"
	"github.com/fyrsmithlabs/eirene/internal/safety"
	"github.com/fyrsmithlabs/eirene/internal/session"
	"github.com/fyrsmithlabs/eirene/internal/specialist"
	"github.com/fyrsmithlabs/eirene/internal/stage"
	"github.com/fyrsmithlabs/eirene/internal/vectorstore"
)

var (
	// configPath is the optional YAML config file.
	configPath string
	// ingestCorpus selects the target corpus for the ingest command.
	ingestCorpus string
	// version information (set via ldflags during build)
	version = "dev"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "eirened",
	Short: "Counseling conversation daemon",
	Long: `eirened serves a staged counseling chat API with streaming
responses, tiered conversation memory, and specialist consultation.`,
	Version: version,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	RunE:  runServe,
}

var ingestCmd = &cobra.Command{
	Use:   "ingest [file]",
	Short: "Load reference documents into a specialist corpus",
	Long: `Ingest reads a text file (one document per line, blank lines
skipped) and adds every document to the named specialist corpus.

Examples:
  eirened ingest --corpus medical docs/geriatrics.txt
  eirened ingest --corpus legacy docs/inheritance.txt`,
	Args: cobra.ExactArgs(1),
	RunE: runIngest,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to YAML config file")
	ingestCmd.Flags().StringVar(&ingestCorpus, "corpus", "", "target corpus: medical or legacy")
	_ = ingestCmd.MarkFlagRequired("corpus")
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(ingestCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	logger, err := logging.New(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Fields: map[string]string{"service": "eirened"},
	})
	if err != nil {
		return err
	}
	defer func() {
		_ = logger.Sync()
	}()

	logger.Info("starting eirened",
		zap.String("version", version),
		zap.String("host", cfg.Server.Host),
		zap.Int("port", cfg.Server.Port),
		zap.String("vectorstore", cfg.VectorStore.Provider),
	)

	eng, closers, err := buildEngine(cfg, logger)
	if err != nil {
		return err
	}

	srv, err := httpapi.NewServer(eng, httpapi.Config{
		Host: cfg.Server.Host,
		Port: cfg.Server.Port,
	}, logger)
	if err != nil {
		return err
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Info("received signal, shutting down", zap.String("signal", sig.String()))
	case err := <-errCh:
		if err != nil {
			logger.Error("http server failed", zap.Error(err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout.Duration())
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http shutdown failed", zap.Error(err))
	}
	eng.Shutdown()
	for _, close := range closers {
		if err := close(); err != nil {
			logger.Warn("resource close failed", zap.Error(err))
		}
	}

	logger.Info("shutdown complete")
	return nil
}

// buildEngine wires every engine dependency from config. The returned
// closers release infrastructure resources, in order.
func buildEngine(cfg *config.Config, logger *zap.Logger) (*engine.Engine, []func() error, error) {
	chatModel, err := llm.NewOpenAIClient(llm.Config{
		BaseURL: cfg.LLM.BaseURL,
		Model:   cfg.LLM.Model,
		APIKey:  cfg.LLM.APIKey.Value(),
	})
	if err != nil {
		return nil, nil, fmt.Errorf("creating chat client: %w", err)
	}

	// Summarization and routing use a cheaper model when configured.
	utilityModel := cfg.LLM.SummaryModel
	if utilityModel == "" {
		utilityModel = cfg.LLM.Model
	}
	utilityClient, err := llm.NewOpenAIClient(llm.Config{
		BaseURL: cfg.LLM.BaseURL,
		Model:   utilityModel,
		APIKey:  cfg.LLM.APIKey.Value(),
	})
	if err != nil {
		return nil, nil, fmt.Errorf("creating utility client: %w", err)
	}

	embedder, err := embeddings.NewService(embeddings.Config{
		BaseURL: cfg.Embeddings.BaseURL,
		Model:   cfg.Embeddings.Model,
		APIKey:  cfg.Embeddings.APIKey.Value(),
	})
	if err != nil {
		return nil, nil, fmt.Errorf("creating embedding service: %w", err)
	}

	store, err := vectorstore.NewStore(cfg.VectorStore, embedder, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("creating vector store: %w", err)
	}
	closers := []func() error{store.Close}

	reg, err := registry.Open(cfg.Registry.Path, logger)
	if err != nil {
		closeAll(closers, logger)
		return nil, nil, fmt.Errorf("opening stage registry: %w", err)
	}
	closers = append(closers, reg.Close)

	ltm := memory.NewLongTermMemory(store, logger)
	orch := memory.NewOrchestrator(utilityClient, ltm,
		cfg.Memory.BufferLimit, cfg.Memory.ReservedMessages, logger)

	medical, err := openCorpus(cfg.Knowledge.MedicalPath, "medical", embedder, logger)
	if err != nil {
		closeAll(closers, logger)
		return nil, nil, err
	}
	legacy, err := openCorpus(cfg.Knowledge.LegacyPath, "legacy", embedder, logger)
	if err != nil {
		closeAll(closers, logger)
		return nil, nil, err
	}

	pool := specialist.NewPool([]specialist.Specialist{
		specialist.NewMedical(chatModel, medical, logger),
		specialist.NewLegacy(chatModel, legacy, logger),
		specialist.NewACP(chatModel, logger),
		specialist.NewCultural(chatModel, logger),
	}, logger)

	eng := engine.New(engine.Config{
		Sessions: session.NewStore(logger),
		Registry: reg,
		Memory:   orch,
		Gate:     safety.NewGate(chatModel, logger),
		Monitor:  stage.NewMonitor(utilityClient, logger),
		Scorer: stage.NewScorer(chatModel, stage.ScorerConfig{
			Low:  cfg.Stages.ReadinessLow,
			High: cfg.Stages.ReadinessHigh,
		}, logger),
		Router:         specialist.NewRouter(utilityClient, specialist.Catalog, logger),
		Pool:           pool,
		Composer:       composer.New(chatModel, logger),
		SearchLimit:    cfg.Memory.SearchLimit,
		ReadinessClues: cfg.Stages.ReadinessClues,
		Logger:         logger,
	})

	return eng, closers, nil
}

// openCorpus opens a specialist knowledge base, or returns nil when no
// path is configured. The specialist then consults without references.
func openCorpus(path, name string, embedder vectorstore.Embedder, logger *zap.Logger) (specialist.Retriever, error) {
	if path == "" {
		logger.Info("knowledge corpus not configured", zap.String("corpus", name))
		return nil, nil
	}
	k, err := vectorstore.NewKnowledge(path, name, embedder, logger)
	if err != nil {
		return nil, fmt.Errorf("opening %s corpus: %w", name, err)
	}
	return k, nil
}

func closeAll(closers []func() error, logger *zap.Logger) {
	for _, close := range closers {
		if err := close(); err != nil {
			logger.Warn("resource close failed", zap.Error(err))
		}
	}
}

func runIngest(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	var path string
	switch ingestCorpus {
	case "medical":
		path = cfg.Knowledge.MedicalPath
	case "legacy":
		path = cfg.Knowledge.LegacyPath
	default:
		return fmt.Errorf("unknown corpus %q (supported: medical, legacy)", ingestCorpus)
	}
	if path == "" {
		return fmt.Errorf("no path configured for %s corpus", ingestCorpus)
	}

	logger, err := logging.New(logging.Config{Level: "info", Format: "console"})
	if err != nil {
		return err
	}
	defer func() {
		_ = logger.Sync()
	}()

	embedder, err := embeddings.NewService(embeddings.Config{
		BaseURL: cfg.Embeddings.BaseURL,
		Model:   cfg.Embeddings.Model,
		APIKey:  cfg.Embeddings.APIKey.Value(),
	})
	if err != nil {
		return fmt.Errorf("creating embedding service: %w", err)
	}

	corpus, err := vectorstore.NewKnowledge(path, ingestCorpus, embedder, logger)
	if err != nil {
		return err
	}

	file, err := os.Open(args[0])
	if err != nil {
		return fmt.Errorf("opening %s: %w", args[0], err)
	}
	defer file.Close()

	var docs []string
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line != "" {
			docs = append(docs, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("reading %s: %w", args[0], err)
	}
	if len(docs) == 0 {
		return fmt.Errorf("no documents found in %s", args[0])
	}

	if err := corpus.AddDocuments(cmd.Context(), docs); err != nil {
		return fmt.Errorf("ingesting documents: %w", err)
	}

	fmt.Printf("Ingested %d documents into the %s corpus.\n", len(docs), ingestCorpus)
	return nil
}
