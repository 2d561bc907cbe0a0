package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/hyperjump/tanya/internal/answer"
	"github.com/hyperjump/tanya/internal/config"
	"github.com/hyperjump/tanya/internal/embedding"
	"github.com/hyperjump/tanya/internal/extract"
	"github.com/hyperjump/tanya/internal/index"
	"github.com/hyperjump/tanya/internal/indexer"
	"github.com/hyperjump/tanya/internal/llm"
	"github.com/hyperjump/tanya/internal/server"
	"github.com/hyperjump/tanya/internal/session"
	"github.com/hyperjump/tanya/internal/storage"
	"github.com/hyperjump/tanya/pkg/utils"
)

// version is set at build time via -ldflags "-X main.version=..."
var version = "dev"

const defaultConfigPath = "/usr/local/etc/tanya/config.yaml"

// loadConfig loads config from path. When path is the default, config.yaml in the current
// directory is preferred if present, and a missing default file yields the built-in defaults.
// Returns the config and the path it was loaded from ("" for built-in defaults).
func loadConfig(path string) (*config.Config, string, error) {
	if path == defaultConfigPath {
		if cwd, cwdErr := os.Getwd(); cwdErr == nil {
			fallback := filepath.Join(cwd, "config.yaml")
			if _, statErr := os.Stat(fallback); statErr == nil {
				cfg, loadErr := config.Load(fallback)
				if loadErr != nil {
					return nil, "", loadErr
				}
				return cfg, fallback, nil
			}
		}
		if _, statErr := os.Stat(path); errors.Is(statErr, os.ErrNotExist) {
			return config.Default(), "", nil
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

func main() {
	// A missing .env is fine; keys may already be in the environment.
	_ = godotenv.Load()

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]
	switch command {
	case "server":
		runServer()
	case "chat":
		runChat()
	case "ask":
		runAsk()
	case "chunk":
		runChunk()
	case "mcp":
		runMCP()
	case "init":
		runInit()
	case "version", "--version", "-v":
		fmt.Printf("tanya version %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func runServer() {
	fs := flag.NewFlagSet("server", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging")
	_ = fs.Parse(os.Args[2:])

	cfg, resolvedConfigPath, err := loadConfig(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	debugMode := cfg.Debug || *debug
	logger, err := utils.NewLogger(debugMode)
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("config loaded",
		zap.String("config_path", resolvedConfigPath),
		zap.Bool("debug", debugMode),
	)

	components, err := initializeComponents(cfg, logger, nil)
	if err != nil {
		logger.Fatal("Failed to initialize components", zap.Error(err))
	}
	defer components.Close()

	sessions := session.NewManager(components.Indexer, components.Pipeline, logger)
	defer sessions.Close()

	srv := server.NewServer(sessions, components.Storage, cfg, logger)
	go func() {
		if err := srv.Start(); err != nil {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Stop(ctx)
}

// argsReorder moves trailing flags in front of the positional arguments so that
// "tanya ask report.pdf -q 'question'" parses the same as the flags-first form.
func argsReorder(args []string) []string {
	for i, a := range args {
		if len(a) > 0 && a[0] == '-' {
			if i == 0 {
				return args
			}
			reordered := make([]string, 0, len(args))
			reordered = append(reordered, args[i:]...)
			reordered = append(reordered, args[:i]...)
			return reordered
		}
	}
	return args
}

// commandLogger returns a logger for the one-shot commands: quiet unless debugging,
// and written to logPath instead of stderr when set.
func commandLogger(debug bool, logPath string) (*zap.Logger, error) {
	switch {
	case logPath != "":
		return utils.NewLogger(debug, logPath)
	case debug:
		return utils.NewLogger(true)
	default:
		return zap.NewNop(), nil
	}
}

// Components holds the shared pipeline stages. Close releases the embedder and database.
type Components struct {
	Storage   *storage.SQLiteStorage
	Embedder  embedding.Embedder
	Extractor *extract.Extractor
	Splitter  *indexer.Splitter
	Indexer   *indexer.Indexer
	Pipeline  *answer.Pipeline
}

func (c *Components) Close() {
	if c.Embedder != nil {
		_ = c.Embedder.Close()
	}
	if c.Storage != nil {
		_ = c.Storage.Close()
	}
}

// newExtractor builds the extractor and splitter, the stages that need no external service.
func newExtractor(cfg *config.Config, logger *zap.Logger) (*extract.Extractor, *indexer.Splitter, error) {
	splitter, err := indexer.NewSplitter(cfg.Ingest.ChunkSize, cfg.Ingest.Overlap())
	if err != nil {
		return nil, nil, err
	}
	extractor := extract.NewExtractor(
		extract.WithSkipInvalid(cfg.Ingest.SkipInvalid),
		extract.WithSeparator(cfg.Ingest.DocumentSeparator),
		extract.WithLogger(logger),
	)
	return extractor, splitter, nil
}

// initializeComponents wires storage, the embedder, the ingestion pipeline and the
// answer pipeline. progress, when non-nil, supplies per-ingestion embedding progress.
func initializeComponents(cfg *config.Config, logger *zap.Logger, progress func() index.Progress) (*Components, error) {
	extractor, splitter, err := newExtractor(cfg, logger)
	if err != nil {
		return nil, err
	}
	model, err := llm.New(cfg.LLM)
	if err != nil {
		return nil, err
	}

	store, err := storage.NewSQLiteStorage(cfg.Storage.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage: %w", err)
	}
	embedder, err := embedding.New(cfg.Embedding, logger)
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to create embedder: %w", err)
	}

	builder := index.NewBuilder(embedder, store, cfg.Retrieval,
		index.WithBatching(cfg.Embedding.BatchSize, cfg.Embedding.Concurrency),
		index.WithLogger(logger),
	)
	ixOpts := []indexer.IndexerOption{indexer.WithLogger(logger)}
	if progress != nil {
		ixOpts = append(ixOpts, indexer.WithProgress(progress))
	}
	pipeline := answer.NewPipeline(model,
		answer.WithTopK(cfg.Retrieval.TopK),
		answer.WithLogger(logger),
	)

	return &Components{
		Storage:   store,
		Embedder:  embedder,
		Extractor: extractor,
		Splitter:  splitter,
		Indexer:   indexer.NewIndexer(extractor, splitter, builder, ixOpts...),
		Pipeline:  pipeline,
	}, nil
}

func printUsage() {
	fmt.Println(`tanya - Ask questions about your documents

Usage:
  tanya server [flags]                    Start the HTTP server
  tanya chat [flags] <files...>           Process documents and chat in the terminal
  tanya ask [flags] -q <question> <files...>  Process documents and answer one question
  tanya chunk [flags] <files...>          Print the chunks a corpus is split into
  tanya mcp [flags]                       Serve document tools over MCP (stdio)
  tanya init [flags]                      Write a config file with every default filled in
  tanya version                           Show version
  tanya help                              Show this help

Files may be paths, directories (walked recursively) or globs such as "docs/**/*.pdf".

Common Flags:
  --config string    Config file path (default: /usr/local/etc/tanya/config.yaml, or ./config.yaml)
  --debug            Enable debug logging

Chat Flags:
  --watch            Re-process the documents when they change on disk
  --log string       Log file (the chat screen owns the terminal)

Ask Flags:
  -q string          Question to answer
  --format string    Output format: text or json (default: text)
  --progress         Show embedding progress (default: true on a terminal)

Init Flags:
  --config string    Path to write (default: ./config.yaml)
  --force            Overwrite an existing file

Chunk Flags:
  --preview int      Runes of each chunk to print (default: 120, 0 for all)
  --format string    Output format: text or json (default: text)

Environment:
  OPENAI_API_KEY     API key read by the default llm/embedding config (a .env file is loaded if present)

Examples:
  tanya server
  tanya chat handbook.pdf policies/
  tanya chat --watch "docs/**/*.md"
  tanya ask -q "How long do refunds take?" refund-policy.pdf
  tanya ask --format json -q "Who approves travel?" docs/
  tanya chunk --preview 0 notes.txt
  tanya mcp
  tanya init --config ~/.config/tanya.yaml`)
}
