package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync/atomic"
	"syscall"

	"github.com/bmatcuk/doublestar/v4"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hyperjump/tanya/internal/cli"
	"github.com/hyperjump/tanya/internal/config"
	"github.com/hyperjump/tanya/internal/errdefs"
	"github.com/hyperjump/tanya/internal/extract"
	"github.com/hyperjump/tanya/internal/index"
	"github.com/hyperjump/tanya/internal/indexer"
	"github.com/hyperjump/tanya/internal/mcpserver"
	"github.com/hyperjump/tanya/internal/session"
	"github.com/hyperjump/tanya/internal/tui"
	"github.com/hyperjump/tanya/internal/watcher"
	"github.com/hyperjump/tanya/pkg/utils"
)

func fail(msg string, err error) {
	fmt.Fprintf(os.Stderr, "%s: %s\n", msg, errdefs.UserMessage(err))
	os.Exit(1)
}

func runChat() {
	fs := flag.NewFlagSet("chat", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging")
	watch := fs.Bool("watch", false, "re-process the documents when they change on disk")
	logPath := fs.String("log", "", "log file (the chat screen owns the terminal)")
	_ = fs.Parse(argsReorder(os.Args[2:]))

	paths := fs.Args()
	if len(paths) == 0 {
		fmt.Println("Usage: tanya chat [flags] <files...>")
		os.Exit(1)
	}
	cfg, _, err := loadConfig(*configPath)
	if err != nil {
		fail("Failed to load config", err)
	}
	logger, err := commandLogger(cfg.Debug || *debug, *logPath)
	if err != nil {
		fail("Failed to create logger", err)
	}
	defer logger.Sync()

	// The progress bar would draw over the chat screen once it is up.
	var screenActive atomic.Bool
	progressEnabled := cli.DefaultProgressEnabled()
	components, err := initializeComponents(cfg, logger, func() index.Progress {
		if screenActive.Load() {
			return nil
		}
		return cli.NewEmbedProgress(progressEnabled, os.Stderr)
	})
	if err != nil {
		fail("Failed to initialize components", err)
	}
	defer components.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sess := session.New(uuid.New().String(), components.Indexer, components.Pipeline, session.WithLogger(logger))
	defer sess.Close()

	result, err := sess.ProcessFiles(ctx, paths, cfg.Watch.Extensions)
	if err != nil {
		fail("Failed to process documents", err)
	}

	screenActive.Store(true)
	p := tea.NewProgram(tui.New(ctx, sess, result.Message()), tea.WithAltScreen())

	if *watch {
		w := watcher.NewWatcher(watchRoots(paths), cfg.Watch.Extensions, func(changed []string) {
			logger.Info("documents changed", zap.Strings("paths", changed))
			p.Send(tui.ProcessingMsg{})
			res, err := sess.ProcessFiles(ctx, paths, cfg.Watch.Extensions)
			p.Send(tui.ProcessedMsg{Result: res, Err: err})
		},
			watcher.WithLogger(logger),
			watcher.WithDebounce(cfg.Watch.Debounce),
		)
		if err := w.Start(ctx); err != nil {
			fail("Failed to start watcher", err)
		}
		defer w.Stop()
		logger.Info("watching documents", zap.Strings("roots", w.Roots()))
	}

	if _, err := p.Run(); err != nil {
		fail("Chat failed", err)
	}
}

// watchRoots returns the paths to watch for the given arguments. A glob is watched
// from its literal base directory.
func watchRoots(paths []string) []string {
	seen := make(map[string]bool)
	var roots []string
	for _, p := range paths {
		root := p
		if strings.ContainsAny(p, "*?[{") {
			base, _ := doublestar.SplitPattern(filepath.ToSlash(p))
			root = filepath.FromSlash(base)
		}
		root = filepath.Clean(root)
		if seen[root] {
			continue
		}
		seen[root] = true
		roots = append(roots, root)
	}
	return roots
}

func runAsk() {
	fs := flag.NewFlagSet("ask", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging")
	question := fs.String("q", "", "question to answer")
	format := fs.String("format", "text", "output format: text or json")
	progress := fs.Bool("progress", cli.DefaultProgressEnabled(), "show embedding progress on stderr")
	_ = fs.Parse(argsReorder(os.Args[2:]))

	paths := fs.Args()
	if strings.TrimSpace(*question) == "" || len(paths) == 0 {
		fmt.Println("Usage: tanya ask [flags] -q <question> <files...>")
		os.Exit(1)
	}
	outFmt, err := cli.ParseOutputFormat(*format)
	if err != nil {
		fail("Invalid flag", err)
	}
	cfg, _, err := loadConfig(*configPath)
	if err != nil {
		fail("Failed to load config", err)
	}
	logger, err := commandLogger(cfg.Debug || *debug, "")
	if err != nil {
		fail("Failed to create logger", err)
	}
	defer logger.Sync()

	components, err := initializeComponents(cfg, logger, func() index.Progress {
		return cli.NewEmbedProgress(*progress, os.Stderr)
	})
	if err != nil {
		fail("Failed to initialize components", err)
	}
	defer components.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sess := session.New(uuid.New().String(), components.Indexer, components.Pipeline, session.WithLogger(logger))
	defer sess.Close()

	result, err := sess.ProcessFiles(ctx, paths, cfg.Watch.Extensions)
	if err != nil {
		fail("Failed to process documents", err)
	}
	if outFmt == cli.OutputText {
		_ = cli.WriteProcessResult(os.Stderr, result, cli.OutputText)
	}

	stopSpinner := cli.StartSpinner(*progress, "thinking")
	ans, err := sess.Ask(ctx, *question)
	stopSpinner()
	if err != nil {
		fail("Failed to answer", err)
	}
	out := &cli.AnswerOutput{Question: *question, Answer: ans, Process: result}
	if err := cli.WriteAnswer(os.Stdout, out, outFmt); err != nil {
		fail("Failed to write answer", err)
	}
}

func runChunk() {
	fs := flag.NewFlagSet("chunk", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	preview := fs.Int("preview", 120, "runes of each chunk to print (0 for all)")
	format := fs.String("format", "text", "output format: text or json")
	_ = fs.Parse(argsReorder(os.Args[2:]))

	paths := fs.Args()
	if len(paths) == 0 {
		fmt.Println("Usage: tanya chunk [flags] <files...>")
		os.Exit(1)
	}
	outFmt, err := cli.ParseOutputFormat(*format)
	if err != nil {
		fail("Invalid flag", err)
	}
	cfg, _, err := loadConfig(*configPath)
	if err != nil {
		fail("Failed to load config", err)
	}
	chunks, report, err := chunkFiles(context.Background(), cfg, paths)
	if err != nil {
		fail("Failed to chunk documents", err)
	}
	for _, name := range report.Skipped {
		fmt.Fprintf(os.Stderr, "skipped: %s\n", name)
	}
	if err := cli.WriteChunks(os.Stdout, chunks, *preview, outFmt); err != nil {
		fail("Failed to write chunks", err)
	}
}

// chunkFiles extracts the corpus named by paths and splits it the way ingestion does,
// without embedding anything.
func chunkFiles(ctx context.Context, cfg *config.Config, paths []string) ([]string, *extract.Report, error) {
	extractor, splitter, err := newExtractor(cfg, zap.NewNop())
	if err != nil {
		return nil, nil, err
	}
	files, err := indexer.CollectFiles(paths, cfg.Watch.Extensions)
	if err != nil {
		return nil, nil, err
	}
	docs, closeAll, err := extract.OpenFiles(files)
	if err != nil {
		return nil, nil, err
	}
	defer closeAll()
	report, err := extractor.Extract(ctx, docs)
	if err != nil {
		return nil, nil, err
	}
	return splitter.Split(report.Text), report, nil
}

func runMCP() {
	fs := flag.NewFlagSet("mcp", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging")
	_ = fs.Parse(os.Args[2:])

	cfg, _, err := loadConfig(*configPath)
	if err != nil {
		fail("Failed to load config", err)
	}
	// stdout carries the protocol; logs stay on stderr.
	logger, err := utils.NewLogger(cfg.Debug || *debug, "stderr")
	if err != nil {
		fail("Failed to create logger", err)
	}
	defer logger.Sync()

	components, err := initializeComponents(cfg, logger, nil)
	if err != nil {
		fail("Failed to initialize components", err)
	}
	defer components.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sess := session.New(uuid.New().String(), components.Indexer, components.Pipeline, session.WithLogger(logger))
	defer sess.Close()

	srv := mcpserver.New(sess, cfg.Watch.Extensions, version, logger)
	if err := srv.Run(ctx); err != nil && ctx.Err() == nil {
		logger.Error("mcp server stopped", zap.Error(err))
		os.Exit(1)
	}
}

func runInit() {
	fs := flag.NewFlagSet("init", flag.ExitOnError)
	configPath := fs.String("config", "config.yaml", "path to write")
	force := fs.Bool("force", false, "overwrite an existing file")
	_ = fs.Parse(os.Args[2:])

	if err := writeDefaultConfig(*configPath, *force); err != nil {
		fail("Failed to write config", err)
	}
	fmt.Printf("Wrote %s\n", *configPath)
}

// writeDefaultConfig saves the built-in defaults to path. An existing file is kept
// unless force is set.
func writeDefaultConfig(path string, force bool) error {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("%s already exists (use --force to overwrite)", path)
		}
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	return config.Save(path, config.Default())
}
