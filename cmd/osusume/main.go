// Package main is the Osusume CLI entry point.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/osusume/internal/config"
	"github.com/hyperjump/osusume/internal/ingest"
	"github.com/hyperjump/osusume/internal/models"
	"github.com/hyperjump/osusume/internal/recommend"
	"github.com/hyperjump/osusume/internal/registry"
	"github.com/hyperjump/osusume/internal/server"
	"github.com/hyperjump/osusume/internal/store"
	"github.com/hyperjump/osusume/internal/watcher"
	"github.com/hyperjump/osusume/pkg/utils"
)

var version = "dev"

const defaultConfigPath = "/usr/local/etc/osusume/config.yaml"

// loadConfig loads config from path. When path is the default, it first looks
// for config.yaml in the current directory (for development); if that exists
// it is used. Returns the config and the path that was actually loaded.
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
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	switch os.Args[1] {
	case "server":
		runServer()
	case "train":
		runTrain()
	case "recommend":
		runRecommend()
	case "ingest":
		runIngest()
	case "status":
		runStatus()
	case "version", "--version", "-v":
		fmt.Printf("osusume version %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Print(`Usage: osusume <command> [flags]

Commands:
  server      Run the API server (recommendations, courses, ingestion)
  train       Train the recommendation model against the course catalog
  recommend   Query recommendations for a course key (via running server)
  ingest      Load a catalog file (.json, .csv, .xlsx) into the catalog
  status      Show catalog and engine status (via running server)
  version     Print version
`)
}

// components holds the wired application pieces for server and local commands.
type components struct {
	Store    *store.SQLiteStore
	Registry *registry.DiskRegistry
	Engine   *recommend.Engine
	Ingestor *ingest.Ingestor
}

func initializeComponents(cfg *config.Config, logger *zap.Logger) (*components, error) {
	cs, err := store.NewSQLiteStore(cfg.Storage.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("open course store: %w", err)
	}
	reg, err := registry.NewDiskRegistry(cfg.Storage.ModelDir)
	if err != nil {
		_ = cs.Close()
		return nil, fmt.Errorf("open model registry: %w", err)
	}
	engine := recommend.NewEngine(cs, reg, recommend.Config{
		ModelName:         cfg.Recommend.ModelName,
		MaxFeatures:       cfg.Recommend.MaxFeatures,
		DependencyTimeout: cfg.Recommend.DependencyTimeout,
	}, logger)
	return &components{
		Store:    cs,
		Registry: reg,
		Engine:   engine,
		Ingestor: ingest.NewIngestor(cs, logger),
	}, nil
}

func (c *components) Close() {
	_ = c.Store.Close()
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

	comps, err := initializeComponents(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize components", zap.Error(err))
	}
	defer comps.Close()

	// Restore or train before serving; a cold engine degrades to the
	// popularity fallback instead of blocking startup.
	comps.Engine.Initialize(context.Background())

	watchCtx, watchCancel := context.WithCancel(context.Background())
	defer watchCancel()
	if len(cfg.Ingest.Directories) > 0 {
		w := watcher.New(cfg.Ingest.Directories, cfg.Ingest.Extensions, func(path string) {
			ctx := context.Background()
			if _, err := comps.Ingestor.IngestFile(ctx, path); err != nil {
				logger.Warn("catalog ingest failed", zap.String("path", path), zap.Error(err))
				return
			}
			if err := comps.Engine.RetrainIfNeeded(ctx); err != nil {
				logger.Warn("retrain after ingest failed", zap.Error(err))
			}
		}, watcher.WithLogger(logger))
		if err := w.Start(watchCtx); err != nil {
			logger.Fatal("Failed to start catalog watcher", zap.Error(err))
		}
		defer w.Stop()
	}

	srv := server.NewServer(comps.Engine, comps.Store, comps.Ingestor, cfg, logger)
	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down...")
	watchCancel()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Stop(ctx)
}

func runTrain() {
	fs := flag.NewFlagSet("train", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	_ = fs.Parse(os.Args[2:])

	cfg, _, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger, err := utils.NewLogger(cfg.Debug)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	comps, err := initializeComponents(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize", zap.Error(err))
	}
	defer comps.Close()

	if err := comps.Engine.Train(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "Training failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Model trained over %d courses.\n", comps.Engine.IndexedCount())
}

func runIngest() {
	fs := flag.NewFlagSet("ingest", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	_ = fs.Parse(os.Args[2:])
	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "Usage: osusume ingest [flags] <catalog file>")
		os.Exit(1)
	}

	cfg, _, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger, err := utils.NewLogger(cfg.Debug)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	comps, err := initializeComponents(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize", zap.Error(err))
	}
	defer comps.Close()

	for _, path := range fs.Args() {
		added, err := comps.Ingestor.IngestFile(context.Background(), path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Ingest %s failed: %v\n", path, err)
			os.Exit(1)
		}
		fmt.Printf("%s: %d courses added.\n", path, added)
	}
}

// recommendationsResponse mirrors the server's recommendations payload.
type recommendationsResponse struct {
	Results  []models.Recommendation `json:"results"`
	Fallback bool                    `json:"fallback"`
}

func runRecommend() {
	fs := flag.NewFlagSet("recommend", flag.ExitOnError)
	serverURL := fs.String("server", "http://localhost:8080", "server URL")
	topN := fs.Int("top", 5, "number of recommendations")
	_ = fs.Parse(os.Args[2:])
	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "Usage: osusume recommend [flags] <course key>")
		os.Exit(1)
	}
	key := fs.Arg(0)

	resp, err := http.Get(buildRecommendURL(*serverURL, key, *topN))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Request failed: %v\n", err)
		os.Exit(1)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		fmt.Fprintf(os.Stderr, "Server returned %d: %s\n", resp.StatusCode, string(b))
		os.Exit(1)
	}
	var payload recommendationsResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		fmt.Fprintf(os.Stderr, "Decode response failed: %v\n", err)
		os.Exit(1)
	}

	if payload.Fallback {
		fmt.Println("(engine not ready or no matches; showing newest courses)")
	}
	if len(payload.Results) == 0 {
		fmt.Println("No recommendations.")
		return
	}
	for i, r := range payload.Results {
		fmt.Printf("%d. %s (%.3f)\n   %s\n   %s\n", i+1, r.Title, r.Score, r.Key, utils.Truncate(r.Description, 120))
	}
}

// buildRecommendURL assembles the recommendations endpoint URL with the key
// and top_n query parameters escaped.
func buildRecommendURL(base, key string, topN int) string {
	q := url.Values{}
	q.Set("key", key)
	q.Set("top_n", strconv.Itoa(topN))
	return base + "/api/v1/recommendations?" + q.Encode()
}

func runStatus() {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	serverURL := fs.String("server", "http://localhost:8080", "server URL")
	_ = fs.Parse(os.Args[2:])

	resp, err := http.Get(*serverURL + "/api/v1/status")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Request failed: %v\n", err)
		os.Exit(1)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		fmt.Fprintf(os.Stderr, "Server returned %d: %s\n", resp.StatusCode, string(b))
		os.Exit(1)
	}
	var status struct {
		Courses      int64 `json:"courses"`
		EngineReady  bool  `json:"engine_ready"`
		IndexedCount int   `json:"indexed_count"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		fmt.Fprintf(os.Stderr, "Decode response failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Courses:        %d\n", status.Courses)
	fmt.Printf("Engine ready:   %v\n", status.EngineReady)
	fmt.Printf("Indexed count:  %d\n", status.IndexedCount)
}
