// Package main is the papergraph CLI entry point.
package main

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/papergraph/papergraph/internal/chunker"
	"github.com/papergraph/papergraph/internal/cli"
	"github.com/papergraph/papergraph/internal/config"
	"github.com/papergraph/papergraph/internal/embedding"
	"github.com/papergraph/papergraph/internal/fileid"
	"github.com/papergraph/papergraph/internal/generation"
	"github.com/papergraph/papergraph/internal/graph"
	"github.com/papergraph/papergraph/internal/ingest"
	"github.com/papergraph/papergraph/internal/models"
	"github.com/papergraph/papergraph/internal/retrieval"
	"github.com/papergraph/papergraph/internal/server"
	"github.com/papergraph/papergraph/internal/vector"
	"github.com/papergraph/papergraph/internal/watcher"
	"github.com/papergraph/papergraph/pkg/utils"
)

var version = "dev"

const defaultConfigPath = "/usr/local/etc/papergraph/config.yaml"

// loadConfig loads config from path. When path is the default, it first
// looks for config.yaml in the current directory (for development); if that
// exists it is used. Returns the config and the path actually loaded.
func loadConfig(path string) (*config.Config, string, error) {
	if path == defaultConfigPath {
		if cwd, cwdErr := os.Getwd(); cwdErr == nil {
			fallback := cwd + "/config.yaml"
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
	command := os.Args[1]
	switch command {
	case "server":
		runServer()
	case "index":
		runIndex()
	case "ask":
		runAsk()
	case "metadata":
		runMetadata()
	case "status":
		runStatus()
	case "clear":
		runClear()
	case "version", "--version", "-v":
		fmt.Printf("papergraph version %s\n", version)
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

	components, err := initializeComponents(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize components", zap.Error(err))
	}
	defer components.Close()

	exts := cfg.Watch.Extensions
	watchOpts := []watcher.WatcherOption{}
	if debugMode {
		watchOpts = append(watchOpts, watcher.WithLogger(logger))
	}
	pipeline := components.Pipeline
	watchSvc := watcher.NewWatcher(
		cfg.Watch.Directories,
		exts,
		cfg.Watch.RecursiveOrDefault(),
		func(path string) {
			if _, err := pipeline.IngestFile(context.Background(), path); err != nil {
				logger.Warn("watch ingest failed", zap.String("path", path), zap.Error(err))
			}
		},
		func(path string) {
			if err := components.Indexer.RemoveDocument(context.Background(), fileid.FileDocID(path)); err != nil {
				logger.Warn("watch remove failed", zap.String("path", path), zap.Error(err))
			}
		},
		watchOpts...,
	)
	watchCtx, watchCancel := context.WithCancel(context.Background())
	defer watchCancel()
	if len(cfg.Watch.Directories) > 0 {
		if err := watchSvc.Start(watchCtx); err != nil {
			logger.Fatal("Failed to start watcher", zap.Error(err))
		}
		watchSvc.SyncExistingFiles()
	}

	srv := server.NewServer(
		components.Responder,
		components.Retriever,
		components.Pipeline,
		components.Store,
		cfg,
		logger,
	)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down...")
	if cfg.Storage.VectorIndexPath != "" && components.VectorIndex != nil {
		if err := components.VectorIndex.Save(cfg.Storage.VectorIndexPath); err != nil {
			logger.Warn("vector index save failed",
				zap.String("path", cfg.Storage.VectorIndexPath), zap.Error(err))
		}
	}
	watchCancel()
	watchSvc.Stop()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Stop(ctx)
}

func runIndex() {
	fs := flag.NewFlagSet("index", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	dumpPath := fs.String("dump", "", "write a chunk dump for inspection (.txt or .xlsx)")
	_ = fs.Parse(os.Args[2:])

	if fs.NArg() < 1 {
		fmt.Println("Usage: papergraph index [flags] <file-or-directory>")
		os.Exit(1)
	}
	path := fs.Arg(0)

	cfg, _, err := loadConfig(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger, err := utils.NewLogger(cfg.Debug)
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	components, err := initializeComponents(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize", zap.Error(err))
	}
	defer components.Close()

	ctx := context.Background()
	info, err := os.Stat(path)
	if err != nil {
		fmt.Printf("Failed to stat path: %v\n", err)
		os.Exit(1)
	}
	var chunks []*models.Chunk
	if info.IsDir() {
		n, err := components.Pipeline.IngestDir(ctx, path, cfg.Watch.Extensions)
		if err != nil {
			fmt.Printf("Indexing directory failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Indexed %d document(s) from %s\n", n, path)
		if *dumpPath != "" {
			if chunks, err = components.Pipeline.LoadCorpus(ctx, path, cfg.Watch.Extensions); err != nil {
				fmt.Printf("Warning: chunk dump skipped: %v\n", err)
			}
		}
	} else {
		chunks, err = components.Pipeline.IngestFile(ctx, path)
		if err != nil {
			fmt.Printf("Indexing failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Indexed %s (%d chunks)\n", path, len(chunks))
	}
	if *dumpPath != "" && len(chunks) > 0 {
		dump := chunker.WriteDump
		if strings.EqualFold(filepath.Ext(*dumpPath), ".xlsx") {
			dump = chunker.WriteWorkbook
		}
		if err := dump(*dumpPath, chunks); err != nil {
			fmt.Printf("Warning: chunk dump failed: %v\n", err)
		} else {
			fmt.Printf("Wrote chunk dump to %s\n", *dumpPath)
		}
	}

	if cfg.Storage.VectorIndexPath != "" {
		if err := components.VectorIndex.Save(cfg.Storage.VectorIndexPath); err != nil {
			fmt.Printf("Warning: vector index save failed: %v\n", err)
		}
	}
}

func runAsk() {
	fs := flag.NewFlagSet("ask", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	serverURL := fs.String("server", "", "server URL (empty = answer locally)")
	apiKey := fs.String("api-key", "", "API key for the server")
	retriever := fs.String("retriever", "graph", "retriever: graph or brute")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])

	if *retriever != "graph" && *retriever != "brute" {
		fmt.Fprintf(os.Stderr, "Unknown retriever %q (want graph or brute)\n", *retriever)
		os.Exit(1)
	}

	format := cli.OutputText
	if *outputFormat == "json" {
		format = cli.OutputJSON
	}

	question := strings.TrimSpace(strings.Join(fs.Args(), " "))

	answerFn, cleanup, err := buildAnswerFunc(*configPath, *serverURL, *apiKey, *retriever)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize: %v\n", err)
		os.Exit(1)
	}
	defer cleanup()

	if question != "" {
		answer, err := answerFn(context.Background(), question)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Ask failed: %v\n", err)
			os.Exit(1)
		}
		_ = cli.WriteAnswer(os.Stdout, cli.Answer{Question: question, Answer: answer}, format)
		return
	}

	// Interactive loop.
	fmt.Println("Escribe tu pregunta (o 'salir' para terminar):")
	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}
		q := strings.TrimSpace(scanner.Text())
		if q == "" {
			continue
		}
		if q == "salir" || q == "exit" || q == "quit" {
			break
		}
		answer, err := answerFn(context.Background(), q)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Ask failed: %v\n", err)
			continue
		}
		_ = cli.WriteAnswer(os.Stdout, cli.Answer{Question: q, Answer: answer}, format)
	}
}

// buildAnswerFunc returns an answer function backed by the HTTP API when
// serverURL is set, and by local components otherwise. Local mode falls back
// to a brute-force in-memory retriever over the watch directories when the
// graph store cannot be opened, or immediately when retriever is "brute".
func buildAnswerFunc(configPath, serverURL, apiKey, retriever string) (func(context.Context, string) (string, error), func(), error) {
	if serverURL != "" {
		return func(ctx context.Context, question string) (string, error) {
			return askViaHTTP(serverURL, apiKey, question)
		}, func() {}, nil
	}

	cfg, _, err := loadConfig(configPath)
	if err != nil {
		return nil, nil, err
	}
	logger, err := utils.NewLogger(cfg.Debug)
	if err != nil {
		return nil, nil, err
	}

	if retriever == "brute" {
		if len(cfg.Watch.Directories) == 0 {
			return nil, nil, fmt.Errorf("brute-force retrieval needs watch directories in the config")
		}
		responder, cleanup, err := buildBruteForceResponder(cfg, logger)
		if err != nil {
			return nil, nil, err
		}
		return responder.Answer, cleanup, nil
	}

	components, err := initializeComponents(cfg, logger)
	if err == nil {
		return components.Responder.Answer, func() {
			components.Close()
			_ = logger.Sync()
		}, nil
	}
	if !errors.Is(err, graph.ErrBackendUnavailable) || len(cfg.Watch.Directories) == 0 {
		return nil, nil, err
	}

	// Graph store unreachable: answer from an in-memory corpus instead.
	logger.Warn("graph store unavailable, using in-memory retrieval", zap.Error(err))
	responder, cleanup, err := buildBruteForceResponder(cfg, logger)
	if err != nil {
		return nil, nil, err
	}
	return responder.Answer, cleanup, nil
}

func buildBruteForceResponder(cfg *config.Config, logger *zap.Logger) (*generation.Responder, func(), error) {
	ctx := context.Background()
	embedder := newEmbedder(cfg, logger)
	ch, err := chunker.NewChunker(cfg.Index.ChunkSize, cfg.Index.ChunkOverlap)
	if err != nil {
		return nil, nil, err
	}
	var corpus []*models.Chunk
	for _, dir := range cfg.Watch.Directories {
		chunks, err := ingest.LoadCorpus(ctx, ch, dir, cfg.Watch.Extensions, logger)
		if err != nil {
			logger.Warn("corpus load failed", zap.String("dir", dir), zap.Error(err))
			continue
		}
		corpus = append(corpus, chunks...)
	}
	brute, err := retrieval.NewBruteForceRetriever(ctx, embedder, corpus, logger)
	if err != nil {
		return nil, nil, err
	}
	source, err := retrieval.NewBruteForceAnswerSource(brute, cfg.Retrieval.TopK)
	if err != nil {
		return nil, nil, err
	}
	client := newChatClient(cfg)
	responder, err := generation.NewResponder(source, client, logger)
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() {
		_ = embedder.Close()
		if client != nil {
			_ = client.Close()
		}
		_ = logger.Sync()
	}
	return responder, cleanup, nil
}

func askViaHTTP(serverURL, apiKey, question string) (string, error) {
	body, err := json.Marshal(map[string]string{"question": question})
	if err != nil {
		return "", err
	}
	req, err := http.NewRequest(http.MethodPost, strings.TrimRight(serverURL, "/")+"/api/v1/ask", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	if apiKey != "" {
		req.Header.Set("X-API-Key", apiKey)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("server returned %d: %s", resp.StatusCode, string(b))
	}
	var out struct {
		Answer string `json:"answer"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	return out.Answer, nil
}

func runMetadata() {
	fs := flag.NewFlagSet("metadata", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])

	if fs.NArg() < 1 {
		fmt.Println("Usage: papergraph metadata [flags] <field>")
		fmt.Println("Fields: author_real, year, doi, issn, title, source, abstract, tags, emails, orcids")
		os.Exit(1)
	}
	field := fs.Arg(0)

	format := cli.OutputText
	if *outputFormat == "json" {
		format = cli.OutputJSON
	}

	cfg, _, err := loadConfig(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger, err := utils.NewLogger(cfg.Debug)
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	components, err := initializeComponents(cfg, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize: %v\n", err)
		os.Exit(1)
	}
	defer components.Close()

	values, err := components.Retriever.RetrieveMetadata(context.Background(), field)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Metadata lookup failed: %v\n", err)
		os.Exit(1)
	}
	_ = cli.WriteMetadata(os.Stdout, cli.MetadataValues{Field: field, Values: values}, format)
}

func runStatus() {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])

	cfg, _, err := loadConfig(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger, err := utils.NewLogger(cfg.Debug)
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	components, err := initializeComponents(cfg, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize: %v\n", err)
		os.Exit(1)
	}
	defer components.Close()

	ctx := context.Background()
	chunks, err := components.Store.ChunkCount(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Count chunks failed: %v\n", err)
		os.Exit(1)
	}
	edges, err := components.Store.EdgeCount(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Count edges failed: %v\n", err)
		os.Exit(1)
	}

	if *outputFormat == "json" {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		_ = enc.Encode(map[string]interface{}{
			"chunks":            chunks,
			"edges":             edges,
			"vector_index_size": components.VectorIndex.Size(),
		})
		return
	}
	fmt.Printf("chunks:             %d\n", chunks)
	fmt.Printf("edges:              %d\n", edges)
	fmt.Printf("vector_index_size:  %d\n", components.VectorIndex.Size())
	fmt.Println()
	fmt.Println("# configuration")
	fmt.Printf("chunk_size:         %d\n", cfg.Index.ChunkSize)
	fmt.Printf("chunk_overlap:      %d\n", cfg.Index.ChunkOverlap)
	fmt.Printf("edge_threshold:     %.2f\n", cfg.Index.EdgeSimilarityThreshold)
	fmt.Printf("edge_top_k:         %d\n", cfg.Index.EdgeTopK)
	fmt.Printf("top_k:              %d\n", cfg.Retrieval.TopK)
	fmt.Printf("database_path:      %s\n", cfg.Storage.DatabasePath)
	fmt.Printf("vector_index_path:  %s\n", cfg.Storage.VectorIndexPath)
}

func runClear() {
	fs := flag.NewFlagSet("clear", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	yes := fs.Bool("yes", false, "skip confirmation")
	_ = fs.Parse(os.Args[2:])

	cfg, _, err := loadConfig(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	if !*yes {
		fmt.Print("This removes all indexed chunks and edges. Continue? [y/N] ")
		var answer string
		_, _ = fmt.Scanln(&answer)
		if answer != "y" && answer != "Y" {
			fmt.Println("Aborted.")
			return
		}
	}

	store, err := graph.NewSQLiteStore(cfg.Storage.DatabasePath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open store: %v\n", err)
		os.Exit(1)
	}
	defer store.Close()
	if err := store.Clear(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "Clear failed: %v\n", err)
		os.Exit(1)
	}
	if cfg.Storage.VectorIndexPath != "" {
		_ = os.Remove(cfg.Storage.VectorIndexPath)
	}
	fmt.Println("Index cleared.")
}

// Components holds initialized services.
type Components struct {
	Store       graph.Store
	Embedder    embedding.Embedder
	VectorIndex vector.Index
	Indexer     *graph.Indexer
	Pipeline    *ingest.Pipeline
	Retriever   *retrieval.GraphRetriever
	ChatClient  generation.Client
	Responder   *generation.Responder
}

func (c *Components) Close() {
	if c.Store != nil {
		_ = c.Store.Close()
	}
	if c.Embedder != nil {
		_ = c.Embedder.Close()
	}
	if c.VectorIndex != nil {
		_ = c.VectorIndex.Close()
	}
	if c.ChatClient != nil {
		_ = c.ChatClient.Close()
	}
}

// newEmbedder builds the configured embedding backend, falling back to the
// deterministic mock when the local model cannot be loaded.
func newEmbedder(cfg *config.Config, logger *zap.Logger) embedding.Embedder {
	if cfg.Embedding.Backend == "openai" {
		httpEmbedder, err := embedding.NewHTTPEmbedder(embedding.HTTPEmbedderConfig{
			BaseURL:    cfg.Embedding.BaseURL,
			APIKey:     cfg.Embedding.APIKey,
			Model:      cfg.Embedding.Model,
			Dimensions: cfg.Embedding.Dimensions,
			CacheSize:  cfg.Embedding.CacheSize,
		})
		if err == nil {
			return httpEmbedder
		}
		logger.Warn("http embedder unavailable, using mock", zap.Error(err))
		return embedding.NewMockEmbedder(cfg.Embedding.Dimensions)
	}
	onnxEmbedder, err := embedding.NewONNXEmbedder(
		cfg.Embedding.ModelPath,
		cfg.Embedding.Dimensions,
		cfg.Embedding.MaxTokens,
		cfg.Embedding.CacheSize,
	)
	if err != nil {
		logger.Warn("onnx embedder unavailable, using mock", zap.Error(err))
		return embedding.NewMockEmbedder(cfg.Embedding.Dimensions)
	}
	return onnxEmbedder
}

// newChatClient returns the chat backend, or nil when generation is not
// configured (answers then return the raw retrieved context).
func newChatClient(cfg *config.Config) generation.Client {
	if cfg.Generation.BaseURL == "" {
		return nil
	}
	client, err := generation.NewOpenAIClient(generation.OpenAIClientConfig{
		BaseURL:     cfg.Generation.BaseURL,
		APIKey:      cfg.Generation.APIKey,
		Model:       cfg.Generation.Model,
		Temperature: cfg.Generation.Temperature,
		MaxTokens:   cfg.Generation.MaxTokens,
	})
	if err != nil {
		return nil
	}
	return client
}

func initializeComponents(cfg *config.Config, logger *zap.Logger) (*Components, error) {
	store, err := graph.NewSQLiteStore(cfg.Storage.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	embedder := newEmbedder(cfg, logger)

	vectorIndex, err := vector.NewIndex(cfg.Storage.VectorIndexType, cfg.Embedding.Dimensions)
	if err != nil {
		// Fall back to the flat index when the configured type is not built
		// in (e.g. FAISS without the build tag).
		logger.Warn("failed to create vector index, falling back to flat",
			zap.String("requested_type", cfg.Storage.VectorIndexType),
			zap.Error(err))
		vectorIndex, err = vector.NewIndex("flat", cfg.Embedding.Dimensions)
		if err != nil {
			_ = store.Close()
			return nil, fmt.Errorf("failed to initialize vector index: %w", err)
		}
	}

	ix, err := graph.NewIndexer(store, embedder, vectorIndex, graph.IndexerConfig{
		EdgeSimilarityThreshold: cfg.Index.EdgeSimilarityThreshold,
		EdgeTopK:                cfg.Index.EdgeTopK,
	}, graph.WithLogger(logger))
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	// Prefer the saved index file; rebuild from the store when absent.
	loaded := false
	if cfg.Storage.VectorIndexPath != "" {
		if err := vectorIndex.Load(cfg.Storage.VectorIndexPath); err != nil {
			logger.Warn("vector index load failed, rebuilding",
				zap.String("path", cfg.Storage.VectorIndexPath), zap.Error(err))
		} else {
			loaded = vectorIndex.Size() > 0
		}
	}
	if !loaded {
		if err := ix.RebuildVectorIndex(context.Background()); err != nil {
			logger.Warn("vector index rebuild failed", zap.Error(err))
		}
	}

	ch, err := chunker.NewChunker(cfg.Index.ChunkSize, cfg.Index.ChunkOverlap)
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	pipeline, err := ingest.NewPipeline(ch, ix, logger)
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	retriever, err := retrieval.NewGraphRetriever(store, embedder, vectorIndex, retrieval.GraphRetrieverConfig{
		TopK:                    cfg.Retrieval.TopK,
		CandidatePoolMultiplier: cfg.Retrieval.CandidatePoolMultiplier,
	}, logger)
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	chatClient := newChatClient(cfg)
	responder, err := generation.NewResponder(retriever, chatClient, logger)
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	return &Components{
		Store:       store,
		Embedder:    embedder,
		VectorIndex: vectorIndex,
		Indexer:     ix,
		Pipeline:    pipeline,
		Retriever:   retriever,
		ChatClient:  chatClient,
		Responder:   responder,
	}, nil
}

func printUsage() {
	fmt.Println(`papergraph - graph-augmented retrieval over document collections

Usage:
  papergraph server [flags]            Start the HTTP server
  papergraph index [flags] <path>      Index a document or directory
  papergraph ask [flags] [question]    Ask a question (interactive when omitted)
  papergraph metadata [flags] <field>  List distinct metadata values
  papergraph status [flags]            Show index status
  papergraph clear [flags]             Remove all indexed data
  papergraph version                   Show version
  papergraph help                      Show this help

Server Flags:
  --config string    Config file path (default: /usr/local/etc/papergraph/config.yaml)
  --debug            Enable debug logging

Ask Flags:
  --config string     Config file path (local mode)
  --server string     Server URL (empty = answer locally)
  --api-key string    API key for the server
  --retriever string  Retriever: graph or brute (default: graph)
  --output string     Output format: text or json (default: text)

Examples:
  papergraph server
  papergraph index ./papers
  papergraph ask "¿quién es el autor del artículo?"
  papergraph ask --server http://localhost:8080 "¿de qué trata la sección de métodos?"
  papergraph metadata author_real
  papergraph status
  papergraph clear --yes`)
}
