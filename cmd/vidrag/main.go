package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/exec"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/vidrag/vidrag/internal/config"
	"github.com/vidrag/vidrag/internal/ingest"
	"github.com/vidrag/vidrag/internal/llm"
	"github.com/vidrag/vidrag/internal/llm/openai"
	"github.com/vidrag/vidrag/internal/observability"
	"github.com/vidrag/vidrag/internal/rag"
	"github.com/vidrag/vidrag/internal/retrieval"
	"github.com/vidrag/vidrag/internal/server"
	"github.com/vidrag/vidrag/internal/vector"
	"github.com/vidrag/vidrag/internal/vector/qdrant"
)

const version = "0.1.0"

func main() {
	var configPath string

	rootCmd := &cobra.Command{
		Use:   "vidrag",
		Short: "Ask questions about YouTube videos via retrieval-augmented generation",
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file path")

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(configPath)
		},
	}

	var (
		ingestCollection string
		ingestRebuild    bool
	)
	ingestCmd := &cobra.Command{
		Use:   "ingest <youtube-url>",
		Short: "Download, transcribe and index one video",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runIngest(configPath, args[0], ingestCollection, ingestRebuild)
		},
	}
	ingestCmd.Flags().StringVar(&ingestCollection, "collection", "", "Target collection (overrides per-video naming)")
	ingestCmd.Flags().BoolVar(&ingestRebuild, "rebuild", false, "Drop the target collection before indexing")

	var (
		askVideo      string
		askCollection string
		askTopK       int
		askStream     bool
	)
	askCmd := &cobra.Command{
		Use:   "ask <question>",
		Short: "Answer a question against an indexed video",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAsk(configPath, args[0], askVideo, askCollection, askTopK, askStream)
		},
	}
	askCmd.Flags().StringVar(&askVideo, "video", "", "Video ID to query")
	askCmd.Flags().StringVar(&askCollection, "collection", "", "Collection to query")
	askCmd.Flags().IntVar(&askTopK, "top-k", 0, "Results per query variant (0 = config default)")
	askCmd.Flags().BoolVar(&askStream, "stream", false, "Stream answer tokens as they arrive")

	providersCmd := &cobra.Command{
		Use:   "providers",
		Short: "List available LLM providers",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println("Available LLM providers:")
			fmt.Println()
			for name, url := range llm.KnownProviders {
				fmt.Printf("  %-14s %s\n", name, url)
			}
			fmt.Println()
			fmt.Println("Configure in vidrag.yaml or via environment:")
			fmt.Println("  VIDRAG_LLM_PROVIDER=openai")
			fmt.Println("  VIDRAG_LLM_API_KEY=sk-...")
			fmt.Println("  VIDRAG_LLM_MODEL=gpt-4o-mini")
		},
	}

	rootCmd.AddCommand(serveCmd, ingestCmd, askCmd, providersCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// app bundles the wired components shared by all commands.
type app struct {
	cfg      *config.Config
	logger   *slog.Logger
	provider llm.Provider
	store    *qdrant.Store
	namer    vector.Namer
	svc      *rag.Service
	pipeline *ingest.Pipeline
	tracing  *observability.TracerProvider
}

func buildApp(ctx context.Context, configPath string) (*app, error) {
	_ = godotenv.Load()

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	logger := newLogger(cfg.Log)
	slog.SetDefault(logger)

	if err := cfg.EnsureDirs(); err != nil {
		return nil, err
	}

	tracing, err := observability.InitTracing(ctx, &observability.TracingConfig{
		ServiceName:    cfg.App.Name,
		ServiceVersion: version,
		Environment:    cfg.App.Env,
		OTLPEndpoint:   cfg.Tracing.OTLPEndpoint,
		SampleRate:     cfg.Tracing.SampleRate,
	})
	if err != nil {
		return nil, err
	}

	factory := llm.NewFactory()
	for name := range llm.KnownProviders {
		base := llm.KnownProviders[name]
		factory.Register(name, func(pc llm.ProviderConfig) (llm.Provider, error) {
			if pc.BaseURL == "" {
				pc.BaseURL = base
			}
			return openai.New(pc), nil
		})
	}

	providerCfg := llm.DefaultProviderConfig()
	providerCfg.Provider = cfg.LLM.Provider
	providerCfg.APIKey = cfg.LLM.APIKey
	providerCfg.Model = cfg.LLM.Model
	providerCfg.BaseURL = cfg.LLM.BaseURL
	providerCfg.EmbedModel = cfg.LLM.EmbedModel
	providerCfg.TranscribeModel = cfg.LLM.TranscribeModel
	if cfg.LLM.MaxRetries > 0 {
		providerCfg.MaxRetries = cfg.LLM.MaxRetries
	}
	providerCfg.RequestsPerMinute = cfg.LLM.RequestsPerMinute
	providerCfg.TokensPerMinute = cfg.LLM.TokensPerMinute
	providerCfg.BurstSize = cfg.LLM.BurstSize

	provider, err := factory.Create(providerCfg)
	if err != nil {
		return nil, err
	}

	store, err := qdrant.New(cfg.Vector.Host, cfg.Vector.Port, logger)
	if err != nil {
		return nil, err
	}

	namer := vector.Namer{
		Default:  cfg.Vector.DefaultCollection,
		PerVideo: cfg.Vector.PerVideo,
	}

	engine := retrieval.NewEngine(provider, store, retrieval.Config{
		DefaultTopK: cfg.Vector.TopK,
		Weights: &retrieval.Weights{
			Lexical:      cfg.Retrieval.LexicalWeight,
			FullCoverage: cfg.Retrieval.CoverageBonus,
			Acronym:      cfg.Retrieval.AcronymBonus,
			LeadChunk:    cfg.Retrieval.LeadChunkBonus,
		},
		Logger: logger,
	})

	svc := rag.NewService(provider, engine, cfg.Retrieval.MaxContextChunks, logger)

	downloader := ingest.NewDownloader(cfg.Ingest.UploadDir, cfg.Ingest.YtdlpBin, logger)
	extractor := ingest.NewExtractor(cfg.Ingest.AudioDir, cfg.Ingest.FfmpegBin)
	splitter := rag.NewSplitter(cfg.Ingest.ChunkSize, cfg.Ingest.ChunkOverlap)
	pipeline := ingest.NewPipeline(downloader, extractor, provider, store, splitter, namer, cfg.Ingest.TranscriptDir, logger)

	return &app{
		cfg:      cfg,
		logger:   logger,
		provider: provider,
		store:    store,
		namer:    namer,
		svc:      svc,
		pipeline: pipeline,
		tracing:  tracing,
	}, nil
}

func newLogger(cfg config.LogConfig) *slog.Logger {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	return slog.New(handler)
}

func runServe(configPath string) error {
	ctx := context.Background()

	a, err := buildApp(ctx, configPath)
	if err != nil {
		return err
	}

	health := server.NewHealthRegistry(version)
	health.RegisterCheck("vector_store", server.VectorStoreHealthChecker(func(ctx context.Context) error {
		_, err := a.store.Has(ctx, a.namer.Default)
		return err
	}))
	health.RegisterCheck("llm", server.LLMHealthChecker(a.provider.Name(), nil))
	health.RegisterCheck("yt-dlp", server.ToolHealthChecker("yt-dlp", func() (string, error) {
		return exec.LookPath(ytdlpBinOrDefault(a.cfg.Ingest.YtdlpBin))
	}))
	health.RegisterCheck("ffmpeg", server.ToolHealthChecker("ffmpeg", func() (string, error) {
		return exec.LookPath(ffmpegBinOrDefault(a.cfg.Ingest.FfmpegBin))
	}))

	api := server.NewAPI(a.svc, a.pipeline, a.store, a.namer, health, server.APIConfig{
		Prefix:      a.cfg.Server.APIPrefix,
		CORSOrigins: a.cfg.Server.CORSOrigins,
		Debug:       a.cfg.App.Debug,
	}, a.logger)

	httpSrv := &http.Server{
		Addr:              a.cfg.Server.Addr,
		Handler:           api.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	sh := server.NewShutdownHandler(&server.ShutdownConfig{
		Timeout: 30 * time.Second,
		Signals: server.DefaultShutdownConfig().Signals,
		Logger:  a.logger,
	})
	for _, hook := range []server.ShutdownHook{
		server.HTTPServerShutdownHook("http", httpSrv.Shutdown),
		server.TracingShutdownHook(a.tracing.Shutdown),
		server.VectorStoreShutdownHook(a.store.Close),
	} {
		sh.RegisterHook(hook.Name, hook.Priority, hook.Fn)
	}
	sh.Start()

	a.logger.Info("server listening", "addr", a.cfg.Server.Addr, "prefix", a.cfg.Server.APIPrefix)

	errCh := make(chan error, 1)
	go func() {
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-sh.Done():
		return nil
	}
}

func runIngest(configPath, url, collection string, rebuild bool) error {
	ctx := context.Background()

	a, err := buildApp(ctx, configPath)
	if err != nil {
		return err
	}
	defer a.close(ctx)

	ctx, span := observability.StartIngestSpan(ctx, url)
	report, err := a.pipeline.Process(ctx, url, collection, rebuild)
	if err != nil {
		observability.RecordError(span, err)
		span.End()
		return err
	}
	observability.RecordIngestResult(span, report.VideoID, report.CollectionName, report.ChunkCount)
	span.End()

	out, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}

func runAsk(configPath, question, videoID, collection string, topK int, stream bool) error {
	ctx := context.Background()

	a, err := buildApp(ctx, configPath)
	if err != nil {
		return err
	}
	defer a.close(ctx)

	target := a.namer.Resolve(videoID, collection)

	if stream {
		s, sources, err := a.svc.StreamAnswer(ctx, question, target, topK)
		if err != nil {
			return err
		}
		defer s.Close()

		streamed := false
		for {
			delta, err := s.Recv()
			if err == io.EOF {
				break
			}
			if err != nil {
				return err
			}
			streamed = true
			fmt.Print(delta)
		}
		if !streamed {
			fmt.Print(rag.RefusalAnswer)
		}
		fmt.Println()
		printSources(sources)
		return nil
	}

	result, err := a.svc.AnswerQuestion(ctx, question, target, topK)
	if err != nil {
		return err
	}
	fmt.Println(result.Answer)
	printSources(result.Sources)
	return nil
}

func printSources(sources []rag.Source) {
	if len(sources) == 0 {
		return
	}
	fmt.Println()
	fmt.Println("Sources:")
	for i, src := range sources {
		title := src.Metadata["title"]
		idx := src.Metadata["chunk_index"]
		fmt.Printf("  %d. %s (chunk %s, score %.3f)\n", i+1, title, idx, src.Score)
	}
}

func (a *app) close(ctx context.Context) {
	if err := a.store.Close(); err != nil {
		a.logger.Warn("closing vector store", "error", err)
	}
	shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := a.tracing.Shutdown(shutdownCtx); err != nil {
		a.logger.Warn("shutting down tracing", "error", err)
	}
}

func ytdlpBinOrDefault(bin string) string {
	if bin == "" {
		return "yt-dlp"
	}
	return bin
}

func ffmpegBinOrDefault(bin string) string {
	if bin == "" {
		return "ffmpeg"
	}
	return bin
}
