package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"github.com/xxxsen/common/logger"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/docqa/docqa/internal/ai"
	"github.com/docqa/docqa/internal/config"
	"github.com/docqa/docqa/internal/docsource"
	"github.com/docqa/docqa/internal/embedcache"
	"github.com/docqa/docqa/internal/gateway"
	"github.com/docqa/docqa/internal/handler"
	"github.com/docqa/docqa/internal/index"
	"github.com/docqa/docqa/internal/job"
	"github.com/docqa/docqa/internal/middleware"
	"github.com/docqa/docqa/internal/model"
	"github.com/docqa/docqa/internal/repo"
	"github.com/docqa/docqa/internal/schedule"
	"github.com/docqa/docqa/internal/service"
	"github.com/docqa/docqa/internal/whatsapp"
)

func main() {
	var configPath string
	var reset bool
	var topK int

	rootCmd := &cobra.Command{
		Use:   "docqa",
		Short: "document question answering server",
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to config.json")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "run the api and webhook server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}
			return runServer(cfg)
		},
	}

	ingestCmd := &cobra.Command{
		Use:   "ingest [files...]",
		Short: "index documents into the vector store",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}
			return runIngest(cfg, args, reset)
		},
	}
	ingestCmd.Flags().BoolVar(&reset, "reset", false, "rebuild the index instead of appending")

	askCmd := &cobra.Command{
		Use:   "ask [question]",
		Short: "answer one question from the command line",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}
			return runAsk(cfg, args[0], topK)
		},
	}
	askCmd.Flags().IntVar(&topK, "top-k", 0, "number of passages to retrieve")

	rootCmd.AddCommand(runCmd, ingestCmd, askCmd)

	if err := rootCmd.Execute(); err != nil {
		logutil.GetLogger(context.Background()).Fatal("startup error", zap.Error(err))
	}
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return nil, fmt.Errorf("--config is required")
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	logger.Init(
		cfg.LogConfig.File,
		cfg.LogConfig.Level,
		int(cfg.LogConfig.FileCount),
		int(cfg.LogConfig.FileSize),
		int(cfg.LogConfig.KeepDays),
		cfg.LogConfig.Console,
	)
	logutil.GetLogger(context.Background()).Info("config loaded", zap.String("config", path))
	return cfg, nil
}

type app struct {
	cfg     *config.Config
	idx     *index.VectorIndex
	ingest  *service.IngestService
	queries *service.QueryService
	pingers map[string]handler.Pinger
}

func buildApp(ctx context.Context, cfg *config.Config) (*app, error) {
	llmProvider, err := ai.NewProvider(cfg.LLM.Provider, cfg.LLM.Data)
	if err != nil {
		return nil, fmt.Errorf("init llm provider: %w", err)
	}
	embedProvider, err := ai.NewEmbedProvider(cfg.Embedding.Provider, cfg.Embedding.Data)
	if err != nil {
		return nil, fmt.Errorf("init embedding provider: %w", err)
	}

	embedder := ai.NewEmbedder(embedProvider, cfg.Embedding.Model)
	if cfg.Embedding.CacheSize > 0 {
		embedder = embedcache.WrapLruCacheToEmbedder(embedder,
			cfg.Embedding.CacheSize,
			time.Duration(cfg.Embedding.CacheTTL)*time.Minute)
	}

	store := index.NewStore(cfg.Store.Dir)
	idx := index.NewVectorIndex(store)
	if err := idx.Load(ctx); err != nil {
		logutil.GetLogger(ctx).Error("index load failed, starting degraded", zap.Error(err))
	} else if stamped := idx.EmbeddingModel(); stamped != "" && stamped != cfg.Embedding.Model {
		logutil.GetLogger(ctx).Warn("index was built with a different embedding model",
			zap.String("index_model", stamped),
			zap.String("configured_model", cfg.Embedding.Model))
	}

	retriever := service.NewRetriever(idx, embedder,
		cfg.Retrieval.TopK, cfg.Retrieval.MaxTopK, float32(cfg.Retrieval.MinScore))
	generator := service.NewGenerator(ai.NewGenerator(llmProvider, cfg.LLM.Model),
		cfg.LLM.Temperature,
		time.Duration(cfg.LLM.TimeoutSeconds)*time.Second,
		cfg.LLM.MaxReplyChars)
	queries := service.NewQueryService(service.NewClassifier(), retriever, generator)
	ingest := service.NewIngestService(idx, embedder, cfg.Chunking.TargetWords)

	pingers := map[string]handler.Pinger{}
	if p, ok := llmProvider.(ai.IPinger); ok {
		pingers["llm"] = p
	}
	if p, ok := embedProvider.(ai.IPinger); ok && embedProvider.Name() != llmProvider.Name() {
		pingers["embedding"] = p
	}

	return &app{
		cfg:     cfg,
		idx:     idx,
		ingest:  ingest,
		queries: queries,
		pingers: pingers,
	}, nil
}

func runServer(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := buildApp(ctx, cfg)
	if err != nil {
		return err
	}
	logger := logutil.GetLogger(ctx)

	var msglog *service.MessageLogService
	if cfg.Database.DSN != "" {
		db, err := repo.Open(ctx, cfg.Database.DSN)
		if err != nil {
			return fmt.Errorf("open database: %w", err)
		}
		defer db.Close()
		msglog = service.NewMessageLogService(repo.NewMessageLogRepo(db))
	} else {
		msglog = service.NewMessageLogService(nil)
	}

	sender := whatsapp.NewClient(
		cfg.WhatsApp.APIBase,
		cfg.WhatsApp.AccessToken,
		cfg.WhatsApp.PhoneNumberID,
		time.Duration(cfg.WhatsApp.SendTimeoutSec)*time.Second,
		cfg.WhatsApp.MaxAttempts,
	)
	deduper := gateway.NewDeduper(cfg.Dedup.MaxEntries, time.Duration(cfg.Dedup.WindowMinutes)*time.Minute)
	gw := gateway.New(a.queries, sender, deduper, msglog)

	scheduler := schedule.NewCronScheduler()
	if cfg.Corpus.Source != "" {
		source, err := docsource.New(cfg.Corpus.Source, cfg.Corpus.Data)
		if err != nil {
			return fmt.Errorf("init corpus source: %w", err)
		}
		scanJob := job.NewCorpusScanJob(source, a.idx, a.ingest)
		if err := scheduler.AddJob(scanJob, cfg.Corpus.ScanSpec); err != nil {
			return err
		}
	}
	scheduler.Start(ctx)
	defer scheduler.Stop()

	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(middleware.RequestID())
	engine.Use(gzip.Gzip(gzip.DefaultCompression))
	var apiMiddlewares []gin.HandlerFunc
	if cfg.RateLimitMS > 0 {
		apiMiddlewares = append(apiMiddlewares, middleware.RateLimit(time.Duration(cfg.RateLimitMS)*time.Millisecond))
	}
	handler.RegisterRoutes(engine, handler.RouterDeps{
		Query:          handler.NewQueryHandler(a.queries),
		Health:         handler.NewHealthHandler(a.idx, a.pingers),
		Logs:           handler.NewLogsHandler(msglog),
		Webhook:        handler.NewWebhookHandler(gw, cfg.WhatsApp.VerifyToken, cfg.WhatsApp.AppSecret, 0),
		APIMiddlewares: apiMiddlewares,
	})

	addr := fmt.Sprintf("0.0.0.0:%d", cfg.Port)
	server := &http.Server{Addr: addr, Handler: engine}
	logger.Info("http server listening", zap.String("addr", addr), zap.Bool("index_loaded", a.idx.IsLoaded()))

	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("server stopping...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

func runIngest(cfg *config.Config, files []string, reset bool) error {
	ctx := context.Background()
	a, err := buildApp(ctx, cfg)
	if err != nil {
		return err
	}
	mode := model.IndexAppend
	if reset {
		mode = model.IndexCreate
	}
	total, err := a.ingest.IngestFiles(ctx, files, mode)
	if err != nil {
		return err
	}
	logutil.GetLogger(ctx).Info("ingest finished",
		zap.Int("files", len(files)),
		zap.Int("passages", total),
		zap.Int("index_size", a.idx.Len()))
	return nil
}

func runAsk(cfg *config.Config, question string, topK int) error {
	ctx := context.Background()
	a, err := buildApp(ctx, cfg)
	if err != nil {
		return err
	}
	result, err := a.queries.Ask(ctx, question, topK)
	if err != nil {
		return err
	}
	fmt.Println(result.Answer)
	for _, src := range result.Sources {
		fmt.Printf("  [%s#%d score=%.3f]\n", src.SourceDocument, src.SequenceIndex, src.Score)
	}
	return nil
}
