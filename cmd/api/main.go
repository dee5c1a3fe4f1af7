package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/matchwise/matchwise/internal/application"
	appanalysis "github.com/matchwise/matchwise/internal/application/analysis"
	appjobdesc "github.com/matchwise/matchwise/internal/application/jobdesc"
	apprewrite "github.com/matchwise/matchwise/internal/application/rewrite"
	"github.com/matchwise/matchwise/internal/config"
	domanalysis "github.com/matchwise/matchwise/internal/domain/analysis"
	domjobdesc "github.com/matchwise/matchwise/internal/domain/jobdesc"
	"github.com/matchwise/matchwise/internal/domain/latex"
	domrewrite "github.com/matchwise/matchwise/internal/domain/rewrite"
	openaicli "github.com/matchwise/matchwise/internal/infra/ai/openai"
	"github.com/matchwise/matchwise/internal/infra/ai/prompt"
	mysqlp "github.com/matchwise/matchwise/internal/infra/db/mysql"
	postgresp "github.com/matchwise/matchwise/internal/infra/db/postgres"
	"github.com/matchwise/matchwise/internal/infra/extract"
	"github.com/matchwise/matchwise/internal/infra/httpserver"
	"github.com/matchwise/matchwise/internal/infra/latexonline"
	"github.com/matchwise/matchwise/internal/infra/queue"
	minioStore "github.com/matchwise/matchwise/internal/infra/storage"
	loggerpkg "github.com/matchwise/matchwise/internal/logger"
	"github.com/matchwise/matchwise/internal/middleware"
)

func main() {
	// path config.yaml
	path := "config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		path = v
	}

	// load config
	cfg, err := config.Load(path)
	if err != nil {
		log.Fatalf("config load error: %v", err)
	}

	logger, err := loggerpkg.New(cfg.Log.JSON, cfg.Log.Debug)
	if err != nil {
		log.Fatalf("logger init error: %v", err)
	}
	defer logger.Sync()

	ctx := context.Background()

	// connect database
	var (
		db           *sql.DB
		analysisRepo domanalysis.Repository
		rewriteRepo  domrewrite.Repository
		jobdescRepo  domjobdesc.Repository
	)
	switch cfg.Database.Driver {
	case "postgres":
		db, err = postgresp.Connect(ctx, cfg.PostgresDSN())
		if err != nil {
			logger.Fatal("postgres connect error", zap.Error(err))
		}
		analysisRepo = postgresp.NewAnalysisRepository(db)
		rewriteRepo = postgresp.NewRewriteRepository(db)
		jobdescRepo = postgresp.NewJobDescriptionRepository(db)
	default:
		db, err = mysqlp.Connect(ctx, cfg.MySQLDSN())
		if err != nil {
			logger.Fatal("mysql connect error", zap.Error(err))
		}
		analysisRepo = mysqlp.NewAnalysisRepository(db)
		rewriteRepo = mysqlp.NewRewriteRepository(db)
		jobdescRepo = mysqlp.NewJobDescriptionRepository(db)
	}
	defer db.Close()

	// init minio
	store, err := minioStore.New(ctx,
		cfg.Minio.Endpoint,
		cfg.Minio.Region,
		cfg.Minio.BucketName,
		cfg.Minio.AccessKey,
		cfg.Minio.SecretKey,
		cfg.Minio.UseSSL,
	)
	if err != nil {
		logger.Fatal("minio init error", zap.Error(err))
	}

	// template wajib ada sebelum server jalan
	latexTemplate, err := prompt.LoadTemplate(cfg.Latex.TemplatePath)
	if err != nil {
		logger.Fatal("latex template error", zap.Error(err))
	}

	aiClient := openaicli.NewClient(cfg.OpenAI.APIKey, cfg.OpenAI.Model, latexTemplate, logger)
	extractor := extract.New(logger)
	compiler := latexonline.New(cfg.Latex.CompileURL, store, logger)
	sanitizer := latex.NewSanitizer(logger)
	clock := application.SystemClock{}

	jobdescSvc := &appjobdesc.Service{
		JobDescriptions: jobdescRepo,
		Analyses:        analysisRepo,
		Files:           store,
		Clock:           clock,
		Logger:          logger,
	}
	analysisSvc := &appanalysis.Service{
		Analyses:        analysisRepo,
		JobDescriptions: jobdescRepo,
		Files:           store,
		Extractor:       extractor,
		Analyzer:        aiClient,
		Logger:          logger,
	}
	rewriteSvc := &apprewrite.Service{
		Rewrites:        rewriteRepo,
		Analyses:        analysisRepo,
		JobDescriptions: jobdescRepo,
		Files:           store,
		Extractor:       extractor,
		Generator:       aiClient,
		Sanitizer:       sanitizer,
		Compiler:        compiler,
		Clock:           clock,
		Logger:          logger,
	}

	tasks := queue.New(cfg.Queue.Workers, cfg.Queue.MaxAttempts,
		time.Duration(cfg.Queue.BackoffSeconds)*time.Second, logger)

	handler := httpserver.NewRouter(jobdescSvc, analysisSvc, rewriteSvc, tasks, logger, httpserver.Options{
		APIKeys:           cfg.Auth.APIKeys,
		RateLimitCapacity: cfg.RateLimit.Capacity,
		RateLimitRefill:   cfg.RateLimit.RefillRate,
		HealthCheckers: map[string]middleware.HealthChecker{
			"database": &middleware.DatabaseHealthChecker{DB: db},
			"storage":  middleware.CheckerFunc(store.Check),
		},
	})

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// run server
	go func() {
		logger.Info("server listening", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	// graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
	logger.Info("shutting down server...")

	ctx2, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx2); err != nil {
		logger.Error("shutdown error", zap.Error(err))
	}
	tasks.Shutdown(ctx2)
}
