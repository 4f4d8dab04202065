package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"riskcapital/internal/client/fundsapi"
	"riskcapital/internal/client/metabase"
	"riskcapital/internal/config"
	cronrunner "riskcapital/internal/cron"
	"riskcapital/internal/db"
	"riskcapital/internal/handler"
	"riskcapital/internal/logger"
	gormrepository "riskcapital/internal/repository/gorm"
	"riskcapital/internal/service"
)

func main() {
	cfgPath := os.Getenv("RC_CONFIG")
	if cfgPath == "" {
		cfgPath = "config/config.yaml"
	}

	envOnly := false
	if envOnlyRaw := os.Getenv("RC_ENV_ONLY"); envOnlyRaw != "" {
		envOnly = strings.EqualFold(envOnlyRaw, "true") || envOnlyRaw == "1"
	}

	cfg, err := config.Load(cfgPath, envOnly)
	if err != nil {
		panic(err)
	}

	logger, err := logger.New(cfg.Log)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	dbConn, err := db.Open(cfg.DB)
	if err != nil {
		logger.Fatal("db open failed", zap.Error(err))
	}
	defer db.Close(dbConn)

	if err := db.SetTimezone(dbConn, cfg.DB.Timezone); err != nil {
		logger.Warn("failed to set timezone", zap.Error(err))
	}
	if err := db.AutoMigrate(dbConn); err != nil {
		logger.Fatal("auto-migrate failed", zap.Error(err))
	}

	// Replication target is optional; without it only the warehouse jobs run.
	var localConn *db.DB
	if strings.TrimSpace(cfg.LocalDB.DSN) != "" {
		localConn, err = db.Open(cfg.LocalDB)
		if err != nil {
			logger.Fatal("local db open failed", zap.Error(err))
		}
		defer db.Close(localConn)
	}

	var mbClient *metabase.Client
	if cfg.Metabase.InsecureSkipVerify {
		mbClient = metabase.NewInsecure(cfg.Metabase.Timeout,
			cfg.Metabase.BaseURL, cfg.Metabase.Username, cfg.Metabase.Password, cfg.Metabase.PublicCardPath)
	} else {
		mbHTTP := &http.Client{Timeout: cfg.Metabase.Timeout}
		mbClient = metabase.New(mbHTTP,
			cfg.Metabase.BaseURL, cfg.Metabase.Username, cfg.Metabase.Password, cfg.Metabase.PublicCardPath)
	}
	fundsHTTP := &http.Client{Timeout: cfg.FundsAPI.Timeout}
	fundsClient := fundsapi.New(fundsHTTP,
		cfg.FundsAPI.BaseURL, cfg.FundsAPI.PLEndpoint, cfg.FundsAPI.Cookie, cfg.FundsAPI.CryptoToken)

	store := gormrepository.New(dbConn.Gorm)

	exposureSvc := &service.ExposureSnapshotService{Repo: store, Logger: logger}
	positionsSvc := &service.PositionsService{
		Repo:   store,
		Cards:  mbClient,
		Config: cfg.Jobs,
		Logger: logger,
	}
	swapsSvc := &service.SwapsService{
		Repo:     store,
		Cards:    mbClient,
		Config:   cfg.Jobs,
		Logger:   logger,
		Exposure: exposureSvc,
	}
	marginSvc := &service.MarginService{Repo: store, Cards: mbClient, Config: cfg.Jobs, Logger: logger}
	plHistorySvc := &service.PLHistoryService{Repo: store, Cards: mbClient, Config: cfg.Jobs, Logger: logger}
	plSnapshotSvc := &service.PLSnapshotService{Repo: store, Funds: fundsClient, Logger: logger}

	var replicationSvc *service.ReplicationService
	if localConn != nil {
		replicationSvc = &service.ReplicationService{
			Source: store,
			Target: gormrepository.New(localConn.Gorm),
			Logger: logger,
		}
	}

	recorder := &service.JobRecorder{Repo: store, Logger: logger}

	if strings.EqualFold(cfg.App.Env, "dev") {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(corsMiddleware())

	healthHandler := &handler.HealthHandler{DB: dbConn}
	healthHandler.Register(engine)
	jobsHandler := &handler.JobsHandler{
		Recorder:    recorder,
		Positions:   positionsSvc,
		Swaps:       swapsSvc,
		Exposure:    exposureSvc,
		Margin:      marginSvc,
		PLSnapshot:  plSnapshotSvc,
		PLHistory:   plHistorySvc,
		Replication: replicationSvc,
		Repo:        store,
		Logger:      logger,
	}
	jobsHandler.Register(engine)

	srv := &http.Server{
		Addr:    cfg.Server.HTTPAddr,
		Handler: engine,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cronRunner := cronrunner.New(logger, ctx)
	if cfg.Cron.Enabled {
		registerJob(cronRunner, logger, cfg.Cron.PLHistory, service.JobPLHistory, recorder, func(ctx context.Context) (any, error) {
			return plHistorySvc.RunOnce(ctx, service.DefaultReferenceDate())
		})
		registerJob(cronRunner, logger, cfg.Cron.Positions, service.JobPositions, recorder, func(ctx context.Context) (any, error) {
			return positionsSvc.RunOnce(ctx)
		})
		registerJob(cronRunner, logger, cfg.Cron.Swaps, service.JobSwaps, recorder, func(ctx context.Context) (any, error) {
			return swapsSvc.RunOnce(ctx)
		})
		registerJob(cronRunner, logger, cfg.Cron.Margin, service.JobMargin, recorder, func(ctx context.Context) (any, error) {
			return marginSvc.RunOnce(ctx)
		})
		registerJob(cronRunner, logger, cfg.Cron.PLSnapshot, service.JobPLSnapshot, recorder, func(ctx context.Context) (any, error) {
			return plSnapshotSvc.RunOnce(ctx)
		})
		if replicationSvc != nil {
			registerJob(cronRunner, logger, cfg.Cron.Replication, service.JobReplication, recorder, func(ctx context.Context) (any, error) {
				return replicationSvc.RunOnce(ctx)
			})
		}
	}
	cronRunner.Start()
	defer cronRunner.Stop()

	errCh := make(chan error, 2)

	go func() {
		logger.Info("http server starting", zap.String("addr", cfg.Server.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown requested")
	case err := <-errCh:
		logger.Error("server error", zap.Error(err))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
}

func registerJob(runner *cronrunner.Runner, logger *zap.Logger, spec, name string, recorder *service.JobRecorder, fn func(context.Context) (any, error)) {
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return
	}
	_, err := runner.Add(spec, func(ctx context.Context) {
		_ = recorder.Run(ctx, name, fn)
	})
	if err != nil {
		logger.Warn("cron register failed", zap.String("job", name), zap.String("spec", spec), zap.Error(err))
		return
	}
	logger.Info("cron registered", zap.String("job", name), zap.String("spec", spec))
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET,POST,PUT,DELETE,OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type,Authorization")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	}
}
