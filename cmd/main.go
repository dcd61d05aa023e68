package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"

	"gitlab.com/fbworkers.net/internal/adapter/crypto"
	"gitlab.com/fbworkers.net/internal/adapter/metrics"
	"gitlab.com/fbworkers.net/internal/adapter/postgres/historyrepository"
	"gitlab.com/fbworkers.net/internal/adapter/redis/settingsport"
	"gitlab.com/fbworkers.net/internal/adapter/redis/workerport"
	"gitlab.com/fbworkers.net/internal/adapter/settingsfile"
	"gitlab.com/fbworkers.net/internal/brokerage"
	"gitlab.com/fbworkers.net/internal/config"
	"gitlab.com/fbworkers.net/internal/core/ports/primary"
	"gitlab.com/fbworkers.net/internal/core/ports/secondary"
	"gitlab.com/fbworkers.net/internal/core/services/settings"
	"gitlab.com/fbworkers.net/internal/core/services/worker"
	"gitlab.com/fbworkers.net/internal/discoveryengine"
	logger2 "gitlab.com/fbworkers.net/internal/global/logger"
	http2 "gitlab.com/fbworkers.net/internal/http"
	"gitlab.com/fbworkers.net/internal/tcp"
)

const defaultWorkerExe = "FBuildWorker.exe"

func main() {
	InitReader()
	// Set up graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	sysCfg := config.NewSystemConfig()
	logger2.Configure(sysCfg.DebugMode)
	logger := logger2.Logger
	defer logger.Sync()

	logger.Info("Starting worker discovery service")

	hostName, err := os.Hostname()
	if err != nil {
		logger.Warn("Failed to resolve host name, local worker will not be flagged", "error", err)
	}

	ctxBg, cancel := context.WithCancel(context.Background())
	defer cancel()

	// SECONDARY PORTS
	var snapshots secondary.WorkerSnapshotRepository
	var threshold secondary.MemoryThresholdStore = settingsport.NewInMemoryThreshold()
	if redisClient := setupRedis(ctxBg, sysCfg.RedisConfig, logger); redisClient != nil {
		defer redisClient.Close()
		snapshots = workerport.NewWorkerRepository(redisClient, logger,
			workerport.WithExpiration(4*sysCfg.DiscoveryConfig.RefreshInterval))
		threshold = settingsport.NewThresholdRepository(redisClient, logger)
	}

	var history secondary.DiscoveryHistoryRepository
	if db := setupDatabase(ctxBg, sysCfg.PostgresConfig, logger); db != nil {
		defer db.Close()
		repo := historyrepository.New(db, logger, sysCfg.PostgresConfig.Schema)
		if err := repo.EnsureSchema(ctxBg); err != nil {
			logger.Error("Failed to prepare history schema, history disabled", "error", err)
		} else {
			history = repo
		}
	}

	discoveryMetrics := metrics.NewDiscoveryMetrics()

	// services
	localWorker := worker.NewLocalWorkerService(snapshots, logger)

	settingsStore := settingsfile.NewStore(workerExePath(sysCfg.SettingsConfig),
		settingsfile.WithRetry(sysCfg.SettingsConfig.RetryCount, sysCfg.SettingsConfig.RetryDelay))
	settingsService := settings.NewSettingsService(settingsStore, threshold, logger)
	_ = settingsService.Reload(ctxBg)

	discCfg := sysCfg.DiscoveryConfig
	coordinator := tcp.NewCoordinatorClient(logger,
		tcp.WithProtocolVersion(discCfg.ProtocolVersion),
		tcp.WithTimeouts(discCfg.CoordinatorTimeout, discCfg.CoordinatorTimeout),
		tcp.WithLocalHost(hostName),
	)
	scanner := brokerage.NewScanner(brokerage.PoolPath(discCfg.ProtocolVersion, discCfg.Platform), hostName, logger)

	options := []discoveryengine.EngineOption{
		discoveryengine.WithLocalWorkerRegistry(localWorker),
		discoveryengine.WithMetrics(discoveryMetrics),
	}
	if snapshots != nil {
		options = append(options, discoveryengine.WithSnapshotRepository(snapshots))
	}
	if history != nil {
		options = append(options, discoveryengine.WithHistoryRepository(history))
	}
	engine := discoveryengine.NewEngine(discCfg, coordinator, scanner, logger, options...)

	events := engine.Subscribe(16)
	go logEvents(events, logger)

	//server
	serviceProvider := http2.NewServiceProvider(engine, localWorker, settingsService, history,
		crypto.NewJWTService(sysCfg.JwtConfig), discoveryMetrics.Handler())
	httpServer := http2.NewServer(sysCfg.HttpConfig.Port, sysCfg.HttpConfig.ServiceName, *serviceProvider, logger)
	if err := httpServer.Init(); err != nil {
		panic(err)
	}
	httpServer.Start(ctxBg)

	if err := engine.Start(ctxBg); err != nil {
		panic(err)
	}

	<-quit
	logger.Info("Shutting down server...")

	engine.Stop()
	events.Close()

	ctx, cancelShutdown := context.WithTimeout(ctxBg, 5*time.Second)
	defer cancelShutdown()
	if err := httpServer.Stop(ctx); err != nil {
		logger.Error("Server forced to shutdown", "error", err)
	}

	logger.Info("successfully shutdown server")
}

func logEvents(sub *discoveryengine.Subscription, logger primary.Logger) {
	for ev := range sub.Events() {
		if ev.Type == discoveryengine.EventCountChanged {
			logger.Info("Available workers", "count", ev.Count, "cycleId", ev.CycleID)
		}
	}
}

func workerExePath(cfg *config.SettingsConfig) string {
	if cfg.WorkerExePath != "" {
		return cfg.WorkerExePath
	}
	exe, err := os.Executable()
	if err != nil {
		return defaultWorkerExe
	}
	return filepath.Join(filepath.Dir(exe), defaultWorkerExe)
}

// setupDatabase connects to PostgreSQL, or returns nil when none is configured
// or reachable.
func setupDatabase(ctx context.Context, cfg *config.PostgresConfig, logger primary.Logger) *sqlx.DB {
	if !cfg.Enabled() {
		return nil
	}
	db, err := sqlx.Open("postgres", cfg.Url)
	if err != nil {
		logger.Error("Failed to open database, history disabled", "error", err)
		return nil
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		logger.Error("Failed to reach database, history disabled", "error", err)
		_ = db.Close()
		return nil
	}
	return db
}

// setupRedis connects to Redis, or returns nil when none is configured or
// reachable.
func setupRedis(ctx context.Context, cfg *config.RedisConfig, logger primary.Logger) *redis.Client {
	if !cfg.Enabled() {
		return nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Url,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		logger.Error("Failed to reach redis, snapshots disabled", "error", err)
		_ = client.Close()
		return nil
	}
	return client
}

func InitReader() {
	environment := ""
	if len(os.Args) < 2 {
		log.Fatalf("Env not supplied in argument")
	} else {
		environment = os.Args[1]
	}

	err := godotenv.Load(environment + ".env")
	if err != nil {
		log.Fatalf("Error loading %s.env file", environment)
	}
}
