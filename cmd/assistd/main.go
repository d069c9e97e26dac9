package main

import (
	"context"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/igianni84/woo-ai-assistant/internal/assist"
	"github.com/igianni84/woo-ai-assistant/internal/config"
	"github.com/igianni84/woo-ai-assistant/internal/generator"
	"github.com/igianni84/woo-ai-assistant/internal/generator/loopback"
	"github.com/igianni84/woo-ai-assistant/internal/generator/upstream"
	"github.com/igianni84/woo-ai-assistant/internal/httpserver"
	"github.com/igianni84/woo-ai-assistant/internal/ledger"
	ledgerasync "github.com/igianni84/woo-ai-assistant/internal/ledger/async"
	ledgerpg "github.com/igianni84/woo-ai-assistant/internal/ledger/postgres"
	ledgersql "github.com/igianni84/woo-ai-assistant/internal/ledger/sqlite"
	"github.com/igianni84/woo-ai-assistant/internal/logging"
	"github.com/igianni84/woo-ai-assistant/internal/metrics"
	"github.com/igianni84/woo-ai-assistant/internal/ratelimit"
	"github.com/igianni84/woo-ai-assistant/internal/session"
	"github.com/igianni84/woo-ai-assistant/internal/streaming"
	"github.com/igianni84/woo-ai-assistant/internal/transport"
	"github.com/igianni84/woo-ai-assistant/internal/version"
)

func main() {
	cfg, err := config.LoadAssistConfig(".")
	if err != nil {
		log.Fatalf("load config failed: %v", err)
	}

	// Rotating file logging, mirrored to stdout for foreground runs
	const maxLogBytes = int64(300 * 1024 * 1024) // 300MB
	if logTarget := strings.TrimSpace(cfg.LogFile); logTarget != "" {
		rot, err := logging.NewRotatingWriter(logTarget, maxLogBytes)
		if err != nil {
			log.Fatalf("init rotating log: %v", err)
		}
		log.SetOutput(io.MultiWriter(os.Stdout, rot))
		defer rot.Close()
	}
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)
	log.SetPrefix("[assistd] ")

	log.Printf("woo-ai-assistant delivery service %s env=%s", version.Version, cfg.Environment)

	// Shared Redis connection when any backend asks for it
	var redisClient *redis.Client
	if cfg.RateLimitBackend == "redis" || cfg.SessionBackend == "redis" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		pingCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		if err := redisClient.Ping(pingCtx).Err(); err != nil {
			log.Printf("redis ping failed addr=%s err=%v", cfg.RedisAddr, err)
		}
		cancel()
		defer redisClient.Close()
	}

	var limitStore ratelimit.Store
	if cfg.RateLimitBackend == "redis" {
		limitStore = ratelimit.NewRedisStore(redisClient)
	} else {
		limitStore = ratelimit.NewMemoryStore()
	}
	limiter := ratelimit.NewLimiter(ratelimit.Config{
		Store:             limitStore,
		RequestsPerWindow: cfg.RateLimitRequests,
		Window:            cfg.RateLimitWindow,
	})
	limiter.SetLogger(log.New(log.Writer(), "[assistd/ratelimit] ", log.LstdFlags|log.Lmicroseconds))
	defer limiter.Close()

	var sessionStore session.Store
	if cfg.SessionBackend == "redis" {
		sessionStore = session.NewRedisStore(redisClient)
	} else {
		sessionStore = session.NewInMemoryStore()
	}
	registry := session.NewRegistry(sessionStore, cfg.SessionTTL)
	registry.SetLogger(log.New(log.Writer(), "[assistd/session] ", log.LstdFlags|log.Lmicroseconds))
	defer registry.Close()

	var ledgerStore ledger.Store
	switch cfg.LedgerBackend {
	case "sqlite":
		ledgerStore, err = ledgersql.New(cfg.LedgerPath)
		if err != nil {
			log.Fatalf("open ledger: %v", err)
		}
	case "postgres":
		ledgerStore, err = ledgerpg.New(cfg.PostgresDSN, cfg.PostgresMaxOpen, cfg.PostgresMaxIdle, 30, 10)
		if err != nil {
			log.Fatalf("open ledger: %v", err)
		}
	case "off":
		log.Printf("usage ledger disabled by configuration")
	}
	if ledgerStore != nil && cfg.LedgerAsync {
		ledgerStore = ledgerasync.New(ledgerStore, ledgerasync.Config{
			Logger: log.New(log.Writer(), "[assistd/ledger] ", log.LstdFlags|log.Lmicroseconds),
		})
	}
	if ledgerStore != nil {
		defer ledgerStore.Close()
	}

	var gen generator.Generator
	if cfg.UseLoopback || strings.TrimSpace(cfg.GeneratorBaseURL) == "" {
		if !cfg.UseLoopback {
			log.Printf("no generator_base_url configured; using loopback generator")
		}
		gen = loopback.New()
	} else {
		client, err := upstream.New(cfg.GeneratorBaseURL, cfg.GeneratorAPIKey, nil)
		if err != nil {
			log.Fatalf("init upstream generator: %v", err)
		}
		client.SetLogger(log.New(log.Writer(), "[assistd/generator] ", log.LstdFlags|log.Lmicroseconds))
		gen = client
	}

	negotiator := transport.NewNegotiator()
	if cfg.TransportHintsFile != "" {
		hints, err := transport.LoadHints(cfg.TransportHintsFile)
		if err != nil {
			log.Printf("transport hints file rejected: %v", err)
		} else {
			negotiator.SetHints(hints)
			log.Printf("transport hints loaded file=%s classes=%d", cfg.TransportHintsFile, len(hints))
		}
	}

	collector := metrics.NewCollector()

	coordinator := streaming.NewCoordinator(streaming.Config{
		Limiter:    limiter,
		Sessions:   registry,
		Negotiator: negotiator,
		Generator:  gen,
		Ledger:     ledgerStore,
		Metrics:    collector,
		Model:      cfg.GeneratorModel,
	})
	coordinator.SetLogger(cfg.LogLevel, log.New(log.Writer(), "[assistd/deliver] ", log.LstdFlags|log.Lmicroseconds))

	// Periodic sweep drops sessions abandoned past their TTL
	sweepCtx, stopSweep := context.WithCancel(context.Background())
	defer stopSweep()
	go func() {
		ticker := time.NewTicker(cfg.SweepInterval)
		defer ticker.Stop()
		for {
			select {
			case <-sweepCtx.Done():
				return
			case <-ticker.C:
				registry.Sweep(sweepCtx)
			}
		}
	}()

	httpSrv := httpserver.NewServer(coordinator, ledgerStore)
	httpSrv.SetLogger(cfg.LogLevel, log.New(log.Writer(), "[assistd/http] ", log.LstdFlags|log.Lmicroseconds))
	httpSrv.SetMetrics(collector)
	httpSrv.SetDefaults(assist.StreamConfig{
		ChunkSize:        cfg.DefaultChunkSize,
		ChunkDelayMs:     cfg.DefaultChunkDelayMs,
		TypingIndicator:  cfg.DefaultTypingEnabled,
		HeartbeatSeconds: cfg.DefaultHeartbeatSecs,
		MaxChunks:        cfg.DefaultMaxChunks,
	})

	srv := &http.Server{
		Addr:        cfg.ListenAddr,
		Handler:     httpSrv.Router(),
		ReadTimeout: 15 * time.Second,
		// Push deliveries pace chunks for up to the 30s stream timeout, so the
		// write timeout has to outlast it.
		WriteTimeout: 45 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("assist server listening on %s", cfg.ListenAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("http server error: %v", err)
		}
	}()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGTERM, syscall.SIGINT)
	<-sigs

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
	}
}
