// Command server runs the Amora screening API: the HTTP surface, the metrics
// listener, and (when Kafka is configured) the audit outbox worker.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/twmb/franz-go/pkg/kgo"
	"golang.org/x/sync/errgroup"

	platformconfig "amora/internal/platform/config"
	"amora/internal/platform/httpserver"
	"amora/internal/platform/logger"
	"amora/internal/platform/postgres"
	platformredis "amora/internal/platform/redis"
	screeningconfig "amora/internal/screening/config"
	screeninghandler "amora/internal/screening/handler"
	"amora/internal/screening/metrics"
	"amora/internal/screening/service/overlay"
	"amora/internal/screening/service/resolver"
	"amora/internal/screening/service/session"
	attemptstore "amora/internal/screening/store/attempt"
	"amora/internal/screening/store/lock"
	quizstore "amora/internal/screening/store/quizconfig"
	rulestore "amora/internal/screening/store/rules"
	statestore "amora/internal/screening/store/state"
	httptransport "amora/internal/transport/http"
	"amora/internal/verification"
	auditpublisher "amora/pkg/platform/audit/publisher"
	auditpostgres "amora/pkg/platform/audit/store/postgres"
	auditworker "amora/pkg/platform/audit/worker"
)

func main() {
	cfg := platformconfig.FromEnv()
	log := logger.New()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := postgres.Open(ctx, cfg.Postgres)
	if err != nil {
		log.Error("postgres connection failed", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	rdb, err := platformredis.New(cfg.Redis)
	if err != nil {
		log.Error("redis connection failed", "error", err)
		os.Exit(1)
	}
	if rdb == nil {
		log.Error("redis is required for screening request serialization")
		os.Exit(1)
	}
	defer rdb.Close()

	screeningCfg := screeningconfig.DefaultConfig()
	m := metrics.New()

	res, err := resolver.New(quizstore.NewPostgres(db), resolver.WithLogger(log))
	if err != nil {
		log.Error("resolver init failed", "error", err)
		os.Exit(1)
	}
	ovl, err := overlay.New(rulestore.NewPostgres(db),
		overlay.WithLogger(log),
		overlay.WithFallbackObserver(m),
		overlay.WithDefaultPenalty(screeningCfg.DefaultMinSelectionsPenalty),
	)
	if err != nil {
		log.Error("overlay init failed", "error", err)
		os.Exit(1)
	}

	verifier, err := verification.New(cfg.Verification.BaseURL,
		verification.WithLogger(log),
		verification.WithHTTPClient(&http.Client{Timeout: cfg.Verification.Timeout}),
	)
	if err != nil {
		log.Error("verification client init failed", "error", err)
		os.Exit(1)
	}

	publisher := auditpublisher.NewPublisher(auditpostgres.New(db), auditpublisher.WithLogger(log))

	svc, err := session.New(screeningCfg, res, ovl,
		statestore.NewPostgres(db),
		attemptstore.NewPostgres(db),
		verifier,
		session.WithLogger(log),
		session.WithAuditPublisher(publisher),
		session.WithMetrics(m),
	)
	if err != nil {
		log.Error("session service init failed", "error", err)
		os.Exit(1)
	}

	locker := lock.NewRedisLocker(rdb.Client, screeningCfg.LockTTL, log)
	handler := screeninghandler.New(svc, locker, log)

	router := httptransport.NewRouter(httptransport.Deps{
		Screening:     handler,
		JWTSigningKey: cfg.JWT.SigningKey,
		Logger:        log,
		Health: func(ctx context.Context) error {
			if err := db.PingContext(ctx); err != nil {
				return err
			}
			return rdb.Health(ctx)
		},
	})

	srv := httpserver.New(cfg.HTTP.Addr, router)

	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", promhttp.Handler())
	metricsSrv := httpserver.New(cfg.HTTP.MetricsAddr, metricsMux)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info("screening api listening", "addr", cfg.HTTP.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		log.Info("metrics listening", "addr", cfg.HTTP.MetricsAddr)
		if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
		defer cancel()
		_ = metricsSrv.Shutdown(shutdownCtx)
		return srv.Shutdown(shutdownCtx)
	})

	if len(cfg.Kafka.Brokers) > 0 {
		client, err := kgo.NewClient(
			kgo.SeedBrokers(cfg.Kafka.Brokers...),
			kgo.DefaultProduceTopic(cfg.Kafka.AttemptTopic),
		)
		if err != nil {
			log.Error("kafka client init failed", "error", err)
			os.Exit(1)
		}
		defer client.Close()

		worker := auditworker.New(db, client, cfg.Kafka.AttemptTopic, cfg.Kafka.PollInterval, log)
		if err := worker.EnsureTopic(ctx, 3); err != nil {
			log.Error("kafka topic setup failed", "error", err)
			os.Exit(1)
		}
		g.Go(func() error {
			log.Info("audit outbox worker started", "topic", cfg.Kafka.AttemptTopic)
			if err := worker.Run(gctx); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		log.Error("server exited with error", "error", err)
		os.Exit(1)
	}
	log.Info("server stopped")
}
