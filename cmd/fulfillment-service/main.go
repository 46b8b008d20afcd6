package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/radieske/social-bet-fulfillment/internal/fulfillment/cache"
	"github.com/radieske/social-bet-fulfillment/internal/fulfillment/consumer"
	"github.com/radieske/social-bet-fulfillment/internal/fulfillment/dispatch"
	httpapi "github.com/radieske/social-bet-fulfillment/internal/fulfillment/http"
	fmetrics "github.com/radieske/social-bet-fulfillment/internal/fulfillment/metrics"
	"github.com/radieske/social-bet-fulfillment/internal/fulfillment/producer"
	"github.com/radieske/social-bet-fulfillment/internal/fulfillment/repo"
	"github.com/radieske/social-bet-fulfillment/internal/fulfillment/service"
	"github.com/radieske/social-bet-fulfillment/internal/fulfillment/ws"
	sharedcache "github.com/radieske/social-bet-fulfillment/internal/shared/cache"
	"github.com/radieske/social-bet-fulfillment/internal/shared/config"
	"github.com/radieske/social-bet-fulfillment/internal/shared/db"
	"github.com/radieske/social-bet-fulfillment/internal/shared/kafka"
	"github.com/radieske/social-bet-fulfillment/internal/shared/logger"
	"github.com/radieske/social-bet-fulfillment/internal/shared/metrics"
)

func main() {
	cfg := config.LoadFor("fulfillment-service")

	log, err := logger.New(cfg.ServiceName, cfg.Env, cfg.LogLevel)
	if err != nil {
		panic(fmt.Errorf("logger init: %w", err))
	}
	defer log.Sync()

	// Sinalização para shutdown gracioso (SIGINT/SIGTERM)
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Info("starting service", zap.String("service", cfg.ServiceName), zap.String("env", cfg.Env))

	pg, err := db.ConnectPostgres(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()
	if cfg.AutoMigrate {
		if err := db.Migrate(ctx, pg); err != nil {
			log.Fatal("migrations failed", zap.Error(err))
		}
		log.Info("migrations applied")
	}

	redisClient, err := sharedcache.ConnectRedis(ctx, cfg.RedisAddr)
	if err != nil {
		log.Fatal("failed to connect redis", zap.Error(err))
	}
	defer redisClient.Close()

	// Kafka: produz bet_fulfillment e consome bet_resolved
	writer := kafka.NewWriter(cfg.KafkaBrokers, cfg.TopicBetFulfillment)
	defer writer.Close()
	reader := kafka.NewReader(cfg.KafkaBrokers, cfg.TopicBetResolved, cfg.ConsumerGroup)
	defer reader.Close()

	m := fmetrics.New(prometheus.DefaultRegisterer)

	svc := service.New(repo.NewPostgres(pg))
	m.Instrument(svc)

	dispatcher := dispatch.New(log, producer.NewKafkaPublisher(writer, cfg.TopicBetFulfillment), cfg.PublishTimeout)
	dispatcher.OnPublishError = func(t string) { m.PublishErrors.WithLabelValues(t).Inc() }
	defer dispatcher.Close()

	detailsCache := cache.New(redisClient, cfg.DetailsCacheTTL)

	// Feed ao vivo: o notifier publica no Redis e o hub entrega aos inscritos
	hub := ws.NewHub(func(*http.Request) bool { return true })
	ws.StartRedisSubscriber(ctx, log, redisClient, cfg.RedisPubSubChannel, hub)

	proc := &consumer.Processor{
		Log:        log,
		Reader:     reader,
		Recomputer: svc,
		Events:     dispatcher,
		Invalidate: func(ctx context.Context, betID string) {
			if err := detailsCache.Invalidate(ctx, betID); err != nil {
				log.Warn("details cache invalidate failed", zap.String("bet_id", betID), zap.Error(err))
			}
		},
		OnConsumed: func() { m.ResolvedConsumed.Inc() },
		OnError:    func(stage string) { m.ConsumerErrors.WithLabelValues(stage).Inc() },
	}
	consumerDone := make(chan struct{})
	go func() {
		defer close(consumerDone)
		if err := proc.Run(ctx); err != nil && ctx.Err() == nil {
			log.Error("bet_resolved consumer stopped", zap.Error(err))
		}
	}()

	metricsSrv := metrics.StartMetricsServer(log, cfg.MetricsPort,
		metrics.HealthCheck{Name: "postgres", Check: pg.PingContext},
		metrics.HealthCheck{Name: "redis", Check: func(ctx context.Context) error { return redisClient.Ping(ctx).Err() }},
	)

	api := &httpapi.API{
		Log:     log,
		Service: svc,
		Cache:   detailsCache,
		Events:  dispatcher,
		WS:      hub,
	}
	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           api.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		log.Info("http listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("http server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
	_ = metricsSrv.Shutdown(shutdownCtx)
	<-consumerDone

	log.Info("fulfillment-service stopped")
}
