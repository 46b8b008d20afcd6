package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/radieske/social-bet-fulfillment/internal/notifier"
	sharedcache "github.com/radieske/social-bet-fulfillment/internal/shared/cache"
	"github.com/radieske/social-bet-fulfillment/internal/shared/config"
	"github.com/radieske/social-bet-fulfillment/internal/shared/kafka"
	"github.com/radieske/social-bet-fulfillment/internal/shared/logger"
	"github.com/radieske/social-bet-fulfillment/internal/shared/metrics"
)

func main() {
	cfg := config.LoadFor("fulfillment-notifier-worker")

	log, err := logger.New(cfg.ServiceName, cfg.Env, cfg.LogLevel)
	if err != nil {
		panic(fmt.Errorf("logger init: %w", err))
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	redisClient, err := sharedcache.ConnectRedis(ctx, cfg.RedisAddr)
	if err != nil {
		log.Fatal("redis connect", zap.Error(err))
	}
	defer redisClient.Close()

	reader := kafka.NewReader(cfg.KafkaBrokers, cfg.TopicBetFulfillment, cfg.ConsumerGroup)
	defer reader.Close()

	var dlq *kafka.Writer
	if cfg.TopicBetFulfillmentDLQ != "" {
		dlq = kafka.NewWriter(cfg.KafkaBrokers, cfg.TopicBetFulfillmentDLQ)
		defer dlq.Close()
	}

	forwarded := prometheus.NewCounter(prometheus.CounterOpts{Name: "notifier_events_forwarded_total", Help: "eventos repassados ao Redis"})
	dlqSent := prometheus.NewCounter(prometheus.CounterOpts{Name: "notifier_events_dlq_total", Help: "eventos enviados para a DLQ"})
	errorsBy := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "notifier_errors_total", Help: "erros por estágio"}, []string{"stage"})
	prometheus.MustRegister(forwarded, dlqSent, errorsBy)

	fwd := &notifier.Forwarder{
		Log:         log,
		Reader:      reader,
		Broadcaster: notifier.NewRedisBroadcaster(redisClient),
		Channel:     cfg.RedisPubSubChannel,
		Retries:     3,
		Backoff:     300 * time.Millisecond,
		OnForwarded: func() { forwarded.Inc() },
		OnDLQ:       func() { dlqSent.Inc() },
		OnError:     func(stage string) { errorsBy.WithLabelValues(stage).Inc() },
	}
	if dlq != nil {
		fwd.DLQ = dlq
	}

	metricsSrv := metrics.StartMetricsServer(log, cfg.MetricsPort,
		metrics.HealthCheck{Name: "redis", Check: func(ctx context.Context) error { return redisClient.Ping(ctx).Err() }},
	)
	defer metricsSrv.Close()

	log.Info("notifier started",
		zap.String("consume", cfg.TopicBetFulfillment),
		zap.String("channel", cfg.RedisPubSubChannel),
		zap.String("dlq", cfg.TopicBetFulfillmentDLQ),
	)
	if err := fwd.Run(ctx); err != nil && ctx.Err() == nil {
		log.Fatal("notifier stopped with error", zap.Error(err))
	}
	log.Info("notifier stopped")
}
