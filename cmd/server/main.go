// Command server runs the itinerary submission and disclosure service.
//
// main wires configuration, storage backends, the event bus and the HTTP
// router; business logic lives in the internal service packages. Backends
// that are not configured (Postgres, Redis, Kafka) fall back to in-memory or
// no-op implementations so the service runs standalone in development.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/twmb/franz-go/pkg/kgo"
	"golang.org/x/sync/errgroup"

	"wayfare/internal/audit"
	dischandler "wayfare/internal/disclosure/handler"
	discmetrics "wayfare/internal/disclosure/metrics"
	discservice "wayfare/internal/disclosure/service"
	discstore "wayfare/internal/disclosure/store"
	"wayfare/internal/events"
	itinhandler "wayfare/internal/itinerary/handler"
	itinmetrics "wayfare/internal/itinerary/metrics"
	itinservice "wayfare/internal/itinerary/service"
	itinstore "wayfare/internal/itinerary/store"
	"wayfare/internal/platform/config"
	"wayfare/internal/platform/httpserver"
	"wayfare/internal/platform/kafka"
	"wayfare/internal/platform/logger"
	"wayfare/internal/platform/middleware"
	"wayfare/internal/platform/postgres"
	platformredis "wayfare/internal/platform/redis"
	"wayfare/internal/realtime"
	subhandler "wayfare/internal/submission/handler"
	submetrics "wayfare/internal/submission/metrics"
	subservice "wayfare/internal/submission/service"
	substore "wayfare/internal/submission/store"
)

func main() {
	cfg := config.FromEnv()
	log := logger.New()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("server exited with error", "error", err.Error())
		os.Exit(1)
	}
	log.Info("server stopped")
}

func run(ctx context.Context, cfg config.Config, log *slog.Logger) error {
	var (
		subStore   subservice.Store
		itinStore  itinservice.Store
		versions   discservice.VersionReader
		discStore  discservice.Store
		auditStore audit.Store
	)

	if cfg.PostgresURL != "" {
		if err := postgres.Migrate("file://migrations", cfg.PostgresURL); err != nil {
			return err
		}
		pool, err := postgres.Connect(ctx, cfg.PostgresURL)
		if err != nil {
			return err
		}
		defer pool.Close()

		db, err := postgres.OpenSQL(cfg.PostgresURL)
		if err != nil {
			return err
		}
		defer db.Close()

		itineraries := itinstore.NewPostgres(pool)
		subStore = substore.NewPostgres(pool)
		itinStore = itineraries
		versions = itineraries
		discStore = discstore.NewPostgres(pool)
		auditStore = audit.NewPostgres(db)
		log.Info("postgres storage configured")
	} else {
		itineraries := itinstore.NewInMemory()
		subStore = substore.NewInMemory()
		itinStore = itineraries
		versions = itineraries
		discStore = discstore.NewInMemory()
		auditStore = audit.NewInMemoryStore()
		log.Warn("no postgres configured, using in-memory stores")
	}

	var broadcaster realtime.Broadcaster = realtime.NoopBroadcaster{}
	redisClient, err := platformredis.New(cfg.RedisURL)
	if err != nil {
		return err
	}
	if redisClient != nil {
		defer redisClient.Close()
		broadcaster = realtime.NewRedisBroadcaster(redisClient, cfg.RealtimeTimeout, log)
		log.Info("redis realtime broadcasts configured")
	}

	var eventBus events.Publisher = events.NewInMemoryPublisher()
	var kafkaClient *kgo.Client
	if len(cfg.KafkaBrokers) > 0 {
		kafkaClient, err = kafka.NewClient(cfg.KafkaBrokers, cfg.KafkaGroup,
			events.TopicBookingPaid, events.TopicBookingCancelled)
		if err != nil {
			return err
		}
		defer kafkaClient.Close()

		if err := kafka.EnsureTopics(ctx, kafkaClient,
			events.TopicItinerarySubmitted,
			events.TopicItineraryUpdated,
			events.TopicVersionCreated,
			events.TopicItineraryDisclosed,
			events.TopicBookingPaid,
			events.TopicBookingCancelled,
		); err != nil {
			return err
		}
		eventBus = events.NewKafkaPublisher(kafkaClient, log)
		log.Info("kafka event bus configured", "brokers", cfg.KafkaBrokers)
	}

	auditPub := audit.NewPublisher(cfg.AuditBuffer, log)
	auditWorker := audit.NewWorker(auditStore, auditPub.Inbox(), log)

	subSvc := subservice.NewService(subStore,
		subservice.WithLogger(log),
		subservice.WithAuditEmitter(auditPub),
		subservice.WithEventPublisher(eventBus),
		subservice.WithBroadcaster(broadcaster),
		subservice.WithMetrics(submetrics.New()),
	)
	itinSvc := itinservice.NewService(itinStore,
		itinservice.WithLogger(log),
		itinservice.WithAuditEmitter(auditPub),
		itinservice.WithEventPublisher(eventBus),
		itinservice.WithMetrics(itinmetrics.New()),
	)
	discSvc := discservice.NewService(discStore, versions,
		discservice.WithLogger(log),
		discservice.WithAuditEmitter(auditPub),
		discservice.WithEventPublisher(eventBus),
		discservice.WithBroadcaster(broadcaster),
		discservice.WithMetrics(discmetrics.New()),
	)

	var consumer *events.Consumer
	if kafkaClient != nil {
		consumer = events.NewConsumer(kafkaClient, discSvc, log)
	}

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RequestTime)
	router.Use(middleware.Recovery(log))
	router.Use(middleware.Logger(log))
	router.Use(middleware.Timeout(30 * time.Second))
	router.Use(middleware.ContentTypeJSON)
	router.Use(middleware.Actor(cfg.JWTSigningKey, log))

	subhandler.New(subSvc, log).Register(router)
	itinhandler.New(itinSvc, log).Register(router)
	dischandler.New(discSvc, log).Register(router)
	router.Handle("/metrics", promhttp.Handler())
	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	srv := httpserver.New(cfg.Addr, router)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		err := auditWorker.Run(gctx)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})
	if consumer != nil {
		g.Go(func() error {
			err := consumer.Run(gctx)
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		})
	}
	g.Go(func() error {
		log.Info("listening", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
