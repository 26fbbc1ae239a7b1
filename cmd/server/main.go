package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"bizdir/internal/listing/handler"
	listingmetrics "bizdir/internal/listing/metrics"
	"bizdir/internal/listing/notify"
	"bizdir/internal/listing/service"
	"bizdir/internal/listing/store"
	"bizdir/internal/platform/blob"
	"bizdir/internal/platform/config"
	"bizdir/internal/platform/httpserver"
	"bizdir/internal/platform/kafka"
	"bizdir/internal/platform/logger"
	"bizdir/internal/platform/middleware"
	"bizdir/internal/platform/redis"
	auditpublisher "bizdir/pkg/platform/audit/publisher"
	auditkafka "bizdir/pkg/platform/audit/store/kafka"
	auditmemory "bizdir/pkg/platform/audit/store/memory"
	"bizdir/pkg/platform/httputil"
)

// main wires high-level dependencies, exposes the HTTP router, and keeps the
// server lifecycle small. Business logic lives in internal/listing.
func main() {
	cfg, err := config.FromEnv()
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(1)
	}
	log := logger.New(cfg.Log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("server exited with error", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, log *slog.Logger) error {
	var closers []func() error
	defer func() {
		for i := len(closers) - 1; i >= 0; i-- {
			if err := closers[i](); err != nil {
				log.Warn("failed to close resource", "error", err)
			}
		}
	}()

	listings, closeStore, err := buildStore(ctx, cfg.Database, log)
	if err != nil {
		return err
	}
	closers = append(closers, closeStore)

	blobs, closeBlobs, err := buildBlobStore(ctx, cfg.Blob)
	if err != nil {
		return err
	}
	closers = append(closers, closeBlobs)

	notifiers := notify.Fanout{notify.NewLogNotifier(log)}
	redisClient, err := redis.New(ctx, cfg.Redis)
	if err != nil {
		return err
	}
	if redisClient != nil {
		closers = append(closers, redisClient.Close)
		notifiers = append(notifiers, notify.NewRedisNotifier(redisClient.Client, cfg.Redis.Channel))
		log.Info("publishing notifications to redis", "channel", cfg.Redis.Channel)
	}

	var auditStore auditpublisher.Store = auditmemory.NewInMemoryStore()
	kafkaClient, err := kafka.New(cfg.Kafka)
	if err != nil {
		return err
	}
	if kafkaClient != nil {
		closers = append(closers, func() error { kafkaClient.Close(); return nil })
		if err := kafka.EnsureTopic(ctx, kafkaClient, cfg.Kafka.AuditTopic, 3, 1); err != nil {
			return err
		}
		auditStore = auditkafka.NewSink(kafkaClient, cfg.Kafka.AuditTopic)
		log.Info("publishing audit events to kafka", "topic", cfg.Kafka.AuditTopic)
	}
	auditPub := auditpublisher.NewPublisher(auditStore,
		auditpublisher.WithAsyncBuffer(256),
		auditpublisher.WithLogger(log),
	)
	// Registered last so it flushes before the Kafka client closes.
	closers = append(closers, func() error { auditPub.Close(); return nil })

	svc := service.New(listings, blobs, notifiers,
		service.WithLogger(log),
		service.WithAuditPublisher(auditPub),
		service.WithMetrics(listingmetrics.New()),
		service.WithMaxReceiptBytes(cfg.ReceiptMaxBytes),
	)
	listingHandler := handler.New(svc, log, cfg.ReceiptMaxBytes)

	r := chi.NewRouter()
	r.Use(middleware.Recovery(log))
	r.Use(middleware.RequestID)
	r.Use(middleware.RequestTime)
	r.Use(middleware.Logger(log))
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.Handler())
	r.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(30 * time.Second))
		listingHandler.Register(r)
	})
	r.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(30 * time.Second))
		r.Use(middleware.RequireAdminToken(cfg.Server.AdminAPIToken, log))
		listingHandler.RegisterAdmin(r)
	})

	srv := httpserver.New(cfg.Server.Addr, r)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("starting bizdir", "addr", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		log.Info("shutting down")
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func buildStore(ctx context.Context, cfg config.Database, log *slog.Logger) (service.Store, func() error, error) {
	if cfg.URL == "" {
		log.Info("using in-memory listing store")
		return store.NewInMemoryStore(), func() error { return nil }, nil
	}
	db, err := sql.Open("postgres", cfg.URL)
	if err != nil {
		return nil, nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("ping database: %w", err)
	}
	if err := store.Migrate(ctx, db); err != nil {
		_ = db.Close()
		return nil, nil, err
	}
	log.Info("using postgres listing store")
	return store.NewPostgres(db), db.Close, nil
}

func buildBlobStore(ctx context.Context, cfg config.BlobConfig) (service.BlobStore, func() error, error) {
	if cfg.Backend == config.BlobBackendGCS {
		gcs, err := blob.NewGCSStore(ctx, blob.GCSConfig{
			Bucket:          cfg.Bucket,
			CredentialsFile: cfg.CredentialsFile,
			PublicBaseURL:   cfg.PublicBaseURL,
		})
		if err != nil {
			return nil, nil, err
		}
		return gcs, gcs.Close, nil
	}
	base := cfg.PublicBaseURL
	if base == "" {
		base = "http://localhost/blobs/" + cfg.Bucket
	}
	return blob.NewMemoryStore(base), func() error { return nil }, nil
}
