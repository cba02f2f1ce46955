// cmd/worker-manager/main.go
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"cotacao-workers/internal/common/aws"
	"cotacao-workers/internal/common/camunda"
	"cotacao-workers/internal/common/config"
	"cotacao-workers/internal/common/database"
	"cotacao-workers/internal/common/logger"
	"cotacao-workers/internal/common/observability"
	"cotacao-workers/internal/notify"
	"cotacao-workers/internal/quotation"
	"cotacao-workers/internal/repository"
	"cotacao-workers/internal/roundrobin"

	as "cotacao-workers/internal/workers/quotation/assign-seller"
	eq "cotacao-workers/internal/workers/quotation/evaluate-quotation"
	sq "cotacao-workers/internal/workers/quotation/submit-quotation"
)

// retryWithBackoff attempts to execute a function with exponential backoff
func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log *zap.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName),
				zap.Error(err),
				zap.Int("attempt", i+1),
				zap.Int("maxRetries", maxRetries),
				zap.Duration("nextRetryIn", delay),
			)
			time.Sleep(delay)
			delay *= 2
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		boot := logger.New("info", "console")
		boot.Fatal("config load failed", zap.Error(err))
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output)
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting worker manager...",
		zap.String("app", cfg.App.Name),
		zap.String("environment", cfg.App.Environment),
	)

	obs, err := observability.New(cfg.App.Name)
	if err != nil {
		zapLog.Warn("observability disabled", zap.Error(err))
		obs = observability.NewNoop()
	}
	defer obs.Shutdown()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// --- Zeebe ---
	zeebe, err := camunda.NewClientWithConfig(ctx, &camunda.ClientConfig{
		GatewayAddress:         cfg.Camunda.BrokerAddress,
		UsePlaintextConnection: cfg.Camunda.Plaintext,
		ConnectionTimeout:      config.GetDuration(cfg.Camunda.RequestTimeout),
	}, log.Named("camunda"))
	if err != nil {
		zapLog.Fatal("zeebe client failed after retries", zap.Error(err))
	}
	zapLog.Info("Zeebe client connected successfully")

	// --- PostgreSQL ---
	var pg *database.PostgresClient
	err = retryWithBackoff(func() error {
		var err error
		pg, err = database.NewPostgres(cfg.Database.Postgres)
		if err != nil {
			return err
		}
		return pg.Ping(ctx)
	}, 15, 2*time.Second, zapLog, "PostgreSQL connection")
	if err != nil {
		zapLog.Fatal("postgres failed after retries", zap.Error(err))
	}
	defer pg.Close()
	zapLog.Info("PostgreSQL connected successfully")

	// --- Redis ---
	var rdb *database.RedisClient
	err = retryWithBackoff(func() error {
		var err error
		rdb, err = database.NewRedis(cfg.Database.Redis)
		if err != nil {
			return err
		}
		return rdb.Ping(ctx)
	}, 10, 2*time.Second, zapLog, "Redis connection")
	if err != nil {
		zapLog.Fatal("redis failed after retries", zap.Error(err))
	}
	defer rdb.Close()
	zapLog.Info("Redis connected successfully")

	// --- Elasticsearch (optional) ---
	var indexer quotation.Indexer
	if cfg.Database.Elasticsearch.Enabled {
		var esClient *database.ElasticsearchClient
		err = retryWithBackoff(func() error {
			var err error
			esClient, err = database.NewElasticsearch(cfg.Database.Elasticsearch)
			if err != nil {
				return err
			}
			return esClient.Ping(ctx)
		}, 15, 2*time.Second, zapLog, "Elasticsearch connection")
		if err != nil {
			zapLog.Fatal("elasticsearch failed after retries", zap.Error(err))
		}
		if err := esClient.EnsureIndex(ctx, cfg.Quotation.SearchIndex, repository.QuotationIndexMapping); err != nil {
			zapLog.Fatal("elasticsearch index setup failed", zap.Error(err))
		}
		indexer = repository.NewQuotationIndex(esClient.Client, cfg.Quotation.SearchIndex)
		zapLog.Info("Elasticsearch connected successfully", zap.String("index", cfg.Quotation.SearchIndex))
	}

	// --- AWS notifications ---
	var (
		sesClient aws.SESAPI
		snsClient aws.SNSAPI
	)
	notifications := cfg.Notifications
	if notifications.SES.Enabled || notifications.SNS.Enabled {
		awsCfg, err := aws.LoadConfig(ctx, notifications.AWS.Region)
		if err != nil {
			zapLog.Fatal("aws config failed", zap.Error(err))
		}
		if notifications.SES.Enabled {
			sesClient = aws.NewSESClient(awsCfg)
		}
		if notifications.SNS.Enabled {
			snsClient = aws.NewSNSClient(awsCfg)
		}
	}

	// --- Domain wiring ---
	cacheTTL := time.Duration(cfg.Quotation.CacheTTLSeconds) * time.Second
	limits, err := quotation.DefaultFipeLimits.WithOverrides(cfg.Quotation.FipeLimits)
	if err != nil {
		zapLog.Fatal("invalid fipe limit overrides", zap.Error(err))
	}

	sellers := repository.NewSellerRepository(pg.DB)
	assigner := roundrobin.NewAssigner(
		roundrobin.NewPostgresStore(pg.DB, cfg.Assignment.QueueID),
		roundrobin.AssignerConfig{
			MaxRetries: cfg.Assignment.MaxRetries,
			RetryDelay: config.GetDuration(cfg.Assignment.RetryDelayMs),
		},
		log.Named("roundrobin"),
	)

	service := quotation.NewService(quotation.ServiceDeps{
		Blacklist:  repository.NewBlacklistRepository(pg.DB, rdb.Client, cacheTTL, log.Named("blacklist")),
		Rules:      repository.NewPricingRuleRepository(pg.DB, rdb.Client, cacheTTL, log.Named("pricing")),
		Assigner:   assigner,
		Quotations: repository.NewQuotationRepository(pg.DB),
		Notifier: notify.NewNotifier(notify.Config{
			SESEnabled:     notifications.SES.Enabled,
			FromEmail:      notifications.SES.FromEmail,
			SNSEnabled:     notifications.SNS.Enabled,
			TriageTopicARN: notifications.SNS.TriageTopicARN,
		}, sesClient, snsClient, sellers, log.Named("notify")),
		Indexer: indexer,
		Limits:  limits,
		Logger:  log.Named("quotation"),
	})

	// --- Workers ---
	var workers []worker.JobWorker
	register := func(taskType string, handle worker.JobHandler) {
		jw := camunda.StartWorker(
			zeebe.GetClient(),
			taskType,
			config.GetWorkerConfig(cfg, taskType),
			camunda.Instrument(taskType, obs, handle),
			log,
		)
		if jw != nil {
			workers = append(workers, jw)
		}
	}

	evaluate, err := eq.NewHandler(eq.HandlerOptions{AppConfig: cfg, Service: service, Logger: log})
	if err != nil {
		zapLog.Fatal("failed to create evaluate-quotation handler", zap.Error(err))
	}
	register(eq.TaskType, evaluate.Handle)

	submit, err := sq.NewHandler(sq.HandlerOptions{AppConfig: cfg, Service: service, Logger: log})
	if err != nil {
		zapLog.Fatal("failed to create submit-quotation handler", zap.Error(err))
	}
	register(sq.TaskType, submit.Handle)

	assign, err := as.NewHandler(as.HandlerOptions{AppConfig: cfg, Assigner: assigner, Logger: log})
	if err != nil {
		zapLog.Fatal("failed to create assign-seller handler", zap.Error(err))
	}
	register(as.TaskType, assign.Handle)

	zapLog.Info("Workers registered", zap.Int("count", len(workers)))

	// --- Health & Metrics Server ---
	srv := &http.Server{
		Addr:              cfg.Server.Address,
		Handler:           healthMux(zeebe, pg, rdb),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		zapLog.Info("Health/Metrics server listening", zap.String("address", cfg.Server.Address))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zapLog.Error("Health/Metrics server failed", zap.Error(err))
		}
	}()

	// --- Graceful Shutdown ---
	<-ctx.Done()
	zapLog.Info("Shutdown signal received, stopping workers...")

	for _, jw := range workers {
		jw.Close()
		jw.AwaitClose()
	}
	service.Wait()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("Error stopping health server", zap.Error(err))
	}
	if err := zeebe.Close(); err != nil {
		zapLog.Error("Error closing Zeebe client", zap.Error(err))
	}

	zapLog.Info("Worker manager stopped gracefully")
}

func healthMux(zeebe *camunda.Client, pg *database.PostgresClient, rdb *database.RedisClient) *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		writeStatus(w, http.StatusOK, map[string]string{
			"status": "healthy",
			"time":   time.Now().Format(time.RFC3339),
		})
	})

	mux.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
		defer cancel()

		checks := map[string]string{}
		status := http.StatusOK
		for name, check := range map[string]func(context.Context) error{
			"zeebe":    zeebe.HealthCheck,
			"postgres": pg.Ping,
			"redis":    rdb.Ping,
		} {
			if err := check(ctx); err != nil {
				checks[name] = err.Error()
				status = http.StatusServiceUnavailable
				continue
			}
			checks[name] = "ok"
		}

		checks["time"] = time.Now().Format(time.RFC3339)
		if status == http.StatusOK {
			checks["status"] = "ready"
		} else {
			checks["status"] = "not_ready"
		}
		writeStatus(w, status, checks)
	})

	mux.Handle("/metrics", promhttp.Handler())
	return mux
}

func writeStatus(w http.ResponseWriter, status int, body map[string]string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
