package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	certApp "github.com/davicafu/hexacert/internal/certificate/application"
	certDomain "github.com/davicafu/hexacert/internal/certificate/domain"
	certHttp "github.com/davicafu/hexacert/internal/certificate/infra/inbound/http"
	certCache "github.com/davicafu/hexacert/internal/certificate/infra/outbound/cache"
	"github.com/davicafu/hexacert/internal/config"
	issuanceApp "github.com/davicafu/hexacert/internal/issuance/application"
	issuanceEvents "github.com/davicafu/hexacert/internal/issuance/infra/inbound/events"
	issuanceHttp "github.com/davicafu/hexacert/internal/issuance/infra/inbound/http"
	"github.com/davicafu/hexacert/internal/issuance/infra/outbound/analytics/clickhouse"
	"github.com/davicafu/hexacert/internal/issuance/infra/outbound/ledger"
	"github.com/davicafu/hexacert/internal/issuance/infra/outbound/wallet"
	sharedEvents "github.com/davicafu/hexacert/internal/shared/infra/events"
	"github.com/davicafu/hexacert/internal/shared/infra/metrics"
	sharedBus "github.com/davicafu/hexacert/internal/shared/infra/platform/bus"
	sharedCache "github.com/davicafu/hexacert/internal/shared/infra/platform/cache"
	"github.com/davicafu/hexacert/internal/shared/infra/relayer"
	"github.com/davicafu/hexacert/pkg/logger"
)

// ---------------- Main ----------------
func main() {
	cfg := config.LoadConfig()

	log, err := logger.New(cfg.LogLevel)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	if err := cfg.Validate(); err != nil {
		log.Fatal("invalid configuration", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ---------------- Stores ----------------
	st, err := openStores(ctx, cfg, log)
	if err != nil {
		log.Fatal("failed to open stores", zap.String("driver", cfg.StoreDriver), zap.Error(err))
	}
	defer st.close()

	// ---------------- Metrics ----------------
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	// ---------------- Cache ----------------
	var cacheInstance sharedCache.Cache
	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	defer rdb.Close()
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Warn("⚠️ Redis no disponible, cache en memoria", zap.Error(err))
		memCache := certCache.NewInMemoryCache(cfg.CacheTTL, 3*cfg.CacheTTL)
		defer memCache.Stop()
		cacheInstance = memCache
	} else {
		cacheInstance = certCache.NewRedisCache(rdb, cfg.CacheTTL)
		log.Info("✅ Redis conectado, cache habilitado")
	}

	// --------------- Servicios --------------
	certService := certApp.NewCertificateService(st.certs, cacheInstance, cfg.CacheTTL, log)

	activities := issuanceApp.NewActivities(
		ledger.New(cfg.LedgerURL, cfg.ClientTimeout),
		wallet.New(cfg.ClientTimeout),
		st.certs,
		cacheInstance,
		log,
	)
	faults := issuanceApp.NewFaultHandler(st.certs, cacheInstance, log)
	orchestrator := issuanceApp.NewOrchestrator(activities, st.certs, st.progress, faults, cfg.Policies, m, log)
	runner := issuanceApp.NewRunner(orchestrator, st.progress, cfg.WorkflowConcurrency, cfg.ResumeBatch, log)

	// ---------------- Events ---------------
	issuanceConsumer := issuanceEvents.NewIssuanceConsumer(runner, log)

	var analyticsConsumer sharedEvents.MessageHandler
	if cfg.ClickHouseAddr != "" {
		analytics, err := clickhouse.NewOutcomeAnalyticsRepo(cfg.ClickHouseAddr, cfg.ClickHouseDB)
		if err != nil {
			log.Warn("⚠️ ClickHouse no disponible, analítica deshabilitada", zap.Error(err))
		} else if err := analytics.InitSchema(); err != nil {
			log.Warn("⚠️ No se pudo crear el esquema de ClickHouse", zap.Error(err))
			analytics.Close()
		} else {
			defer analytics.Close()
			analyticsConsumer = issuanceEvents.NewAnalyticsConsumer(analytics, log)
		}
	}

	var publisher sharedBus.EventBus
	if cfg.UseKafka {
		log.Info("🚀 Usando Kafka como bus de eventos")

		// Writer sin topic fijo: el dispatcher indica el destino de cada mensaje
		writer := &kafka.Writer{
			Addr:                   kafka.TCP(cfg.KafkaBrokers...),
			Balancer:               &kafka.Hash{},
			RequiredAcks:           kafka.RequireAll,
			AllowAutoTopicCreation: true,
		}
		defer writer.Close()
		publisher = sharedEvents.NewKafkaPublisher(writer, log)

		issuanceReader := newReader(cfg, certDomain.IssuanceTopic, cfg.KafkaGroupID+"-issuance")
		defer issuanceReader.Close()
		sharedEvents.NewConsumerAdapter(issuanceReader, issuanceConsumer, log).Start(ctx)

		if analyticsConsumer != nil {
			analyticsReader := newReader(cfg, certDomain.EventsTopic, cfg.KafkaGroupID+"-analytics")
			defer analyticsReader.Close()
			sharedEvents.NewConsumerAdapter(analyticsReader, analyticsConsumer, log).Start(ctx)
		}
	} else {
		log.Info("⚡️ Usando bus de eventos en memoria (canales de Go)")

		bus := sharedEvents.NewInMemoryEventBus()
		publisher = bus

		sharedEvents.BackgroundConsumerChan(ctx, bus.Subscribe(certDomain.IssuanceTopic, 64), issuanceConsumer, log)
		if analyticsConsumer != nil {
			sharedEvents.BackgroundConsumerChan(ctx, bus.Subscribe(certDomain.EventsTopic, 64), analyticsConsumer, log)
		}
	}

	// ------------ Outbox Worker ------------
	worker := relayer.NewOutboxWorker(st.outbox, publisher, certDomain.NewEventRegistry(), cfg.OutboxPeriod, cfg.OutboxLimit, m, log)
	go worker.Start(ctx)

	// ------------ Recuperación ------------
	go runner.StartResumer(ctx, cfg.ResumePeriod)

	// ---------------- HTTP ----------------
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	certHttp.RegisterCertificateRoutes(router, certHttp.NewCertificateHandler(certService))
	issuanceHttp.RegisterWorkflowRoutes(router, issuanceHttp.NewWorkflowHandler(st.progress))
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))

	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		log.Info("🚀 Server running", zap.String("url", "http://localhost:"+cfg.HTTPPort))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("failed to start server", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("🛑 Apagando servicio...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn("HTTP shutdown failed", zap.Error(err))
	}
	// Los workflows en vuelo ven el contexto cancelado, guardan su progreso y salen.
	runner.Wait()
	log.Info("👋 Servicio detenido")
}

func newReader(cfg *config.Config, topic, groupID string) *kafka.Reader {
	return kafka.NewReader(kafka.ReaderConfig{
		Brokers:  cfg.KafkaBrokers,
		Topic:    topic,
		GroupID:  groupID,
		MinBytes: 10e3, // 10KB
		MaxBytes: 10e6, // 10MB
	})
}
