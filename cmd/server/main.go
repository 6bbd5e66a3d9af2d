package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"

	"github.com/pranay-th/TGBH-CheeseBurger/internal/audit"
	auditrepo "github.com/pranay-th/TGBH-CheeseBurger/internal/audit/repository"
	"github.com/pranay-th/TGBH-CheeseBurger/internal/config"
	"github.com/pranay-th/TGBH-CheeseBurger/internal/db"
	healthhandler "github.com/pranay-th/TGBH-CheeseBurger/internal/health/handler"
	"github.com/pranay-th/TGBH-CheeseBurger/internal/identity"
	"github.com/pranay-th/TGBH-CheeseBurger/internal/logging"
	"github.com/pranay-th/TGBH-CheeseBurger/internal/server"
	"github.com/pranay-th/TGBH-CheeseBurger/internal/session"
	"github.com/pranay-th/TGBH-CheeseBurger/internal/telemetry"
	telemetryhandler "github.com/pranay-th/TGBH-CheeseBurger/internal/telemetry/handler"
	telemetryotel "github.com/pranay-th/TGBH-CheeseBurger/internal/telemetry/otel"
	"github.com/pranay-th/TGBH-CheeseBurger/internal/telemetry/producer"
	telemetryrepo "github.com/pranay-th/TGBH-CheeseBurger/internal/telemetry/repository"
	userrepo "github.com/pranay-th/TGBH-CheeseBurger/internal/user/repository"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

const (
	serviceName    = "proctor-telemetry"
	maxIngestBytes = 1 << 20
	stopTimeout    = 10 * time.Second
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		// Logger is not configured yet.
		_, _ = os.Stderr.WriteString("config: " + err.Error() + "\n")
		os.Exit(1)
	}
	logger, err := logging.New(cfg.LogLevel, cfg.Env)
	if err != nil {
		_, _ = os.Stderr.WriteString("logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("server exited", zap.Error(err))
	}
}

func run(cfg *config.Config, logger *zap.Logger) error {
	ctx := context.Background()

	providers, err := telemetryotel.NewProviders(ctx, telemetryotel.Options{
		Endpoint:       cfg.OTLPEndpoint,
		Insecure:       cfg.OTLPInsecure,
		ServiceName:    serviceName,
		ServiceVersion: version,
	}, logger)
	if err != nil {
		return err
	}
	providers.SetGlobal()

	database, err := db.Open(cfg.DatabaseURL, cfg.DBMaxOpenConns)
	if err != nil {
		return err
	}
	defer database.Close()

	resolver := identity.NewResolver(userrepo.NewPostgresRepository(database), logger)
	auditLogger := audit.NewLogger(auditrepo.NewPostgresRepository(database), logger)

	mirror := telemetry.Emitters{telemetryotel.NewEventEmitter(providers.LoggerProvider)}
	kafkaProducer, err := producer.NewKafkaProducer(cfg.TelemetryKafkaBrokersList(), cfg.TelemetryKafkaTopic, logger)
	if err != nil {
		return err
	}
	if kafkaProducer != nil {
		mirror = append(mirror, kafkaProducer)
		logger.Info("kafka mirror enabled", zap.String("topic", cfg.TelemetryKafkaTopic))
	}
	gateway := telemetry.NewGateway(telemetryrepo.NewPostgresRepository(database), auditLogger, mirror, logger)

	dispatcher, err := telemetryhandler.NewDispatcher(resolver, gateway, telemetryhandler.Options{
		PersistTimeout: cfg.PersistTimeoutDuration(),
		QueueSize:      cfg.WSQueueSize,
		Logger:         logger,
	})
	if err != nil {
		return err
	}

	registry := session.NewRegistry(logger)
	if _, err := registry.RegisterMetrics(providers.MeterProvider.Meter("github.com/pranay-th/TGBH-CheeseBurger/internal/session")); err != nil {
		return err
	}

	ws := server.NewWebSocket(registry, dispatcher, server.WebSocketConfig{
		MaxMessageBytes: cfg.WSMaxMessageBytes,
		SendBuffer:      cfg.WSSendBuffer,
		PingInterval:    cfg.PingInterval(),
	}, logger)
	checker := healthhandler.NewChecker(database)
	httpServer := &http.Server{
		Addr: cfg.HTTPAddr,
		Handler: server.NewRouter(server.RouterDeps{
			WSPath:    cfg.WSPath,
			WebSocket: ws,
			Ingest:    telemetryhandler.NewIngest(resolver, gateway, maxIngestBytes, logger),
			Health:    checker,
			Registry:  registry,
			Logger:    logger,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 2)
	go func() {
		logger.Info("http server listening",
			zap.String("addr", cfg.HTTPAddr),
			zap.String("ws_path", cfg.WSPath),
			zap.Duration("heartbeat_interval", cfg.HeartbeatEvery()))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	var grpcServer *grpc.Server
	if cfg.GRPCAddr != "" {
		lis, err := net.Listen("tcp", cfg.GRPCAddr)
		if err != nil {
			return err
		}
		grpcServer = server.NewGRPCServer(server.GRPCDeps{Health: checker, Logger: logger})
		go func() {
			logger.Info("grpc server listening", zap.String("addr", cfg.GRPCAddr))
			if err := grpcServer.Serve(lis); err != nil {
				errCh <- err
			}
		}()
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	select {
	case sig := <-quit:
		logger.Info("shutting down", zap.String("signal", sig.String()))
	case err := <-errCh:
		logger.Error("listener failed", zap.Error(err))
	}

	stopCtx, cancel := context.WithTimeout(ctx, stopTimeout)
	defer cancel()
	if err := httpServer.Shutdown(stopCtx); err != nil {
		logger.Warn("http shutdown", zap.Error(err))
	}
	registry.CloseAll()
	if err := ws.Wait(stopCtx); err != nil {
		logger.Warn("websocket connections still open", zap.Int("clients", registry.Len()))
	}
	if grpcServer != nil {
		grpcServer.GracefulStop()
	}

	// Mirror emits run in the background; give them a chance to finish before the sinks close.
	time.Sleep(telemetry.ShutdownDrainDuration)
	if kafkaProducer != nil {
		if err := kafkaProducer.Close(); err != nil {
			logger.Warn("kafka producer close", zap.Error(err))
		}
	}
	if err := providers.Shutdown(stopCtx); err != nil {
		logger.Warn("otel shutdown", zap.Error(err))
	}
	logger.Info("server stopped")
	return nil
}
