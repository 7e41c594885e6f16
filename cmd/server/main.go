// server runs the creator access gate: the HTTP API on HTTP_ADDR and the gRPC health service
// on GRPC_ADDR.
package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"google.golang.org/grpc"

	accessservice "creator-access-gate/internal/access/service"
	"creator-access-gate/internal/audit"
	auditrepo "creator-access-gate/internal/audit/repository"
	"creator-access-gate/internal/config"
	creatorrepo "creator-access-gate/internal/creator/repository"
	credrepo "creator-access-gate/internal/credential/repository"
	credentialservice "creator-access-gate/internal/credential/service"
	"creator-access-gate/internal/db"
	"creator-access-gate/internal/logging"
	"creator-access-gate/internal/ratelimit"
	"creator-access-gate/internal/security"
	"creator-access-gate/internal/server"
	"creator-access-gate/internal/server/httpapi"
	"creator-access-gate/internal/server/middleware"
	"creator-access-gate/internal/session"
	"creator-access-gate/internal/telemetry"
	telemetryotel "creator-access-gate/internal/telemetry/otel"
	"creator-access-gate/internal/telemetry/producer"
)

const (
	shutdownTimeout   = 10 * time.Second
	rateLimitPrefix   = "creator-access-gate:validate:"
	readHeaderTimeout = 5 * time.Second
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}
	logger := logging.New(cfg.LogLevel, cfg.IsProduction())
	if err := run(cfg, logger); err != nil {
		logger.Fatal().Err(err).Msg("server exited")
	}
}

// stores groups the backend chosen by STORE.
type stores struct {
	creators    credentialservice.CreatorRepo
	credentials credrepo.Repository
	events      auditrepo.Repository
	conn        *sql.DB
}

func openStores(cfg *config.Config, logger zerolog.Logger) (*stores, error) {
	if cfg.Store == config.StoreMemory {
		logger.Warn().Msg("using in-memory store; data is lost on restart")
		creators := creatorrepo.NewMemoryRepository()
		return &stores{
			creators:    creators,
			credentials: credrepo.NewMemoryRepository(),
			events:      auditrepo.NewMemoryRepository(creators),
		}, nil
	}
	if cfg.DatabaseURL == "" {
		return nil, errors.New("DATABASE_URL is required when STORE=postgres")
	}
	conn, err := db.Open(cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("db: %w", err)
	}
	return &stores{
		creators:    creatorrepo.NewPostgresRepository(conn),
		credentials: credrepo.NewPostgresRepository(conn),
		events:      auditrepo.NewPostgresRepository(conn),
		conn:        conn,
	}, nil
}

// loadTokenProvider parses the configured grant keys. Outside production a missing pair is
// replaced by an ephemeral P-256 key, so grants do not survive a restart.
func loadTokenProvider(cfg *config.Config, logger zerolog.Logger) (*security.TokenProvider, error) {
	if cfg.GrantPrivateKey == "" || cfg.GrantPublicKey == "" {
		if cfg.IsProduction() {
			return nil, errors.New("GRANT_PRIVATE_KEY and GRANT_PUBLIC_KEY are required in production")
		}
		signer, pub, err := security.GenerateSigningKey()
		if err != nil {
			return nil, fmt.Errorf("generate grant key: %w", err)
		}
		logger.Warn().Msg("no grant keys configured; using an ephemeral signing key")
		return security.NewTokenProvider(signer, pub, cfg.GrantIssuer, cfg.GrantAudience), nil
	}
	signer, err := security.ParsePrivateKey(cfg.GrantPrivateKey)
	if err != nil {
		return nil, fmt.Errorf("grant private key: %w", err)
	}
	pub, err := security.ParsePublicKey(cfg.GrantPublicKey)
	if err != nil {
		return nil, fmt.Errorf("grant public key: %w", err)
	}
	return security.NewTokenProvider(signer, pub, cfg.GrantIssuer, cfg.GrantAudience), nil
}

func newLimiter(cfg *config.Config, logger zerolog.Logger) (ratelimit.Limiter, func() error) {
	rl := ratelimit.Config{PerMinute: cfg.ValidateRatePerMinute, Burst: cfg.ValidateBurst}
	if !rl.Enabled() {
		logger.Warn().Msg("validation rate limiting disabled")
		return nil, func() error { return nil }
	}
	if cfg.RedisAddr == "" {
		return ratelimit.NewMemoryLimiter(rl), func() error { return nil }
	}
	client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	logger.Info().Str("addr", cfg.RedisAddr).Msg("rate limiting via redis")
	return ratelimit.NewRedisLimiter(client, rl, rateLimitPrefix), client.Close
}

func run(cfg *config.Config, logger zerolog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	providers, err := telemetryotel.NewProviders(ctx, telemetryotel.Options{
		Endpoint:    cfg.OTLPEndpoint,
		Insecure:    cfg.OTLPInsecure,
		ServiceName: cfg.ServiceName,
		Environment: cfg.Env,
	})
	if err != nil {
		return fmt.Errorf("otel: %w", err)
	}
	providers.SetGlobal()
	metrics, err := telemetryotel.NewAccessMetrics(providers.MeterProvider)
	if err != nil {
		return fmt.Errorf("otel metrics: %w", err)
	}

	st, err := openStores(cfg, logger)
	if err != nil {
		return err
	}
	if st.conn != nil {
		defer st.conn.Close()
	}

	emitter := telemetry.MultiEmitter{telemetryotel.NewEventEmitter(providers.LoggerProvider)}
	kafkaProducer, err := producer.NewKafkaProducer(cfg.KafkaBrokersList(), cfg.AccessEventsTopic)
	if err != nil {
		return fmt.Errorf("kafka: %w", err)
	}
	if kafkaProducer != nil {
		emitter = append(emitter, kafkaProducer)
		logger.Info().Str("topic", cfg.AccessEventsTopic).Msg("streaming access events to kafka")
	}

	tokens, err := loadTokenProvider(cfg, logger)
	if err != nil {
		return err
	}
	limiter, closeLimiter := newLimiter(cfg, logger)
	defer closeLimiter()
	proxies, err := middleware.NewProxyTrust(cfg.TrustedProxiesList())
	if err != nil {
		return err
	}

	hasher := security.NewHasher(cfg.BcryptCost)
	gate := session.NewGate(tokens, cfg.GrantTTL(), cfg.IsProduction())
	auditLog := audit.NewLog(st.events, emitter, logger)
	validator := accessservice.NewValidator(st.credentials, hasher, auditLog, gate, metrics, logger)
	credentials := credentialservice.New(st.credentials, st.creators, hasher)

	deps := httpapi.Deps{
		Validator:      validator,
		Credentials:    credentials,
		Events:         auditLog,
		Gate:           gate,
		Limiter:        limiter,
		TrustedProxies: proxies,
		Logger:         logger,
		AdminToken:     cfg.AdminToken,
		Production:     cfg.IsProduction(),
		RequestTimeout: cfg.RequestTimeoutDuration(),
	}
	var grpcPinger server.Pinger
	if st.conn != nil {
		deps.Pinger = st.conn
		grpcPinger = st.conn
	}

	httpServer := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           httpapi.NewRouter(deps),
		ReadHeaderTimeout: readHeaderTimeout,
		ReadTimeout:       cfg.RequestTimeoutDuration(),
		WriteTimeout:      cfg.RequestTimeoutDuration() + 5*time.Second,
		IdleTimeout:       60 * time.Second,
	}
	errCh := make(chan error, 2)
	go func() {
		logger.Info().
			Str("addr", cfg.HTTPAddr).
			Str("store", cfg.Store).
			Dur("default_grant_ttl", gate.DefaultTTL()).
			Strs("trusted_proxies", cfg.TrustedProxiesList()).
			Msg("HTTP server listening")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http: %w", err)
		}
	}()

	probeCtx, stopProbe := context.WithCancel(context.Background())
	defer stopProbe()
	var grpcServer *grpc.Server
	if cfg.GRPCAddr != "" {
		lis, err := net.Listen("tcp", cfg.GRPCAddr)
		if err != nil {
			return fmt.Errorf("grpc listen: %w", err)
		}
		gs, hs := server.NewGRPCServer()
		grpcServer = gs
		go server.RunHealthProbe(probeCtx, hs, server.Deps{Pinger: grpcPinger, Logger: logger})
		go func() {
			logger.Info().Str("addr", cfg.GRPCAddr).Msg("gRPC health server listening")
			if err := gs.Serve(lis); err != nil {
				errCh <- fmt.Errorf("grpc: %w", err)
			}
		}()
	}

	var runErr error
	select {
	case <-ctx.Done():
		logger.Info().Msg("shutting down")
	case runErr = <-errCh:
		logger.Error().Err(runErr).Msg("server failed; shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("http shutdown")
	}
	stopProbe()
	if grpcServer != nil {
		grpcServer.GracefulStop()
	}

	// Access events mirrored asynchronously may still be in flight.
	time.Sleep(telemetry.ShutdownDrainDuration)
	if err := kafkaProducer.Close(); err != nil {
		logger.Warn().Err(err).Msg("kafka producer close")
	}
	drainCtx, drainCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer drainCancel()
	if err := providers.Shutdown(drainCtx); err != nil {
		logger.Warn().Err(err).Msg("otel shutdown")
	}
	logger.Info().Msg("stopped")
	return runErr
}
