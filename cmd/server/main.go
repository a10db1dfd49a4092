package main

import (
	"context"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	auditrepo "account-platform/backend/internal/audit/repository"
	authservice "account-platform/backend/internal/auth/service"
	"account-platform/backend/internal/config"
	"account-platform/backend/internal/db"
	"account-platform/backend/internal/mailer"
	"account-platform/backend/internal/security"
	"account-platform/backend/internal/server"
	"account-platform/backend/internal/server/httpapi"
	sessionrepo "account-platform/backend/internal/session/repository"
	sessionservice "account-platform/backend/internal/session/service"
	"account-platform/backend/internal/telemetry"
	"account-platform/backend/internal/telemetry/otel"
	"account-platform/backend/internal/telemetry/producer"
	userrepo "account-platform/backend/internal/user/repository"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	ctx := context.Background()

	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL is not set; create a .env from .env.example or set DATABASE_URL")
	}
	conn, err := db.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer conn.Close()

	key, err := security.LoadKey(cfg.SessionEncKey)
	if err != nil {
		log.Fatalf("session key: %v", err)
	}
	if cfg.SessionEncKey == "" {
		log.Println("SESSION_ENC_KEY not set; using an ephemeral key, tokens will not survive a restart")
	}
	cipher, err := security.NewTokenCipher(key)
	if err != nil {
		log.Fatalf("token cipher: %v", err)
	}
	hasher := security.NewHasher(security.Argon2Params{
		MemoryKiB:   cfg.Argon2MemoryKiB,
		Iterations:  cfg.Argon2Iterations,
		Parallelism: cfg.Argon2Parallelism,
	})

	// Telemetry: OTel providers, plus Kafka when brokers are configured.
	providers, err := otel.NewProviders(ctx, cfg.OTLPEndpoint, "account-platform", cfg.Env != "production")
	if err != nil {
		log.Fatalf("telemetry: %v", err)
	}
	providers.SetGlobal()

	kafkaProducer, err := producer.NewKafkaProducer(cfg.TelemetryKafkaBrokersList(), cfg.TelemetryKafkaTopic)
	if err != nil {
		log.Fatalf("telemetry: kafka producer: %v", err)
	}
	var emitter telemetry.EventEmitter
	if kafkaProducer != nil {
		emitter = kafkaProducer
		log.Printf("telemetry: emitting to kafka topic %s", cfg.TelemetryKafkaTopic)
	} else {
		emitter = otel.NewEventEmitter(providers.LoggerProvider)
	}

	var notifier sessionservice.Notifier
	if cfg.SMTPHost != "" {
		notifier = mailer.NewSMTPMailer(mailer.Config{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.SMTPUsername,
			Password: cfg.SMTPPassword,
			From:     cfg.SMTPFrom,
		})
	} else {
		notifier = mailer.NoopMailer{}
		log.Println("SMTP_HOST not set; connection notifications disabled")
	}

	users := userrepo.NewPostgresRepository(conn)
	sessions := sessionrepo.NewPostgresRepository(conn)
	audits := auditrepo.NewPostgresRepository(conn)

	store := sessionservice.NewStore(sessions, users, cipher, notifier, cfg.SessionTTLDuration())
	auth := authservice.NewAuthService(users, store, hasher, cipher, emitter)

	// HTTP API.
	httpSrv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           httpapi.NewHandler(auth).Routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		log.Printf("HTTP server listening on %s", cfg.HTTPAddr)
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("http serve: %v", err)
		}
	}()

	// gRPC server: health, reflection, and the interceptor chain.
	lis, err := net.Listen("tcp", cfg.GRPCAddr)
	if err != nil {
		log.Fatalf("listen: %v", err)
	}
	defer lis.Close()

	grpcSrv, healthSrv := server.NewGRPCServer(server.Deps{
		TokenResolver: store,
		AuditRepo:     audits,
		Emitter:       emitter,
	})
	go func() {
		log.Printf("gRPC server listening on %s", cfg.GRPCAddr)
		if err := grpcSrv.Serve(lis); err != nil {
			log.Fatalf("serve: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Println("shutting down...")
	healthSrv.Shutdown()
	grpcSrv.GracefulStop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Printf("http shutdown: %v", err)
	}

	// Give in-flight async emits time to finish before closing the sinks.
	time.Sleep(telemetry.ShutdownDrainDuration)
	if err := kafkaProducer.Close(); err != nil {
		log.Printf("kafka close: %v", err)
	}
	if err := providers.Shutdown(shutdownCtx); err != nil {
		log.Printf("telemetry shutdown: %v", err)
	}
	log.Println("server stopped")
}
