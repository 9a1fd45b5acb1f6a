package main

import (
	"context"
	"database/sql"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"campusbook/auth/internal/audit"
	auditproducer "campusbook/auth/internal/audit/producer"
	auditrepo "campusbook/auth/internal/audit/repository"
	"campusbook/auth/internal/auth/handler"
	"campusbook/auth/internal/auth/service"
	"campusbook/auth/internal/config"
	"campusbook/auth/internal/db"
	"campusbook/auth/internal/security"
	"campusbook/auth/internal/server"
	sessionrepo "campusbook/auth/internal/session/repository"
	"campusbook/auth/internal/telemetry/otel"
	userrepo "campusbook/auth/internal/user/repository"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	keys, err := security.ResolveKeys(cfg.JWTPrivateKey, cfg.JWTPublicKey, cfg.JWTKeysDir)
	if err != nil {
		log.Fatalf("keys: %v", err)
	}
	codec := security.NewTokenCodec(keys)

	var (
		sqlDB    *sql.DB
		users    service.UserRepo
		attempts auditrepo.Repository
	)
	if cfg.SQLitePath != "" {
		sqlDB, err = db.OpenSQLite(cfg.SQLitePath)
		if err != nil {
			log.Fatalf("sqlite: %v", err)
		}
		users = userrepo.NewSQLiteRepository(sqlDB)
		attempts = auditrepo.NewSQLiteRepository(sqlDB)
	} else {
		sqlDB, err = db.Open(cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("postgres: %v", err)
		}
		users = userrepo.NewPostgresRepository(sqlDB)
		attempts = auditrepo.NewPostgresRepository(sqlDB)
	}
	defer sqlDB.Close()

	var sessions service.SessionStore
	var rdb *redis.Client
	switch cfg.SessionBackend {
	case "redis":
		rdb = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		defer rdb.Close()
		sessions = sessionrepo.NewRedisStore(rdb)
	case "sqlite":
		sessions = sessionrepo.NewSQLiteStore(sqlDB)
	default:
		if cfg.SQLitePath != "" {
			sessions = sessionrepo.NewSQLiteStore(sqlDB)
		} else {
			sessions = sessionrepo.NewPostgresStore(sqlDB)
		}
	}

	producer, err := auditproducer.NewKafkaProducer(cfg.KafkaBrokers(), cfg.AuditKafkaTopic)
	if err != nil {
		log.Fatalf("kafka: %v", err)
	}
	if producer != nil {
		defer producer.Close()
	}
	var emitter audit.Emitter
	if producer != nil {
		emitter = producer
	}
	recorder := audit.NewLogger(attempts, emitter)

	ctx := context.Background()
	providers, err := otel.NewProviders(ctx, cfg.OTLPEndpoint, "campusbook-auth", cfg.OTLPInsecure)
	if err != nil {
		log.Fatalf("telemetry: %v", err)
	}
	providers.SetGlobal()
	metrics, err := otel.NewAuthMetrics(providers.MeterProvider)
	if err != nil {
		log.Fatalf("telemetry: %v", err)
	}

	svc := service.NewAuthService(users, sessions, recorder, security.NewHasher(cfg.BcryptCost), codec, cfg.AccessTTL(), cfg.RefreshTTL())
	h := handler.NewHandler(svc)

	health := func(ctx context.Context) error {
		if err := sqlDB.PingContext(ctx); err != nil {
			return err
		}
		if rdb != nil {
			return rdb.Ping(ctx).Err()
		}
		return nil
	}

	srv := server.New(cfg.HTTPAddr, server.NewRouter(h, svc, metrics, health))

	go func() {
		if err := srv.Run(); err != nil {
			log.Fatalf("serve: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Println("shutting down http server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown: %v", err)
	}
	if err := providers.Shutdown(shutdownCtx); err != nil {
		log.Printf("telemetry shutdown: %v", err)
	}
	log.Println("http server stopped")
}
