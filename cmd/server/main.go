package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"warungpos/backend/internal/cloud"
	"warungpos/backend/internal/config"
	"warungpos/backend/internal/domain"
	"warungpos/backend/internal/events"
	"warungpos/backend/internal/httpapi"
	"warungpos/backend/internal/logging"
	"warungpos/backend/internal/service"
	"warungpos/backend/internal/store"
	"warungpos/backend/internal/store/memory"
	pgstore "warungpos/backend/internal/store/postgres"
	"warungpos/backend/internal/syncer"
)

func main() {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	cfg := config.Load()
	logging.Init(cfg.LogLevel, cfg.LogPretty)

	if err := validateSecurityConfig(cfg); err != nil {
		log.Fatal().Err(err).Msg("invalid security configuration")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var repo store.Repository
	closers := make([]func() error, 0, 2)

	if cfg.DatabaseURL != "" {
		if err := pgstore.Migrate(cfg.DatabaseURL); err != nil {
			log.Fatal().Err(err).Msg("migrate postgres")
		}
		pg, err := pgstore.New(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Fatal().Err(err).Msg("postgres unavailable and DATABASE_URL is set; refusing to start with in-memory fallback")
		}
		repo = pg
		closers = append(closers, pg.Close)
		log.Info().Str("repository", "postgres").Msg("storage ready")
	} else {
		repo = memory.NewSeeded(cfg.StoreID)
		log.Info().Str("repository", "memory").Msg("storage ready")
	}

	var cloudClient cloud.Client
	if cfg.RedisAddr != "" {
		redisClient := cloud.NewRedisClient(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err := redisClient.Ping(ctx); err != nil {
			log.Warn().Err(err).Msg("redis unavailable, using simulated cloud")
			_ = redisClient.Close()
			cloudClient = cloud.NewStub(cfg.CloudStubDelay)
		} else {
			cloudClient = redisClient
			closers = append(closers, redisClient.Close)
			log.Info().Str("cloud", "redis").Msg("cloud mirror ready")
		}
	} else {
		cloudClient = cloud.NewStub(cfg.CloudStubDelay)
		log.Info().Str("cloud", "stub").Msg("cloud mirror ready")
	}

	runCtx, stopRun := context.WithCancel(context.Background())
	defer stopRun()

	var publisher events.Publisher = events.Noop{}
	var kafkaPublisher *events.KafkaPublisher
	if len(cfg.KafkaBrokers) > 0 {
		kafkaPublisher = events.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic, 0)
		kafkaPublisher.Start(runCtx)
		publisher = kafkaPublisher
		log.Info().Strs("brokers", cfg.KafkaBrokers).Str("topic", cfg.KafkaTopic).Msg("event publisher ready")
	}

	bridge := syncer.New(repo, cloudClient, syncer.WithDelay(cfg.SyncDebounce), syncer.WithPushTimeout(cfg.CloudTimeout))
	stores := service.NewRegistry(repo, bridge, service.WithPublisher(publisher), service.WithCloud(cloudClient))
	if _, err := stores.Open(ctx, cfg.StoreID); err != nil {
		log.Fatal().Err(err).Str("store_id", cfg.StoreID).Msg("open default store")
	}

	auth := httpapi.NewAuthManager(cfg.AuthSecret, time.Duration(cfg.AccessTokenTTLMinutes)*time.Minute, seedAccounts(cfg))
	api := httpapi.New(stores, auth, bridge, cfg.StoreID, cfg.AllowedOrigin)

	server := &http.Server{
		Addr:              cfg.Address(),
		Handler:           api.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info().Str("addr", cfg.Address()).Msg("POS backend listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("shutdown error")
	}
	if err := stores.CloseAll(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("close stores")
	}
	if err := bridge.Close(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("flush cloud sync")
	}
	if kafkaPublisher != nil {
		if err := kafkaPublisher.Close(); err != nil {
			log.Error().Err(err).Msg("close event publisher")
		}
	}
	stopRun()

	for _, closeFn := range closers {
		if err := closeFn(); err != nil {
			log.Error().Err(err).Msg("close error")
		}
	}

	log.Info().Msg("server stopped")
}

func seedAccounts(cfg config.Config) []domain.UserAccount {
	now := time.Now().UTC()
	accounts := []domain.UserAccount{
		{Username: "admin", Password: cfg.SeedAdminPassword, Role: domain.RoleAdmin, Active: true, CreatedAt: now},
	}
	if cfg.SeedCashierPassword != "" {
		accounts = append(accounts, domain.UserAccount{
			Username: "cashier", Password: cfg.SeedCashierPassword, Role: domain.RoleCashier, Active: true, CreatedAt: now,
		})
	}
	return accounts
}

func validateSecurityConfig(cfg config.Config) error {
	if len(cfg.AuthSecret) < 32 {
		return fmt.Errorf("AUTH_SECRET must be set and at least 32 characters")
	}
	if err := validatePasswordStrength(cfg.SeedAdminPassword); err != nil {
		return fmt.Errorf("SEED_ADMIN_PASSWORD %w", err)
	}
	if cfg.SeedCashierPassword != "" {
		if err := validatePasswordStrength(cfg.SeedCashierPassword); err != nil {
			return fmt.Errorf("SEED_CASHIER_PASSWORD %w", err)
		}
	}
	return nil
}

// validatePasswordStrength rejects short passwords, single repeated
// characters and a few well-known defaults.
func validatePasswordStrength(password string) error {
	if len(password) < 8 {
		return fmt.Errorf("must be set and at least 8 characters")
	}
	known := map[string]bool{
		"password": true, "12345678": true, "admin123": true, "cashier123": true,
		"qwertyui": true, "11111111": true, "00000000": true,
	}
	if known[password] {
		return fmt.Errorf("is a common password")
	}

	allSame := true
	for i := 1; i < len(password); i++ {
		if password[i] != password[0] {
			allSame = false
			break
		}
	}
	if allSame {
		return fmt.Errorf("cannot repeat a single character")
	}
	return nil
}
