package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"
	"gorm.io/gorm"

	"github.com/Skotchmaster/auth_service/internal/config"
	"github.com/Skotchmaster/auth_service/internal/db"
	"github.com/Skotchmaster/auth_service/internal/events"
	"github.com/Skotchmaster/auth_service/internal/hash"
	"github.com/Skotchmaster/auth_service/internal/httpserver"
	"github.com/Skotchmaster/auth_service/internal/logging"
	"github.com/Skotchmaster/auth_service/internal/ratelimit"
	"github.com/Skotchmaster/auth_service/internal/repo"
	"github.com/Skotchmaster/auth_service/internal/service"
	"github.com/Skotchmaster/auth_service/pkg/tokens"
)

const (
	purgeEvery   = time.Hour
	warmAttempts = 20
	warmDelay    = 250 * time.Millisecond
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger := logging.New(cfg.LogLevel)
	slog.SetDefault(logger)

	initCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	gdb, err := db.Open(initCtx, cfg)
	cancel()
	if err != nil {
		log.Fatalf("db init error: %v", err)
	}

	privateKey, err := tokens.ParsePrivateKey(cfg.PrivateKey)
	if err != nil {
		log.Fatalf("private key: %v", err)
	}
	signer, err := tokens.NewSigner(privateKey, cfg.KeyID, cfg.RefreshSecret)
	if err != nil {
		log.Fatalf("signer: %v", err)
	}
	keySet := tokens.NewKeySet(cfg.JWKSURI,
		tokens.WithRefreshInterval(cfg.JWKSRefreshEvery),
		tokens.WithFetchLimit(rate.Every(time.Minute/time.Duration(max(cfg.JWKSFetchPerMinute, 1))), 1),
		tokens.WithKeySetLogger(logger),
	)

	var publisher events.Publisher = events.NopPublisher{}
	if len(cfg.KafkaBrokers) > 0 {
		publisher = events.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic)
	}

	var throttle service.LoginThrottle
	var redisClient *redis.Client
	if cfg.RedisAddr != "" {
		redisClient = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword})
		throttle = ratelimit.NewLoginLimiter(redisClient, cfg.LoginMaxAttempts, cfg.LoginCooldown)
	}

	store := repo.New(gdb)
	hasher := hash.NewBcrypt()

	e := httpserver.New(logger, config.CSV(cfg.ClientURL)...)
	httpserver.Register(e, &httpserver.Deps{
		Auth: &httpserver.AuthHTTP{
			Svc: &service.AuthService{
				Users:    store,
				Ledger:   store,
				Hasher:   hasher,
				Signer:   signer,
				Events:   publisher,
				Throttle: throttle,
			},
			Cookies: httpserver.CookieConfig{Domain: cfg.CookieDomain, Secure: cfg.CookieSecure},
		},
		Users:       &httpserver.UsersHTTP{Svc: &service.UserService{Users: store, Tenants: store, Hasher: hasher, Events: publisher}},
		Tenants:     &httpserver.TenantsHTTP{Svc: &service.TenantService{Tenants: store}},
		Keys:        signer,
		Access:      keySet,
		Refresh:     signer,
		Revocations: store,
		Ready:       store.Ping,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go keySet.Run(ctx)
	go purgeExpired(ctx, store, logger)

	go func() {
		logger.Info("server_starting", "port", cfg.Port)
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("echo start: %v", err)
		}
	}()

	go warmKeys(ctx, keySet, logger)

	<-ctx.Done()
	logger.Info("server_stopping")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error("echo shutdown", "error", err)
	}
	if err := publisher.Close(); err != nil {
		logger.Error("event publisher close", "error", err)
	}
	if redisClient != nil {
		_ = redisClient.Close()
	}
	closeDB(gdb, logger)
}

// warmKeys loads the key set once the listener is up, so the first requests
// after a start do not all race for an on-demand fetch.
func warmKeys(ctx context.Context, keySet *tokens.KeySet, logger *slog.Logger) {
	var err error
	for i := 0; i < warmAttempts; i++ {
		select {
		case <-ctx.Done():
			return
		case <-time.After(warmDelay):
		}
		if err = keySet.Refresh(ctx); err == nil {
			logger.Info("jwks_warmed")
			return
		}
	}
	logger.Warn("jwks_warm_failed", "error", err)
}

func purgeExpired(ctx context.Context, store *repo.GormRepo, logger *slog.Logger) {
	ticker := time.NewTicker(purgeEvery)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := store.PurgeExpiredRefreshTokens(ctx, time.Now())
			if err != nil {
				logger.Warn("refresh_purge_failed", "error", err)
				continue
			}
			if n > 0 {
				logger.Info("refresh_purged", "rows", n)
			}
		}
	}
}

func closeDB(gdb *gorm.DB, logger *slog.Logger) {
	if err := db.Close(gdb); err != nil {
		logger.Error("db close", "error", err)
	}
}
