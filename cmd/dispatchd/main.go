// dispatchd runs the WildRydes ride-dispatch backend: identity store,
// authorization gateway, dispatch handler and ride ledger in one process.
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
	"github.com/prometheus/client_golang/prometheus"
	rdb "github.com/redis/go-redis/v9"

	"github.com/wildrydes/dispatch/internal/cache"
	"github.com/wildrydes/dispatch/internal/config"
	"github.com/wildrydes/dispatch/internal/dispatch"
	"github.com/wildrydes/dispatch/internal/domain"
	"github.com/wildrydes/dispatch/internal/email"
	"github.com/wildrydes/dispatch/internal/fleet"
	"github.com/wildrydes/dispatch/internal/gateway"
	"github.com/wildrydes/dispatch/internal/identity"
	"github.com/wildrydes/dispatch/internal/ledger"
	"github.com/wildrydes/dispatch/internal/observability/logger"
	"github.com/wildrydes/dispatch/internal/rate"
	"github.com/wildrydes/dispatch/internal/secrets"
	"github.com/wildrydes/dispatch/internal/security/password"
	"github.com/wildrydes/dispatch/internal/token"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	_ = godotenv.Load()

	cfg := config.LoadFromEnv()
	logger.Init(logger.Config{
		Env:         cfg.Env,
		Level:       cfg.Log.Level,
		ServiceName: "dispatchd",
	})
	defer func() { _ = logger.Sync() }()
	log := logger.Named("main")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	resolver := secrets.Chain{
		secrets.FileResolver{Dir: os.Getenv("SECRETS_DIR")},
		secrets.EnvResolver{},
	}

	// ---- identity store ----
	storeCfg := identity.StoreConfig{
		Driver:   cfg.Storage.Driver,
		MaxConns: cfg.Storage.Postgres.MaxConns,
		MinConns: cfg.Storage.Postgres.MinConns,
	}
	if storeCfg.Driver == "postgres" {
		dsn, err := resolver.Resolve(cfg.Storage.DSNSecret)
		if err != nil {
			return fmt.Errorf("resolve storage dsn: %w", err)
		}
		storeCfg.DSN = dsn
	}
	users, err := identity.NewUserStore(ctx, storeCfg)
	if err != nil {
		return fmt.Errorf("user store: %w", err)
	}
	defer users.Close()

	// ---- ride ledger ----
	ledgerCfg := ledger.Config{Driver: cfg.Ledger.Driver}
	ledgerCfg.Redis.Addr = cfg.Redis.Addr
	ledgerCfg.Redis.DB = cfg.Redis.DB
	ledgerCfg.Redis.Prefix = cfg.Redis.Prefix + "ride:"
	if ledgerCfg.Driver == "postgres" {
		dsn, err := resolver.Resolve(cfg.Storage.DSNSecret)
		if err != nil {
			return fmt.Errorf("resolve ledger dsn: %w", err)
		}
		ledgerCfg.DSN = dsn
	}
	rides, err := ledger.New(ctx, ledgerCfg)
	if err != nil {
		return fmt.Errorf("ride ledger: %w", err)
	}
	defer rides.Close()
	instrumentedRides := gateway.InstrumentLedger(rides)

	// ---- tokens ----
	keystore, err := token.NewKeystore()
	if err != nil {
		return fmt.Errorf("keystore: %w", err)
	}
	issuer := token.NewIssuer(cfg.JWT.Issuer, keystore)
	issuer.AccessTTL = cfg.JWT.AccessTTL
	keyCache := token.NewKeyCache(keystore, cfg.JWT.KeyRefreshInterval)
	verifier := token.NewVerifier(cfg.JWT.Issuer, cfg.ClientApp.ID, keyCache)

	// ---- verification-code cache + email ----
	codes, err := cache.New(cache.Config{
		Kind:       cfg.Cache.Kind,
		Addr:       cfg.Redis.Addr,
		DB:         cfg.Redis.DB,
		Prefix:     cfg.Redis.Prefix + "code:",
		DefaultTTL: cfg.Cache.DefaultTTL,
	})
	if err != nil {
		return fmt.Errorf("cache: %w", err)
	}
	defer codes.Close()

	var sender email.Sender = email.EchoSender{}
	if !cfg.SMTP.DebugEchoCodes && cfg.SMTP.Host != "" {
		pass, err := resolver.Resolve(cfg.SMTP.PasswordSecret)
		if err != nil {
			return fmt.Errorf("resolve smtp password: %w", err)
		}
		sender = &email.SMTPSender{
			Host: cfg.SMTP.Host,
			Port: cfg.SMTP.Port,
			From: cfg.SMTP.From,
			User: cfg.SMTP.Username,
			Pass: pass,
		}
	}

	idsvc := &identity.Service{
		Store:  users,
		Codes:  codes,
		Sender: sender,
		Issuer: issuer,
		ClientApp: domain.ClientApp{
			ID:   cfg.ClientApp.ID,
			Name: cfg.ClientApp.Name,
		},
		Policy: password.Policy{
			MinLength:    cfg.Auth.Password.MinLength,
			RequireUpper: cfg.Auth.Password.RequireUpper,
			RequireLower: cfg.Auth.Password.RequireLower,
			RequireDigit: cfg.Auth.Password.RequireDigit,
		},
		VerifyTTL: cfg.Auth.Verify.TTL,
		EchoCodes: cfg.SMTP.DebugEchoCodes,
	}

	// ---- fleet + dispatcher ----
	roster, err := fleet.LoadOrDefault(cfg.Fleet.Path)
	if err != nil {
		return fmt.Errorf("fleet: %w", err)
	}
	log.Info("fleet loaded", logger.Component("fleet"))
	dispatcher := dispatch.New(roster, instrumentedRides, cfg.Ledger.PutTimeout)

	// ---- rate limiting ----
	var limiter rate.Limiter
	if cfg.Rate.Enabled {
		if cfg.Cache.Kind == "redis" {
			limiter = rate.NewRedisLimiter(
				rdb.NewClient(&rdb.Options{Addr: cfg.Redis.Addr, DB: cfg.Redis.DB}),
				cfg.Redis.Prefix+"rl:", cfg.Rate.MaxRequests, cfg.Rate.Window,
			)
		} else {
			limiter = rate.NewMemoryLimiter(cfg.Rate.MaxRequests, cfg.Rate.Window)
		}
	}

	// ---- metrics ----
	metricsHandler, err := gateway.InitMetrics(prometheus.DefaultRegisterer)
	if err != nil {
		return fmt.Errorf("metrics: %w", err)
	}

	handler := gateway.NewRouter(gateway.Deps{
		Verifier:           verifier,
		Dispatcher:         dispatcher,
		Ledger:             instrumentedRides,
		Identity:           idsvc,
		CORSAllowedOrigins: cfg.Server.CORSAllowedOrigins,
		RateLimiter:        limiter,
		MetricsHandler:     metricsHandler,
		Readiness: []func() error{
			func() error { return users.Ping(context.Background()) },
			func() error { return rides.Ping(context.Background()) },
		},
	})

	srv := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("listening", logger.Path(cfg.Server.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutCtx)
}
