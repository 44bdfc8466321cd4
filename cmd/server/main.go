// Command storefront-server starts the storefront HTTP API.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/and161185/storefront/internal/config"
	"github.com/and161185/storefront/internal/limiter"
	"github.com/and161185/storefront/internal/metrics"
	"github.com/and161185/storefront/internal/repository/jsonfile"
	httpserver "github.com/and161185/storefront/internal/server/http"
	"github.com/and161185/storefront/internal/service"
	"github.com/and161185/storefront/internal/token"
)

var (
	version   = "dev"
	buildDate = "unknown"
)

// main loads configuration, opens the JSON stores and serves HTTP until SIGINT/SIGTERM.
func main() {
	cfg, err := config.Load()
	if err != nil {
		_, _ = os.Stderr.WriteString(err.Error() + "\n")
		os.Exit(1)
	}

	logger, _ := zap.NewProduction()
	if cfg.IsDev() {
		logger, _ = zap.NewDevelopment()
	}
	defer func() { _ = logger.Sync() }()

	if err := run(cfg, logger); err != nil {
		logger.Error("server stopped", zap.Error(err))
		os.Exit(1)
	}
	logger.Info("shutdown complete")
}

func run(cfg *config.Config, logger *zap.Logger) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	logger.Info("starting",
		zap.String("version", version),
		zap.String("buildDate", buildDate),
		zap.String("addr", cfg.Server.Addr()),
		zap.String("dataDir", cfg.Storage.DataDir),
	)
	if err := os.MkdirAll(cfg.Storage.DataDir, 0o700); err != nil {
		return err
	}

	// Context with OS signals
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Repositories
	userRepo := jsonfile.NewUserRepo(jsonfile.UsersPath(cfg.Storage.DataDir))
	productRepo := jsonfile.NewProductRepo(jsonfile.ProductsPath(cfg.Storage.DataDir))

	// Metrics
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	rec := metrics.NewCollector(reg)

	lim := limiter.NewMemory(cfg.Login.Window, cfg.Login.MaxFails, cfg.Login.BlockFor)

	// Services
	authSvc := service.NewAuthService(userRepo, token.NewSigner(), service.AuthConfig{
		AccessSecret:  []byte(cfg.Auth.AccessSecret),
		RefreshSecret: []byte(cfg.Auth.RefreshSecret),
		AccessTTL:     cfg.Auth.AccessTTL,
		RefreshTTL:    cfg.Auth.RefreshTTL,
	}, lim, rec)
	productSvc := service.NewProductService(productRepo)

	var clientLim *httpserver.ClientLimiter
	if cfg.RateLimit.RPS > 0 {
		clientLim = httpserver.NewClientLimiter(cfg.RateLimit.RPS, cfg.RateLimit.Burst)
	}

	srv := &http.Server{
		Addr: cfg.Server.Addr(),
		Handler: httpserver.New(authSvc, productSvc).Routes(httpserver.Options{
			Log:         logger,
			Metrics:     rec,
			Gatherer:    reg,
			CORSOrigins: cfg.CORS.Origins,
			Limiter:     clientLim,
		}),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		sweep := cfg.Login.SweepInterval
		if sweep <= 0 {
			sweep = time.Minute
		}
		if clientLim != nil {
			go clientLim.Run(gctx, sweep)
		}
		lim.Run(gctx, sweep)
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
