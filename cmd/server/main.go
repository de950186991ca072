package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	app "github.com/nutrilens/companion/internal/app"
	"github.com/nutrilens/companion/internal/app/domain/meal"
	"github.com/nutrilens/companion/internal/app/httpapi"
	"github.com/nutrilens/companion/internal/app/metrics"
	sessionfile "github.com/nutrilens/companion/internal/app/storage/file"
	storagesupabase "github.com/nutrilens/companion/internal/app/storage/supabase"
	"github.com/nutrilens/companion/internal/config"
	"github.com/nutrilens/companion/internal/middleware"
	"github.com/nutrilens/companion/internal/supabase"
	"github.com/nutrilens/companion/internal/vision"
	"github.com/nutrilens/companion/pkg/logger"
)

func main() {
	log := logger.NewDefault("server")

	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Error("load configuration")
		os.Exit(1)
	}

	stores := app.Stores{}
	if cfg.SupabaseConfigured() {
		client, err := supabase.NewResilient(supabase.ResilientConfig{
			Config: supabase.Config{
				URL:    cfg.Supabase.URL,
				APIKey: cfg.Supabase.APIKey,
			},
			RetryConfig:          supabase.DefaultRetryConfig(),
			CircuitBreakerConfig: supabase.DefaultCircuitBreakerConfig(),
		})
		if err != nil {
			log.WithError(err).Error("configure supabase client")
			os.Exit(1)
		}
		stores.Profiles = storagesupabase.New(client, log)
	} else {
		log.Warn("SUPABASE_URL not set; using in-memory profile store")
	}

	session, err := sessionfile.New(cfg.Session.Dir)
	if err != nil {
		log.WithError(err).Error("configure session store")
		os.Exit(1)
	}
	stores.Session = session

	opts := app.Options{}
	if cfg.Catalog.Path != "" {
		catalog, err := meal.Load(cfg.Catalog.Path)
		if err != nil {
			log.WithError(err).Error("load meal catalog")
			os.Exit(1)
		}
		opts.Catalog = catalog
	}
	if cfg.VisionConfigured() {
		assessor, err := vision.New(vision.Config{
			BaseURL: cfg.Vision.BaseURL,
			APIKey:  cfg.Vision.APIKey,
			Model:   cfg.Vision.Model,
		})
		if err != nil {
			log.WithError(err).Error("configure vision client")
			os.Exit(1)
		}
		opts.Assessor = assessor
	}

	application, err := app.New(stores, opts, log)
	if err != nil {
		log.WithError(err).Error("build application")
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := application.Start(ctx); err != nil {
		log.WithError(err).Error("start application")
		os.Exit(1)
	}

	limiter := middleware.NewRateLimiter(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst, log)
	limiter.StartCleanup(time.Minute)
	cors := middleware.NewCORSMiddleware(cfg.AllowedOrigins())

	handler := metrics.InstrumentHandler(cors.Handler(limiter.Handler(httpapi.NewHandler(application))))

	server := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.WithField("addr", cfg.Server.Addr).Info("listening")
		errCh <- server.ListenAndServe()
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-stop:
		log.WithField("signal", sig.String()).Info("shutting down")
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			log.WithError(err).Error("server failed")
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warn("http shutdown")
	}
	if err := application.Stop(shutdownCtx); err != nil {
		log.WithError(err).Warn("application shutdown")
	}
}
