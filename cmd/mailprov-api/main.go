package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"github.com/edvin/mailprov/internal/api"
	"github.com/edvin/mailprov/internal/billing"
	"github.com/edvin/mailprov/internal/config"
	"github.com/edvin/mailprov/internal/crypto"
	"github.com/edvin/mailprov/internal/customfield"
	"github.com/edvin/mailprov/internal/db"
	"github.com/edvin/mailprov/internal/logging"
	"github.com/edvin/mailprov/internal/mailcow"
	"github.com/edvin/mailprov/internal/metrics"
	"github.com/edvin/mailprov/internal/provision"
)

func main() {
	if len(os.Args) >= 2 && os.Args[1] == "define-shadow-field" {
		defineShadowField(os.Args[2:])
		return
	}

	migrateFlag := flag.Bool("migrate", false, "Run database migrations before starting")
	migrateDirFlag := flag.String("migrate-dir", "", "Migration files directory (default: built-in migrations)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	if err := cfg.Validate("api"); err != nil {
		fmt.Fprintf(os.Stderr, "invalid config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.NewLogger(cfg)

	migrationsDir := cfg.MigrationsDir
	if *migrateDirFlag != "" {
		migrationsDir = *migrateDirFlag
	}
	if *migrateFlag {
		logger.Info().Str("dir", migrationsDir).Msg("running database migrations")
		if err := db.RunMigrations(cfg.DatabaseURL, migrationsDir); err != nil {
			logger.Fatal().Err(err).Msg("migration failed")
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := db.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to billing database")
	}
	defer pool.Close()
	metrics.RegisterPgxPoolMetrics(prometheus.DefaultRegisterer, pool)

	cipher, err := crypto.NewPasswordCipher(cfg.PasswordEncryptionKey)
	if err != nil {
		logger.Fatal().Err(err).Msg("invalid PASSWORD_ENCRYPTION_KEY")
	}

	tlsConfig, err := cfg.ServerTLS()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to configure API TLS")
	}

	shadow := customfield.NewShadowStore(customfield.NewPostgresStore(pool), cfg.ShadowFieldName, logger)
	module := provision.NewModule(
		mailcow.NewClient(cfg.MailcowTimeout),
		shadow,
		billing.NewServiceStore(pool),
		cipher,
		logger,
	)

	srv := api.NewServer(logger, module, pool, cfg.ModuleAPIKey)

	// Lifecycle calls may chain several mailcow requests, each bounded by
	// MailcowTimeout, so the write timeout leaves room for a full terminate.
	httpServer := &http.Server{
		Addr:         cfg.HTTPListenAddr,
		Handler:      srv,
		TLSConfig:    tlsConfig,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 6*cfg.MailcowTimeout + 15*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info().Str("addr", cfg.HTTPListenAddr).Bool("tls", tlsConfig != nil).Msg("starting module API server")
		var err error
		if tlsConfig != nil {
			err = httpServer.ListenAndServeTLS("", "")
		} else {
			err = httpServer.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("module API server: %w", err)
		}
		return nil
	})

	var metricsSrv *http.Server
	if cfg.MetricsListenAddr != "" {
		metricsSrv = metrics.NewServer(cfg.MetricsListenAddr, prometheus.DefaultGatherer)
		g.Go(func() error {
			logger.Info().Str("addr", cfg.MetricsListenAddr).Msg("starting metrics server")
			if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("metrics server: %w", err)
			}
			return nil
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		logger.Info().Msg("shutting down servers")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if metricsSrv != nil {
			metricsSrv.Shutdown(shutdownCtx)
		}
		return httpServer.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Fatal().Err(err).Msg("server failed")
	}
}

// defineShadowField creates the custom field definition the shadow username
// is stored in, for billing databases that were not set up by the migrations.
func defineShadowField(args []string) {
	fs := flag.NewFlagSet("define-shadow-field", flag.ExitOnError)
	name := fs.String("name", "", "Field name (default: SHADOW_FIELD_NAME)")
	fs.Parse(args)

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: failed to load config: %v\n", err)
		os.Exit(1)
	}
	if err := cfg.Validate("migrate"); err != nil {
		fmt.Fprintf(os.Stderr, "error: invalid config: %v\n", err)
		os.Exit(1)
	}
	if *name == "" {
		*name = cfg.ShadowFieldName
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := db.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: failed to connect to database: %v\n", err)
		os.Exit(1)
	}
	defer pool.Close()

	id, err := customfield.NewPostgresStore(pool).DefineField(ctx, *name, customfield.ScopeService)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: failed to define field: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Custom field %q ready (id %d).\n", *name, id)
}
