package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/brightpath/billing/internal/config"
	"github.com/brightpath/billing/internal/domain/claims"
	"github.com/brightpath/billing/internal/domain/clients"
	"github.com/brightpath/billing/internal/domain/denials"
	"github.com/brightpath/billing/internal/domain/payments"
	"github.com/brightpath/billing/internal/platform/auth"
	"github.com/brightpath/billing/internal/platform/clearinghouse"
	"github.com/brightpath/billing/internal/platform/db"
	"github.com/brightpath/billing/internal/platform/middleware"
	"github.com/brightpath/billing/internal/platform/reporting"
	"github.com/brightpath/billing/internal/platform/x12"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "billing-server",
		Short: "Brightpath billing API server",
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the billing API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
	}

	// migrate up
	upCmd := &cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, _ := cmd.Flags().GetString("dir")

			cfg, err := config.Load()
			if err != nil {
				return err
			}

			ctx := context.Background()
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return err
			}
			defer pool.Close()

			migrator := db.NewMigrator(pool, dir)
			count, err := migrator.Up(ctx)
			if err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}

			fmt.Printf("Applied %d migration(s) successfully.\n", count)
			return nil
		},
	}
	upCmd.Flags().String("dir", "./migrations", "Path to migrations directory")
	cmd.AddCommand(upCmd)

	// migrate status
	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, _ := cmd.Flags().GetString("dir")

			cfg, err := config.Load()
			if err != nil {
				return err
			}

			ctx := context.Background()
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return err
			}
			defer pool.Close()

			migrator := db.NewMigrator(pool, dir)
			statuses, err := migrator.Status(ctx)
			if err != nil {
				return fmt.Errorf("failed to get migration status: %w", err)
			}

			fmt.Printf("%-10s %-40s %-10s %s\n", "VERSION", "NAME", "STATUS", "APPLIED AT")
			fmt.Println("---------- ---------------------------------------- ---------- --------------------")
			for _, s := range statuses {
				status := "pending"
				appliedAt := ""
				if s.Applied {
					status = "applied"
					if s.AppliedAt != nil {
						appliedAt = s.AppliedAt.Format("2006-01-02 15:04:05")
					}
				}
				fmt.Printf("%-10d %-40s %-10s %s\n", s.Version, s.Name, status, appliedAt)
			}
			return nil
		},
	}
	statusCmd.Flags().String("dir", "./migrations", "Path to migrations directory")
	cmd.AddCommand(statusCmd)

	// migrate down - keep as warning
	cmd.AddCommand(&cobra.Command{
		Use:   "down",
		Short: "Rollback last migration (not supported)",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Println("WARNING: migrate down is destructive and not supported by the built-in runner.")
			fmt.Println("Restore from a database backup instead.")
			return nil
		},
	})

	return cmd
}

// rateLimitFromConfig builds the API rate limit settings, falling back
// to the library defaults when the configured rate is unset or invalid.
func rateLimitFromConfig(cfg *config.Config) middleware.RateLimitConfig {
	rl := middleware.RateLimitConfig{
		RequestsPerSecond: cfg.RateLimitRPS,
		BurstSize:         cfg.RateLimitBurst,
	}
	if rl.RequestsPerSecond <= 0 {
		return middleware.DefaultRateLimitConfig()
	}
	return rl
}

// newRemittanceParser picks the ERA import parser: real 835 segment
// parsing by default, the deterministic fixture parser for demo
// environments without a payer feed.
func newRemittanceParser(cfg *config.Config) x12.RemittanceParser {
	if cfg.ERAParserMode == "fixture" {
		return &x12.FixtureParser{}
	}
	return x12.NewX12Parser()
}

// newClearinghouseClient picks the outbound claim submission transport.
// Anything other than explicit "http" mode gets the simulator, so a
// misconfigured deployment never posts claims to a real endpoint.
func newClearinghouseClient(cfg *config.Config) clearinghouse.Client {
	if cfg.ClearinghouseMode == "http" {
		return clearinghouse.NewHTTPClient(cfg.ClearinghouseURL, cfg.ClearinghouseKey)
	}
	return clearinghouse.NewSimulatedClient(0.9, time.Now().UnixNano())
}

func runServer() error {
	// Logger
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	if os.Getenv("ENV") == "development" {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}

	// Config
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid config")
	}

	// Database
	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()
	logger.Info().Msg("connected to database")

	// Echo server
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Global middleware
	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(middleware.SecurityHeaders())
	e.Use(middleware.BodyLimit("1M", "16M"))
	e.Use(middleware.RequestTimeout(30 * time.Second))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete},
		AllowHeaders: []string{"Authorization", "Content-Type", "X-Request-ID"},
	}))

	// Auth middleware
	if cfg.IsDev() {
		e.Use(auth.DevAuthMiddleware())
	} else {
		e.Use(auth.JWTMiddleware(auth.JWTConfig{
			Issuer:   cfg.AuthIssuer,
			Audience: cfg.AuthAudience,
			JWKSURL:  cfg.AuthJWKSURL,
		}))
	}

	// Audit middleware
	e.Use(middleware.Audit(logger))

	// API group
	apiV1 := e.Group("/api/v1")

	// Rate limiting middleware
	apiV1.Use(middleware.RateLimit(rateLimitFromConfig(cfg)))

	// Role-based authorization table shared by all handlers.
	az := auth.NewRoleAuthorizer()

	// Clearinghouse client
	ch := newClearinghouseClient(cfg)
	logger.Info().Str("mode", cfg.ClearinghouseMode).Msg("clearinghouse client configured")

	// Health check
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "ok",
			"version": "0.1.0",
		})
	})
	e.GET("/health/db", db.HealthHandler(pool))

	// Clients domain: clients, providers, sessions, authorizations
	clientRepo := clients.NewClientRepoPG(pool)
	providerRepo := clients.NewProviderRepoPG(pool)
	sessionRepo := clients.NewSessionRepoPG(pool)
	authzRepo := clients.NewAuthorizationRepoPG(pool)
	clientSvc := clients.NewService(clientRepo, providerRepo, sessionRepo, authzRepo)
	clients.NewHandler(clientSvc, az).RegisterRoutes(apiV1)

	// Claims domain
	claimRepo := claims.NewClaimRepoPG(pool)
	claimSvc := claims.NewService(claimRepo, sessionRepo, authzRepo, clientRepo, providerRepo, ch, pool, claims.Options{
		ClaimNumberPrefix: cfg.ClaimNumberPrefix,
		TimelyFilingDays:  cfg.TimelyFilingDays,
		OrganizationName:  cfg.OrganizationName,
		BillingNPI:        cfg.BillingNPI,
		BillingTaxID:      cfg.BillingTaxID,
		PayerID:           cfg.PayerID,
		PayerName:         cfg.PayerName,
	})
	claims.NewHandler(claimSvc, az).RegisterRoutes(apiV1)

	// Payments domain: postings, batch deposits, ERA imports
	paymentRepo := payments.NewPaymentRepoPG(pool)
	depositRepo := payments.NewBatchDepositRepoPG(pool)
	eraRepo := payments.NewERARepoPG(pool)
	paymentSvc := payments.NewService(paymentRepo, depositRepo, eraRepo, claimRepo, newRemittanceParser(cfg), pool)
	payments.NewHandler(paymentSvc, az).RegisterRoutes(apiV1)

	// Denials domain: worklist, appeals, follow-up tasks
	denialRepo := denials.NewDenialRepoPG(pool)
	appealRepo := denials.NewAppealRepoPG(pool)
	taskRepo := denials.NewTaskRepoPG(pool)
	denialSvc := denials.NewService(denialRepo, appealRepo, taskRepo, claimRepo, pool)
	denials.NewHandler(denialSvc, az).RegisterRoutes(apiV1)
	// Clearinghouse rejections open a denial on the worklist.
	claimSvc.SetDenialSink(denialSvc)

	// Reporting
	reporting.NewHandler(pool, az).RegisterRoutes(apiV1)

	// Graceful shutdown
	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Str("env", cfg.Env).Msg("starting server")
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Fatal().Err(err).Msg("server shutdown failed")
	}
	logger.Info().Msg("server stopped")
	return nil
}
