package cmd

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"

	"github.com/terraconstructs/hrconsole/cmd/cmdutil"
	"github.com/terraconstructs/hrconsole/internal/middleware"
	"github.com/terraconstructs/hrconsole/internal/migrations"
	"github.com/terraconstructs/hrconsole/internal/repository"
	"github.com/terraconstructs/hrconsole/internal/server"
	"github.com/terraconstructs/hrconsole/internal/services/admin"
	"github.com/terraconstructs/hrconsole/internal/services/hr"
	"github.com/terraconstructs/hrconsole/internal/services/identity"
	"github.com/terraconstructs/hrconsole/internal/services/validation"
	"github.com/terraconstructs/hrconsole/internal/telemetry"
)

const schemaCacheSize = 32

var migrateOnStart bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HR console API server",
	Long: `Starts the HTTP server with the auth, role, admin and HR endpoints and the console shell.

Admin grants on sign-in follow HRAPI_AUTH_ADMIN_GRANT_POLICY:
  bootstrap  (default) only HRAPI_AUTH_BOOTSTRAP_ADMIN_EMAILS become admin;
             everyone else gets the baseline user role once
  auto       legacy contract: every sign-in grants admin, overwriting
             any previous role including blocked`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		shutdownTelemetry, err := telemetry.Init(ctx, cfg.Observability)
		if err != nil {
			return fmt.Errorf("failed to initialize telemetry: %w", err)
		}
		defer func() {
			sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := shutdownTelemetry(sctx); err != nil {
				log.Printf("WARNING: telemetry shutdown: %v", err)
			}
		}()

		serverMetrics, err := telemetry.NewServerMetrics()
		if err != nil {
			return fmt.Errorf("create server metrics: %w", err)
		}
		dbMetrics, err := telemetry.NewDatabaseMetrics()
		if err != nil {
			return fmt.Errorf("create database metrics: %w", err)
		}
		authMetrics, err := telemetry.NewAuthMetrics()
		if err != nil {
			return fmt.Errorf("create auth metrics: %w", err)
		}
		rateLimitMetrics, err := telemetry.NewRateLimitMetrics()
		if err != nil {
			return fmt.Errorf("create rate limit metrics: %w", err)
		}

		bundle, err := cmdutil.NewBundle(cfg, cmdutil.Options{
			AuthMetrics:     authMetrics,
			DatabaseMetrics: dbMetrics,
		})
		if err != nil {
			return err
		}
		defer bundle.Close()
		log.Printf("Connected to database")

		if migrateOnStart {
			if err := migrations.Apply(ctx, bundle.DB); err != nil {
				return err
			}
			log.Printf("Migrations applied")
		}

		// The resolver must be subscribed before the first request so that
		// no sign-in transition is missed.
		resolver, err := identity.NewResolver(bundle.Roles, cfg.Auth, cfg.Resolver.MaxSessions)
		if err != nil {
			return fmt.Errorf("create identity resolver: %w", err)
		}
		if err := resolver.Start(bundle.IAM.Events()); err != nil {
			return fmt.Errorf("start identity resolver: %w", err)
		}
		defer resolver.Close()

		var redeemer admin.SetupTokenRedeemer
		if bundle.SetupTokens.Enabled() {
			redeemer = bundle.SetupTokens
		}
		adminView := admin.NewView(bundle.IAM, bundle.Roles, redeemer)

		hrService := hr.NewService(hr.Repositories{
			Departments: repository.NewBunDepartmentRepository(bundle.DB),
			Jobs:        repository.NewBunJobRepository(bundle.DB),
			Employees:   repository.NewBunEmployeeRepository(bundle.DB),
			JobHistory:  repository.NewBunJobHistoryRepository(bundle.DB),
		}, bundle.Enforcer, cfg.RemoteCallTimeout)

		validator, err := validation.NewSchemaValidator(schemaCacheSize)
		if err != nil {
			return fmt.Errorf("create validator: %w", err)
		}
		authorizer, err := middleware.NewAuthorizer(bundle.Enforcer)
		if err != nil {
			return fmt.Errorf("configure authorization middleware: %w", err)
		}

		purger, err := startSessionPurge(bundle)
		if err != nil {
			return err
		}
		if purger != nil {
			defer purger.Stop()
		}

		corsOptions := server.DefaultCORSOptions(cfg.CORSAllowedOrigins)
		handler := server.NewH2CHandler(server.RouterOptions{
			Auth:         bundle.IAM,
			Roles:        bundle.Roles,
			Admin:        adminView,
			HR:           hrService,
			Validator:    validator,
			Authorizer:   authorizer,
			LoginLimiter: middleware.NewRateLimiter(cfg.Auth.LoginRatePerSecond, cfg.Auth.LoginBurst, rateLimitMetrics),
			Metrics:      serverMetrics,
			CORSOptions:  &corsOptions,
			Console:      true,
			HealthHandler: func(w http.ResponseWriter, r *http.Request) {
				status := http.StatusOK
				body := `{"status":"ok"}`
				if err := bundle.DB.PingContext(r.Context()); err != nil {
					status = http.StatusServiceUnavailable
					body = `{"status":"degraded"}`
				}
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(status)
				fmt.Fprint(w, body)
			},
		})

		srv := &http.Server{
			Addr:         cfg.ServerAddr,
			Handler:      handler,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
			IdleTimeout:  60 * time.Second,
			ConnState: func(_ net.Conn, state http.ConnState) {
				switch state {
				case http.StateNew:
					serverMetrics.ConnectionOpened(context.Background())
				case http.StateClosed, http.StateHijacked:
					serverMetrics.ConnectionClosed(context.Background())
				}
			},
		}

		serverErrors := make(chan error, 1)
		go func() {
			log.Printf("Starting server on %s", cfg.ServerAddr)
			log.Printf("Server URL: %s", cfg.ServerURL)
			serverErrors <- srv.ListenAndServe()
		}()

		shutdown := make(chan os.Signal, 1)
		signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

		select {
		case err := <-serverErrors:
			if errors.Is(err, http.ErrServerClosed) {
				return nil
			}
			return fmt.Errorf("server error: %w", err)

		case sig := <-shutdown:
			log.Printf("Received signal %v, shutting down gracefully", sig)

			sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()

			if err := srv.Shutdown(sctx); err != nil {
				srv.Close()
				return fmt.Errorf("graceful shutdown failed: %w", err)
			}

			log.Printf("Server stopped")
			return nil
		}
	},
}

// startSessionPurge schedules deletion of expired and revoked sessions and
// of expired setup-token ledger entries. An empty schedule disables it and
// returns a nil scheduler.
func startSessionPurge(bundle *cmdutil.Bundle) (*cron.Cron, error) {
	if cfg.SessionPurgeSchedule == "" {
		return nil, nil
	}
	c := cron.New()
	_, err := c.AddFunc(cfg.SessionPurgeSchedule, func() {
		purge := func(what string, fn func(context.Context) (int64, error)) {
			ctx, cancel := context.WithTimeout(context.Background(), cfg.RemoteCallTimeout)
			defer cancel()
			n, err := fn(ctx)
			if err != nil {
				log.Printf("ERROR: %s purge failed: %v", what, err)
				return
			}
			if n > 0 {
				log.Printf("INFO: purged %d expired %s", n, what)
			}
		}
		purge("sessions", bundle.IAM.PurgeExpiredSessions)
		purge("setup tokens", bundle.SetupTokens.PurgeExpired)
	})
	if err != nil {
		return nil, fmt.Errorf("invalid session purge schedule %q: %w", cfg.SessionPurgeSchedule, err)
	}
	c.Start()
	return c, nil
}

func init() {
	serveCmd.Flags().BoolVar(&migrateOnStart, "migrate", false, "Apply pending migrations before serving")
	rootCmd.AddCommand(serveCmd)
}
