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

	"github.com/aretw0/formwork"
	"github.com/aretw0/formwork/internal/presentation/tui"
	formhttp "github.com/aretw0/formwork/pkg/adapters/http"
	"github.com/aretw0/formwork/pkg/adapters/redis"
	"github.com/aretw0/formwork/pkg/domain"
	"github.com/aretw0/formwork/pkg/observability"
	"github.com/aretw0/formwork/pkg/schema"
	"github.com/aretw0/formwork/pkg/session"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve form sessions over HTTP",
	Long: `Loads every definition in the schemas directory and serves live form
sessions as a JSON API, with Prometheus metrics on /metrics.`,
	Run: func(cmd *cobra.Command, args []string) {
		env, err := loadEnvironment(cmd, map[string]string{
			"server.port": "port",
			"schemas.dir": "schemas",
		})
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
			os.Exit(1)
		}
		defer env.Close()

		defs, err := schema.LoadDir(env.cfg.Schemas.Dir)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading definitions: %v\n", err)
			os.Exit(1)
		}
		handler, mgr, err := buildServer(env, defs)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error initializing server: %v\n", err)
			os.Exit(1)
		}
		defer mgr.Close()

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		if env.cfg.Session.MaxIdle > 0 {
			go mgr.RunSweeper(ctx, env.cfg.Session.SweepInterval, env.cfg.Session.MaxIdle)
		}

		srv := &http.Server{
			Addr:              env.cfg.Server.Address(),
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
		}

		// Channel to listen for errors coming from the listener.
		serverErrors := make(chan error, 1)

		go func() {
			tui.PrintBanner(os.Stderr)
			env.logger.Info("Starting Formwork Server", "address", srv.Addr, "schemas", mgr.Definitions())
			serverErrors <- srv.ListenAndServe()
		}()

		// Channel to listen for interrupt or terminate signals.
		shutdown := make(chan os.Signal, 1)
		signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

		// Blocking main and waiting for shutdown.
		select {
		case err := <-serverErrors:
			if !errors.Is(err, http.ErrServerClosed) {
				env.logger.Error("Server error", "err", err)
				os.Exit(1)
			}

		case sig := <-shutdown:
			env.logger.Info("Start shutdown", "signal", sig.String())
			timeout := env.cfg.Server.ShutdownTimeout

			// Give outstanding requests a deadline for completion.
			shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), timeout)
			defer cancelShutdown()

			if err := srv.Shutdown(shutdownCtx); err != nil {
				env.logger.Warn("Graceful shutdown did not complete", "timeout", timeout, "err", err)
				if err := srv.Close(); err != nil {
					env.logger.Error("Error killing server", "err", err)
				}
			}
			env.logger.Info("Formwork Server stopped gracefully")
		}
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().IntP("port", "p", 8080, "Port to listen on")
	serveCmd.Flags().String("schemas", "./schemas", "Directory of form definitions")
}

// buildServer wires sessions, metrics and the optional uniqueness claims
// into the HTTP handler.
func buildServer(env *environment, defs map[string]*schema.Definition) (http.Handler, *session.Manager, error) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := observability.NewMetrics(reg)

	claims := make(map[string]redis.Claims)
	if env.redis != nil {
		for name, def := range defs {
			c, err := redis.DefinitionClaims(def, env.redis, env.cfg.Redis.Prefix)
			if err != nil {
				return nil, nil, fmt.Errorf("definition %q: %w", name, err)
			}
			if len(c) > 0 {
				claims[name] = c
			}
		}
	}

	// Fail fast on definitions whose rules cannot be built.
	for name, def := range defs {
		if _, err := def.Schema(env.registry); err != nil {
			return nil, nil, fmt.Errorf("definition %q: %w", name, err)
		}
	}

	mgr := session.NewManager(defs, env.registry,
		session.WithLogger(env.logger),
		session.WithDefaultFormOptions(formwork.WithDefinitionOptions(env.cfg.Form.FormDefaults())),
		session.WithFormOptions(formwork.WithLifecycleHooks(metrics.Hooks())),
	)

	submitter := func(name string) domain.SubmitFunc {
		if c, ok := claims[name]; ok {
			return redis.ClaimOnSubmit(c, "", nil)
		}
		return nil
	}

	handler := formhttp.NewHandler(mgr,
		formhttp.WithLogger(env.logger),
		formhttp.WithSubmitter(submitter),
		formhttp.WithMetricsHandler(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})),
	)
	return handler, mgr, nil
}
