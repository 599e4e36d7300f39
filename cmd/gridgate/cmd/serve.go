package cmd

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/jonwraymond/gridgate/auth"
	"github.com/jonwraymond/gridgate/config"
	"github.com/jonwraymond/gridgate/health"
	"github.com/jonwraymond/gridgate/observe"
	"github.com/jonwraymond/gridgate/secret"
	"github.com/jonwraymond/gridgate/server"
)

func newServeCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the gridgate HTTP server",
		Long: `Starts the HTTP server with the simulator and social routes behind the
authentication gate, plus unauthenticated health and metrics endpoints.
SIGINT and SIGTERM trigger a graceful shutdown.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			gw, err := newGateway(ctx, a.cfg)
			if err != nil {
				return err
			}
			ln, err := net.Listen("tcp", a.cfg.Server.Addr)
			if err != nil {
				_ = gw.close(context.Background())
				return fmt.Errorf("listen on %s: %w", a.cfg.Server.Addr, err)
			}
			return gw.run(ctx, ln)
		},
	}
	cmd.Flags().String("addr", "", "Server bind address (env: GRIDGATE_SERVER_ADDR)")
	return cmd
}

// gateway is the assembled server and everything it must release.
type gateway struct {
	cfg      *config.Config
	srv      *http.Server
	codec    *auth.TokenCodec
	observer observe.Observer
	resolver *secret.Resolver
	logger   observe.Logger
}

func newGateway(ctx context.Context, cfg *config.Config) (*gateway, error) {
	obs, err := observe.NewObserver(ctx, cfg.Observe)
	if err != nil {
		return nil, fmt.Errorf("configure observability: %w", err)
	}
	g := &gateway{cfg: cfg, observer: obs, logger: obs.Logger()}

	g.resolver, err = cfg.NewSecretResolver()
	if err != nil {
		_ = g.close(ctx)
		return nil, fmt.Errorf("configure secret resolver: %w", err)
	}
	policy, err := cfg.Policy(ctx, g.resolver)
	if err != nil {
		_ = g.close(ctx)
		return nil, err
	}
	g.codec, err = auth.NewTokenCodec(policy)
	if err != nil {
		_ = g.close(ctx)
		return nil, fmt.Errorf("create token codec: %w", err)
	}

	mw, err := observe.MiddlewareFromObserver(obs)
	if err != nil {
		_ = g.close(ctx)
		return nil, fmt.Errorf("create http middleware: %w", err)
	}

	agg := health.NewAggregator(health.AggregatorConfig{Timeout: cfg.Health.CheckTimeout})
	policyCheck := health.NewPolicyChecker(g.codec)
	agg.Register(policyCheck.Name(), policyCheck)
	memCheck := health.NewMemoryChecker(health.MemoryCheckerConfig{MaxHeapBytes: cfg.Health.MaxHeapBytes})
	agg.Register(memCheck.Name(), memCheck)

	corsOpts := server.CORSOptionsFor(cfg.Server.CORSOrigins)
	router := server.NewRouter(server.RouterOptions{
		Verifier:       g.codec,
		Health:         agg,
		Observe:        mw,
		MetricsHandler: obs.MetricsHandler(),
		CORSOptions:    &corsOpts,
	})

	g.srv = &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}
	return g, nil
}

// run serves on ln until ctx is cancelled or the server fails, then shuts
// down within the configured timeout.
func (g *gateway) run(ctx context.Context, ln net.Listener) error {
	eg, ctx := errgroup.WithContext(ctx)

	eg.Go(func() error {
		g.logger.Info(ctx, "server listening",
			observe.F("addr", ln.Addr().String()),
			observe.F("issuer", g.codec.Issuer()),
		)
		if err := g.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	eg.Go(func() error {
		<-ctx.Done()
		g.logger.Info(context.Background(), "shutting down gracefully")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), g.cfg.Server.ShutdownTimeout)
		defer cancel()

		var errs []error
		if err := g.srv.Shutdown(shutdownCtx); err != nil {
			_ = g.srv.Close()
			errs = append(errs, fmt.Errorf("graceful shutdown failed: %w", err))
		}
		errs = append(errs, g.close(shutdownCtx))
		return errors.Join(errs...)
	})

	return eg.Wait()
}

func (g *gateway) close(ctx context.Context) error {
	var errs []error
	if g.resolver != nil {
		errs = append(errs, g.resolver.Close())
	}
	if g.observer != nil {
		errs = append(errs, g.observer.Shutdown(ctx))
	}
	return errors.Join(errs...)
}
