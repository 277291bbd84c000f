package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"posichain/gateway/middleware"
	"posichain/gateway/routes"
	posiotel "posichain/observability/otel"
)

const shutdownGrace = 10 * time.Second

func runServe(s *session, args []string, stdout io.Writer) error {
	fs := newFlagSet("serve")
	listen := fs.String("listen", s.cfg.Gateway.ListenAddress, "Listen address")
	if err := fs.Parse(args); err != nil {
		return err
	}
	tel := s.cfg.Telemetry
	shutdownTelemetry, err := posiotel.Init(context.Background(), posiotel.Config{
		ServiceName: "posi-gateway",
		Environment: s.cfg.Logging.Env,
		Endpoint:    tel.Endpoint,
		Insecure:    tel.Insecure,
		Headers:     posiotel.ParseHeaders(tel.Headers),
		Traces:      tel.Traces,
		Metrics:     tel.Metrics,
	})
	if err != nil {
		return err
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		if err := shutdownTelemetry(ctx); err != nil {
			s.logger.Warn("telemetry shutdown", "error", err)
		}
	}()

	handler, err := newGateway(s, prometheus.DefaultRegisterer)
	if err != nil {
		return err
	}
	srv := &http.Server{
		Addr:              *listen,
		Handler:           otelhttp.NewHandler(handler, "posi-gateway"),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()
	fmt.Fprintf(stdout, "gateway listening on %s\n", *listen)
	s.logger.Info("gateway started", "listen", *listen)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	s.logger.Info("gateway stopped")
	return nil
}

// newGateway assembles the HTTP handler for an opened session.
func newGateway(s *session, registerer prometheus.Registerer) (http.Handler, error) {
	gw := s.cfg.Gateway
	limiter := middleware.NewRateLimiter(map[string]middleware.RateLimit{
		"query": {RequestsPerMinute: gw.RequestsPerMinute, Burst: gw.Burst},
		"admin": {RequestsPerMinute: gw.AdminRequestsPerMinute, Burst: 1},
	}, s.logger)

	var mu sync.Mutex
	cfg := routes.Config{
		Ledger:        s.ledger,
		RateLimiter:   limiter,
		Observability: middleware.NewObservability("posi-gateway", registerer, s.logger),
		Metrics:       promhttp.Handler(),
		CORS:          middleware.CORSConfig{AllowedOrigins: gw.AllowedOrigins},
		Persist: func() error {
			mu.Lock()
			defer mu.Unlock()
			_, err := s.persist()
			return err
		},
	}
	if s.events != nil {
		cfg.Events = s.events
	}
	if env := strings.TrimSpace(gw.JWTSecretEnv); env != "" {
		if secret := strings.TrimSpace(os.Getenv(env)); secret != "" {
			cfg.Authenticator = middleware.NewAuthenticator(middleware.AuthConfig{
				HMACSecret: secret,
				Issuer:     gw.JWTIssuer,
				Audience:   gw.JWTAudience,
			}, s.logger)
		} else {
			s.logger.Warn("admin routes disabled", "env", env)
		}
	}
	return routes.New(cfg)
}
