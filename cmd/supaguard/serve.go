package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	authgin "github.com/PaulFidika/supaguard/adapters/gin"
	"github.com/PaulFidika/supaguard/adapters/gin/handlers"
	authhttp "github.com/PaulFidika/supaguard/adapters/http"
	"github.com/PaulFidika/supaguard/jwks"
	"github.com/PaulFidika/supaguard/metrics"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:     "serve",
	Aliases: []string{"server", "start"},
	Short:   "Run the verification HTTP service",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		return serve(ctx)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func serve(ctx context.Context) error {
	collector := metrics.NewCollector()
	reg := prometheus.NewRegistry()
	reg.MustRegister(collector, collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	s, err := buildStack(ctx, collector)
	if err != nil {
		return err
	}
	defer s.Close()

	// Warm the cache; a failure here is not fatal, the first request retries.
	if _, err := s.resolver.Refresh(ctx); err != nil {
		log.WithError(err).Warn("supaguard: initial key-set fetch failed")
	}

	if cfg.RefreshSchedule != "" {
		refresher, err := jwks.NewRefresher(s.resolver, cfg.RefreshSchedule)
		if err != nil {
			return err
		}
		refresher.Start()
		defer func() { <-refresher.Stop().Done() }()
	}

	if cfg.AppEnv == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery(), authgin.RequestID(), authgin.Logger(log))
	handlers.Register(r, s.verifier, cfg.ServiceName, version)
	r.GET("/.well-known/jwks.json", gin.WrapH(authhttp.JWKSHandler(s.resolver)))
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errc := make(chan error, 1)
	go func() {
		log.WithField("addr", srv.Addr).WithField("issuer", s.verifier.Issuer()).Info("supaguard: listening")
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}
	log.Info("supaguard: shutting down")
	sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(sctx)
}
