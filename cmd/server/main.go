package main

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/yashagw/selopt/internal/config"
	"github.com/yashagw/selopt/internal/logging"
	"github.com/yashagw/selopt/internal/metrics"
	"github.com/yashagw/selopt/internal/optimizer"
	"github.com/yashagw/selopt/internal/server"
)

const (
	DefaultPort       = "8080"
	DefaultConfigFile = "./config.txt"
)

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func main() {
	logger, closeLog, err := logging.Setup(logging.Options{
		Level:  os.Getenv("LOG_LEVEL"),
		SeqURL: os.Getenv("SEQ_URL"),
	})
	if err != nil {
		slog.Error("invalid logging setup", "err", err)
		os.Exit(1)
	}
	defer closeLog()

	if err := run(logger); err != nil {
		logger.Error("server failed", "err", err)
		closeLog()
		os.Exit(1)
	}
}

func run(logger *slog.Logger) error {
	port := getenv("PORT", DefaultPort)
	configFile := getenv("CONFIG_FILE", DefaultConfigFile)
	metricsAddr := os.Getenv("METRICS_ADDR")

	cfg, err := config.Load(configFile, nil)
	if err != nil {
		return err
	}
	model, err := cfg.Model()
	if err != nil {
		return err
	}

	m := metrics.New()
	opt := optimizer.New(model,
		optimizer.WithLogger(logger),
		optimizer.WithRecorder(m),
		optimizer.WithMaxPredicates(cfg.MaxPredicates),
	)

	listener, err := net.Listen("tcp", ":"+port)
	if err != nil {
		return err
	}
	logger.Info("selopt server starting",
		"port", port,
		"config", configFile,
		"params", cfg.Params,
		"max_predicates", cfg.MaxPredicates,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return server.New(opt, logger).Serve(ctx, listener)
	})
	if metricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(m.Registry(), promhttp.HandlerOpts{}))
		httpServer := &http.Server{Addr: metricsAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		g.Go(func() error {
			logger.Info("serving metrics", "addr", metricsAddr)
			if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		g.Go(func() error {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return httpServer.Shutdown(shutdownCtx)
		})
	}
	return g.Wait()
}
