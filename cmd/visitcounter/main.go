package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sourcegraph/conc/pool"
	"github.com/yikakia/visitcounter"
	"github.com/yikakia/visitcounter/config"
	"github.com/yikakia/visitcounter/core/telemetry"
	"github.com/yikakia/visitcounter/core/telemetry/prommetrics"
	"github.com/yikakia/visitcounter/stores"
)

const shutdownTimeout = 10 * time.Second

func main() {
	configPath := flag.String("config", "", "path to a YAML config file")
	flag.Parse()

	if err := run(*configPath); err != nil {
		slog.Error("[main] visitcounter exited with error.", "err", err.Error())
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	slogger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: parseLevel(cfg.LogLevel)}))
	slog.SetDefault(slogger)
	logger := telemetry.NewSlogLogger(slogger)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics, err := prommetrics.New(reg)
	if err != nil {
		return err
	}

	nodes, err := stores.OpenAll(cfg.BackingNodes)
	if err != nil {
		return err
	}
	defer func() {
		if err := stores.CloseAll(nodes); err != nil {
			logger.WarnContext(context.Background(), "[main] close backing nodes failed.", "err", err.Error())
		}
	}()

	builder, err := visitcounter.NewBuilder(nodes...)
	if err != nil {
		return err
	}
	svc, err := builder.
		WithConfig(cfg).
		WithLogger(logger).
		WithMetrics(metrics).
		Build()
	if err != nil {
		return err
	}

	metricsHandler := promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})
	servers := []*http.Server{}
	if cfg.MetricsAddr == "" || cfg.MetricsAddr == cfg.ListenAddr {
		servers = append(servers, &http.Server{Addr: cfg.ListenAddr, Handler: newHandler(svc, logger, metricsHandler)})
	} else {
		servers = append(servers,
			&http.Server{Addr: cfg.ListenAddr, Handler: newHandler(svc, logger, nil)},
			&http.Server{Addr: cfg.MetricsAddr, Handler: metricsHandler},
		)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	p := pool.New().WithErrors().WithContext(ctx).WithCancelOnError()
	p.Go(func(ctx context.Context) error {
		return svc.Run(ctx)
	})
	for _, srv := range servers {
		p.Go(func(ctx context.Context) error {
			logger.InfoContext(ctx, "[main] http server listening.", "addr", srv.Addr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		p.Go(func(ctx context.Context) error {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
	}

	logger.InfoContext(ctx, "[main] visitcounter started.",
		"nodes", len(nodes), "ttl", cfg.TTL().String(), "flush_interval", cfg.FlushInterval().String())

	err = p.Wait()

	// 先停 http 再做最后一次写回
	closeCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return errors.Join(err, svc.Close(closeCtx))
}

func parseLevel(level string) slog.Level {
	var l slog.Level
	if err := l.UnmarshalText([]byte(level)); err != nil {
		return slog.LevelInfo
	}
	return l
}
