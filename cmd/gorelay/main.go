// Command gorelay serves the tracker webhook or runs a one-shot app auth probe.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	goRelay "github.com/MrEthical07/goRelay"
	promexport "github.com/MrEthical07/goRelay/metrics/export/prometheus"
	"github.com/MrEthical07/goRelay/webhook"
	"github.com/alicebob/miniredis/v2"
	"github.com/joho/godotenv"
	"github.com/lmittmann/tint"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
)

func init() {
	if err := godotenv.Load(); err != nil {
		slog.Info(err.Error())
	}
	slog.SetDefault(slog.New(
		tint.NewHandler(os.Stderr, &tint.Options{
			Level:      slog.LevelDebug,
			TimeFormat: time.RFC1123Z,
		}),
	))
}

func main() {
	var (
		probe     = flag.Bool("probe", false, "run the app auth probe once and exit")
		repo      = flag.String("repo", "", "repository to probe; defaults to GITHUB_REPO")
		addr      = flag.String("addr", "", "listen address; overrides RELAY_ADDR")
		redisAddr = flag.String("redis-addr", "", "redis address; overrides REDIS_ADDR")
		devRedis  = flag.Bool("dev-redis", false, "use an in-process miniredis when throttling without REDIS_ADDR")
	)
	flag.Parse()

	env, err := loadEnvConfig()
	if err != nil {
		slog.Error("can't load configuration", "error", err)
		os.Exit(2)
	}
	if *addr != "" {
		env.Addr = *addr
	}
	if *redisAddr != "" {
		env.RedisAddr = *redisAddr
	}

	rdb, cleanup, err := openRedis(env.RedisAddr, env.Relay.Throttle.Enabled && *devRedis)
	if err != nil {
		slog.Error("can't start redis", "error", err)
		os.Exit(1)
	}
	defer cleanup()

	builder := goRelay.New().
		WithConfig(env.Relay).
		WithLogger(slog.Default()).
		WithAuditSink(goRelay.NewSlogSink(slog.Default().With("component", "audit")))
	if rdb != nil {
		builder = builder.WithRedis(rdb)
	}
	relay, err := builder.Build()
	if err != nil {
		slog.Error("can't build relay", "error", err)
		os.Exit(2)
	}
	defer relay.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if *probe {
		os.Exit(runProbe(ctx, relay, *repo))
	}

	if err := serve(ctx, relay, env); err != nil {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
}

func openRedis(addr string, dev bool) (redis.UniversalClient, func(), error) {
	if addr == "" && !dev {
		return nil, func() {}, nil
	}
	if addr == "" {
		mr, err := miniredis.Run()
		if err != nil {
			return nil, nil, err
		}
		client := redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{mr.Addr()}})
		slog.Warn("using in-process miniredis; throttle state is lost on restart", "addr", mr.Addr())
		return client, func() {
			_ = client.Close()
			mr.Close()
		}, nil
	}
	client := redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{addr}})
	slog.Info("using redis", "addr", addr)
	return client, func() { _ = client.Close() }, nil
}

func runProbe(ctx context.Context, relay *goRelay.Relay, repo string) int {
	res := relay.Probe(ctx, repo)

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(res)

	if !res.Viable {
		slog.Warn("probe finished", "conclusion", res.Conclusion)
		return 1
	}
	slog.Info("probe finished", "conclusion", res.Conclusion)
	return 0
}

func serve(ctx context.Context, relay *goRelay.Relay, env envConfig) error {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		promexport.NewExporter(relay),
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	router := webhook.NewRouter(relay, webhook.Options{
		Secret:  env.Secret,
		Logger:  slog.Default().With("component", "http"),
		Metrics: promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
	})

	srv := &http.Server{
		Addr:              env.Addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	rep := relay.SecurityReport()
	slog.Info("relay ready",
		"addr", env.Addr,
		"rules", rep.RuleCount,
		"app_auth", rep.AppAuthEnabled,
		"signers", rep.Signers,
		"throttle", rep.ThrottleActive,
	)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	slog.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
