package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"net/http/httputil"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"blog-edge/middleware/gate"
	"blog-edge/middleware/gate/infra"

	"github.com/alecthomas/kong"
	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

func main() {
	if err := loadDotEnv(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	var c cli
	kong.Parse(&c,
		kong.Name("gateway"),
		kong.Description("Edge gateway for the blog: bans, rate limits and abuse tracking in front of the backend."),
		kong.UsageOnError(),
	)

	log := newLogger(c.LogLevel)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, c, log); err != nil {
		log.Fatal().Err(err).Msg("gateway stopped")
	}
}

func run(ctx context.Context, c cli, log zerolog.Logger) error {
	target, err := url.Parse(c.UpstreamURL)
	if err != nil {
		return fmt.Errorf("invalid UPSTREAM_URL: %w", err)
	}

	db, err := sql.Open(c.BanDBDriver, c.BanDBDSN)
	if err != nil {
		return fmt.Errorf("open ban db: %w", err)
	}
	defer db.Close()

	banStore, err := infra.NewSQLBanStore(ctx, db, c.BanDBDriver)
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	prom, err := infra.NewPromStats(reg)
	if err != nil {
		return err
	}

	g, err := gate.New(ctx, gate.Config{
		StoreURL:     c.RedisURL,
		StoreTimeout: c.StoreTimeout,
		BanStore:     banStore,
		Workers:      c.GateWorkers,
		TaskTimeout:  c.GateTaskTimeout,
		BanThreshold: c.BanThreshold,
		Stats:        prom,
		Logger:       &log,
	})
	if err != nil {
		return err
	}

	if rs, ok := g.Store.(*infra.RedisStore); ok && c.RateStatsEnabled {
		g.Stats = infra.MultiStats{prom, infra.NewRedisStatsStore(
			rs.Client(),
			infra.WithStatsPrefix(c.RateStatsPrefix),
			infra.WithStatsTTL(c.RateStatsTTL),
		)}
	}

	proxy := httputil.NewSingleHostReverseProxy(target)
	proxy.ErrorHandler = func(w http.ResponseWriter, r *http.Request, err error) {
		log.Warn().Err(err).Str("path", r.URL.Path).Msg("proxy error")
		http.Error(w, "bad gateway", http.StatusBadGateway)
	}

	h := http.Handler(proxy)
	h = gate.ConcurrencyMiddleware(gate.ConcurrencyOptions{
		Max:            c.ConcurrencyMax,
		AcquireTimeout: c.ConcurrencyTimeout,
		RetryAfter:     time.Second,
	})(h)
	h = gate.Middleware(gate.Options{
		Gate:                g,
		TrustXForwardedFor:  c.TrustXFF,
		AddRateLimitHeaders: c.AddRateLimitHeaders,
	})(h)

	servers := []*http.Server{newServer(c.ListenAddr, h)}
	if c.AdminListenAddr != "" {
		servers = append(servers, newServer(c.AdminListenAddr, gate.AdminRouter(gate.AdminOptions{
			Gate:     g,
			Gatherer: reg,
			Logger:   &log,
		})))
	}

	log.Info().
		Str("listen", c.ListenAddr).
		Str("admin", c.AdminListenAddr).
		Str("upstream", target.String()).
		Bool("store_enabled", g.Enabled()).
		Str("ban_db", c.BanDBDriver).
		Int("concurrency_max", c.ConcurrencyMax).
		Msg("gateway starting")

	eg, egCtx := errgroup.WithContext(ctx)
	for _, srv := range servers {
		eg.Go(func() error {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("serve %s: %w", srv.Addr, err)
			}
			return nil
		})
	}
	eg.Go(func() error {
		<-egCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		for _, srv := range servers {
			_ = srv.Shutdown(shutdownCtx)
		}
		if err := g.Close(shutdownCtx); err != nil {
			log.Warn().Err(err).Msg("gate close")
		}
		return nil
	})

	err = eg.Wait()
	log.Info().Msg("gateway stopped")
	return err
}

func newServer(addr string, h http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       90 * time.Second,
	}
}
