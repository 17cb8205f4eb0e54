package main

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"time"

	"github.com/joho/godotenv"
)

// cli é a configuração do gateway: flags com fallback para variáveis de ambiente.
type cli struct {
	ListenAddr      string `name:"listen" env:"LISTEN_ADDR" default:":8080" help:"Public listen address."`
	AdminListenAddr string `name:"admin-listen" env:"ADMIN_LISTEN_ADDR" default:"127.0.0.1:9090" help:"Operator API listen address (empty disables it)."`
	UpstreamURL     string `name:"upstream" env:"UPSTREAM_URL" help:"Blog backend the gateway proxies to." placeholder:"URL"`

	RedisURL     string        `name:"redis-url" env:"REDIS_URL" help:"Shared store (redis://). Empty runs with rate limit and abuse tracking disabled." placeholder:"URL"`
	StoreTimeout time.Duration `name:"store-timeout" env:"STORE_TIMEOUT" default:"150ms" help:"Per-call store timeout."`

	BanDBDriver string `name:"ban-db-driver" env:"BAN_DB_DRIVER" enum:"sqlite3,postgres,mysql" default:"sqlite3" help:"Durable ban store driver."`
	BanDBDSN    string `name:"ban-db-dsn" env:"BAN_DB_DSN" default:"file:edge_bans.db?_busy_timeout=5000" help:"Durable ban store DSN (mysql needs parseTime=true)."`

	TrustXFF            bool `name:"trust-xff" env:"TRUST_XFF" help:"Use the first X-Forwarded-For address as the client."`
	AddRateLimitHeaders bool `name:"ratelimit-headers" env:"ADD_RATELIMIT_HEADERS" help:"Send X-RateLimit-* headers."`

	ConcurrencyMax     int           `name:"concurrency-max" env:"CONCURRENCY_MAX" default:"100" help:"Max in-flight requests (0 disables)."`
	ConcurrencyTimeout time.Duration `name:"concurrency-timeout" env:"CONCURRENCY_TIMEOUT" default:"0s" help:"How long a request waits for a slot."`

	GateWorkers     int64         `name:"gate-workers" env:"GATE_WORKERS" default:"64" help:"Background abuse-tracking tasks in flight."`
	GateTaskTimeout time.Duration `name:"gate-task-timeout" env:"GATE_TASK_TIMEOUT" default:"5s" help:"Timeout of each background task."`
	BanThreshold    float64       `name:"ban-threshold" env:"BAN_THRESHOLD" default:"50" help:"Abuse score that triggers an automatic ban."`

	RateStatsEnabled bool          `name:"rate-stats" env:"RATE_STATS_ENABLED" help:"Also aggregate decisions in the store."`
	RateStatsPrefix  string        `name:"rate-stats-prefix" env:"RATE_STATS_PREFIX" default:"gate:stats" help:"Key prefix of the aggregated stats."`
	RateStatsTTL     time.Duration `name:"rate-stats-ttl" env:"RATE_STATS_TTL" default:"24h" help:"Retention of per-minute stats."`

	LogLevel string `name:"log-level" env:"LOG_LEVEL" enum:"debug,info,warn,error" default:"info" help:"Log level."`
}

func (c *cli) Validate() error {
	if c.UpstreamURL == "" {
		return errors.New("UPSTREAM_URL is required")
	}
	u, err := url.Parse(c.UpstreamURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("invalid UPSTREAM_URL %q", c.UpstreamURL)
	}
	if c.ConcurrencyMax < 0 {
		return errors.New("CONCURRENCY_MAX must be >= 0")
	}
	if c.GateWorkers <= 0 {
		return errors.New("GATE_WORKERS must be > 0")
	}
	return nil
}

// loadDotEnv carrega .env.local e .env se existirem; variáveis já definidas vencem.
func loadDotEnv() error {
	for _, file := range []string{".env.local", ".env"} {
		if err := godotenv.Load(file); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("load %s: %w", file, err)
		}
	}
	return nil
}
