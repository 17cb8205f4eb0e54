package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"syscall"
	"time"

	"blog-edge/middleware/gate"
	"blog-edge/middleware/gate/domain"
	"blog-edge/middleware/gate/infra"

	"github.com/go-chi/chi/v5"
	jsoniter "github.com/json-iterator/go"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Exemplo: o gate embutido direto no webserver do blog (sem proxy).
func main() {
	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}).
		With().Timestamp().Str("service", "example-server").Logger()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	g, err := gate.New(ctx, gate.Config{
		StoreURL: os.Getenv("REDIS_URL"), // vazio: roda sem rate limit
		BanStore: infra.NewMemoryBanStore(),
		Stats:    infra.NewMemoryStatsStore(),
		Logger:   &log,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("gate init")
	}

	b := &blog{g: g, posts: []post{{ID: 1, Title: "hello", Body: "first post"}}}

	r := b.router()

	addr := ":8081"
	if v := os.Getenv("LISTEN_ADDR"); v != "" {
		addr = v
	}
	// API de operador sem autenticação: só em loopback, nunca no router público
	adminAddr := "127.0.0.1:9091"
	if v := os.Getenv("ADMIN_LISTEN_ADDR"); v != "" {
		adminAddr = v
	}

	servers := []*http.Server{
		newServer(addr, r),
		newServer(adminAddr, gate.AdminRouter(gate.AdminOptions{Gate: g, Logger: &log})),
	}

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
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		for _, srv := range servers {
			_ = srv.Shutdown(shutdownCtx)
		}
		return g.Close(shutdownCtx)
	})

	log.Info().Str("addr", addr).Str("admin", adminAddr).Bool("store_enabled", g.Enabled()).Msg("example server listening")
	if err := eg.Wait(); err != nil {
		log.Fatal().Err(err).Msg("server error")
	}
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

// router é a superfície pública; a API de operador nunca é montada aqui.
func (b *blog) router() http.Handler {
	// sem proxy na frente: X-Forwarded-For vem do cliente e não é confiável
	r := chi.NewRouter()
	r.Use(gate.Middleware(gate.Options{
		Gate:                b.g,
		AddRateLimitHeaders: true,
	}))
	r.Use(gate.ConcurrencyMiddleware(gate.ConcurrencyOptions{Max: 50}))
	r.Get("/api/posts", b.listPosts)
	r.Post("/api/posts", b.createPost)
	r.Post("/api/auth/login", b.login)
	return r
}

type post struct {
	ID    int    `json:"id"`
	Title string `json:"title"`
	Body  string `json:"body"`
}

type blog struct {
	g *gate.Gate

	mu    sync.RWMutex
	posts []post
}

type listQuery struct {
	Page int `json:"page"`
}

// listPosts simula uma consulta cara memoizada no namespace "posts".
func (b *blog) listPosts(w http.ResponseWriter, r *http.Request) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))

	posts, err := gate.Wrap(r.Context(), b.g, "posts", listQuery{Page: page}, 30*time.Second,
		func(ctx context.Context) ([]post, error) {
			time.Sleep(50 * time.Millisecond)
			b.mu.RLock()
			defer b.mu.RUnlock()
			return append([]post(nil), b.posts...), nil
		})
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(posts)
}

func (b *blog) createPost(w http.ResponseWriter, r *http.Request) {
	var p post
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil || p.Title == "" {
		http.Error(w, "invalid post", http.StatusBadRequest)
		return
	}

	b.mu.Lock()
	p.ID = len(b.posts) + 1
	b.posts = append(b.posts, p)
	b.mu.Unlock()

	// toda listagem em cache fica órfã
	b.g.Cache.Bump(r.Context(), "posts")

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(p)
}

// login aceita só admin/admin; falhas contam como evento suspeito.
func (b *blog) login(w http.ResponseWriter, r *http.Request) {
	var creds struct {
		User     string `json:"user"`
		Password string `json:"password"`
	}
	_ = json.NewDecoder(r.Body).Decode(&creds)
	if creds.User == "admin" && creds.Password == "admin" {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	b.g.Report(gate.ClientIP(false)(r), domain.BucketLogin, domain.KindAuthFail)
	http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
}
