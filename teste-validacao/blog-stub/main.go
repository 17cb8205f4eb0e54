// blog-stub é um backend falso para validar o gateway na mão:
//
//	UPSTREAM_URL=http://localhost:8081 go run ./cmd/gateway
//	for i in $(seq 1 20); do curl -s -o /dev/null -w "%{http_code}\n" -X POST localhost:8080/api/auth/login; done
package main

import (
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

func main() {
	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}).With().Timestamp().Logger()

	r := chi.NewRouter()
	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte("<h1>Blog</h1><p>Requisição recebida com sucesso!</p>"))
	})
	r.Get("/api/posts", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"id":1,"title":"hello"}]`))
	})
	r.Get("/api/search", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[]`))
	})
	r.Post("/api/comments", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	})
	r.Post("/api/auth/login", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
	})

	h := http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		log.Info().Str("method", req.Method).Str("path", req.URL.Path).Str("xff", req.Header.Get("X-Forwarded-For")).Msg("hit")
		r.ServeHTTP(w, req)
	})

	addr := ":8081"
	if v := os.Getenv("LISTEN_ADDR"); v != "" {
		addr = v
	}
	log.Info().Str("addr", addr).Msg("blog stub listening")
	if err := http.ListenAndServe(addr, h); err != nil {
		log.Fatal().Err(err).Msg("blog stub stopped")
	}
}
