package gate

import (
	"encoding/csv"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"blog-edge/middleware/gate/domain"

	"github.com/go-chi/chi/v5"
	jsoniter "github.com/json-iterator/go"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const (
	defaultSuspiciousLimit = 100
	maxSuspiciousLimit     = 1000
	maxAdminBody           = 1 << 20
)

type AdminOptions struct {
	Gate *Gate
	// Gatherer, se não nil, é exposto em GET /metrics.
	Gatherer prometheus.Gatherer
	Logger   *zerolog.Logger
}

type banRequest struct {
	IPs    []string `json:"ips"`
	Reason string   `json:"reason"`
}

type errorBody struct {
	Error string `json:"error"`
}

// AdminRouter é a API de operador. Não tem autenticação própria: sirva num
// listener interno ou atrás de um proxy autenticado.
func AdminRouter(opts AdminOptions) http.Handler {
	if opts.Gate == nil {
		panic("gate: AdminRouter requires a Gate")
	}
	a := &admin{g: opts.Gate, log: zerolog.Nop()}
	if opts.Logger != nil {
		a.log = opts.Logger.With().Str("component", "admin").Logger()
	}

	r := chi.NewRouter()
	r.Get("/healthz", a.health)
	r.Get("/suspicious", a.suspicious)
	r.Get("/bans", a.listBans)
	r.Post("/bans", a.addBans)
	r.Delete("/bans", a.removeBans)
	r.Post("/cache/{ns}/bump", a.bump)
	if opts.Gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(opts.Gatherer, promhttp.HandlerOpts{}))
	}
	return r
}

type admin struct {
	g   *Gate
	log zerolog.Logger
}

func (a *admin) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":        "ok",
		"store_enabled": a.g.Enabled(),
		"banned":        a.g.Bans.Len(),
	})
}

func (a *admin) suspicious(w http.ResponseWriter, r *http.Request) {
	limit := defaultSuspiciousLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeJSON(w, http.StatusBadRequest, errorBody{Error: "limit must be a positive integer"})
			return
		}
		limit = min(n, maxSuspiciousLimit)
	}

	list := a.g.Abuse.ListSuspicious(r.Context(), limit)

	switch r.URL.Query().Get("format") {
	case "", "json":
		writeJSON(w, http.StatusOK, list)
	case "csv":
		writeSuspectsCSV(w, list)
	default:
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "format must be json or csv"})
	}
}

func writeSuspectsCSV(w http.ResponseWriter, list []domain.Suspect) {
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.WriteHeader(http.StatusOK)

	cw := csv.NewWriter(w)
	_ = cw.Write([]string{"ip", "score", "last_seen", "counters"})
	for _, s := range list {
		last := ""
		if !s.LastSeen.IsZero() {
			last = s.LastSeen.Format(time.RFC3339)
		}
		counters, _ := json.MarshalToString(s.Counters)
		_ = cw.Write([]string{s.IP, strconv.FormatFloat(s.Score, 'f', -1, 64), last, counters})
	}
	cw.Flush()
}

func (a *admin) listBans(w http.ResponseWriter, r *http.Request) {
	recs, err := a.g.Bans.List(r.Context())
	if err != nil {
		a.log.Error().Err(err).Msg("list bans failed")
		writeJSON(w, http.StatusServiceUnavailable, errorBody{Error: "ban store unavailable"})
		return
	}
	if recs == nil {
		recs = []domain.BanRecord{}
	}
	writeJSON(w, http.StatusOK, recs)
}

func (a *admin) addBans(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeBanRequest(w, r)
	if !ok {
		return
	}
	reason := req.Reason
	if reason == "" {
		reason = "manual"
	}
	writeBatch(w, a.g.Bans.Add(r.Context(), req.IPs, reason))
}

func (a *admin) removeBans(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeBanRequest(w, r)
	if !ok {
		return
	}
	writeBatch(w, a.g.Bans.Remove(r.Context(), req.IPs))
}

func (a *admin) bump(w http.ResponseWriter, r *http.Request) {
	ns := chi.URLParam(r, "ns")
	v := a.g.Cache.Bump(r.Context(), ns)
	if v == 0 {
		writeJSON(w, http.StatusServiceUnavailable, errorBody{Error: "cache store unavailable"})
		return
	}
	a.log.Info().Str("namespace", ns).Int64("version", v).Msg("cache namespace bumped")
	writeJSON(w, http.StatusOK, map[string]any{"namespace": ns, "version": v})
}

func decodeBanRequest(w http.ResponseWriter, r *http.Request) (banRequest, bool) {
	var req banRequest
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxAdminBody))
	if err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			writeJSON(w, http.StatusRequestEntityTooLarge, errorBody{Error: "body too large"})
			return req, false
		}
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "read body"})
		return req, false
	}
	if err := json.Unmarshal(body, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid json"})
		return req, false
	}
	if len(req.IPs) == 0 {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "ips must not be empty"})
		return req, false
	}
	return req, true
}

// writeBatch: 200 se algo foi aplicado ou só houve inválidos, 502 se a
// escrita durável falhou para todos os válidos.
func writeBatch(w http.ResponseWriter, res domain.BatchResult) {
	status := http.StatusOK
	if len(res.Failed) > 0 && len(res.Applied) == 0 {
		status = http.StatusBadGateway
	}
	writeJSON(w, status, res)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
