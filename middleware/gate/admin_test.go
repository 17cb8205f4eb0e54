package gate

import (
	"encoding/csv"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"blog-edge/middleware/gate/domain"
	"blog-edge/middleware/gate/infra"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAdmin(t *testing.T, mutate ...func(*Config)) (http.Handler, testGate) {
	t.Helper()
	reg := prometheus.NewRegistry()
	prom, err := infra.NewPromStats(reg)
	require.NoError(t, err)

	tg := newTestGate(t, append(mutate, func(c *Config) {
		c.Stats = infra.MultiStats{c.Stats, prom}
	})...)
	return AdminRouter(AdminOptions{Gate: tg.Gate, Gatherer: reg}), tg
}

func call(h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	r := httptest.NewRequest(method, path, strings.NewReader(body))
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)
	return w
}

func TestAdmin_Health(t *testing.T) {
	h, tg := newAdmin(t)
	tg.Bans.Add(t.Context(), []string{"1.2.3.4"}, "manual")

	w := call(h, http.MethodGet, "/healthz", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok","store_enabled":true,"banned":1}`, w.Body.String())
}

func TestAdmin_SuspiciousJSON(t *testing.T) {
	h, tg := newAdmin(t)
	for range 2 {
		tg.Abuse.RecordSuspicious(t.Context(), "2.2.2.2", domain.BucketSearch, domain.KindIPBlock)
	}
	tg.Abuse.RecordSuspicious(t.Context(), "1.1.1.1", domain.BucketLogin, domain.KindAuthFail)

	w := call(h, http.MethodGet, "/suspicious?limit=1", "")
	require.Equal(t, http.StatusOK, w.Code)

	var got []domain.Suspect
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	require.Len(t, got, 1)
	assert.Equal(t, "2.2.2.2", got[0].IP)
	assert.Equal(t, 2.0, got[0].Score)
	assert.Equal(t, int64(2), got[0].Counters["bucket:search"])
}

func TestAdmin_SuspiciousCSV(t *testing.T) {
	h, tg := newAdmin(t)
	tg.Abuse.RecordSuspicious(t.Context(), "1.1.1.1", domain.BucketLogin, domain.KindAuthFail)

	w := call(h, http.MethodGet, "/suspicious?format=csv", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/csv")

	rows, err := csv.NewReader(w.Body).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, []string{"ip", "score", "last_seen", "counters"}, rows[0])
	assert.Equal(t, "1.1.1.1", rows[1][0])
	assert.Equal(t, "1", rows[1][1])
	assert.NotEmpty(t, rows[1][2])
	assert.JSONEq(t, `{"bucket:login":1,"kind:auth_fail":1}`, rows[1][3])
}

func TestAdmin_SuspiciousValidation(t *testing.T) {
	h, _ := newAdmin(t)

	assert.Equal(t, http.StatusBadRequest, call(h, http.MethodGet, "/suspicious?limit=abc", "").Code)
	assert.Equal(t, http.StatusBadRequest, call(h, http.MethodGet, "/suspicious?limit=-1", "").Code)
	assert.Equal(t, http.StatusBadRequest, call(h, http.MethodGet, "/suspicious?format=xml", "").Code)

	w := call(h, http.MethodGet, "/suspicious?limit=5000", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[]`, w.Body.String())
}

func TestAdmin_SuspiciousWithStoreDisabled(t *testing.T) {
	h, _ := newAdmin(t, func(c *Config) { c.StoreURL = "" })

	w := call(h, http.MethodGet, "/suspicious", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[]`, w.Body.String())
}

func TestAdmin_BanLifecycle(t *testing.T) {
	h, tg := newAdmin(t)

	w := call(h, http.MethodPost, "/bans", `{"ips":["1.2.3.4","bad","::ffff:5.6.7.8"],"reason":"spam"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"applied":["1.2.3.4","5.6.7.8"],"invalid":["bad"],"failed":[]}`, w.Body.String())
	assert.True(t, tg.Bans.Has("5.6.7.8"))

	w = call(h, http.MethodGet, "/bans", "")
	require.Equal(t, http.StatusOK, w.Code)
	var recs []domain.BanRecord
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &recs))
	require.Len(t, recs, 2)
	assert.Equal(t, "spam", recs[0].Reason)

	w = call(h, http.MethodDelete, "/bans", `{"ips":["1.2.3.4"]}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.False(t, tg.Bans.Has("1.2.3.4"))
	assert.True(t, tg.Bans.Has("5.6.7.8"))
}

func TestAdmin_BanDefaultsReasonAndValidatesBody(t *testing.T) {
	h, tg := newAdmin(t)

	require.Equal(t, http.StatusOK, call(h, http.MethodPost, "/bans", `{"ips":["1.2.3.4"]}`).Code)
	recs, _ := tg.bans.ListBans(t.Context())
	require.Len(t, recs, 1)
	assert.Equal(t, "manual", recs[0].Reason)

	assert.Equal(t, http.StatusBadRequest, call(h, http.MethodPost, "/bans", `{`).Code)
	assert.Equal(t, http.StatusBadRequest, call(h, http.MethodPost, "/bans", `{"ips":[]}`).Code)
	assert.Equal(t, http.StatusRequestEntityTooLarge,
		call(h, http.MethodPost, "/bans", `{"ips":["`+strings.Repeat("1", maxAdminBody)+`"]}`).Code)
}

func TestAdmin_BanDurableFailure(t *testing.T) {
	h, tg := newAdmin(t)
	tg.bans.SetFail(assert.AnError)

	w := call(h, http.MethodPost, "/bans", `{"ips":["1.2.3.4"]}`)
	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.False(t, tg.Bans.Has("1.2.3.4"))

	assert.Equal(t, http.StatusServiceUnavailable, call(h, http.MethodGet, "/bans", "").Code)
}

func TestAdmin_CacheBump(t *testing.T) {
	h, tg := newAdmin(t)
	v, err := tg.Cache.Version(t.Context(), "posts")
	require.NoError(t, err)
	assert.Equal(t, int64(1), v)

	w := call(h, http.MethodPost, "/cache/posts/bump", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"namespace":"posts","version":2}`, w.Body.String())
	v, err = tg.Cache.Version(t.Context(), "posts")
	require.NoError(t, err)
	assert.Equal(t, int64(2), v)
}

func TestAdmin_CacheBumpWithStoreDisabled(t *testing.T) {
	h, _ := newAdmin(t, func(c *Config) { c.StoreURL = "" })

	assert.Equal(t, http.StatusServiceUnavailable, call(h, http.MethodPost, "/cache/posts/bump", "").Code)
}

func TestAdmin_Metrics(t *testing.T) {
	h, tg := newAdmin(t)
	calls := 0
	mw := Middleware(Options{Gate: tg.Gate, Rules: []Rule{{Limit: tinyLogin}}})(okHandler(&calls))
	for range 3 {
		serve(mw, http.MethodPost, "/api/auth/login", "10.0.0.1:1")
	}

	w := call(h, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, `edge_gate_decisions_total{bucket="login",verdict="allowed"} 2`)
	assert.Contains(t, body, `edge_gate_decisions_total{bucket="login",verdict="rate_limited"} 1`)
}
