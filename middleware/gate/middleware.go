package gate

import (
	"net/http"
	"strings"
	"time"

	"blog-edge/middleware/gate/domain"
)

// Rule liga um limite nomeado aos requests que casam com Match.
// Match nil casa com todos.
type Rule struct {
	Limit domain.Limit
	Match func(r *http.Request) bool
}

// PathPrefix casa com requests cujo path começa com prefix.
func PathPrefix(prefix string) func(r *http.Request) bool {
	return func(r *http.Request) bool { return strings.HasPrefix(r.URL.Path, prefix) }
}

// MethodPrefix é PathPrefix restrito a um método.
func MethodPrefix(method, prefix string) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		return r.Method == method && strings.HasPrefix(r.URL.Path, prefix)
	}
}

// DefaultRules são as regras do blog. A ordem importa: o primeiro bucket que
// rejeitar é o reportado ao rastreador de abuso.
func DefaultRules() []Rule {
	return []Rule{
		{Limit: domain.LimitGlobal},
		{Limit: domain.LimitLogin, Match: MethodPrefix(http.MethodPost, "/api/auth/login")},
		{Limit: domain.LimitComment, Match: MethodPrefix(http.MethodPost, "/api/comments")},
		{Limit: domain.LimitSearch, Match: PathPrefix("/api/search")},
		{Limit: domain.LimitUpload, Match: MethodPrefix(http.MethodPost, "/api/uploads")},
		{Limit: domain.LimitChat, Match: PathPrefix("/api/chat")},
		{Limit: domain.LimitAPI, Match: PathPrefix("/api/")},
	}
}

type Options struct {
	Gate                *Gate
	Rules               []Rule
	KeyFn               KeyFunc
	TrustXForwardedFor  bool
	RejectStatus        int
	BanStatus           int
	AddRateLimitHeaders bool
}

// Middleware aplica, nesta ordem, o conjunto de banidos e as regras de rate
// limit. Rejeições por rate limit são reportadas ao rastreador de abuso em
// background; o request rejeitado nunca espera por isso.
func Middleware(opts Options) func(next http.Handler) http.Handler {
	if opts.Gate == nil {
		panic("gate: Middleware requires a Gate")
	}
	if opts.RejectStatus == 0 {
		opts.RejectStatus = http.StatusTooManyRequests
	}
	if opts.BanStatus == 0 {
		opts.BanStatus = http.StatusForbidden
	}
	if opts.KeyFn == nil {
		opts.KeyFn = ClientIP(opts.TrustXForwardedFor)
	}
	if opts.Rules == nil {
		opts.Rules = DefaultRules()
	}
	g := opts.Gate

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := opts.KeyFn(r)
			ev := domain.StatsEvent{IP: ip, Method: r.Method, Path: r.URL.Path, At: time.Now()}

			if g.Bans.Has(ip) {
				ev.Verdict = domain.VerdictBanned
				g.record(r.Context(), ev)
				http.Error(w, http.StatusText(opts.BanStatus), opts.BanStatus)
				return
			}

			var tightest *domain.RateResult
			var tightestBucket domain.Bucket
			for _, rule := range opts.Rules {
				if rule.Match != nil && !rule.Match(r) {
					continue
				}
				res := g.Limiter.Check(r.Context(), rule.Limit, ip)

				if !res.Allowed {
					if opts.AddRateLimitHeaders {
						setRateHeaders(w, rule.Limit.Bucket, res)
					}
					ev.Bucket = rule.Limit.Bucket
					ev.Verdict = domain.VerdictRateLimited
					g.record(r.Context(), ev)
					g.Report(ip, rule.Limit.Bucket, domain.KindIPBlock)

					w.Header().Set("Retry-After", formatSeconds(res.Reset))
					http.Error(w, http.StatusText(opts.RejectStatus), opts.RejectStatus)
					return
				}
				if tightest == nil || res.Remaining < tightest.Remaining {
					tightest = &res
					tightestBucket = rule.Limit.Bucket
				}
			}

			if opts.AddRateLimitHeaders && tightest != nil {
				setRateHeaders(w, tightestBucket, *tightest)
			}
			ev.Bucket = tightestBucket
			ev.Verdict = domain.VerdictAllowed
			g.record(r.Context(), ev)

			next.ServeHTTP(w, r)
		})
	}
}

func setRateHeaders(w http.ResponseWriter, bucket domain.Bucket, res domain.RateResult) {
	h := w.Header()
	h.Set("X-RateLimit-Bucket", string(bucket))
	h.Set("X-RateLimit-Limit", formatInt(res.Limit))
	h.Set("X-RateLimit-Remaining", formatInt(res.Remaining))
	h.Set("X-RateLimit-Reset", formatSeconds(res.Reset))
}
