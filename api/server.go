// Package api exposes a Ledger over HTTP.
//
// Callers are authenticated upstream. By default the sender of a transfer
// is read from the X-Tally-Sender header, so the authenticating proxy must
// overwrite that header on every request and never forward a client's
// value. Hosts that authenticate in-process use WithSender instead.
package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/xraph/tally"
)

// SenderHeader carries the authenticated sender of a transfer.
const SenderHeader = "X-Tally-Sender"

// MaxBodyBytes caps request bodies.
const MaxBodyBytes = 1 << 20

// Page limits for event listings.
const (
	DefaultLimit = 100
	MaxLimit     = 1000
)

// SenderFunc returns the authenticated sender of r, or "" when unknown.
type SenderFunc func(r *http.Request) string

// HeaderSender reads the sender from SenderHeader.
func HeaderSender(r *http.Request) string { return r.Header.Get(SenderHeader) }

// Server serves the HTTP API of one ledger.
type Server struct {
	ledger  *tally.Ledger
	logger  *slog.Logger
	origin  string
	sender  SenderFunc
	limiter *RateLimiter
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// WithAllowedOrigin sets the single origin allowed by CORS. Empty disables
// CORS headers.
func WithAllowedOrigin(origin string) Option {
	return func(s *Server) { s.origin = origin }
}

// WithSender sets how the sender of a transfer is identified. The same
// identity keys the rate limiter.
func WithSender(fn SenderFunc) Option {
	return func(s *Server) {
		if fn != nil {
			s.sender = fn
		}
	}
}

// WithRateLimit limits transfers to rps per sender with the given burst.
// A non-positive rps disables limiting.
func WithRateLimit(rps float64, burst int) Option {
	return func(s *Server) {
		if rps <= 0 {
			s.limiter = nil
			return
		}
		s.limiter = NewRateLimiter(rps, burst)
	}
}

// New creates a Server for l.
func New(l *tally.Ledger, opts ...Option) *Server {
	s := &Server{
		ledger: l,
		logger: slog.Default(),
		sender: HeaderSender,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.limiter != nil {
		s.limiter.key = s.sender
	}
	return s
}

// Handler returns the routed handler. All endpoints live under /api.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)
	r.Use(NewCORS(s.origin).Handler)

	r.Route("/api", func(api chi.Router) {
		api.Get("/token", s.getToken)
		api.Get("/supply", s.getSupply)
		api.Get("/balances/{address}", s.getBalance)
		api.Get("/holders", s.getHolders)
		api.Get("/transfers", s.listTransfers)
		api.Get("/accounts/{address}/transfers", s.listAccountTransfers)

		api.Group(func(w chi.Router) {
			if s.limiter != nil {
				w.Use(s.limiter.Handler)
			}
			w.Post("/transfers", s.createTransfer)
		})
	})

	return r
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Debug("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"request_id", middleware.GetReqID(r.Context()),
			"duration_ms", time.Since(start).Milliseconds(),
		)
	})
}
