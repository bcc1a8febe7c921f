// Package http serves the single-endpoint finance API the dashboard talks
// to. Every answer is HTTP 200 with a {status, data|message} envelope.
package http

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"

	"cashflow/internal/amqp"
	"cashflow/internal/cache"
	"cashflow/internal/core"
	applog "cashflow/internal/log"
	"cashflow/internal/middleware/ratelimit"
	"cashflow/internal/middleware/security"
	"cashflow/internal/middleware/trace"
	"cashflow/internal/sheets"
)

const (
	defaultCacheSize = 128
	defaultCacheTTL  = 30 * time.Second
	cacheSweepEvery  = time.Minute
	maxBodyBytes     = 1 << 20
)

type Options struct {
	CacheSize int
	CacheTTL  time.Duration
	// Publisher receives change events; nil disables them.
	Publisher amqp.Publisher
	Logger    *applog.Logger
	// RequestsPerMinute caps POSTs per client; 0 means the limiter default.
	RequestsPerMinute int
	BcryptCost        int
}

type Server struct {
	http.Server
	txs       sheets.TransactionRepository
	users     sheets.UserRepository
	publisher amqp.Publisher

	listCache *cache.LRUCache[[]core.Transaction]
	caches    *cache.Manager
	limiter   *ratelimit.Limiter
	tracer    *trace.Middleware

	logger     *applog.Logger
	events     *applog.StructuredLogger
	bcryptCost int

	shutdownOnce sync.Once
}

// NewServer wires routes and middleware, returning a ready-to-run server.
func NewServer(addr string, txs sheets.TransactionRepository, users sheets.UserRepository, opts Options) *Server {
	if opts.CacheSize <= 0 {
		opts.CacheSize = defaultCacheSize
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = defaultCacheTTL
	}
	if opts.BcryptCost == 0 {
		opts.BcryptCost = bcrypt.DefaultCost
	}
	logger := opts.Logger
	if logger == nil {
		logger = applog.New(applog.Config{Handler: slog.Default().Handler(), Component: applog.ComponentHTTP})
	}

	s := &Server{
		txs:        txs,
		users:      users,
		publisher:  opts.Publisher,
		listCache:  cache.NewLRUCache[[]core.Transaction](opts.CacheSize, opts.CacheTTL),
		caches:     cache.NewManager(),
		limiter:    ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: opts.RequestsPerMinute}),
		logger:     logger,
		events:     applog.NewStructuredLogger(logger),
		bcryptCost: opts.BcryptCost,
	}
	s.caches.Register(s.listCache)
	s.caches.StartCleanup(cacheSweepEvery)

	clientIP := security.NewClientIP()
	s.tracer = trace.NewMiddleware(clientIP.Extract, logger)

	api := http.HandlerFunc(s.handleAPI)
	mux := http.NewServeMux()
	mux.Handle("/", api)
	mux.Handle("/exec", api)
	mux.HandleFunc("/healthz", handleHealth)

	var h http.Handler = mux
	h = applog.RequestIDMiddleware(func(r *http.Request) string { return trace.GetRequestID(r.Context()) })(h)
	h = applog.Middleware(logger)(h)
	h = s.limiter.Middleware(clientIP.Extract, func(w http.ResponseWriter, r *http.Request) {
		writeError(w, "Terlalu banyak permintaan, coba lagi nanti.")
	})(h)
	h = security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware(h)
	h = s.tracer.Middleware(h)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Shutdown stops the background sweepers and drains the listener.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		s.caches.Stop()
		s.limiter.Stop()
		err = s.Server.Shutdown(ctx)
	})
	return err
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func cacheKey(owner string) string {
	return strings.ToLower(strings.TrimSpace(owner))
}
