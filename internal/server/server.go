package server

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/blocto/solana-go-sdk/rpc"
	"github.com/blocto/solana-go-sdk/types"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"

	"github.com/sw33tLie/mintwatch/internal/utils"
	"github.com/sw33tLie/mintwatch/pkg/alert"
	"github.com/sw33tLie/mintwatch/pkg/eligibility"
	"github.com/sw33tLie/mintwatch/pkg/storage"
)

// Reconciler is the part of reconcile.Reconciler the API drives.
type Reconciler interface {
	Snapshot() *eligibility.Snapshot
	Countdown() eligibility.Countdown
	IsMinting() bool
	Ready() bool
	Refresh(ctx context.Context, commitment rpc.Commitment) error
	SubmitMint(ctx context.Context, prefix, suffix [][]types.Instruction) error
	Subscribe(buffer int) (<-chan eligibility.Snapshot, func())
}

type Alerts interface {
	Current() alert.Alert
	Dismiss()
	Subscribe(buffer int) (<-chan alert.Alert, func())
}

type Options struct {
	Reconciler Reconciler
	Alerts     Alerts
	// DB enables /api/changes. May be nil.
	DB       *storage.DB
	Username string
	Password string
	// MintPerMinute caps POST /api/mint. Zero disables the limit.
	MintPerMinute int
	// MintTimeout bounds a mint started over the API.
	MintTimeout time.Duration
	Gatherer    prometheus.Gatherer
}

type Server struct {
	opts    Options
	limiter *rate.Limiter
	router  http.Handler

	// base is the parent context of mints started over the API. They must
	// outlive the request that started them.
	base   context.Context
	cancel context.CancelFunc
	mints  sync.WaitGroup
}

func New(opts Options) *Server {
	if opts.Gatherer == nil {
		opts.Gatherer = prometheus.DefaultGatherer
	}
	if opts.MintTimeout <= 0 {
		opts.MintTimeout = 2 * time.Minute
	}
	s := &Server{opts: opts}
	if opts.MintPerMinute > 0 {
		s.limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(opts.MintPerMinute)), opts.MintPerMinute)
	}
	s.base, s.cancel = context.WithCancel(context.Background())
	s.router = s.buildRouter()
	return s
}

// Handler exposes the configured HTTP router.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(s.basicAuth)

	r.Route("/api", func(api chi.Router) {
		api.Get("/snapshot", s.handleSnapshot)
		api.Get("/countdown", s.handleCountdown)
		api.Get("/alert", s.handleAlert)
		api.Post("/alert/dismiss", s.handleDismiss)
		api.Post("/refresh", s.handleRefresh)
		api.Post("/mint", s.handleMint)
		api.Get("/changes", s.handleChanges)
		api.Get("/attempts", s.handleAttempts)
		api.Get("/stream", s.handleStream)
	})
	r.Handle("/metrics", promhttp.HandlerFor(s.opts.Gatherer, promhttp.HandlerOpts{}))
	return r
}

// Start serves on addr until ctx is cancelled, then shuts down and waits for
// mints started over the API.
func (s *Server) Start(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		utils.Log.Infof("Starting server on %s", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		s.Close()
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := srv.Shutdown(shutdownCtx)
	s.Close()
	return err
}

// Close cancels mints started over the API and waits for them to return.
func (s *Server) Close() {
	s.cancel()
	s.mints.Wait()
}

func (s *Server) basicAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.opts.Username == "" && s.opts.Password == "" {
			next.ServeHTTP(w, r)
			return
		}
		user, pass, ok := r.BasicAuth()
		if !ok || user != s.opts.Username || pass != s.opts.Password {
			w.Header().Set("WWW-Authenticate", `Basic realm="Restricted"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}
