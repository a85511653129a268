// Package rpserver serves SIOP requests by reference and receives the
// responses posted back by OPs.
package rpserver

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/pkg/errors"

	"github.com/tcfw/siop/internal/utils/logging"
	"github.com/tcfw/siop/pkg/siop"
	"github.com/tcfw/siop/pkg/storage"
)

const (
	RequestsPath = "/siop/requests"
	CallbackPath = "/siop/callback"

	defaultTTL           = 10 * time.Minute
	defaultSweepInterval = time.Minute

	maxNonceAttempts = 5
)

var (
	log = logging.Component("rpserver")

	ErrNonceExhausted = errors.New("unable to generate an unused nonce")
)

// sweeper is implemented by stores that need expired records removed
// explicitly
type sweeper interface {
	Sweep(ctx context.Context) (int, error)
}

type Server struct {
	rp      *siop.RP
	store   storage.Store
	nonces  *storage.NonceFilter
	baseURL string
	ttl     time.Duration
	now     func() time.Time

	router chi.Router
}

type Option func(*Server)

// WithBaseURL sets the public URL request_uri values are built from
func WithBaseURL(u string) Option {
	return func(s *Server) {
		s.baseURL = strings.TrimSuffix(u, "/")
	}
}

func WithRequestTTL(ttl time.Duration) Option {
	return func(s *Server) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

func WithNonceFilter(f *storage.NonceFilter) Option {
	return func(s *Server) {
		s.nonces = f
	}
}

func New(rp *siop.RP, store storage.Store, opts ...Option) (*Server, error) {
	if rp == nil || store == nil {
		return nil, errors.New("rp and store are required")
	}

	s := &Server{
		rp:    rp,
		store: store,
		ttl:   defaultTTL,
		now:   time.Now,
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.nonces == nil {
		s.nonces = storage.NewNonceFilter(storage.DefaultExpectedNonces)
	}

	if s.baseURL == "" {
		return nil, errors.New("base url is required")
	}

	if s.rp.RequestOpts().RequestBy.Type != siop.PassByReference {
		return nil, errors.New("rp must pass requests by reference")
	}

	r := chi.NewRouter()
	r.Post(RequestsPath, s.handleCreateRequest)
	r.Get(RequestsPath+"/{id}", s.handleGetRequest)
	r.Post(CallbackPath, s.handleCallback)
	s.router = r

	return s, nil
}

func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe serves until ctx is cancelled, sweeping expired requests if
// the store needs it
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	if sw, ok := s.store.(sweeper); ok {
		go s.sweep(ctx, sw)
	}

	errC := make(chan error, 1)
	go func() {
		log.WithField("addr", addr).Info("rp server listening")
		errC <- srv.ListenAndServe()
	}()

	select {
	case err := <-errC:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	return srv.Shutdown(shutdownCtx)
}

func (s *Server) sweep(ctx context.Context, sw sweeper) {
	t := time.NewTicker(defaultSweepInterval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			n, err := sw.Sweep(ctx)
			if err != nil {
				log.WithError(err).Error("sweeping expired requests")
				continue
			}
			if n > 0 {
				log.WithField("n", n).Debug("swept expired requests")
			}
		}
	}
}

// newNonce returns a nonce the filter has not seen before
func (s *Server) newNonce() (string, error) {
	for i := 0; i < maxNonceAttempts; i++ {
		n := siop.NewNonce()
		if s.nonces.Claim(n) {
			return n, nil
		}
	}

	return "", ErrNonceExhausted
}
