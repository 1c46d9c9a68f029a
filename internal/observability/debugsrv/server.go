// Package debugsrv runs the optional operator HTTP server: a JSON status page
// and the net/http/pprof handlers.
package debugsrv

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	hpprof "net/http/pprof"
	"strings"
	"sync"
	"time"

	rtsup "windfarm/internal/runtime/supervisor"
	logx "windfarm/pkg/logx"
)

// Config controls the server. Prefer a loopback Addr; set Token otherwise.
type Config struct {
	Enabled bool
	Addr    string
	Token   string
}

// StatusFunc returns the value rendered as JSON at /status.
type StatusFunc func() any

type Server struct {
	log    logx.Logger
	status StatusFunc

	mu   sync.Mutex
	cfg  Config
	srv  *http.Server
	addr string
	sup  *rtsup.Supervisor
}

func New(log logx.Logger, status StatusFunc) *Server {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Server{log: log.With(logx.String("comp", "debugsrv")), status: status}
}

// Addr returns the bound listen address, or "" when not running.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addr
}

// Reconfigure starts, stops or restarts the server to match cfg.
func (s *Server) Reconfigure(ctx context.Context, cfg Config) error {
	s.mu.Lock()
	prev, running := s.cfg, s.srv != nil
	s.mu.Unlock()

	if running && prev == cfg {
		return nil
	}
	if running {
		if err := s.Stop(ctx); err != nil {
			return err
		}
	}
	s.mu.Lock()
	s.cfg = cfg
	s.mu.Unlock()
	if !cfg.Enabled {
		return nil
	}
	return s.start(ctx, cfg)
}

func (s *Server) start(ctx context.Context, cfg Config) error {
	ln, err := net.Listen("tcp", cfg.Addr)
	if err != nil {
		return fmt.Errorf("debug listen %s: %w", cfg.Addr, err)
	}
	srv := &http.Server{
		Handler:           s.handler(cfg.Token),
		ReadHeaderTimeout: 5 * time.Second,
		// pprof profile and trace stream for up to their "seconds" param
		WriteTimeout: 2 * time.Minute,
		IdleTimeout:  time.Minute,
	}
	sup := rtsup.New(context.WithoutCancel(ctx), rtsup.WithLogger(s.log), rtsup.WithCancelOnError(false))

	s.mu.Lock()
	s.srv, s.sup, s.addr = srv, sup, ln.Addr().String()
	s.mu.Unlock()

	sup.Go("debug.http", func(context.Context) error {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	s.log.Info("debug server listening", logx.String("addr", ln.Addr().String()), logx.Bool("token", cfg.Token != ""))
	return nil
}

// Stop shuts the server down. It is a no-op when not running.
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	srv, sup := s.srv, s.sup
	s.srv, s.sup, s.addr = nil, nil, ""
	s.mu.Unlock()
	if srv == nil {
		return nil
	}

	err := srv.Shutdown(ctx)
	if err != nil {
		_ = srv.Close()
	}
	return errors.Join(err, sup.Stop(ctx))
}

func (s *Server) handler(token string) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /status", s.serveStatus)
	mux.HandleFunc("/debug/pprof/", hpprof.Index)
	mux.HandleFunc("/debug/pprof/cmdline", hpprof.Cmdline)
	mux.HandleFunc("/debug/pprof/profile", hpprof.Profile)
	mux.HandleFunc("/debug/pprof/symbol", hpprof.Symbol)
	mux.HandleFunc("/debug/pprof/trace", hpprof.Trace)
	if token == "" {
		return mux
	}
	return requireToken(token, mux)
}

func (s *Server) serveStatus(w http.ResponseWriter, _ *http.Request) {
	var v any
	if s.status != nil {
		v = s.status()
	}
	w.Header().Set("Content-Type", "application/json")
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		s.log.Debug("status encode failed", logx.Err(err))
	}
}

// requireToken accepts "Authorization: Bearer <token>" or ?token=<token>.
func requireToken(token string, next http.Handler) http.Handler {
	want := []byte(token)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok {
			got = r.URL.Query().Get("token")
		}
		if subtle.ConstantTimeCompare([]byte(got), want) != 1 {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}
