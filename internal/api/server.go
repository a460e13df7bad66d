package api

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/khanhnv2901/sus-cli/internal/api/middleware"
	"github.com/khanhnv2901/sus-cli/internal/domain/scan"
	"github.com/khanhnv2901/sus-cli/internal/shared/constants"
	errs "github.com/khanhnv2901/sus-cli/internal/shared/errors"
)

// ScanRequest is the body of POST /api/v1/scan.
type ScanRequest struct {
	URL string `json:"url"`
}

// Scanner runs a full scan of one URL.
type Scanner interface {
	Scan(ctx context.Context, rawURL string) (*scan.Report, error)
}

// HealthService reports on backing services.
type HealthService interface {
	Ready(ctx context.Context) error
}

type Config struct {
	Scanner     Scanner
	Health      HealthService
	AuthToken   string
	Logger      *zap.Logger
	CORSOrigins []string // Allowed CORS origins (empty = allow all)
	RateLimit   int      // Requests per second per IP (0 = disabled)
	RateBurst   int      // Burst size for rate limiter
	TrustProxy  bool     // Key rate limits on X-Forwarded-For (only behind a trusted proxy)
}

type Server struct {
	cfg      Config
	mux      *http.ServeMux
	handler  http.Handler
	limiters *rateLimiterMap
}

func NewServer(cfg Config) *Server {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.RateBurst <= 0 {
		cfg.RateBurst = cfg.RateLimit
	}
	srv := &Server{
		cfg:      cfg,
		mux:      http.NewServeMux(),
		limiters: newRateLimiterMap(),
	}
	srv.routes()
	// RequestID -> Logging -> Recover -> RateLimit -> CORS -> mux
	srv.handler = middleware.RequestID(
		srv.withLogging(
			middleware.Recover(cfg.Logger)(
				srv.withRateLimit(
					srv.withCORS(srv.mux)))))
	return srv
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

// Close stops background housekeeping.
func (s *Server) Close() {
	s.limiters.stop()
}

func (s *Server) routes() {
	s.mux.Handle("/api/v1/scan", s.withAuth(http.HandlerFunc(s.handleScan)))
	s.mux.HandleFunc("/api/v1/health", s.handleHealth)
	s.mux.HandleFunc("/api/v1/ready", s.handleReady)

	// Unversioned alias
	s.mux.Handle("/api/scan", s.withAuth(http.HandlerFunc(s.handleScan)))
}

func (s *Server) handleScan(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.methodNotAllowed(w, r)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, constants.MaxRequestBodyBytes)
	var req ScanRequest
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.writeError(w, r, http.StatusRequestEntityTooLarge, errors.New("request body too large"))
			return
		}
		s.writeError(w, r, http.StatusBadRequest, errors.New("request body must be JSON like {\"url\": \"...\"}"))
		return
	}
	if strings.TrimSpace(req.URL) == "" {
		s.writeError(w, r, http.StatusBadRequest, errors.New("url is required"))
		return
	}

	report, err := s.cfg.Scanner.Scan(r.Context(), req.URL)
	if err != nil {
		if errors.Is(err, errs.ErrInvalidInput) {
			s.writeError(w, r, http.StatusBadRequest, err)
			return
		}
		if !errors.Is(err, errs.ErrScanFailed) {
			err = fmt.Errorf("%w: %v", errs.ErrScanFailed, err)
		}
		s.writeError(w, r, http.StatusInternalServerError, err)
		return
	}

	s.requestLogger(r).Info("scan",
		zap.String("url", report.URL),
		zap.Int("score", report.Score),
		zap.String("verdict", string(report.Verdict)),
	)
	writeJSON(w, http.StatusOK, report)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.methodNotAllowed(w, r)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.methodNotAllowed(w, r)
		return
	}
	if s.cfg.Health != nil {
		if err := s.cfg.Health.Ready(r.Context()); err != nil {
			s.requestLogger(r).Warn("not ready", zap.Error(err))
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (s *Server) withRateLimit(next http.Handler) http.Handler {
	if s.cfg.RateLimit <= 0 {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := clientIP(r, s.cfg.TrustProxy)
		if !s.limiters.get(ip, s.cfg.RateLimit, s.cfg.RateBurst).Allow() {
			s.requestLogger(r).Warn("rate_limit_exceeded", zap.String("client_ip", ip))
			w.Header().Set("Retry-After", "1")
			s.writeError(w, r, http.StatusTooManyRequests, errors.New("rate limit exceeded"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// clientIP returns the peer address. X-Forwarded-For is client-controlled,
// so its first hop is used only when trustProxy is set.
func clientIP(r *http.Request, trustProxy bool) string {
	addr := r.RemoteAddr
	if fwd := r.Header.Get("X-Forwarded-For"); trustProxy && fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		if first = strings.TrimSpace(first); first != "" {
			addr = first
		}
	}
	if host, _, err := net.SplitHostPort(addr); err == nil {
		return host
	}
	return addr
}

func (s *Server) withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if origin := s.allowedOrigin(r.Header.Get("Origin")); origin != "" {
			h := w.Header()
			h.Set("Access-Control-Allow-Origin", origin)
			h.Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			h.Set("Access-Control-Allow-Headers", "Content-Type, X-Auth-Token, X-Request-ID")
			h.Set("Access-Control-Max-Age", "3600")
			if origin != "*" {
				h.Add("Vary", "Origin")
			}
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) allowedOrigin(origin string) string {
	if len(s.cfg.CORSOrigins) == 0 {
		return "*"
	}
	for _, allowed := range s.cfg.CORSOrigins {
		if allowed == origin {
			return origin
		}
	}
	return ""
}

func (s *Server) withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		lrw := &loggingResponseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(lrw, r)

		s.cfg.Logger.Info("http_request",
			zap.String("request_id", middleware.GetRequestID(r.Context())),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.String("remote_addr", r.RemoteAddr),
			zap.Int("status", lrw.statusCode),
			zap.Duration("duration", time.Since(start)),
			zap.Int64("bytes", lrw.bytesWritten),
		)
	})
}

func (s *Server) withAuth(next http.Handler) http.Handler {
	if s.cfg.AuthToken == "" {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := r.Header.Get("X-Auth-Token")
		if subtle.ConstantTimeCompare([]byte(token), []byte(s.cfg.AuthToken)) != 1 {
			s.writeError(w, r, http.StatusUnauthorized, errors.New("unauthorized"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// loggingResponseWriter captures the status code and bytes written
type loggingResponseWriter struct {
	http.ResponseWriter
	statusCode   int
	bytesWritten int64
}

func (lrw *loggingResponseWriter) WriteHeader(code int) {
	lrw.statusCode = code
	lrw.ResponseWriter.WriteHeader(code)
}

func (lrw *loggingResponseWriter) Write(b []byte) (int, error) {
	n, err := lrw.ResponseWriter.Write(b)
	lrw.bytesWritten += int64(n)
	return n, err
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// writeError sends {"error": msg}. Server-class errors are logged in full
// and replaced with a generic message.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, status int, err error) {
	msg := err.Error()
	if status >= 500 {
		s.requestLogger(r).Error("internal_server_error", zap.Error(err), zap.Int("status", status))
		msg = "internal server error"
		if errors.Is(err, errs.ErrScanFailed) {
			msg = errs.ErrScanFailed.Error()
		}
	}
	writeJSON(w, status, map[string]string{"error": msg})
}

// requestLogger returns the server logger tagged with request context
func (s *Server) requestLogger(r *http.Request) *zap.Logger {
	return s.cfg.Logger.With(
		zap.String("request_id", middleware.GetRequestID(r.Context())),
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path),
	)
}

func (s *Server) methodNotAllowed(w http.ResponseWriter, r *http.Request) {
	s.writeError(w, r, http.StatusMethodNotAllowed, errors.New("method not allowed"))
}

// rateLimiterMap holds per-IP limiters and evicts idle ones
type rateLimiterMap struct {
	mu       sync.Mutex
	limiters map[string]*ipLimiter
	idle     time.Duration
	done     chan struct{}
	once     sync.Once
}

type ipLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func newRateLimiterMap() *rateLimiterMap {
	m := &rateLimiterMap{
		limiters: make(map[string]*ipLimiter),
		idle:     5 * time.Minute,
		done:     make(chan struct{}),
	}
	go m.cleanupLoop(time.Minute)
	return m
}

func (m *rateLimiterMap) get(ip string, rps, burst int) *rate.Limiter {
	m.mu.Lock()
	defer m.mu.Unlock()

	l, ok := m.limiters[ip]
	if !ok {
		l = &ipLimiter{limiter: rate.NewLimiter(rate.Limit(rps), burst)}
		m.limiters[ip] = l
	}
	l.lastSeen = time.Now()
	return l.limiter
}

func (m *rateLimiterMap) sweep(now time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for ip, l := range m.limiters {
		if now.Sub(l.lastSeen) > m.idle {
			delete(m.limiters, ip)
		}
	}
}

func (m *rateLimiterMap) cleanupLoop(every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case now := <-ticker.C:
			m.sweep(now)
		case <-m.done:
			return
		}
	}
}

func (m *rateLimiterMap) stop() {
	m.once.Do(func() { close(m.done) })
}
