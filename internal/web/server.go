// Package web provides the HTTP server and handlers for the monopile
// dashboard UI.
package web

import (
	"context"
	"embed"
	"io/fs"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/pilemap/pilemap/internal/config"
	"github.com/pilemap/pilemap/internal/core"
	"github.com/pilemap/pilemap/internal/mapsync"
	"github.com/pilemap/pilemap/internal/web/middleware"
)

//go:embed static
var staticFiles embed.FS

// Server is the HTTP server for the dashboard.
type Server struct {
	cfg      *config.Config
	service  *core.Service
	mapCtl   *mapsync.Controller
	provider *mapsync.MemoryProvider
	notifier *core.RingNotifier
	router   *chi.Mux
	server   *http.Server
}

// NewServer wires the session service, the map controller, and its
// in-memory provider into a router.
func NewServer(cfg *config.Config, service *core.Service, mapCtl *mapsync.Controller, provider *mapsync.MemoryProvider, notifier *core.RingNotifier) *Server {
	s := &Server{
		cfg:      cfg,
		service:  service,
		mapCtl:   mapCtl,
		provider: provider,
		notifier: notifier,
		router:   chi.NewRouter(),
	}
	s.setupMiddleware()
	s.setupRoutes()
	return s
}

// setupMiddleware configures middleware for all routes.
func (s *Server) setupMiddleware() {
	s.router.Use(chimw.RequestID)
	s.router.Use(middleware.TrustedRealIP(s.cfg.Server.TrustedProxies))
	s.router.Use(middleware.Logger)
	s.router.Use(chimw.Recoverer)
	s.router.Use(chimw.Compress(5))
	s.router.Use(chimw.Timeout(s.cfg.Server.RequestTimeout))
	s.router.Use(securityHeaders)

	if s.cfg.Rate.Enabled {
		limiter := newRateLimiter(s.cfg.Rate.RequestsPerMinute, time.Minute)
		s.router.Use(limiter.middleware)
	}
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() {
	staticFS, err := fs.Sub(staticFiles, "static")
	if err != nil {
		panic(err)
	}
	s.router.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.FS(staticFS))))

	s.router.Get("/", s.handleIndex)

	s.router.Route("/api", func(r chi.Router) {
		// Session state
		r.Get("/session", s.handleSession)
		r.Get("/notifications", s.handleNotifications)

		// Uploads
		r.Post("/table", s.handleTableUpload)
		r.Post("/geojson", s.handleGeoJSONUpload)

		// Identifier selection and linking
		r.Post("/table/id-column", s.handleSetIDColumn)
		r.Post("/geojson/id-column", s.handleSetGeoIDColumn)

		// Records
		r.Get("/records", s.handleRecords)
		r.Post("/records/target", s.handleSelectTarget)
		r.Post("/records/{id}/position", s.handlePlacement)

		// Export
		r.Get("/export", s.handleExport)

		// Map control
		r.Get("/map/state", s.handleMapState)
		r.Post("/map/ready", s.handleMapReady)
		r.Post("/map/base-style", s.handleBaseStyle)
		r.Post("/map/overlay-style", s.handleOverlayStyle)
		r.Post("/map/point-style", s.handlePointStyle)
		r.Post("/map/filter", s.handleMapFilter)
		r.Post("/map/click", s.handleMapClick)
	})
}

// Start begins listening for HTTP requests.
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:         s.cfg.Server.Addr(),
		Handler:      s.router,
		ReadTimeout:  s.cfg.Server.ReadTimeout,
		WriteTimeout: s.cfg.Server.WriteTimeout,
		IdleTimeout:  s.cfg.Server.IdleTimeout,
	}

	return s.server.ListenAndServe()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Router returns the underlying chi router for testing.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// securityHeaders adds security headers to all responses.
func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		// Tile and map-widget assets come from third-party CDNs, so img-src
		// and script-src must allow them.
		w.Header().Set("Content-Security-Policy",
			"default-src 'self'; script-src 'self' https://unpkg.com 'unsafe-inline'; style-src 'self' https://unpkg.com 'unsafe-inline'; img-src 'self' data: blob: https:; worker-src blob:; connect-src 'self' https:")

		next.ServeHTTP(w, r)
	})
}

// rateLimiter is a token bucket rate limiter per client IP.
type rateLimiter struct {
	mu       sync.Mutex
	visitors map[string]*visitor
	rate     int
	window   time.Duration
}

type visitor struct {
	tokens    int
	lastReset time.Time
}

func newRateLimiter(rate int, window time.Duration) *rateLimiter {
	rl := &rateLimiter{
		visitors: make(map[string]*visitor),
		rate:     rate,
		window:   window,
	}
	go rl.cleanup()
	return rl
}

// cleanup removes stale visitor entries every minute.
func (rl *rateLimiter) cleanup() {
	for {
		time.Sleep(time.Minute)
		rl.mu.Lock()
		for ip, v := range rl.visitors {
			if time.Since(v.lastReset) > rl.window*2 {
				delete(rl.visitors, ip)
			}
		}
		rl.mu.Unlock()
	}
}

// allow consumes a token for the IP if one is available.
func (rl *rateLimiter) allow(ip string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	v, exists := rl.visitors[ip]
	if !exists || time.Since(v.lastReset) > rl.window {
		rl.visitors[ip] = &visitor{tokens: rl.rate - 1, lastReset: time.Now()}
		return true
	}

	if v.tokens <= 0 {
		return false
	}
	v.tokens--
	return true
}

func (rl *rateLimiter) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := r.RemoteAddr
		if realIP := r.Header.Get("X-Real-IP"); realIP != "" {
			ip = realIP
		}

		if !rl.allow(ip) {
			slog.Warn("rate limit exceeded", "ip", ip, "path", r.URL.Path)
			w.Header().Set("Retry-After", "60")
			writeErrorJSON(w, core.UserMessage{
				Message: "Too many requests",
				Action:  "Please wait a moment before trying again",
				Code:    "RATE001",
			}, http.StatusTooManyRequests)
			return
		}

		next.ServeHTTP(w, r)
	})
}
