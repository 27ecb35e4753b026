package http

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"hhspend/internal/cache"
	"hhspend/internal/core"
	"hhspend/internal/log"
	"hhspend/internal/middleware/ratelimit"
	"hhspend/internal/middleware/security"
	"hhspend/internal/middleware/trace"
	appweb "hhspend/web"
)

// Pinger is implemented by backends whose health can be probed.
type Pinger interface {
	Ping(ctx context.Context) error
}

// dataset is an immutable snapshot served to handlers. A refresh builds a
// new forest and swaps the pointer.
type dataset struct {
	forest      *core.Forest
	multipliers core.Multipliers
	loadedAt    time.Time
}

// Options configures NewServer. Zero values fall back to defaults.
type Options struct {
	Addr               string
	RateLimitPerMinute int
	CacheSize          int
	CacheTTL           time.Duration
	// Pinger is probed by /readyz when set.
	Pinger Pinger
}

type Server struct {
	http.Server
	templates *template.Template
	data      atomic.Pointer[dataset]
	pinger    Pinger

	// Drill results keyed by age group and path
	panelCache   *cache.LRUCache[[]core.Panel]
	cacheManager *cache.Manager
	deltas       *core.DeltaTracker

	rateLimiter *ratelimit.Limiter
	detector    *security.Detector
	tracer      *trace.Middleware
	metrics     *serverMetrics

	startedAt    time.Time
	shutdownOnce sync.Once
}

// NewServer configures routes and templates, returning a ready-to-run
// server for the given forest.
func NewServer(opts Options, f *core.Forest, m core.Multipliers) (*Server, error) {
	if f == nil {
		return nil, fmt.Errorf("new server: %w", core.ErrEmptyForest)
	}
	if opts.CacheSize <= 0 {
		opts.CacheSize = 256
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = 10 * time.Minute
	}

	t, err := template.ParseFS(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}

	mux := http.NewServeMux()
	s := &Server{
		Server: http.Server{
			Addr:              opts.Addr,
			ReadHeaderTimeout: 10 * time.Second,
		},
		templates:    t,
		pinger:       opts.Pinger,
		panelCache:   cache.NewLRUCache[[]core.Panel](opts.CacheSize, opts.CacheTTL),
		cacheManager: cache.NewManager(),
		deltas:       core.NewDeltaTracker(),
		detector:     security.NewDetector(),
		startedAt:    time.Now(),
	}
	s.metrics = newServerMetrics(s.panelCache.Stats)
	s.rateLimiter = ratelimit.NewLimiter(ratelimit.Config{
		RequestsPerMinute: opts.RateLimitPerMinute,
		ExemptPrefixes:    []string{"/healthz", "/readyz", "/metrics", "/static/"},
	})
	s.tracer = trace.NewMiddleware(s.detector.ExtractClientIP, s.metrics.observe)

	s.cacheManager.Register(s.panelCache)
	s.cacheManager.StartCleanup(time.Minute)

	s.SetDataset(f, m)

	if sub, err := fs.Sub(appweb.StaticFS, "static"); err == nil {
		static := http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
		mux.Handle("/static/", security.StaticAssetMiddleware(3600)(static))
	} else {
		slog.Warn("Failed to mount embedded static FS", log.FieldError, err)
	}

	mux.HandleFunc("/", s.handleIntro)
	mux.HandleFunc("/estimator", s.handleEstimator)
	mux.HandleFunc("/categories", s.handleCategories)
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.HandleFunc("/readyz", s.handleReady)
	mux.Handle("/metrics", s.metrics.handler())

	// UI partials
	mux.HandleFunc("/ui/estimate", s.handleEstimate)
	mux.HandleFunc("/ui/categories", s.handleCategoryPanels)

	// JSON API
	mux.HandleFunc("/api/age-totals", s.handleAgeTotalsAPI)
	mux.HandleFunc("/api/categories", s.handleCategoriesAPI)

	headers := security.NewHeadersMiddleware(security.DefaultHeadersConfig())
	var h http.Handler = mux
	h = s.rateLimiter.Middleware(s.detector.ExtractClientIP, nil)(h)
	h = headers.Middleware(h)
	h = s.detector.Middleware(h)
	h = s.tracer.Middleware(h)
	s.Handler = h

	return s, nil
}

// SetDataset installs a new forest. Cached drill results belong to the
// previous forest and are dropped. Empty multipliers fall back to the
// built-in defaults.
func (s *Server) SetDataset(f *core.Forest, m core.Multipliers) {
	if m.Empty() {
		m = core.DefaultMultipliers()
	}
	now := time.Now()
	s.data.Store(&dataset{forest: f, multipliers: m, loadedAt: now})
	s.panelCache.Purge()
	s.metrics.datasetInstalled(f.Len(), now)
	slog.Info("Dataset installed",
		log.FieldComponent, log.ComponentHTTP,
		log.FieldCategories, f.Len(),
		log.FieldCount, len(f.FindByLevel(0)))
}

func (s *Server) snapshot() *dataset {
	return s.data.Load()
}

// Shutdown stops background goroutines and gracefully shuts the server down.
func (s *Server) Shutdown(ctx context.Context) error {
	s.shutdownOnce.Do(func() {
		s.rateLimiter.Stop()
		s.cacheManager.Stop()
	})
	return s.Server.Shutdown(ctx)
}

// render executes a template into memory first so a failing template does
// not leave a half-written page behind. resp carries status and triggers;
// nil means a plain 200.
func (s *Server) render(w http.ResponseWriter, r *http.Request, name string, data any, resp *HTMXResponseBuilder) {
	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, name, data); err != nil {
		slog.ErrorContext(r.Context(), "Template execution failed",
			log.FieldComponent, log.ComponentTemplate,
			log.FieldTemplate, name,
			log.FieldError, err)
		ErrorResponse(http.StatusInternalServerError, "Failed to render page").Write(w)
		return
	}
	if resp == nil {
		resp = NewHTMXResponse()
	}
	resp.HTML(buf.Bytes()).Write(w)
}
