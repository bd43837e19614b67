package http

import (
	"context"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	"notas/internal/backend"
	"notas/internal/cache"
	"notas/internal/core"
	applog "notas/internal/log"
	"notas/internal/middleware/ratelimit"
	"notas/internal/middleware/security"
	"notas/internal/middleware/trace"
	appweb "notas/web"
)

// Generator produces service descriptions from keywords. Satisfied by the
// Gemini client; nil means the feature is disabled.
type Generator interface {
	Enabled() bool
	Generate(ctx context.Context, keywords string) (string, error)
}

type Server struct {
	http.Server
	templates   *template.Template
	backend     backend.Backend
	generator   Generator
	companyName string

	limiter   *ratelimit.Limiter
	detector  *security.Detector
	headers   *security.HeadersMiddleware
	structLog *applog.StructuredLogger

	// Period-keyed report cache for the monthly summary. Any write to notes
	// or reference lists clears it, since a rename changes every row.
	reportCache  *cache.LRUCache[core.Report]
	cacheManager *cache.Manager

	shutdownOnce sync.Once
}

// NewServer configures routes and templates, returning a ready-to-run http.Server.
func NewServer(addr string, b backend.Backend, gen Generator, companyName string) *Server {
	mux := http.NewServeMux()

	s := &Server{
		Server: http.Server{
			Addr:    addr,
			Handler: mux,
		},
		backend:     b,
		generator:   gen,
		companyName: companyName,
		limiter:     ratelimit.NewLimiter(ratelimit.DefaultConfig()),
		detector:    security.NewDetector(),
		headers:     security.NewHeadersMiddleware(security.DefaultHeadersConfig()),
		structLog:   applog.NewStructuredLogger(applog.New(applog.DefaultConfig())),

		reportCache:  cache.NewLRUCache[core.Report](100, 5*time.Minute),
		cacheManager: cache.NewManager(),
	}

	s.cacheManager.Register(s.reportCache)
	s.cacheManager.StartCleanup(10 * time.Minute)

	// Parse embedded templates at startup.
	t, err := template.ParseFS(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		slog.Warn("Failed parsing templates", "error", err)
	}
	s.templates = t

	// Static assets (served from embedded FS)
	if sub, err := fs.Sub(appweb.StaticFS, "static"); err == nil {
		static := http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
		mux.Handle("/static/", security.StaticAssetMiddleware(3600)(static))
	} else {
		slog.Warn("Failed to mount embedded static FS", "error", err)
	}

	mux.HandleFunc("/", s.withMiddleware(s.handleIndex))
	mux.HandleFunc("/healthz", handleHealth)
	mux.HandleFunc("/readyz", handleReady)
	mux.HandleFunc("/metrics", s.handleMetrics)

	mux.HandleFunc("/notes", s.withMiddleware(s.handleNotes))
	mux.HandleFunc("/notes/", s.withMiddleware(s.handleNoteSubroutes))

	mux.HandleFunc("/clients", s.withMiddleware(s.handleClients))
	mux.HandleFunc("/clients/", s.withMiddleware(s.handleClientByID))
	mux.HandleFunc("/projects", s.withMiddleware(s.handleProjects))
	mux.HandleFunc("/projects/", s.withMiddleware(s.handleProjectByID))
	mux.HandleFunc("/consultants", s.withMiddleware(s.handleConsultants))
	mux.HandleFunc("/consultants/", s.withMiddleware(s.handleConsultantByID))

	// UI partials
	mux.HandleFunc("/ui/monthly-summary", s.withMiddleware(s.handleMonthlySummary))
	mux.HandleFunc("/ui/years", s.withMiddleware(s.handleYears))

	mux.HandleFunc("/summary/pdf", s.withMiddleware(s.handleSummaryPDF))
	mux.HandleFunc("/summary/email", s.withMiddleware(s.handleSummaryEmail))

	mux.HandleFunc("/generate", s.withMiddleware(s.handleGenerate))

	return s
}

// withMiddleware adds security headers, rate limiting, and request logging.
// Rate limiting only applies to writes; the summary partials poll freely.
func (s *Server) withMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		clientIP := s.detector.ExtractClientIP(r)
		requestID := trace.GenerateRequestID()

		ctx := context.WithValue(r.Context(), trace.RequestIDKey, requestID)
		r = r.WithContext(ctx)

		slog.InfoContext(ctx, "Request started",
			"request_id", requestID,
			"method", r.Method,
			"url", r.URL.Path,
			"client_ip", clientIP,
			"user_agent", r.Header.Get("User-Agent"))

		if s.detector.DetectSuspiciousRequest(r) {
			slog.WarnContext(ctx, "Suspicious request blocked", "client_ip", clientIP, "url", r.URL.String())
			http.Error(w, "Bad request", http.StatusBadRequest)
			return
		}

		if (r.Method == http.MethodPost || r.Method == http.MethodDelete) && !s.limiter.Allow(clientIP) {
			slog.WarnContext(ctx, "Rate limit exceeded", "client_ip", clientIP, "method", r.Method, "url", r.URL.Path)
			w.Header().Set("Retry-After", "60")
			http.Error(w, "Rate limit exceeded. Please try again later.", http.StatusTooManyRequests)
			return
		}

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		s.headers.Middleware(next).ServeHTTP(rw, r)

		duration := time.Since(start)
		slog.InfoContext(ctx, "Request completed",
			"request_id", requestID,
			"method", r.Method,
			"url", r.URL.Path,
			"status", rw.statusCode,
			"duration_ms", duration.Milliseconds(),
			"client_ip", clientIP)
	}
}

// responseWriter wraps http.ResponseWriter to capture the status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Shutdown gracefully shuts down the server and cleanup routines
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		if s.cacheManager != nil {
			s.cacheManager.Stop()
		}
		if s.limiter != nil {
			s.limiter.Stop()
		}
		shutdownErr = s.Server.Shutdown(ctx)
	})

	return shutdownErr
}

// handleMetrics exposes lightweight operational counters as JSON.
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	detection := s.detector.GetMetrics()
	limits := s.limiter.GetMetrics()

	NewHTMXResponse().BodyJSON(struct {
		SuspiciousRequests int64 `json:"suspicious_requests"`
		RateLimitClients   int64 `json:"rate_limit_clients"`
		ReportCacheEntries int   `json:"report_cache_entries"`
	}{
		SuspiciousRequests: detection.SuspiciousRequests,
		RateLimitClients:   limits.ClientCount,
		ReportCacheEntries: s.reportCache.Size(),
	}).Write(w)
}

func (s *Server) cacheKey(year int, month time.Month) string {
	return strconv.Itoa(year) + "-" + strconv.Itoa(int(month))
}

// invalidateCaches drops every cached period. Saving a note touches one
// period, but renaming a client or consultant rewrites rows everywhere,
// so a full clear keeps the two cases uniform.
func (s *Server) invalidateCaches() {
	s.reportCache.Clear()
}

// getReport builds (or re-reads) the monthly report for one period.
func (s *Server) getReport(ctx context.Context, year int, month time.Month) (core.Report, error) {
	key := s.cacheKey(year, month)

	if report, found := s.reportCache.Get(key); found {
		slog.DebugContext(ctx, "Report cache hit", "year", year, "month", int(month))
		return report, nil
	}

	// Add a small timeout to avoid hanging partials
	cctx, cancel := context.WithTimeout(ctx, 7*time.Second)
	defer cancel()

	notes, err := s.backend.ListNotes(cctx)
	if err != nil {
		return core.Report{}, err
	}
	resolver, err := s.loadResolver(cctx)
	if err != nil {
		return core.Report{}, err
	}

	report := core.BuildReport(notes, resolver, year, month)
	s.reportCache.Set(key, report)
	slog.DebugContext(ctx, "Report cached",
		"year", year, "month", int(month),
		"rows", len(report.Rows), "total_hours", report.TotalHours)
	return report, nil
}

// loadResolver fetches the three reference lists and builds a name resolver.
func (s *Server) loadResolver(ctx context.Context) (*core.Resolver, error) {
	clients, err := s.backend.ListClients(ctx)
	if err != nil {
		return nil, err
	}
	projects, err := s.backend.ListProjects(ctx)
	if err != nil {
		return nil, err
	}
	consultants, err := s.backend.ListConsultants(ctx)
	if err != nil {
		return nil, err
	}
	return core.NewResolver(clients, projects, consultants), nil
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func handleReady(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		NotFoundError("Page not found").Write(w)
		return
	}
	if s.templates == nil {
		slog.ErrorContext(r.Context(), "Templates not loaded", "url", r.URL.Path)
		http.Error(w, "templates not loaded", http.StatusInternalServerError)
		return
	}

	now := time.Now()
	clients, err := s.backend.ListClients(r.Context())
	if err != nil {
		slog.ErrorContext(r.Context(), "Client list error", "error", err)
	}
	projects, err := s.backend.ListProjects(r.Context())
	if err != nil {
		slog.ErrorContext(r.Context(), "Project list error", "error", err)
	}
	consultants, err := s.backend.ListConsultants(r.Context())
	if err != nil {
		slog.ErrorContext(r.Context(), "Consultant list error", "error", err)
	}

	data := struct {
		Year             int
		Month            int
		Clients          []core.Client
		Projects         []core.Project
		Consultants      []core.Consultant
		GeneratorEnabled bool
		CompanyName      string
	}{
		Year:             now.Year(),
		Month:            int(now.Month()),
		Clients:          clients,
		Projects:         projects,
		Consultants:      consultants,
		GeneratorEnabled: s.generator != nil && s.generator.Enabled(),
		CompanyName:      s.companyName,
	}

	if err := s.templates.ExecuteTemplate(w, "index.html", data); err != nil {
		slog.ErrorContext(r.Context(), "Index template execution failed", "error", err, "template", "index.html")
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
