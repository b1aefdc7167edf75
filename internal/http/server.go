package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"splitkasse/internal/log"
	"splitkasse/internal/middleware/ratelimit"
	"splitkasse/internal/middleware/security"
	"splitkasse/internal/middleware/trace"
	"splitkasse/internal/services"
)

const maxArchiveLimit = 120

// Options tunes the server. Zero values fall back to defaults.
type Options struct {
	// DevMode exposes the reset and delete endpoints.
	DevMode bool
	// ClosedMonthsLimit is the default size of the archive listing.
	ClosedMonthsLimit int
	// RateLimitPerMinute applies per client to mutating requests.
	RateLimitPerMinute int
	// Ready reports whether dependencies are reachable, for /readyz.
	Ready func(context.Context) error

	Logger *log.Logger
	Clock  func() time.Time
}

// Server is the JSON API in front of a MonthService.
type Server struct {
	http.Server

	svc      *services.MonthService
	opts     Options
	logger   *log.Logger
	limiter  *ratelimit.Limiter
	detector *security.Detector
	tracer   *trace.Middleware

	shutdownOnce sync.Once
}

// NewServer wires routes and middleware into a ready-to-run http.Server.
func NewServer(addr string, svc *services.MonthService, opts Options) *Server {
	if opts.ClosedMonthsLimit <= 0 {
		opts.ClosedMonthsLimit = 12
	}
	if opts.Logger == nil {
		opts.Logger = log.New(log.DefaultConfig())
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}

	s := &Server{
		svc:      svc,
		opts:     opts,
		logger:   opts.Logger.WithComponent(log.ComponentHTTP),
		detector: security.NewDetector(),
		limiter: ratelimit.NewLimiter(ratelimit.Config{
			RequestsPerMinute: opts.RateLimitPerMinute,
		}),
	}
	s.tracer = trace.NewMiddleware(opts.Logger, s.detector.ExtractClientIP)

	mux := http.NewServeMux()
	s.routes(mux)

	var handler http.Handler = mux
	handler = s.limiter.Middleware(s.detector.ExtractClientIP, s.onRateLimited)(handler)
	handler = s.flagSuspicious(handler)
	handler = security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware(handler)
	handler = s.tracer.Middleware(handler)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s
}

func (s *Server) routes(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)

	mux.HandleFunc("GET /api/month", s.handleCurrentMonth)
	mux.HandleFunc("GET /api/months/{id}", s.handleMonth)
	mux.HandleFunc("PUT /api/months/{id}/incomes", s.handleUpdateIncomes)
	mux.HandleFunc("PUT /api/months/{id}/balance-start", s.handleUpdateBalanceStart)
	mux.HandleFunc("POST /api/months/{id}/close", s.handleCloseMonth)
	mux.HandleFunc("GET /api/months/{id}/history", s.handleHistory)
	mux.HandleFunc("POST /api/months/{id}/apply-templates", s.handleApplyTemplates)
	mux.HandleFunc("GET /api/archive", s.handleArchive)
	mux.HandleFunc("POST /api/calculate", s.handleCalculate)

	mux.HandleFunc("POST /api/months/{id}/categories", s.handleCreateCategory)
	mux.HandleFunc("DELETE /api/categories/{id}", s.handleDeleteCategory)
	mux.HandleFunc("POST /api/categories/{id}/items", s.handleCreateItem)
	mux.HandleFunc("PATCH /api/items/{id}", s.handleUpdateItem)
	mux.HandleFunc("DELETE /api/items/{id}", s.handleDeleteItem)
	mux.HandleFunc("POST /api/months/{id}/expenses", s.handleCreateExpense)
	mux.HandleFunc("DELETE /api/expenses/{id}", s.handleDeleteExpense)
	mux.HandleFunc("POST /api/months/{id}/transfers", s.handleCreateTransfer)
	mux.HandleFunc("DELETE /api/transfers/{id}", s.handleDeleteTransfer)

	mux.HandleFunc("GET /api/templates", s.handleListTemplates)
	mux.HandleFunc("POST /api/templates/categories", s.handleCreateTemplateCategory)
	mux.HandleFunc("DELETE /api/templates/categories/{id}", s.handleDeleteTemplateCategory)
	mux.HandleFunc("POST /api/templates/categories/{id}/items", s.handleCreateTemplateItem)
	mux.HandleFunc("PATCH /api/templates/items/{id}", s.handleUpdateTemplateItem)
	mux.HandleFunc("DELETE /api/templates/items/{id}", s.handleDeleteTemplateItem)

	mux.HandleFunc("GET /api/profiles", s.handleListProfiles)
	mux.HandleFunc("PUT /api/profiles/{role}", s.handleRenameProfile)

	if s.opts.DevMode {
		mux.HandleFunc("POST /api/months/{id}/reset", s.handleResetMonth)
		mux.HandleFunc("DELETE /api/months/{id}", s.handleDeleteClosedMonth)
	}
}

// flagSuspicious logs requests that look like probes. They are still served.
func (s *Server) flagSuspicious(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.detector.DetectSuspiciousRequest(r) {
			fields := log.NewFields().
				WithRequestID(trace.GetRequestID(r.Context())).
				WithHTTPRequest(r.Method, r.URL.Path, r.Header.Get("User-Agent"), s.detector.ExtractClientIP(r))
			s.logger.WarnContext(r.Context(), "Suspicious request", fields.ToSlice()...)
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) onRateLimited(w http.ResponseWriter, r *http.Request) {
	s.logger.WarnContext(r.Context(), "Rate limit exceeded",
		log.FieldRequestID, trace.GetRequestID(r.Context()),
		log.FieldClientIP, s.detector.ExtractClientIP(r),
		log.FieldMethod, r.Method,
		log.FieldPath, r.URL.Path)
	TooManyRequestsError().Write(w)
}

// writeError answers with the mapped error response. Unexpected errors are
// logged with the request's logger and hidden from the client.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, op string, err error) {
	resp, expected := errorResponseFor(err)
	if !expected {
		log.FromContext(r.Context()).LogError(r.Context(), "Request failed", err, op,
			log.NewFields().WithHTTPRequest(r.Method, r.URL.Path, r.Header.Get("User-Agent"), s.detector.ExtractClientIP(r)))
	}
	resp.Write(w)
}

// Shutdown stops the rate limiter and gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		err = s.Server.Shutdown(ctx)
	})
	return err
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	NewJSONResponse().Body(map[string]string{"status": "ok"}).Write(w)
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.opts.Ready != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.opts.Ready(ctx); err != nil {
			s.logger.WarnContext(r.Context(), "Readiness check failed", log.FieldError, err)
			ErrorResponse(http.StatusServiceUnavailable, "not_ready", "dependencies unavailable").Write(w)
			return
		}
	}
	NewJSONResponse().Body(map[string]string{"status": "ready"}).Write(w)
}
