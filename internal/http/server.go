package http

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"

	"invoicer/internal/log"
	"invoicer/internal/metrics"
	"invoicer/internal/middleware/ratelimit"
	"invoicer/internal/middleware/security"
	"invoicer/internal/middleware/trace"
	"invoicer/internal/notify"
	"invoicer/internal/services"
)

// handlerTimeout bounds every API request except the websocket.
const handlerTimeout = 7 * time.Second

// Options configures the HTTP surface.
type Options struct {
	Addr               string
	AllowedOrigins     []string
	RateLimitPerMinute int
	TrustedProxies     []string
}

// Deps are the services behind the handlers. Hub and Ready are optional.
type Deps struct {
	Clients  *services.ClientService
	Invoices *services.InvoiceService
	Expenses *services.ExpenseService
	Settings *services.SettingsService
	Reports  *services.ReportService
	Search   *services.SearchService
	Feed     *notify.Feed
	Hub      *notify.Hub
	Ready    func(ctx context.Context) error
	Logger   *log.Logger
}

// Server is the JSON API server.
type Server struct {
	http.Server
	deps     Deps
	limiter  *ratelimit.Limiter
	detector *security.Detector
	now      func() time.Time

	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run server.
func NewServer(opts Options, deps Deps) *Server {
	if deps.Logger == nil {
		deps.Logger = log.New(log.DefaultConfig())
	}

	s := &Server{
		deps:     deps,
		limiter:  ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: opts.RateLimitPerMinute}),
		detector: security.NewDetector(),
		now:      time.Now,
	}
	for _, cidr := range opts.TrustedProxies {
		if err := s.detector.AddTrustedProxy(cidr); err != nil {
			deps.Logger.Warn("Ignoring trusted proxy", "cidr", cidr, "error", err)
		}
	}

	mux := http.NewServeMux()
	s.routes(mux)

	corsHandler := cors.New(cors.Options{
		AllowedOrigins: opts.AllowedOrigins,
		AllowedMethods: []string{
			http.MethodGet, http.MethodPost, http.MethodPut,
			http.MethodPatch, http.MethodDelete, http.MethodOptions,
		},
		AllowedHeaders: []string{"Content-Type", "X-Confirm", trace.HeaderRequestID},
		ExposedHeaders: []string{"Content-Disposition", trace.HeaderRequestID},
		MaxAge:         600,
	})

	// Outermost first: trace, security headers, detection, CORS, rate limit.
	var handler http.Handler = mux
	handler = s.limiter.Middleware(s.detector.ExtractClientIP, func(w http.ResponseWriter, r *http.Request) {
		ErrorResponse(http.StatusTooManyRequests, "rate limit exceeded, please try again later").Write(w)
	})(handler)
	handler = corsHandler.Handler(handler)
	handler = s.detector.Middleware(handler)
	handler = log.RequestIDMiddleware(trace.RequestIDFromRequest)(handler)
	handler = log.ComponentMiddleware(log.ComponentHTTP)(handler)
	handler = log.Middleware(deps.Logger)(handler)
	handler = security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware(handler)
	handler = trace.NewMiddleware(deps.Logger, s.detector.ExtractClientIP).Middleware(handler)

	s.Server = http.Server{
		Addr:              opts.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s
}

func (s *Server) routes(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.Handle("GET /metrics", promhttp.Handler())
	if s.deps.Hub != nil {
		mux.Handle("GET /ws", metrics.Instrument("/ws", s.deps.Hub))
	}

	s.handle(mux, "GET /api/clients", s.handleListClients)
	s.handle(mux, "POST /api/clients", s.handleCreateClient)
	s.handle(mux, "GET /api/clients/export.csv", s.handleExportClients)
	s.handle(mux, "GET /api/clients/{id}", s.handleGetClient)
	s.handle(mux, "PUT /api/clients/{id}", s.handleUpdateClient)
	s.handle(mux, "DELETE /api/clients/{id}", s.handleDeleteClient)

	s.handle(mux, "GET /api/invoices", s.handleListInvoices)
	s.handle(mux, "POST /api/invoices", s.handleCreateInvoice)
	s.handle(mux, "GET /api/invoices/export.csv", s.handleExportInvoices)
	s.handle(mux, "GET /api/invoices/{id}", s.handleGetInvoice)
	s.handle(mux, "PUT /api/invoices/{id}", s.handleUpdateInvoice)
	s.handle(mux, "DELETE /api/invoices/{id}", s.handleDeleteInvoice)
	s.handle(mux, "PATCH /api/invoices/{id}/status", s.handleSetInvoiceStatus)
	s.handle(mux, "GET /api/invoices/{id}/pdf", s.handleInvoicePDF)

	s.handle(mux, "GET /api/expenses", s.handleListExpenses)
	s.handle(mux, "POST /api/expenses", s.handleCreateExpense)
	s.handle(mux, "GET /api/expenses/export.csv", s.handleExportExpenses)
	s.handle(mux, "GET /api/expenses/{id}", s.handleGetExpense)
	s.handle(mux, "PUT /api/expenses/{id}", s.handleUpdateExpense)
	s.handle(mux, "DELETE /api/expenses/{id}", s.handleDeleteExpense)

	s.handle(mux, "GET /api/categories", s.handleListCategories)
	s.handle(mux, "POST /api/categories", s.handleCreateCategory)
	s.handle(mux, "DELETE /api/categories/{id}", s.handleDeleteCategory)

	s.handle(mux, "GET /api/settings", s.handleGetSettings)
	s.handle(mux, "PUT /api/settings", s.handleSaveSettings)
	s.handle(mux, "GET /api/balance", s.handleBalance)
	s.handle(mux, "POST /api/balance/recompute", s.handleRecomputeBalance)

	s.handle(mux, "GET /api/reports/dashboard", s.handleDashboard)
	s.handle(mux, "GET /api/reports/expenses", s.handleExpenseReport)
	s.handle(mux, "GET /api/reports/revenue", s.handleRevenueReport)
	s.handle(mux, "GET /api/reports/clients", s.handleClientReport)
	s.handle(mux, "GET /api/reports/invoice-status", s.handleInvoiceStatusReport)
	s.handle(mux, "GET /api/reports/profit", s.handleProfitReport)

	s.handle(mux, "GET /api/search", s.handleSearch)

	s.handle(mux, "GET /api/notifications", s.handleListNotifications)
	s.handle(mux, "POST /api/notifications/read-all", s.handleMarkAllRead)
	s.handle(mux, "POST /api/notifications/{id}/read", s.handleMarkRead)
}

// handle registers an instrumented handler bounded by handlerTimeout. The
// route pattern doubles as the metrics label.
func (s *Server) handle(mux *http.ServeMux, pattern string, h http.HandlerFunc) {
	timed := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), handlerTimeout)
		defer cancel()
		h(w, r.WithContext(ctx))
	})
	mux.Handle(pattern, metrics.Instrument(pattern, timed))
}

// Shutdown gracefully shuts down the server and the rate limiter cleanup.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.deps.Ready != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.deps.Ready(ctx); err != nil {
			s.deps.Logger.WarnContext(ctx, "Readiness check failed", "error", err)
			ErrorResponse(http.StatusServiceUnavailable, "not ready").Write(w)
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// OriginChecker returns a websocket origin check matching the CORS
// allow-list. Requests without an Origin header (non-browser clients) pass;
// "*" allows any origin.
func OriginChecker(allowed []string) func(r *http.Request) bool {
	set := make(map[string]bool, len(allowed))
	for _, o := range allowed {
		set[strings.TrimRight(o, "/")] = true
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		return origin == "" || set["*"] || set[strings.TrimRight(origin, "/")]
	}
}
