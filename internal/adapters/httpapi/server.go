package httpapi

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"stockTrader/internal/app"
	"stockTrader/internal/calculator"
	"stockTrader/internal/domain"
	"stockTrader/internal/ports"
)

// Ledger is the subset of the ledger service the API drives.
type Ledger interface {
	OpenAccount(ctx context.Context, userID int64, initialAmount domain.Money) (int64, error)
	AdjustCash(ctx context.Context, accountID int64, action domain.CashAction, amount domain.Money) (*app.CashResult, error)
	Buy(ctx context.Context, accountID int64, symbol string, shares int64, price domain.Money) (*app.TradeResult, error)
	AddShares(ctx context.Context, accountID, positionID int64, shares int64, price domain.Money) (*app.TradeResult, error)
	Sell(ctx context.Context, accountID, positionID int64, shares int64, price domain.Money) (*app.TradeResult, error)
	CloseAccount(ctx context.Context, accountID int64) error
	Trades(ctx context.Context, accountID int64) ([]*domain.Trade, error)
}

// AccountViewer renders the read model of an account.
type AccountViewer interface {
	View(ctx context.Context, accountID int64) (*app.AccountView, error)
}

// Config holds server configuration
type Config struct {
	Addr           string
	AllowedOrigins []string
	Logger         ports.Logger
	Ledger         Ledger
	Viewer         AccountViewer
	Users          ports.UserRepository
	Calculator     *calculator.Calculator
}

// Server represents the HTTP server
type Server struct {
	router *chi.Mux
	server *http.Server
	logger ports.Logger

	users  ports.UserRepository
	svc    Ledger
	viewer AccountViewer
	calc   *calculator.Calculator
}

// New creates a new HTTP server
func New(cfg Config) (*Server, error) {
	if cfg.Logger == nil || cfg.Ledger == nil || cfg.Viewer == nil || cfg.Users == nil || cfg.Calculator == nil {
		return nil, fmt.Errorf("missing required dependencies for HTTP server: %w", ports.ErrConfigurationError)
	}
	if cfg.Addr == "" {
		cfg.Addr = ":8080"
	}
	if len(cfg.AllowedOrigins) == 0 {
		cfg.AllowedOrigins = []string{"*"}
	}

	s := &Server{
		router: chi.NewRouter(),
		logger: cfg.Logger.With(map[string]interface{}{"component": "http"}),
		users:  cfg.Users,
		svc:    cfg.Ledger,
		viewer: cfg.Viewer,
		calc:   cfg.Calculator,
	}

	s.setupMiddleware(cfg.AllowedOrigins)
	s.setupRoutes()

	s.server = &http.Server{
		Addr:         cfg.Addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s, nil
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) setupMiddleware(origins []string) {
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(s.loggingMiddleware)
	s.router.Use(middleware.Timeout(30 * time.Second))

	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		MaxAge:         300,
	}))
}

func (s *Server) setupRoutes() {
	s.router.Get("/healthz", s.handleHealth)

	s.router.Post("/users", s.handleCreateUser)

	s.router.Route("/accounts", func(r chi.Router) {
		r.Post("/", s.handleOpenAccount)

		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", s.handleGetAccount)
			r.Delete("/", s.handleCloseAccount)
			r.Patch("/cash/{action}", s.handleAdjustCash)

			r.Post("/positions", s.handleBuy)
			r.Put("/positions/{positionID}", s.handleTradePosition)

			r.Get("/trades", s.handleTrades)
			r.Get("/activity", s.handleActivity)
		})
	})
}

// Start starts the HTTP server. It returns http.ErrServerClosed after Shutdown.
func (s *Server) Start() error {
	s.logger.Info(context.Background(), "Starting HTTP server", map[string]interface{}{"addr": s.server.Addr})
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info(ctx, "Shutting down HTTP server")
	return s.server.Shutdown(ctx)
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		s.logger.Debug(r.Context(), "HTTP request", map[string]interface{}{
			"method":      r.Method,
			"path":        r.URL.Path,
			"status":      ww.Status(),
			"bytes":       ww.BytesWritten(),
			"duration_ms": time.Since(start).Milliseconds(),
			"request_id":  middleware.GetReqID(r.Context()),
		})
	})
}
