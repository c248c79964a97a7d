package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"tenderscan/internal/auth"
	"tenderscan/internal/config"
	"tenderscan/internal/domain"
	"tenderscan/internal/monitoring"
	"tenderscan/internal/search"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Store is the persistence surface the handlers need; implemented by
// storage.PostgresStore.
type Store interface {
	Ping(ctx context.Context) error
	SaveSession(ctx context.Context, owner string, records []domain.TenderRecord) (uuid.UUID, error)
	LastSessionForOwner(ctx context.Context, owner string) (*domain.ParseSession, error)
	SessionForViewer(ctx context.Context, username string) (*domain.ParseSession, error)
	AssignSessionToViewer(ctx context.Context, username string, sessionID uuid.UUID) error
	TenderByID(ctx context.Context, id int64) (*domain.TenderRecord, error)
	SaveAnalysis(ctx context.Context, tenderID int64, result string) error
	AnalysisForTender(ctx context.Context, tenderID int64) (*domain.TenderAnalysis, error)
	CreateUser(ctx context.Context, username, hashedPassword string, role domain.Role) error
	UserByUsername(ctx context.Context, username string) (*domain.User, error)
	CreateAdminRequest(ctx context.Context, username string) error
	PendingAdminRequests(ctx context.Context) ([]domain.AdminRequest, error)
	ResolveAdminRequest(ctx context.Context, requestID int64, approve bool) error
}

// Runner drives a parse run; implemented by scraper.Scraper.
type Runner interface {
	Run(ctx context.Context, f *search.Filters) []domain.TenderRecord
}

// AnalysisService runs the analysis pipeline; implemented by llm.Service.
type AnalysisService interface {
	AnalyzeTender(ctx context.Context, rec domain.TenderRecord, forceOCR bool) (string, error)
}

// Pinger is the health-check surface of the cache.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Server holds the dependencies for the HTTP server.
type Server struct {
	config     *config.Config
	router     http.Handler
	httpServer *http.Server
	scraper    Runner
	store      Store
	cache      Pinger
	analysis   AnalysisService
	tokens     *auth.TokenManager
	metrics    *monitoring.Metrics
	logger     *zap.Logger
}

func NewServer(cfg *config.Config, scraper Runner, store Store, cache Pinger, analysis AnalysisService, tokens *auth.TokenManager, m *monitoring.Metrics, l *zap.Logger) *Server {
	s := &Server{
		config:   cfg,
		scraper:  scraper,
		store:    store,
		cache:    cache,
		analysis: analysis,
		tokens:   tokens,
		metrics:  m,
		logger:   l,
	}
	s.router = s.setupRouter()
	return s
}

func (s *Server) Start() error {
	s.httpServer = &http.Server{
		Addr:        fmt.Sprintf(":%s", s.config.ServerPort),
		Handler:     s.router,
		ReadTimeout: 10 * time.Second,
		// Parse and analysis runs are long: pages sleep a politeness window,
		// and OCR backs off against the external rate limiter.
		WriteTimeout: 15 * time.Minute,
	}
	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
