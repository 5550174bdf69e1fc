package http

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/LorenzoCW/dnd-investments/internal/board"
	"github.com/LorenzoCW/dnd-investments/internal/cache"
	"github.com/LorenzoCW/dnd-investments/internal/core"
	applog "github.com/LorenzoCW/dnd-investments/internal/log"
	"github.com/LorenzoCW/dnd-investments/internal/report"
	"github.com/LorenzoCW/dnd-investments/internal/store"
)

// ReportReader is the slice of the report repository the API needs.
type ReportReader interface {
	MonthOverview(ctx context.Context, year, month int) (report.MonthOverview, error)
}

type Server struct {
	http.Server
	board       *board.Manager
	reports     ReportReader
	logger      *applog.Logger
	rateLimiter *rateLimiter

	// Month overviews are cached until the next board change.
	overviewCache *cache.TTLCache[report.MonthOverview]
	unwatch       store.Unsubscribe

	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run
// http.Server. reports may be nil when no report mirror is configured.
func NewServer(addr string, manager *board.Manager, reports ReportReader, logger *applog.Logger) *Server {
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}
	mux := http.NewServeMux()

	s := &Server{
		board:         manager,
		reports:       reports,
		logger:        logger.WithComponent(applog.ComponentHTTP),
		rateLimiter:   newRateLimiter(120, time.Minute),
		overviewCache: cache.New[report.MonthOverview](24, 5*time.Minute),
	}
	s.Server = http.Server{
		Addr:              addr,
		Handler:           applog.RequestLogging(logger)(s.secured(mux)),
		ReadHeaderTimeout: 5 * time.Second,
	}

	// The mirror lags behind the live board, so cached overviews are
	// dropped on every change.
	s.unwatch = manager.Watch(func(core.Snapshot) {
		s.overviewCache.Clear()
	})

	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)

	mux.HandleFunc("GET /api/board", s.handleBoard)
	mux.HandleFunc("POST /api/lists", s.handleCreateList)
	mux.HandleFunc("DELETE /api/lists/{id}", s.handleDeleteList)
	mux.HandleFunc("PUT /api/board/order", s.handleSetBoardOrder)

	mux.HandleFunc("POST /api/cards", s.handleCreateCard)
	mux.HandleFunc("PATCH /api/cards/{id}", s.handleEditCard)
	mux.HandleFunc("DELETE /api/cards/{id}", s.handleDeleteCard)
	mux.HandleFunc("POST /api/cards/{id}/toggle", s.handleToggleProjection)
	mux.HandleFunc("POST /api/cards/{id}/transfer", s.handleTransfer)
	mux.HandleFunc("POST /api/installments", s.handleCreateInstallments)

	mux.HandleFunc("POST /api/drag/start", s.handleDragStart)
	mux.HandleFunc("POST /api/drag/over", s.handleDragOver)
	mux.HandleFunc("POST /api/drag/end", s.handleDragEnd)
	mux.HandleFunc("POST /api/drag/cancel", s.handleDragCancel)

	mux.HandleFunc("GET /api/report", s.handleMonthOverview)
	mux.HandleFunc("GET /api/stream", s.handleStream)

	return s
}

// secured adds security headers and rate limits mutating requests.
func (s *Server) secured(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet && !s.rateLimiter.allow(clientIP(r)) {
			w.Header().Set("Retry-After", "60")
			http.Error(w, "Rate limit exceeded. Please try again later.", http.StatusTooManyRequests)
			return
		}

		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		next.ServeHTTP(w, r)
	})
}

func clientIP(r *http.Request) string {
	if ip := r.Header.Get("X-Forwarded-For"); ip != "" {
		if idx := strings.IndexByte(ip, ','); idx >= 0 {
			return strings.TrimSpace(ip[:idx])
		}
		return ip
	}
	if ip := r.Header.Get("X-Real-IP"); ip != "" {
		return ip
	}
	return r.RemoteAddr
}

// Shutdown releases the board subscription and stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		if s.unwatch != nil {
			s.unwatch()
		}
		s.rateLimiter.stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// handleReady reports degraded (but functional) persistence as 200 with a body
// callers can inspect.
func (s *Server) handleReady(w http.ResponseWriter, _ *http.Request) {
	if s.board.Degraded() {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready (local-only persistence)"))
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
