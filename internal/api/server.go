package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/danielpatrickdp/gesture-agent/internal/note"
	"github.com/danielpatrickdp/gesture-agent/internal/session"
	"github.com/danielpatrickdp/gesture-agent/internal/store"
)

// Controller is the part of a live session the HTTP surface drives.
type Controller interface {
	Status() session.Status
	SetHotness(h float64)
	Notes(source note.Source) []note.Note
	Breed(parentA, parentB string, count int) ([]note.Note, error)
}

// PhraseLog lists persisted phrase decisions.
type PhraseLog interface {
	ListPhraseLog(sessionID string, limit int) ([]store.PhraseRow, error)
}

// Server is the HTTP control surface of a running controller.
type Server struct {
	ctrl      Controller
	phrases   PhraseLog
	router    *chi.Mux
	addr      string
	logger    *zap.Logger
	sseServer *server.SSEServer
}

// NewServer builds the router. phrases may be nil.
func NewServer(ctrl Controller, phrases PhraseLog, addr string, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{ctrl: ctrl, phrases: phrases, addr: addr, logger: logger}
	s.setupRouter()
	return s
}

func (s *Server) setupRouter() {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)

	// visualizer pages poll the status from other origins
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/health", s.handleHealth)

	// SSE connections stay open, so only the REST routes get a timeout.
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Timeout(10 * time.Second))
		r.Get("/status", s.handleGetStatus)
		r.Put("/hotness", s.handleSetHotness)
		r.Get("/notes", s.handleListNotes)
		r.Get("/phrases", s.handleListPhrases)
		r.Post("/crossovers", s.handleBreed)
	})

	s.router = r
}

// Handler returns the router.
func (s *Server) Handler() http.Handler { return s.router }

// AddMCPServer mounts the MCP SSE transport under /mcp.
func (s *Server) AddMCPServer(mcpServer *server.MCPServer) {
	s.sseServer = server.NewSSEServer(
		mcpServer,
		server.WithBasePath("/mcp"),
		server.WithSSEEndpoint("/sse"),
		server.WithMessageEndpoint("/message"),
		server.WithKeepAlive(true),
		server.WithKeepAliveInterval(15*time.Second),
	)
	s.router.Mount("/mcp", s.sseServer)
	s.logger.Info("mcp sse mounted", zap.String("sse", "/mcp/sse"), zap.String("message", "/mcp/message"))
}

// Serve listens until ctx is done, then shuts down gracefully.
func (s *Server) Serve(ctx context.Context) error {
	srv := &http.Server{Addr: s.addr, Handler: s.router, ReadHeaderTimeout: 5 * time.Second}
	errc := make(chan error, 1)
	go func() {
		s.logger.Info("http listening", zap.String("addr", s.addr))
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if s.sseServer != nil {
		_ = s.sseServer.Shutdown(shutdownCtx)
	}
	return srv.Shutdown(shutdownCtx)
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Debug("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("took", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	successResponse(w, map[string]string{"status": "healthy"})
}

// errorResponse writes a JSON error response.
func errorResponse(w http.ResponseWriter, statusCode int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}

// successResponse writes a JSON success response.
func successResponse(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(data)
}
