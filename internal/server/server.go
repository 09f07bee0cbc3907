package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/legaldoc/collabhub/internal/config"
	"github.com/legaldoc/collabhub/internal/hub"
	"github.com/legaldoc/collabhub/internal/version"
)

// Server exposes the collaboration WebSocket endpoint and the side-channel
// snapshot reads over HTTP.
type Server struct {
	cfg      config.ServerConfig
	gateway  *hub.Gateway
	router   *hub.Router
	logger   *slog.Logger
	upgrader websocket.Upgrader
	engine   *gin.Engine
	httpSrv  *http.Server
}

// New creates the HTTP server and registers all routes.
func New(cfg config.ServerConfig, gateway *hub.Gateway, router *hub.Router, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		cfg:     cfg,
		gateway: gateway,
		router:  router,
		logger:  logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     originChecker(cfg.AllowedOrigins),
		},
	}

	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(cors.New(cors.Config{
		AllowOriginFunc: func(origin string) bool { return allowOrigin(cfg.AllowedOrigins, origin) },
		AllowMethods:    []string{"GET", "OPTIONS"},
		AllowHeaders:    []string{"Origin", "Content-Type", "Accept"},
		MaxAge:          12 * time.Hour,
	}))

	engine.GET("/ws/collaborate/:document_id/:user_id", s.handleCollaborate)
	engine.GET("/collaborate/active-users/:document_id", s.handleActiveUsers)
	engine.GET("/collaborate/cursors/:document_id", s.handleCursors)
	engine.GET("/healthz", s.handleHealth)

	s.engine = engine
	s.httpSrv = &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler: engine,
	}
	return s
}

// Handler returns the HTTP handler, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Start begins serving and blocks until the listener closes.
func (s *Server) Start() error {
	s.logger.Info("http server listening", "addr", s.httpSrv.Addr)
	if err := s.httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

// Shutdown stops accepting new connections and drains in-flight HTTP
// requests. Upgraded WebSocket connections are hijacked from the HTTP
// server and are not tracked here; live sessions end when their peers
// disconnect or the process exits.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpSrv.Shutdown(ctx)
}

// handleCollaborate upgrades the connection and runs the session until the
// participant disconnects. Participant identity is caller-supplied and not
// verified here; any identity check belongs upstream of this endpoint.
func (s *Server) handleCollaborate(c *gin.Context) {
	documentID := c.Param("document_id")
	userID := c.Param("user_id")

	ws, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed",
			"document", documentID, "user", userID, "error", err)
		return
	}

	s.gateway.HandleConnection(c.Request.Context(), ws, documentID, userID)
}

// handleActiveUsers returns the participants currently connected to a
// document, for polling clients without a live connection.
func (s *Server) handleActiveUsers(c *gin.Context) {
	documentID := c.Param("document_id")
	users := s.router.ActiveParticipants(documentID)
	c.JSON(http.StatusOK, gin.H{
		"document_id":  documentID,
		"active_users": users,
		"user_count":   len(users),
	})
}

// handleCursors returns the current cursor snapshot for a document.
func (s *Server) handleCursors(c *gin.Context) {
	documentID := c.Param("document_id")
	c.JSON(http.StatusOK, gin.H{
		"document_id": documentID,
		"cursors":     s.router.CursorSnapshot(documentID),
	})
}

func (s *Server) handleHealth(c *gin.Context) {
	stats := s.router.Stats()
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"version": version.String(),
		"router": gin.H{
			"received":   stats.Received,
			"fanned_out": stats.FannedOut,
			"unknown":    stats.Unknown,
		},
	})
}

func originChecker(allowed []string) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		return allowOrigin(allowed, r.Header.Get("Origin"))
	}
}

// allowOrigin permits every origin when none are configured; the hub is not
// an access-control boundary.
func allowOrigin(allowed []string, origin string) bool {
	if len(allowed) == 0 {
		return true
	}
	for _, a := range allowed {
		if a == origin || a == "*" {
			return true
		}
	}
	return false
}
