package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"tg-coursesync/internal/chats"
	"tg-coursesync/internal/config"
	"tg-coursesync/internal/courses"
	"tg-coursesync/internal/logger"
	"tg-coursesync/internal/storage"
)

// Server exposes the registry over HTTP. All writes land in the database
// only; the sync engine picks them up on its next pass.
type Server struct {
	server *http.Server
}

func NewServer(cfg config.ServerConfig, chatService *chats.Service, courseService *courses.Service) *Server {
	if cfg.Mode != "" {
		gin.SetMode(cfg.Mode)
	}

	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	chatHandler := &chatHandler{service: chatService}
	courseHandler := &courseHandler{service: courseService}

	apiGroup := router.Group("/api")
	{
		apiGroup.GET("/chats", chatHandler.list)
		apiGroup.PUT("/chats", chatHandler.create)
		apiGroup.POST("/chats/import", chatHandler.importCSV)
		apiGroup.GET("/chats/:id", chatHandler.get)
		apiGroup.PATCH("/chats/:id", chatHandler.update)
		apiGroup.DELETE("/chats/:id", chatHandler.remove)

		apiGroup.GET("/courses", courseHandler.list)
		apiGroup.GET("/courses/:id", courseHandler.get)
		apiGroup.DELETE("/courses/:id", courseHandler.remove)
	}

	return &Server{
		server: &http.Server{
			Addr:    cfg.ListenAddr,
			Handler: router,
		},
	}
}

// Handler exposes the router, mostly for tests.
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

func (s *Server) Start() error {
	logger.Infof("Starting API server on %s", s.server.Addr)
	return s.server.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

// renderError maps domain errors onto HTTP statuses.
func renderError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, chats.ErrInvalid), errors.Is(err, chats.ErrCannotModify):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	case errors.Is(err, storage.ErrConflict), errors.Is(err, storage.ErrModifiedConcurrently):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		logger.Errorf("API request failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
