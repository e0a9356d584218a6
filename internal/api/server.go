// Package api implements the REST facade over a Supervisor: list/create/
// delete streams, grounded on ssungk-SOL's internal/api/server.go for the
// gin server shape and on
// original_source/src/ipcaster/api/{controllers,services}/Streams.hpp for
// the route/response shapes.
package api

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"ipcaster/internal/apperr"
	"ipcaster/internal/supervisor"
	"ipcaster/pkg/netio"
)

// StreamManager is the subset of Supervisor the API depends on.
type StreamManager interface {
	CreateStream(name string, endpoint netio.Endpoint) (uint32, error)
	DeleteStream(id uint32, flush bool) error
	ListStreams() []supervisor.Info
}

// StreamInfo is the JSON shape one stream is rendered as in list responses.
type StreamInfo struct {
	ID         uint32 `json:"id"`
	SourceName string `json:"source"`
	IP         string `json:"ip"`
	Port       uint16 `json:"port"`
	StreamTime string `json:"stream_time"`
}

// createStreamRequest is the POST /api/v1/streams request body.
type createStreamRequest struct {
	Source string `json:"source" binding:"required"`
	IP     string `json:"ip" binding:"required"`
	Port   uint16 `json:"port" binding:"required"`
}

// Server is the caster's REST facade.
type Server struct {
	router  *gin.Engine
	port    string
	manager StreamManager
}

// NewServer creates a Server on port, backed by manager.
func NewServer(port string, manager StreamManager) *Server {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())
	router.Use(requestIDMiddleware())

	s := &Server{router: router, port: port, manager: manager}
	s.setupRoutes()
	return s
}

// setupRoutes registers the stream management endpoints.
func (s *Server) setupRoutes() {
	v1 := s.router.Group("/api/v1")
	{
		v1.GET("/streams", s.listStreams)
		v1.POST("/streams", s.createStream)
		v1.DELETE("/streams/:id", s.deleteStream)
	}
}

// Start launches the server, non-blocking.
func (s *Server) Start() {
	go func() {
		if err := s.router.Run(":" + s.port); err != nil {
			slog.Error("api: server error", "err", err)
		}
	}()
}

// GetRouter returns the gin router, for testing.
func (s *Server) GetRouter() *gin.Engine {
	return s.router
}

func (s *Server) listStreams(c *gin.Context) {
	infos := s.manager.ListStreams()
	streams := make([]StreamInfo, len(infos))
	for i, info := range infos {
		streams[i] = StreamInfo{
			ID:         info.ID,
			SourceName: info.SourceName,
			IP:         info.Endpoint.IP,
			Port:       info.Endpoint.Port,
			StreamTime: info.StreamTime.String(),
		}
	}
	c.JSON(http.StatusOK, gin.H{"streams": streams})
}

func (s *Server) createStream(c *gin.Context) {
	var req createStreamRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorBody(http.StatusBadRequest, err))
		return
	}

	id, err := s.manager.CreateStream(req.Source, netio.Endpoint{IP: req.IP, Port: req.Port})
	if err != nil {
		status := http.StatusInternalServerError
		if apperr.Is(err, apperr.IOFailure) || apperr.Is(err, apperr.SyncNotFound) || apperr.Is(err, apperr.BitrateIndeterminate) {
			status = http.StatusBadRequest
		}
		c.JSON(status, errorBody(status, err))
		return
	}

	// spec.md §6: the response is the new stream record, id included, not a
	// bare {"id": n} — mirrors original_source's IPCaster::createStream(),
	// which returns stream->json() (the input record with id merged in).
	c.JSON(http.StatusOK, StreamInfo{
		ID:         id,
		SourceName: req.Source,
		IP:         req.IP,
		Port:       req.Port,
	})
}

func (s *Server) deleteStream(c *gin.Context) {
	idU64, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, errorBody(http.StatusBadRequest, err))
		return
	}
	id := uint32(idU64)

	if err := s.manager.DeleteStream(id, true); err != nil {
		// spec.md §6: DELETE returns 400 on a bad id, 500 otherwise —
		// including an unknown id, which is not a malformed request.
		c.JSON(http.StatusInternalServerError, errorBody(http.StatusInternalServerError, err))
		return
	}

	c.Status(http.StatusOK)
}

func errorBody(status int, err error) gin.H {
	return gin.H{"error": gin.H{"code": status, "message": err.Error()}}
}

// requestIDMiddleware stamps every request with a correlation id, grounded
// on jmylchreest-tvarr's correlation-id logging convention.
func requestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set("request_id", uuid.NewString())
		c.Next()
	}
}
