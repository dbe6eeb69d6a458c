// Package dashboard serves the collection operations as a JSON API.
//
// Every route maps onto one vector.Service call. Errors are reported as
// {"message": ...} with a status derived from the error's sentinel.
package dashboard

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/andrew/vecdash/pkg/logging"
	"github.com/andrew/vecdash/pkg/vector"
)

// BasePath prefixes every collection route
const BasePath = "/api/v1"

// MaxUploadSize caps the request body accepted by the upload route
const MaxUploadSize = 32 << 20

// Endpoint names the database the health check reports on
type Endpoint interface {
	Addr() string
}

// Handler holds the dependencies shared by the routes
type Handler struct {
	service   vector.Service
	endpoint  Endpoint
	logger    *slog.Logger
	maxUpload int64
	probe     time.Duration
}

// NewHandler creates a Handler. endpoint may be nil, in which case /healthz only probes the service.
func NewHandler(service vector.Service, endpoint Endpoint, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Handler{service: service, endpoint: endpoint, logger: logger,
		maxUpload: MaxUploadSize, probe: HealthTimeout}
}

type route struct {
	method  string
	path    string
	handler gin.HandlerFunc
}

func (h *Handler) routes() []route {
	return []route{
		{http.MethodGet, "/collections", h.ListCollections},
		{http.MethodPost, "/collections", h.CreateCollection},
		{http.MethodDelete, "/collections/:name", h.DeleteCollection},
		{http.MethodGet, "/collections/:name/records", h.GetRecords},
		{http.MethodPost, "/collections/:name/records", h.AddRecords},
		{http.MethodPost, "/collections/:name/upload", h.Upload},
		{http.MethodGet, "/collections/:name/search", h.Search},
	}
}

// Register mounts the API routes under BasePath and the health check at /healthz
func (h *Handler) Register(r gin.IRouter) {
	v1 := r.Group(BasePath)
	for _, rt := range h.routes() {
		v1.Handle(rt.method, rt.path, rt.handler)
	}
	r.GET("/healthz", h.Health)
}

// NewRouter builds a gin engine with recovery, request logging and the API routes
func NewRouter(h *Handler) *gin.Engine {
	router := gin.New()
	router.MaxMultipartMemory = MaxUploadSize
	router.Use(gin.Recovery(), requestLogger(h.logger))
	h.Register(router)
	return router
}

func requestLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		level := slog.LevelInfo
		if c.Writer.Status() >= http.StatusInternalServerError {
			level = slog.LevelError
		}
		logger.Log(c.Request.Context(), level, "request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"duration", time.Since(start),
		)
	}
}
