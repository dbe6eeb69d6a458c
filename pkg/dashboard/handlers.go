package dashboard

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/andrew/vecdash/pkg/models"
	"github.com/andrew/vecdash/pkg/vector"
)

// HealthTimeout bounds the database probe made by /healthz
const HealthTimeout = 5 * time.Second

type createRequest struct {
	Name string `json:"name" binding:"required"`
}

// ListCollections responds with the names of all collections
func (h *Handler) ListCollections(c *gin.Context) {
	names, err := h.service.ListCollections(c.Request.Context())
	if err != nil {
		h.fail(c, "error getting collections", err)
		return
	}
	if names == nil {
		names = []string{}
	}
	c.IndentedJSON(http.StatusOK, gin.H{"collections": names})
}

// CreateCollection creates the collection named in the body, 201 if new and 200 if it already existed
func (h *Handler) CreateCollection(c *gin.Context) {
	var req createRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.fail(c, "invalid request body", fmt.Errorf("%w: %w", vector.ErrInvalidInput, err))
		return
	}

	created, err := h.service.CreateCollection(c.Request.Context(), req.Name)
	if err != nil {
		h.fail(c, "error creating collection", err)
		return
	}
	if !created {
		c.IndentedJSON(http.StatusOK, gin.H{"name": req.Name, "created": false,
			"message": fmt.Sprintf("Collection '%s' already exists.", req.Name)})
		return
	}
	c.IndentedJSON(http.StatusCreated, gin.H{"name": req.Name, "created": true,
		"message": fmt.Sprintf("Collection '%s' created successfully.", req.Name)})
}

// DeleteCollection removes a collection; a missing one is reported with deleted false
func (h *Handler) DeleteCollection(c *gin.Context) {
	name := c.Param("name")

	existed, err := h.service.DeleteCollection(c.Request.Context(), name)
	if err != nil {
		h.fail(c, "error deleting collection", err)
		return
	}
	c.IndentedJSON(http.StatusOK, gin.H{"name": name, "deleted": existed})
}

// GetRecords responds with every record of a collection
func (h *Handler) GetRecords(c *gin.Context) {
	name := c.Param("name")

	records, err := h.service.GetAllRecords(c.Request.Context(), name)
	if err != nil {
		h.fail(c, "error getting data from collection", err)
		return
	}
	if records == nil {
		records = []models.Record{}
	}
	c.IndentedJSON(http.StatusOK, gin.H{"records": records})
}

// AddRecords inserts the JSON object or array in the request body
func (h *Handler) AddRecords(c *gin.Context) {
	data, err := c.GetRawData()
	if err != nil {
		h.fail(c, "error reading request body", fmt.Errorf("%w: %w", vector.ErrInvalidInput, err))
		return
	}
	h.insert(c, data)
}

// Upload inserts the records of a JSON file sent as the multipart field "file".
// Bodies over the handler's upload limit are rejected with 413 before being spooled.
func (h *Handler) Upload(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUpload)

	header, err := c.FormFile("file")
	var tooLarge *http.MaxBytesError
	switch {
	case errors.As(err, &tooLarge):
		h.logger.Warn("upload too large", "collection", c.Param("name"), "limit", tooLarge.Limit)
		c.IndentedJSON(http.StatusRequestEntityTooLarge,
			gin.H{"message": fmt.Sprintf("upload too large: limit is %d bytes", tooLarge.Limit)})
		return
	case err != nil:
		h.fail(c, "missing upload", fmt.Errorf("%w: %w", vector.ErrInvalidInput, err))
		return
	}

	f, err := header.Open()
	if err != nil {
		h.fail(c, "error opening upload", err)
		return
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		h.fail(c, "error reading upload", err)
		return
	}
	h.logger.Info("received upload", "collection", c.Param("name"), "file", header.Filename, "bytes", len(data))
	h.insert(c, data)
}

func (h *Handler) insert(c *gin.Context, data []byte) {
	name := c.Param("name")

	records, err := vector.ParseRecords(data)
	if err != nil {
		h.fail(c, "invalid JSON format", err)
		return
	}

	result, err := h.service.AddRecords(c.Request.Context(), name, records)
	var partial *vector.PartialFailureError
	switch {
	case errors.As(err, &partial):
		h.logger.Warn("partial insert", "collection", name, "error", err)
		c.IndentedJSON(http.StatusMultiStatus, result)
	case err != nil:
		h.fail(c, "error inserting data", err)
	default:
		c.IndentedJSON(http.StatusOK, result)
	}
}

// Search runs a semantic search for q, returning at most limit records
func (h *Handler) Search(c *gin.Context) {
	name := c.Param("name")
	query := c.Query("q")

	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			h.fail(c, "invalid limit", fmt.Errorf("%w: limit %q must be a positive integer", vector.ErrInvalidInput, raw))
			return
		}
		limit = n
	}

	res := h.service.Search(c.Request.Context(), name, query, limit)
	if res.Records == nil {
		res.Records = []models.Record{}
	}

	code := http.StatusOK
	if res.Status == models.SearchFailed {
		code = statusFor(res.Err)
		h.logger.Error("search failed", "collection", name, "query", query, "error", res.Err)
	}
	c.IndentedJSON(code, gin.H{
		"status":  res.Status,
		"records": res.Records,
		"message": res.Message,
	})
}

// Health probes the database with a collection listing
func (h *Handler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), h.probe)
	defer cancel()

	body := gin.H{}
	if h.endpoint != nil {
		body["endpoint"] = h.endpoint.Addr()
	}

	if _, err := h.service.ListCollections(ctx); err != nil {
		body["status"] = "unavailable"
		body["message"] = err.Error()
		c.IndentedJSON(http.StatusServiceUnavailable, body)
		return
	}

	body["status"] = "ok"
	c.IndentedJSON(http.StatusOK, body)
}

func (h *Handler) fail(c *gin.Context, what string, err error) {
	code := statusFor(err)
	if code >= http.StatusInternalServerError {
		h.logger.Error(what, "path", c.FullPath(), "error", err)
	} else {
		h.logger.Warn(what, "path", c.FullPath(), "error", err)
	}
	c.IndentedJSON(code, gin.H{"message": what + ": " + err.Error()})
}

// statusFor maps a service error onto an HTTP status
func statusFor(err error) int {
	switch {
	case errors.Is(err, vector.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, vector.ErrCollectionNotFound):
		return http.StatusNotFound
	case errors.Is(err, vector.ErrConnection):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
