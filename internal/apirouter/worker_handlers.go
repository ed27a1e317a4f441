package apirouter

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/hookdeck/workerctl/internal/logging"
	"github.com/hookdeck/workerctl/internal/logsink"
	"github.com/hookdeck/workerctl/internal/status"
	"github.com/hookdeck/workerctl/internal/worker"
	"go.uber.org/zap"
)

// Registry is the part of worker.Registry the API drives.
type Registry interface {
	CreateAndStart(ctx context.Context) (*worker.Worker, error)
	FindByName(name string) (*worker.Worker, bool)
	Stop(name string) error
	StopMostRecent() (*worker.Worker, bool)
	StopAll() int
}

type LogReader interface {
	Lines(ctx context.Context, name string) ([]string, error)
}

type Reporter interface {
	Report() status.Report
}

type WorkerHandlers struct {
	logger   *logging.Logger
	registry Registry
	logs     LogReader
	reporter Reporter
}

func NewWorkerHandlers(logger *logging.Logger, registry Registry, logs LogReader, reporter Reporter) *WorkerHandlers {
	return &WorkerHandlers{
		logger:   logger,
		registry: registry,
		logs:     logs,
		reporter: reporter,
	}
}

type StatusResponse struct {
	status.Report
	Active []string `json:"active"`
}

type StopResponse struct {
	Name *string `json:"name"`
}

type StopAllResponse struct {
	Count int `json:"count"`
}

type LogResponse struct {
	Name  string   `json:"name"`
	Lines []string `json:"lines"`
}

// List handles GET /workers.
func (h *WorkerHandlers) List(c *gin.Context) {
	report := h.reporter.Report()
	c.JSON(http.StatusOK, StatusResponse{
		Report: report,
		Active: report.Active(),
	})
}

// Create handles POST /workers.
func (h *WorkerHandlers) Create(c *gin.Context) {
	w, err := h.registry.CreateAndStart(c.Request.Context())
	if err != nil {
		if errors.Is(err, worker.ErrRegistryClosed) {
			AbortWithError(c, http.StatusServiceUnavailable, ErrorResponse{
				Err:     err,
				Code:    http.StatusServiceUnavailable,
				Message: "shutting down",
			})
			return
		}
		AbortWithError(c, http.StatusInternalServerError, NewErrInternalServer(err))
		return
	}
	c.JSON(http.StatusCreated, w.Info())
}

// Retrieve handles GET /workers/:name.
func (h *WorkerHandlers) Retrieve(c *gin.Context) {
	w, ok := h.registry.FindByName(c.Param("name"))
	if !ok {
		AbortWithError(c, http.StatusNotFound, NewErrNotFound("worker"))
		return
	}
	c.JSON(http.StatusOK, w.Info())
}

// Log handles GET /workers/:name/log. Logs of stopped workers stay readable.
func (h *WorkerHandlers) Log(c *gin.Context) {
	name := c.Param("name")
	lines, err := h.logs.Lines(c.Request.Context(), name)
	if err != nil {
		switch {
		case errors.Is(err, logsink.ErrLogNotFound):
			AbortWithError(c, http.StatusNotFound, NewErrNotFound("log"))
		case errors.Is(err, logsink.ErrInvalidLogName):
			AbortWithError(c, http.StatusBadRequest, NewErrBadRequest(err))
		default:
			AbortWithError(c, http.StatusInternalServerError, NewErrInternalServer(err))
		}
		return
	}
	c.JSON(http.StatusOK, LogResponse{Name: name, Lines: lines})
}

// Stop handles POST /workers/:name/stop. The worker exits asynchronously.
func (h *WorkerHandlers) Stop(c *gin.Context) {
	name := c.Param("name")
	if err := h.registry.Stop(name); err != nil {
		if errors.Is(err, worker.ErrWorkerNotFound) {
			AbortWithError(c, http.StatusNotFound, NewErrNotFound("worker"))
			return
		}
		AbortWithError(c, http.StatusInternalServerError, NewErrInternalServer(err))
		return
	}
	c.JSON(http.StatusAccepted, StopResponse{Name: &name})
}

// StopLatest handles POST /workers/stop-latest.
func (h *WorkerHandlers) StopLatest(c *gin.Context) {
	w, ok := h.registry.StopMostRecent()
	if !ok {
		c.JSON(http.StatusOK, StopResponse{})
		return
	}
	name := w.Name()
	h.logger.Ctx(c.Request.Context()).Info("stop requested", zap.String("worker", name))
	c.JSON(http.StatusAccepted, StopResponse{Name: &name})
}

// StopAll handles POST /workers/stop-all.
func (h *WorkerHandlers) StopAll(c *gin.Context) {
	count := h.registry.StopAll()
	h.logger.Ctx(c.Request.Context()).Info("stop requested for all workers", zap.Int("count", count))
	c.JSON(http.StatusAccepted, StopAllResponse{Count: count})
}
