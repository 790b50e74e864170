package handler

import (
	"log/slog"
	"net/http"

	"github.com/canvaslab/nft-server/internal/api/dto"
	"github.com/canvaslab/nft-server/internal/apperr"
	"github.com/canvaslab/nft-server/internal/task"
	"github.com/gin-gonic/gin"
)

// ImportHandler enqueues bulk CSV imports.
type ImportHandler struct {
	logger *slog.Logger
	bus    Publisher
}

// NewImportHandler creates a new ImportHandler instance
func NewImportHandler(deps *Dependencies) *ImportHandler {
	return &ImportHandler{
		logger: deps.Logger,
		bus:    deps.Bus,
	}
}

// ImportWorks handles POST /api/v1/imports/works
// Enqueues a work CSV import; the worker performs the actual load.
func (h *ImportHandler) ImportWorks(c *gin.Context) {
	h.enqueue(c, func(executor string, req *dto.ImportRequest) task.Task {
		return task.CreateWork{
			ExecutorID: executor,
			Prefix:     req.Prefix,
			FileName:   req.FileName,
		}
	})
}

// ImportThumbnails handles POST /api/v1/imports/thumbnails
func (h *ImportHandler) ImportThumbnails(c *gin.Context) {
	h.enqueue(c, func(executor string, req *dto.ImportRequest) task.Task {
		return task.CreateThumbnail{
			ExecutorID: executor,
			Prefix:     req.Prefix,
			FileName:   req.FileName,
		}
	})
}

func (h *ImportHandler) enqueue(c *gin.Context, build func(string, *dto.ImportRequest) task.Task) {
	executor, err := executorID(c)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	var req dto.ImportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, h.logger, apperr.Wrap(apperr.KindBadRequest, "invalid request body", err))
		return
	}

	t := build(executor, &req)

	body, err := task.Encode(t)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	if err := h.bus.Publish(c.Request.Context(), t.Kind().RoutingKey(), body, "application/json"); err != nil {
		respondError(c, h.logger, err)
		return
	}

	h.logger.Info("Import task enqueued",
		slog.String("task_kind", t.Kind().String()),
		slog.String("file_name", req.FileName),
		slog.String("executor_id", executor),
	)

	c.JSON(http.StatusAccepted, gin.H{"file_name": req.FileName})
}
