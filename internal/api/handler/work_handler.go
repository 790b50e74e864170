package handler

import (
	"log/slog"
	"net/http"

	"github.com/canvaslab/nft-server/internal/api/dto"
	"github.com/canvaslab/nft-server/internal/apperr"
	"github.com/canvaslab/nft-server/internal/domain"
	"github.com/gin-gonic/gin"
)

const maxPageSize = 100

// WorkHandler handles work-related HTTP requests
type WorkHandler struct {
	logger     *slog.Logger
	works      WorkStore
	thumbnails ThumbnailStore
}

// NewWorkHandler creates a new WorkHandler instance
func NewWorkHandler(deps *Dependencies) *WorkHandler {
	return &WorkHandler{
		logger:     deps.Logger,
		works:      deps.Works,
		thumbnails: deps.Thumbnails,
	}
}

// ListWorks handles GET /api/v1/works
// Lists works page by page, optionally filtered to one status.
func (h *WorkHandler) ListWorks(c *gin.Context) {
	var req dto.ListWorksRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		respondError(c, h.logger, apperr.Wrap(apperr.KindBadRequest, "invalid query parameters", err))
		return
	}

	if req.PageSize > maxPageSize {
		req.PageSize = maxPageSize
	}

	var (
		works []domain.Work
		next  string
		err   error
	)

	if req.Status != "" {
		status, perr := domain.ParseWorkStatus(req.Status)
		if perr != nil {
			respondError(c, h.logger, apperr.Newf(apperr.KindBadRequest, "unknown status %q", req.Status))
			return
		}
		works, next, err = h.works.ListByStatus(c.Request.Context(), status, req.Cursor, req.PageSize)
	} else {
		works, next, err = h.works.List(c.Request.Context(), req.Cursor, req.PageSize)
	}
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	resp := dto.ListWorksResponse{
		Works:      make([]dto.WorkDTO, 0, len(works)),
		NextCursor: next,
	}
	for i := range works {
		resp.Works = append(resp.Works, dto.NewWorkDTO(&works[i]))
	}

	c.JSON(http.StatusOK, resp)
}

// GetWork handles GET /api/v1/works/:work_id
func (h *WorkHandler) GetWork(c *gin.Context) {
	workID := c.Param("work_id")

	work, err := h.works.Get(c.Request.Context(), workID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, dto.NewWorkDTO(work))
}

// BatchGetWorks handles POST /api/v1/works/batch
// Returns the requested works in request order. Unknown ids are dropped, and
// an optional status filter narrows the result after the lookup.
func (h *WorkHandler) BatchGetWorks(c *gin.Context) {
	var req dto.BatchGetWorksRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, h.logger, apperr.Wrap(apperr.KindBadRequest, "invalid request body", err))
		return
	}

	var statusFilter domain.WorkStatus
	if req.Status != "" {
		status, err := domain.ParseWorkStatus(req.Status)
		if err != nil {
			respondError(c, h.logger, apperr.Newf(apperr.KindBadRequest, "unknown status %q", req.Status))
			return
		}
		statusFilter = status
	}

	works, err := h.works.GetMulti(c.Request.Context(), req.IDs)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	resp := dto.BatchGetWorksResponse{Works: make([]dto.WorkDTO, 0, len(works))}
	for i := range works {
		if statusFilter != "" && works[i].Status != statusFilter {
			continue
		}
		resp.Works = append(resp.Works, dto.NewWorkDTO(&works[i]))
	}

	c.JSON(http.StatusOK, resp)
}

// ListThumbnails handles GET /api/v1/works/:work_id/thumbnails
// Returns the work's thumbnails in display order.
func (h *WorkHandler) ListThumbnails(c *gin.Context) {
	workID := c.Param("work_id")
	cursor := c.Query("cursor")

	thumbs, next, err := h.thumbnails.GetByWork(c.Request.Context(), workID, cursor, 0)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	resp := dto.ListThumbnailsResponse{
		Thumbnails: make([]dto.ThumbnailDTO, 0, len(thumbs)),
		NextCursor: next,
	}
	for _, th := range thumbs {
		resp.Thumbnails = append(resp.Thumbnails, dto.ThumbnailDTO{
			ID:        th.ID,
			WorkID:    th.WorkID,
			ImagePath: th.ImagePath,
			Order:     th.Order,
		})
	}

	c.JSON(http.StatusOK, resp)
}

// DeleteWork handles DELETE /api/v1/works/:work_id
// Deletes the work and cascades to its thumbnails.
func (h *WorkHandler) DeleteWork(c *gin.Context) {
	workID := c.Param("work_id")

	cursor := ""
	for {
		thumbs, next, err := h.thumbnails.GetByWork(c.Request.Context(), workID, cursor, 0)
		if err != nil {
			respondError(c, h.logger, err)
			return
		}

		for _, th := range thumbs {
			if err := h.thumbnails.Delete(c.Request.Context(), th.ID); err != nil {
				respondError(c, h.logger, err)
				return
			}
		}

		if next == "" {
			break
		}
		cursor = next
	}

	if err := h.works.Delete(c.Request.Context(), workID); err != nil {
		respondError(c, h.logger, err)
		return
	}

	h.logger.Info("Work deleted",
		slog.String("work_id", workID),
	)

	c.Status(http.StatusNoContent)
}
