// Package handler implements the HTTP handlers of the API service.
package handler

import (
	"context"
	"log/slog"
	"math/big"
	"net/http"

	"github.com/canvaslab/nft-server/internal/apperr"
	"github.com/canvaslab/nft-server/internal/domain"
	"github.com/gin-gonic/gin"
)

// WorkStore is the work persistence surface the handlers need.
type WorkStore interface {
	Get(ctx context.Context, id string) (*domain.Work, error)
	GetMulti(ctx context.Context, ids []string) ([]domain.Work, error)
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, cursor string, limit int32) ([]domain.Work, string, error)
	ListByStatus(ctx context.Context, status domain.WorkStatus, cursor string, limit int32) ([]domain.Work, string, error)
}

// ThumbnailStore serves and deletes work thumbnails.
type ThumbnailStore interface {
	GetByWork(ctx context.Context, workID, cursor string, limit int32) ([]domain.Thumbnail, string, error)
	Delete(ctx context.Context, id string) error
}

// Pipeline is the publish orchestrator surface exposed over HTTP.
type Pipeline interface {
	PrepareERC721(ctx context.Context, executorID, workID string) error
	PrepareERC1155(ctx context.Context, executorID, workID string, amount int64) error
	SellERC721(ctx context.Context, executorID, workID string, ethPrice float64) error
	SellERC1155(ctx context.Context, executorID, workID string, ethPrice float64) error
	IsOwn(ctx context.Context, std domain.TokenStandard, executorID, workID string) (bool, error)
}

// Publisher enqueues encoded tasks on the message bus.
type Publisher interface {
	Publish(ctx context.Context, routingKey string, body []byte, contentType string) error
}

// UserStore resolves the caller's wallet.
type UserStore interface {
	Get(ctx context.Context, id string) (*domain.User, error)
}

// Balances reads on-chain wallet balances.
type Balances interface {
	BalanceOf(ctx context.Context, address string) (*big.Int, error)
}

// Dependencies holds all dependencies needed by handlers
type Dependencies struct {
	Logger     *slog.Logger
	Works      WorkStore
	Thumbnails ThumbnailStore
	Users      UserStore
	Pipeline   Pipeline
	Bus        Publisher
	Balances   Balances
}

// executorID extracts the authenticated caller from the request. The gateway
// in front of the service resolves the session and forwards the user id.
func executorID(c *gin.Context) (string, error) {
	id := c.GetHeader("X-User-ID")
	if id == "" {
		return "", apperr.New(apperr.KindUnauthenticated, "missing X-User-ID header")
	}
	return id, nil
}

// httpStatus maps the error taxonomy onto HTTP statuses.
func httpStatus(err error) int {
	switch apperr.KindOf(err) {
	case apperr.KindBadRequest:
		return http.StatusBadRequest
	case apperr.KindUnauthenticated:
		return http.StatusUnauthorized
	case apperr.KindForbidden:
		return http.StatusForbidden
	case apperr.KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// respondError writes the error response and logs server-side failures.
func respondError(c *gin.Context, logger *slog.Logger, err error) {
	status := httpStatus(err)
	if status >= http.StatusInternalServerError {
		logger.Error("Request failed",
			slog.String("method", c.Request.Method),
			slog.String("path", c.Request.URL.Path),
			slog.String("error", err.Error()),
		)
		// Internal details stay out of the response body.
		c.JSON(status, gin.H{"error": "internal server error"})
		return
	}

	c.JSON(status, gin.H{"error": err.Error()})
}
