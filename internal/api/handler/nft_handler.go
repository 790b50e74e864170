package handler

import (
	"log/slog"
	"net/http"

	"github.com/canvaslab/nft-server/internal/api/dto"
	"github.com/canvaslab/nft-server/internal/apperr"
	"github.com/canvaslab/nft-server/internal/domain"
	"github.com/gin-gonic/gin"
)

// NFTHandler handles publish and sell requests.
type NFTHandler struct {
	logger   *slog.Logger
	pipeline Pipeline
	users    UserStore
	balances Balances
}

// NewNFTHandler creates a new NFTHandler instance
func NewNFTHandler(deps *Dependencies) *NFTHandler {
	return &NFTHandler{
		logger:   deps.Logger,
		pipeline: deps.Pipeline,
		users:    deps.Users,
		balances: deps.Balances,
	}
}

// PublishERC721 handles POST /api/v1/nft/erc721/publish
// Stages the work and enqueues the mint; the mint itself completes on the
// worker, so a 202 here means accepted, not minted.
func (h *NFTHandler) PublishERC721(c *gin.Context) {
	executor, err := executorID(c)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	var req dto.PublishERC721Request
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, h.logger, apperr.Wrap(apperr.KindBadRequest, "invalid request body", err))
		return
	}

	if err := h.pipeline.PrepareERC721(c.Request.Context(), executor, req.WorkID); err != nil {
		respondError(c, h.logger, err)
		return
	}

	h.logger.Info("ERC-721 publish accepted",
		slog.String("work_id", req.WorkID),
		slog.String("executor_id", executor),
	)

	c.JSON(http.StatusAccepted, gin.H{"work_id": req.WorkID})
}

// PublishERC1155 handles POST /api/v1/nft/erc1155/publish
func (h *NFTHandler) PublishERC1155(c *gin.Context) {
	executor, err := executorID(c)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	var req dto.PublishERC1155Request
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, h.logger, apperr.Wrap(apperr.KindBadRequest, "invalid request body", err))
		return
	}

	if err := h.pipeline.PrepareERC1155(c.Request.Context(), executor, req.WorkID, req.Amount); err != nil {
		respondError(c, h.logger, err)
		return
	}

	h.logger.Info("ERC-1155 publish accepted",
		slog.String("work_id", req.WorkID),
		slog.String("executor_id", executor),
		slog.Int64("amount", req.Amount),
	)

	c.JSON(http.StatusAccepted, gin.H{"work_id": req.WorkID})
}

// SellERC721 handles POST /api/v1/nft/erc721/sell
func (h *NFTHandler) SellERC721(c *gin.Context) {
	h.sell(c, func(c *gin.Context, executor string, req *dto.SellRequest) error {
		return h.pipeline.SellERC721(c.Request.Context(), executor, req.WorkID, req.EthPrice)
	})
}

// SellERC1155 handles POST /api/v1/nft/erc1155/sell
func (h *NFTHandler) SellERC1155(c *gin.Context) {
	h.sell(c, func(c *gin.Context, executor string, req *dto.SellRequest) error {
		return h.pipeline.SellERC1155(c.Request.Context(), executor, req.WorkID, req.EthPrice)
	})
}

func (h *NFTHandler) sell(c *gin.Context, run func(*gin.Context, string, *dto.SellRequest) error) {
	executor, err := executorID(c)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	var req dto.SellRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, h.logger, apperr.Wrap(apperr.KindBadRequest, "invalid request body", err))
		return
	}

	if err := run(c, executor, &req); err != nil {
		respondError(c, h.logger, err)
		return
	}

	h.logger.Info("Work listed for sale",
		slog.String("work_id", req.WorkID),
		slog.String("executor_id", executor),
		slog.Float64("eth_price", req.EthPrice),
	)

	c.JSON(http.StatusOK, gin.H{"work_id": req.WorkID})
}

// OwnERC721 handles GET /api/v1/nft/erc721/:work_id/ownership
func (h *NFTHandler) OwnERC721(c *gin.Context) {
	h.ownership(c, domain.ERC721)
}

// OwnERC1155 handles GET /api/v1/nft/erc1155/:work_id/ownership
func (h *NFTHandler) OwnERC1155(c *gin.Context) {
	h.ownership(c, domain.ERC1155)
}

func (h *NFTHandler) ownership(c *gin.Context, std domain.TokenStandard) {
	executor, err := executorID(c)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	workID := c.Param("work_id")
	owned, err := h.pipeline.IsOwn(c.Request.Context(), std, executor, workID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, dto.OwnershipResponse{
		WorkID: workID,
		Owned:  owned,
	})
}

// GetBalance handles GET /api/v1/users/me/balance
// Returns the caller's wallet balance in wei.
func (h *NFTHandler) GetBalance(c *gin.Context) {
	executor, err := executorID(c)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	user, err := h.users.Get(c.Request.Context(), executor)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	balance, err := h.balances.BalanceOf(c.Request.Context(), user.WalletAddress)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, dto.BalanceResponse{
		Address: user.WalletAddress,
		Wei:     balance.String(),
	})
}
