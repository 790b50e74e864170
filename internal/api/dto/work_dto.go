// Package dto defines the request and response shapes of the API service.
package dto

import "github.com/canvaslab/nft-server/internal/domain"

// WorkDTO is the wire shape of a work.
type WorkDTO struct {
	ID        string `json:"id"`
	MediaPath string `json:"media_path"`
	Status    string `json:"status"`
	Price     int    `json:"price"`
}

// NewWorkDTO converts a domain work.
func NewWorkDTO(w *domain.Work) WorkDTO {
	return WorkDTO{
		ID:        w.ID,
		MediaPath: w.MediaPath,
		Status:    string(w.Status),
		Price:     w.Price,
	}
}

// ListWorksRequest carries the list query parameters.
type ListWorksRequest struct {
	Status   string `form:"status"`
	Cursor   string `form:"cursor"`
	PageSize int32  `form:"page_size"`
}

// ListWorksResponse is one page of works.
type ListWorksResponse struct {
	Works      []WorkDTO `json:"works"`
	NextCursor string    `json:"next_cursor,omitempty"`
}

// BatchGetWorksRequest asks for several works by id, optionally filtered to
// one status.
type BatchGetWorksRequest struct {
	IDs    []string `json:"ids" binding:"required"`
	Status string   `json:"status"`
}

// BatchGetWorksResponse returns the found works in request order.
type BatchGetWorksResponse struct {
	Works []WorkDTO `json:"works"`
}

// ThumbnailDTO is the wire shape of a thumbnail.
type ThumbnailDTO struct {
	ID        string `json:"id"`
	WorkID    string `json:"work_id"`
	ImagePath string `json:"image_path"`
	Order     int    `json:"order"`
}

// ListThumbnailsResponse is one page of a work's thumbnails.
type ListThumbnailsResponse struct {
	Thumbnails []ThumbnailDTO `json:"thumbnails"`
	NextCursor string         `json:"next_cursor,omitempty"`
}

// PublishERC721Request starts a single-edition publish.
type PublishERC721Request struct {
	WorkID string `json:"work_id" binding:"required"`
}

// PublishERC1155Request starts a multi-edition publish.
type PublishERC1155Request struct {
	WorkID string `json:"work_id" binding:"required"`
	Amount int64  `json:"amount" binding:"required"`
}

// SellRequest lists a published work at a fixed price.
type SellRequest struct {
	WorkID   string  `json:"work_id" binding:"required"`
	EthPrice float64 `json:"eth_price" binding:"required"`
}

// ImportRequest enqueues a CSV import from object storage.
type ImportRequest struct {
	Prefix   string `json:"prefix"`
	FileName string `json:"file_name" binding:"required"`
}

// BalanceResponse reports a wallet's native-coin balance in wei.
type BalanceResponse struct {
	Address string `json:"address"`
	Wei     string `json:"wei"`
}

// OwnershipResponse reports whether the caller's wallet holds a work's token.
type OwnershipResponse struct {
	WorkID string `json:"work_id"`
	Owned  bool   `json:"owned"`
}
