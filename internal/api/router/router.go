// Package router wires HTTP routes to their handlers.
package router

import (
	"net/http"

	"github.com/canvaslab/nft-server/internal/api/handler"
	"github.com/gin-gonic/gin"
)

// SetupRouter configures and returns the Gin router with all routes
func SetupRouter(deps *handler.Dependencies) *gin.Engine {
	r := gin.New()

	// Middleware
	r.Use(gin.Recovery())
	r.Use(RequestIDMiddleware())
	r.Use(LoggerMiddleware(deps.Logger))
	r.Use(CORSMiddleware())

	// Health check endpoint
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"service": "nft-api-service",
		})
	})

	workHandler := handler.NewWorkHandler(deps)
	nftHandler := handler.NewNFTHandler(deps)
	importHandler := handler.NewImportHandler(deps)

	// API v1 routes
	v1 := r.Group("/api/v1")
	{
		works := v1.Group("/works")
		{
			// GET /api/v1/works - List works with status filter and cursor pagination
			works.GET("", workHandler.ListWorks)

			// POST /api/v1/works/batch - Fetch several works by id
			works.POST("/batch", workHandler.BatchGetWorks)

			// GET /api/v1/works/:work_id - Get work details
			works.GET("/:work_id", workHandler.GetWork)

			// GET /api/v1/works/:work_id/thumbnails - List thumbnails in display order
			works.GET("/:work_id/thumbnails", workHandler.ListThumbnails)

			// DELETE /api/v1/works/:work_id - Delete a work and its thumbnails
			works.DELETE("/:work_id", workHandler.DeleteWork)
		}

		nft := v1.Group("/nft")
		{
			// POST /api/v1/nft/erc721/publish - Stage a work and enqueue the mint
			nft.POST("/erc721/publish", nftHandler.PublishERC721)

			// POST /api/v1/nft/erc721/sell - List a published work
			nft.POST("/erc721/sell", nftHandler.SellERC721)

			// GET /api/v1/nft/erc721/:work_id/ownership - Does the caller hold the token
			nft.GET("/erc721/:work_id/ownership", nftHandler.OwnERC721)

			nft.POST("/erc1155/publish", nftHandler.PublishERC1155)
			nft.POST("/erc1155/sell", nftHandler.SellERC1155)
			nft.GET("/erc1155/:work_id/ownership", nftHandler.OwnERC1155)
		}

		imports := v1.Group("/imports")
		{
			// POST /api/v1/imports/works - Enqueue a work CSV import
			imports.POST("/works", importHandler.ImportWorks)

			// POST /api/v1/imports/thumbnails - Enqueue a thumbnail CSV import
			imports.POST("/thumbnails", importHandler.ImportThumbnails)
		}

		// GET /api/v1/users/me/balance - Caller's wallet balance
		v1.GET("/users/me/balance", nftHandler.GetBalance)
	}

	return r
}
