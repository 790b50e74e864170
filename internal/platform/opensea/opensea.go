// Package opensea talks to the marketplace metadata service. All calls pass
// through a shared token-bucket limiter so concurrent workers stay under the
// service's rate limit without serializing on a fixed sleep.
package opensea

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/canvaslab/nft-server/internal/apperr"
	"github.com/canvaslab/nft-server/internal/domain"
	"golang.org/x/time/rate"
)

// Config holds marketplace client configuration.
type Config struct {
	BaseURL string
	APIKey  string
	// RequestsPerSecond caps outbound calls across all goroutines sharing
	// the client. Defaults to 2 when unset.
	RequestsPerSecond float64
	Burst             int
	Timeout           time.Duration
}

// Client queries asset metadata and places sell orders.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
	limiter *rate.Limiter
}

// NewClient builds a marketplace client from configuration.
func NewClient(cfg *Config) *Client {
	rps := cfg.RequestsPerSecond
	if rps <= 0 {
		rps = 2
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &Client{
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		http:    &http.Client{Timeout: timeout},
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
	}
}

type assetResponse struct {
	Name            string `json:"name"`
	Description     string `json:"description"`
	ImageURL        string `json:"image_url"`
	ImagePreviewURL string `json:"image_preview_url"`
	Permalink       string `json:"permalink"`
	TopOwnerships   []struct {
		Owner struct {
			Address string `json:"address"`
		} `json:"owner"`
	} `json:"top_ownerships"`
	Orders []struct {
		CurrentPrice         string `json:"current_price"`
		PaymentTokenContract struct {
			Decimals int    `json:"decimals"`
			EthPrice string `json:"eth_price"`
			UsdPrice string `json:"usd_price"`
		} `json:"payment_token_contract"`
	} `json:"orders"`
}

// Asset fetches the metadata for one minted token. A token the indexer has
// not seen yet comes back as not-found; callers that just minted should
// treat that as transient.
func (c *Client) Asset(ctx context.Context, contract, tokenID string) (*domain.AssetMetadata, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "rate limit wait", err)
	}

	url := fmt.Sprintf("%s/api/v1/asset/%s/%s/", c.baseURL, contract, tokenID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "build asset request", err)
	}
	if c.apiKey != "" {
		req.Header.Set("X-API-KEY", c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "fetch asset metadata", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("asset %s/%s: %w", contract, tokenID, apperr.ErrNotFound)
	case resp.StatusCode != http.StatusOK:
		return nil, apperr.Newf(apperr.KindInternal, "fetch asset metadata: status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "read asset response", err)
	}

	var raw assetResponse
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "decode asset response", err)
	}

	md := &domain.AssetMetadata{
		Name:            raw.Name,
		Description:     raw.Description,
		ImageURL:        raw.ImageURL,
		ImagePreviewURL: raw.ImagePreviewURL,
		Permalink:       raw.Permalink,
	}
	for _, o := range raw.TopOwnerships {
		md.OwnerAddresses = append(md.OwnerAddresses, o.Owner.Address)
	}
	if len(raw.Orders) > 0 {
		md.EthPrice, md.UsdPrice = orderPrices(
			raw.Orders[0].CurrentPrice,
			raw.Orders[0].PaymentTokenContract.Decimals,
			raw.Orders[0].PaymentTokenContract.EthPrice,
			raw.Orders[0].PaymentTokenContract.UsdPrice,
		)
	}

	return md, nil
}

// CreateSellOrder opens a fixed-price listing for the token.
func (c *Client) CreateSellOrder(ctx context.Context, contract, tokenID, owner string, ethPrice float64) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return apperr.Wrap(apperr.KindInternal, "rate limit wait", err)
	}

	payload, err := json.Marshal(map[string]any{
		"asset_contract_address": contract,
		"token_id":               tokenID,
		"maker_address":          owner,
		"eth_price":              strconv.FormatFloat(ethPrice, 'f', -1, 64),
	})
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, "encode sell order", err)
	}

	url := fmt.Sprintf("%s/api/v1/orders/", c.baseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, "build sell order request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("X-API-KEY", c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, "create sell order", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return apperr.Newf(apperr.KindInternal, "create sell order: status %d", resp.StatusCode)
	}

	return nil
}

// orderPrices converts a raw listing price in payment-token base units into
// ETH and USD. Unparseable numbers degrade to zero rather than failing the
// metadata fetch.
func orderPrices(current string, decimals int, ethRate, usdRate string) (eth, usd float64) {
	amount, err := strconv.ParseFloat(current, 64)
	if err != nil {
		return 0, 0
	}
	for i := 0; i < decimals; i++ {
		amount /= 10
	}

	if r, err := strconv.ParseFloat(ethRate, 64); err == nil {
		eth = amount * r
	}
	if r, err := strconv.ParseFloat(usdRate, 64); err == nil {
		usd = amount * r
	}
	return eth, usd
}
