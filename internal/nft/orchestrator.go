// Package nft coordinates the publish pipeline: prepare on the API side,
// mint and sync on the worker side, sell once the token is live.
package nft

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/canvaslab/nft-server/internal/apperr"
	"github.com/canvaslab/nft-server/internal/domain"
	"github.com/canvaslab/nft-server/internal/task"
)

// WorkStore is the work persistence surface the orchestrator needs.
type WorkStore interface {
	Get(ctx context.Context, id string) (*domain.Work, error)
	Put(ctx context.Context, w *domain.Work) error
}

// UserStore resolves executor ids to wallet credentials.
type UserStore interface {
	Get(ctx context.Context, id string) (*domain.User, error)
}

// AssetStore is the minted-asset cache for one token standard.
type AssetStore interface {
	Get(ctx context.Context, workID string) (*domain.Asset, error)
	Put(ctx context.Context, a *domain.Asset) error
}

// Publisher hands encoded tasks to the message bus.
type Publisher interface {
	Publish(ctx context.Context, routingKey string, body []byte, contentType string) error
}

// Storage is the object store holding media, asset images, and metadata
// documents.
type Storage interface {
	Upload(ctx context.Context, key string, body []byte, contentType string) (string, error)
	Download(ctx context.Context, key string) ([]byte, error)
	URL(key string) string
}

// Ledger is the on-chain surface of the token contracts.
type Ledger interface {
	MintERC721(ctx context.Context, user *domain.User, workID, metadataURL string) error
	MintERC1155(ctx context.Context, user *domain.User, workID string, amount int64, metadataURL string) error
	TokenIDOf(ctx context.Context, std domain.TokenStandard, workID string) (string, error)
	ContractAddress(std domain.TokenStandard) string
}

// Marketplace is the external metadata and listing service.
type Marketplace interface {
	Asset(ctx context.Context, contract, tokenID string) (*domain.AssetMetadata, error)
	CreateSellOrder(ctx context.Context, contract, tokenID, owner string, ethPrice float64) error
}

// Orchestrator drives a work through prepare, mint, and sell.
type Orchestrator struct {
	works   WorkStore
	users   UserStore
	assets  map[domain.TokenStandard]AssetStore
	bus     Publisher
	storage Storage
	ledger  Ledger
	market  Marketplace
	logger  *slog.Logger
}

// NewOrchestrator wires the pipeline dependencies.
func NewOrchestrator(
	works WorkStore,
	users UserStore,
	assets map[domain.TokenStandard]AssetStore,
	bus Publisher,
	storage Storage,
	ledger Ledger,
	market Marketplace,
	logger *slog.Logger,
) *Orchestrator {
	return &Orchestrator{
		works:   works,
		users:   users,
		assets:  assets,
		bus:     bus,
		storage: storage,
		ledger:  ledger,
		market:  market,
		logger:  logger,
	}
}

// tokenMetadata is the document uploaded during prepare and referenced by the
// mint transaction's token URI.
type tokenMetadata struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Image       string `json:"image"`
}

func assetImageKey(std domain.TokenStandard, workID string) string {
	return fmt.Sprintf("%s_asset/%s.png", std, workID)
}

func assetMetadataKey(std domain.TokenStandard, workID string) string {
	return fmt.Sprintf("%s_asset/%s.metadata.json", std, workID)
}

// PrepareERC721 stages a work for single-edition minting and enqueues the
// mint task.
func (o *Orchestrator) PrepareERC721(ctx context.Context, executorID, workID string) error {
	metadataKey, err := o.prepare(ctx, domain.ERC721, workID)
	if err != nil {
		return err
	}

	return o.enqueue(ctx, task.MintERC721{
		ExecutorID:  executorID,
		WorkID:      workID,
		MetadataKey: metadataKey,
	})
}

// PrepareERC1155 stages a work for multi-edition minting and enqueues the
// mint task.
func (o *Orchestrator) PrepareERC1155(ctx context.Context, executorID, workID string, amount int64) error {
	if amount <= 0 {
		return apperr.Newf(apperr.KindBadRequest, "edition amount must be positive, got %d", amount)
	}

	metadataKey, err := o.prepare(ctx, domain.ERC1155, workID)
	if err != nil {
		return err
	}

	return o.enqueue(ctx, task.MintERC1155{
		ExecutorID:  executorID,
		WorkID:      workID,
		Amount:      amount,
		MetadataKey: metadataKey,
	})
}

// prepare validates the work, stages the asset image and metadata document in
// object storage, and writes the placeholder row. A work with an existing
// asset row has already been prepared; preparing it again is refused so a
// double-submitted request cannot enqueue a second mint.
func (o *Orchestrator) prepare(ctx context.Context, std domain.TokenStandard, workID string) (string, error) {
	work, err := o.works.Get(ctx, workID)
	if err != nil {
		return "", err
	}
	if work.Status != domain.StatusPrepare {
		return "", apperr.Newf(apperr.KindBadRequest, "work %s is %s, only %s works can be published", workID, work.Status, domain.StatusPrepare)
	}

	if _, err := o.assets[std].Get(ctx, workID); err == nil {
		return "", apperr.Newf(apperr.KindBadRequest, "work %s already has a pending or minted %s asset", workID, std)
	} else if !apperr.IsNotFound(err) {
		return "", err
	}

	media, err := o.storage.Download(ctx, work.MediaPath)
	if err != nil {
		return "", err
	}

	imageURL, err := o.storage.Upload(ctx, assetImageKey(std, workID), media, "image/png")
	if err != nil {
		return "", err
	}

	doc, err := json.Marshal(tokenMetadata{
		Name:  workID,
		Image: imageURL,
	})
	if err != nil {
		return "", apperr.Wrap(apperr.KindInternal, "encode token metadata", err)
	}

	metadataKey := assetMetadataKey(std, workID)
	if _, err := o.storage.Upload(ctx, metadataKey, doc, "application/json"); err != nil {
		return "", err
	}

	if err := o.assets[std].Put(ctx, domain.NewPlaceholderAsset(workID)); err != nil {
		return "", err
	}

	o.logger.Info("work staged for minting",
		slog.String("work_id", workID),
		slog.String("standard", string(std)),
	)

	return metadataKey, nil
}

func (o *Orchestrator) enqueue(ctx context.Context, t task.Task) error {
	body, err := task.Encode(t)
	if err != nil {
		return err
	}
	return o.bus.Publish(ctx, t.Kind().RoutingKey(), body, "application/json")
}

// MintERC721 executes a single-edition mint task on the worker. The work is
// loaded before the ledger call: a mint for an id the store no longer knows
// must fail here, not after gas has been spent and the id is burned into the
// contract's used-name set.
func (o *Orchestrator) MintERC721(ctx context.Context, t task.MintERC721) error {
	if _, err := o.works.Get(ctx, t.WorkID); err != nil {
		return err
	}

	user, err := o.users.Get(ctx, t.ExecutorID)
	if err != nil {
		return err
	}

	if err := o.ledger.MintERC721(ctx, user, t.WorkID, o.storage.URL(t.MetadataKey)); err != nil {
		return err
	}

	return o.SyncAsset(ctx, domain.ERC721, t.WorkID)
}

// MintERC1155 executes a multi-edition mint task on the worker.
func (o *Orchestrator) MintERC1155(ctx context.Context, t task.MintERC1155) error {
	if _, err := o.works.Get(ctx, t.WorkID); err != nil {
		return err
	}

	user, err := o.users.Get(ctx, t.ExecutorID)
	if err != nil {
		return err
	}

	if err := o.ledger.MintERC1155(ctx, user, t.WorkID, t.Amount, o.storage.URL(t.MetadataKey)); err != nil {
		return err
	}

	return o.SyncAsset(ctx, domain.ERC1155, t.WorkID)
}

// SyncAsset pulls ledger and marketplace state for a minted work into the
// asset cache and advances the work to Published. Every field written derives
// from external state, so replays converge on the same row.
//
// A zero token id or missing marketplace metadata means the mint has not
// fully propagated yet; both are reported as retryable so the bus redelivers
// instead of stranding the work.
func (o *Orchestrator) SyncAsset(ctx context.Context, std domain.TokenStandard, workID string) error {
	tokenID, err := o.ledger.TokenIDOf(ctx, std, workID)
	if err != nil {
		return err
	}
	if tokenID == "0" {
		return apperr.Retryable(apperr.Newf(apperr.KindInternal, "work %s has no %s token yet", workID, std))
	}

	contract := o.ledger.ContractAddress(std)
	md, err := o.market.Asset(ctx, contract, tokenID)
	if err != nil {
		if apperr.IsNotFound(err) {
			return apperr.Retryable(err)
		}
		return err
	}

	asset, err := o.assets[std].Get(ctx, workID)
	if err != nil {
		if !apperr.IsNotFound(err) {
			return err
		}
		asset = domain.NewPlaceholderAsset(workID)
	}

	asset.Publish(contract, tokenID, md)
	if err := o.assets[std].Put(ctx, asset); err != nil {
		return err
	}

	work, err := o.works.Get(ctx, workID)
	if err != nil {
		return err
	}
	if work.Status == domain.StatusPrepare {
		if err := work.AdvanceTo(domain.StatusPublished); err != nil {
			return err
		}
		if err := o.works.Put(ctx, work); err != nil {
			return err
		}
	}

	o.logger.Info("asset synced",
		slog.String("work_id", workID),
		slog.String("standard", string(std)),
		slog.String("token_id", tokenID),
	)

	return nil
}

// IsOwn reports whether the executor's wallet currently holds the work's
// token. A work with no token on the ledger is simply not owned.
func (o *Orchestrator) IsOwn(ctx context.Context, std domain.TokenStandard, executorID, workID string) (bool, error) {
	tokenID, err := o.ledger.TokenIDOf(ctx, std, workID)
	if err != nil {
		return false, err
	}
	if tokenID == "0" {
		return false, nil
	}

	md, err := o.market.Asset(ctx, o.ledger.ContractAddress(std), tokenID)
	if err != nil {
		return false, err
	}

	user, err := o.users.Get(ctx, executorID)
	if err != nil {
		return false, err
	}

	for _, owner := range md.OwnerAddresses {
		if strings.EqualFold(owner, user.WalletAddress) {
			return true, nil
		}
	}
	return false, nil
}

// SellERC721 opens a fixed-price listing for a published single-edition work.
func (o *Orchestrator) SellERC721(ctx context.Context, executorID, workID string, ethPrice float64) error {
	return o.sell(ctx, domain.ERC721, executorID, workID, ethPrice)
}

// SellERC1155 opens a fixed-price listing for a published multi-edition work.
func (o *Orchestrator) SellERC1155(ctx context.Context, executorID, workID string, ethPrice float64) error {
	return o.sell(ctx, domain.ERC1155, executorID, workID, ethPrice)
}

func (o *Orchestrator) sell(ctx context.Context, std domain.TokenStandard, executorID, workID string, ethPrice float64) error {
	if ethPrice <= 0 {
		return apperr.Newf(apperr.KindBadRequest, "listing price must be positive, got %f", ethPrice)
	}

	work, err := o.works.Get(ctx, workID)
	if err != nil {
		return err
	}
	if work.Status != domain.StatusPublished {
		return apperr.Newf(apperr.KindBadRequest, "work %s is %s, only %s works can be listed", workID, work.Status, domain.StatusPublished)
	}

	asset, err := o.assets[std].Get(ctx, workID)
	if err != nil {
		return err
	}
	if asset.IsPlaceholder() {
		return apperr.Newf(apperr.KindBadRequest, "work %s has no confirmed %s token", workID, std)
	}

	user, err := o.users.Get(ctx, executorID)
	if err != nil {
		return err
	}

	if err := o.market.CreateSellOrder(ctx, asset.Address, asset.TokenID, user.WalletAddress, ethPrice); err != nil {
		return err
	}

	if err := work.AdvanceTo(domain.StatusListed); err != nil {
		return err
	}
	if err := o.works.Put(ctx, work); err != nil {
		return err
	}

	o.logger.Info("work listed",
		slog.String("work_id", workID),
		slog.String("standard", string(std)),
		slog.Float64("eth_price", ethPrice),
	)

	return nil
}
