// Package reconcile realigns the asset cache with ledger state. The job walks
// every token name the contract has ever minted, re-syncs the matching works,
// and drops cached rows the ledger does not back.
package reconcile

import (
	"context"
	"log/slog"

	"github.com/canvaslab/nft-server/internal/apperr"
	"github.com/canvaslab/nft-server/internal/domain"
)

// Ledger lists the token names minted per contract.
type Ledger interface {
	UsedTokenNames(ctx context.Context, std domain.TokenStandard) ([]string, error)
}

// Syncer pulls one work's ledger and marketplace state into the asset cache.
type Syncer interface {
	SyncAsset(ctx context.Context, std domain.TokenStandard, workID string) error
}

// WorkStore is the read surface over the work table.
type WorkStore interface {
	Get(ctx context.Context, id string) (*domain.Work, error)
}

// AssetStore is the per-standard asset cache.
type AssetStore interface {
	ListAll(ctx context.Context) ([]domain.Asset, error)
	Delete(ctx context.Context, workID string) error
}

// Report summarizes one reconciliation pass.
type Report struct {
	Synced  int
	Skipped int
	Failed  int
	Deleted int
}

// Reconciler runs the sweep for every token standard.
type Reconciler struct {
	ledger Ledger
	syncer Syncer
	works  WorkStore
	assets map[domain.TokenStandard]AssetStore
	logger *slog.Logger
}

// NewReconciler wires the sweep dependencies.
func NewReconciler(
	ledger Ledger,
	syncer Syncer,
	works WorkStore,
	assets map[domain.TokenStandard]AssetStore,
	logger *slog.Logger,
) *Reconciler {
	return &Reconciler{
		ledger: ledger,
		syncer: syncer,
		works:  works,
		assets: assets,
		logger: logger,
	}
}

// Run reconciles one token standard. Per-work failures are logged and counted
// but never abort the sweep; a later pass picks up what this one missed.
func (r *Reconciler) Run(ctx context.Context, std domain.TokenStandard) (*Report, error) {
	names, err := r.ledger.UsedTokenNames(ctx, std)
	if err != nil {
		return nil, err
	}

	report := &Report{}
	minted := make(map[string]bool, len(names))

	for _, workID := range names {
		minted[workID] = true

		if _, err := r.works.Get(ctx, workID); err != nil {
			if apperr.IsNotFound(err) {
				// Minted under a work that no longer exists. Nothing to
				// sync; the stale pass below clears any leftover row.
				report.Skipped++
				continue
			}
			r.logger.Error("reconcile: load work failed",
				slog.String("work_id", workID),
				slog.String("standard", string(std)),
				slog.Any("error", err),
			)
			report.Failed++
			continue
		}

		if err := r.syncer.SyncAsset(ctx, std, workID); err != nil {
			r.logger.Error("reconcile: sync failed",
				slog.String("work_id", workID),
				slog.String("standard", string(std)),
				slog.Any("error", err),
			)
			report.Failed++
			continue
		}

		report.Synced++
	}

	assets, err := r.assets[std].ListAll(ctx)
	if err != nil {
		return report, err
	}

	for _, a := range assets {
		if minted[a.WorkID] {
			continue
		}
		if err := r.assets[std].Delete(ctx, a.WorkID); err != nil {
			r.logger.Error("reconcile: delete stale asset failed",
				slog.String("work_id", a.WorkID),
				slog.String("standard", string(std)),
				slog.Any("error", err),
			)
			report.Failed++
			continue
		}
		report.Deleted++
	}

	r.logger.Info("reconcile pass finished",
		slog.String("standard", string(std)),
		slog.Int("synced", report.Synced),
		slog.Int("skipped", report.Skipped),
		slog.Int("failed", report.Failed),
		slog.Int("deleted", report.Deleted),
	)

	return report, nil
}

// RunAll reconciles every supported token standard, stopping on the first
// sweep that cannot start at all.
func (r *Reconciler) RunAll(ctx context.Context) error {
	for _, std := range domain.Standards() {
		if _, err := r.Run(ctx, std); err != nil {
			return err
		}
	}
	return nil
}
