package reconcile

import (
	"context"
	"fmt"
	"testing"

	"github.com/canvaslab/nft-server/internal/apperr"
	"github.com/canvaslab/nft-server/internal/domain"
	"github.com/canvaslab/nft-server/shared/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeLedger struct {
	names map[domain.TokenStandard][]string
}

func (f *fakeLedger) UsedTokenNames(_ context.Context, std domain.TokenStandard) ([]string, error) {
	return f.names[std], nil
}

type fakeSyncer struct {
	synced []string
	errs   map[string]error
}

func (f *fakeSyncer) SyncAsset(_ context.Context, _ domain.TokenStandard, workID string) error {
	if err := f.errs[workID]; err != nil {
		return err
	}
	f.synced = append(f.synced, workID)
	return nil
}

type fakeWorkStore struct {
	works map[string]*domain.Work
}

func (f *fakeWorkStore) Get(_ context.Context, id string) (*domain.Work, error) {
	w, ok := f.works[id]
	if !ok {
		return nil, fmt.Errorf("work %s: %w", id, apperr.ErrNotFound)
	}
	return w, nil
}

type fakeAssetStore struct {
	assets  map[string]*domain.Asset
	deleted []string
}

func (f *fakeAssetStore) ListAll(_ context.Context) ([]domain.Asset, error) {
	var out []domain.Asset
	for _, a := range f.assets {
		out = append(out, *a)
	}
	return out, nil
}

func (f *fakeAssetStore) Delete(_ context.Context, workID string) error {
	delete(f.assets, workID)
	f.deleted = append(f.deleted, workID)
	return nil
}

func TestRun(t *testing.T) {
	// Ledger knows W1 and W2; the work table holds W1 only; the asset cache
	// holds W1 and a stale W3 row. The sweep must sync W1, skip W2, and
	// drop W3.
	newFixture := func() (*Reconciler, *fakeSyncer, *fakeAssetStore) {
		syncer := &fakeSyncer{errs: map[string]error{}}
		assets := &fakeAssetStore{assets: map[string]*domain.Asset{
			"W1": {WorkID: "W1", TokenID: "1"},
			"W3": {WorkID: "W3", TokenID: "3"},
		}}

		r := NewReconciler(
			&fakeLedger{names: map[domain.TokenStandard][]string{
				domain.ERC721: {"W1", "W2"},
			}},
			syncer,
			&fakeWorkStore{works: map[string]*domain.Work{
				"W1": domain.NewWork("W1", "media/W1.png"),
			}},
			map[domain.TokenStandard]AssetStore{domain.ERC721: assets},
			logger.NewDefault().Logger,
		)
		return r, syncer, assets
	}

	t.Run("syncs known works and removes stale rows", func(t *testing.T) {
		r, syncer, assets := newFixture()

		report, err := r.Run(context.Background(), domain.ERC721)
		require.NoError(t, err)

		assert.Equal(t, 1, report.Synced)
		assert.Equal(t, 1, report.Skipped)
		assert.Equal(t, 1, report.Deleted)
		assert.Zero(t, report.Failed)

		assert.Equal(t, []string{"W1"}, syncer.synced)
		assert.Equal(t, []string{"W3"}, assets.deleted)
		assert.Contains(t, assets.assets, "W1")
	})

	t.Run("second pass is idempotent", func(t *testing.T) {
		r, syncer, assets := newFixture()

		_, err := r.Run(context.Background(), domain.ERC721)
		require.NoError(t, err)

		report, err := r.Run(context.Background(), domain.ERC721)
		require.NoError(t, err)

		assert.Equal(t, 1, report.Synced)
		assert.Zero(t, report.Deleted)
		assert.Equal(t, []string{"W1", "W1"}, syncer.synced)
		assert.Equal(t, []string{"W3"}, assets.deleted)
	})

	t.Run("sync failures are counted, not fatal", func(t *testing.T) {
		r, syncer, _ := newFixture()
		syncer.errs["W1"] = apperr.New(apperr.KindInternal, "chain unreachable")

		report, err := r.Run(context.Background(), domain.ERC721)
		require.NoError(t, err)

		assert.Zero(t, report.Synced)
		assert.Equal(t, 1, report.Failed)
		assert.Equal(t, 1, report.Deleted)
	})
}
