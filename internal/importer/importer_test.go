package importer

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

type fakeStorage struct {
	objects map[string][]byte
}

func (f *fakeStorage) Download(_ context.Context, key string) ([]byte, error) {
	data, ok := f.objects[key]
	if !ok {
		return nil, fmt.Errorf("object %s: %w", key, apperr.ErrNotFound)
	}
	return data, nil
}

type fakeWorkStore struct {
	works []*domain.Work
}

func (f *fakeWorkStore) Put(_ context.Context, w *domain.Work) error {
	f.works = append(f.works, w)
	return nil
}

type fakeThumbnailStore struct {
	thumbnails []*domain.Thumbnail
}

func (f *fakeThumbnailStore) Put(_ context.Context, th *domain.Thumbnail) error {
	f.thumbnails = append(f.thumbnails, th)
	return nil
}

func newImporter(objects map[string][]byte) (*Importer, *fakeWorkStore, *fakeThumbnailStore) {
	works := &fakeWorkStore{}
	thumbnails := &fakeThumbnailStore{}
	imp := NewImporter(&fakeStorage{objects: objects}, works, thumbnails, logger.NewDefault().Logger)
	return imp, works, thumbnails
}

func TestImportWorks(t *testing.T) {
	t.Run("imports rows in Prepare state", func(t *testing.T) {
		imp, works, _ := newImporter(map[string][]byte{
			"imports/works.csv": []byte("ID,MediaPath\nw1,media/w1.png\nw2,media/w2.png\n"),
		})

		n, err := imp.ImportWorks(context.Background(), "imports", "works.csv")
		require.NoError(t, err)
		assert.Equal(t, 2, n)

		require.Len(t, works.works, 2)
		assert.Equal(t, "w1", works.works[0].ID)
		assert.Equal(t, "media/w1.png", works.works[0].MediaPath)
		assert.Equal(t, domain.StatusPrepare, works.works[0].Status)
	})

	t.Run("tolerates reordered and extra columns", func(t *testing.T) {
		imp, works, _ := newImporter(map[string][]byte{
			"imports/works.csv": []byte("Notes,MediaPath,ID\nfirst,media/w1.png,w1\n"),
		})

		n, err := imp.ImportWorks(context.Background(), "imports", "works.csv")
		require.NoError(t, err)
		assert.Equal(t, 1, n)
		assert.Equal(t, "w1", works.works[0].ID)
	})

	t.Run("missing column is a bad request", func(t *testing.T) {
		imp, _, _ := newImporter(map[string][]byte{
			"imports/works.csv": []byte("ID\nw1\n"),
		})

		_, err := imp.ImportWorks(context.Background(), "imports", "works.csv")
		require.Error(t, err)
		assert.True(t, apperr.IsBadRequest(err))
	})

	t.Run("missing file is not found", func(t *testing.T) {
		imp, _, _ := newImporter(nil)

		_, err := imp.ImportWorks(context.Background(), "imports", "works.csv")
		require.Error(t, err)
		assert.True(t, apperr.IsNotFound(err))
	})
}

func TestImportThumbnails(t *testing.T) {
	t.Run("imports ordered thumbnails", func(t *testing.T) {
		imp, _, thumbnails := newImporter(map[string][]byte{
			"imports/thumbs.csv": []byte("ID,WorkID,ImagePath,Order\nt1,w1,thumbs/t1.png,0\nt2,w1,thumbs/t2.png,1\n"),
		})

		n, err := imp.ImportThumbnails(context.Background(), "imports", "thumbs.csv")
		require.NoError(t, err)
		assert.Equal(t, 2, n)

		require.Len(t, thumbnails.thumbnails, 2)
		assert.Equal(t, "w1", thumbnails.thumbnails[0].WorkID)
		assert.Equal(t, 0, thumbnails.thumbnails[0].Order)
		assert.Equal(t, 1, thumbnails.thumbnails[1].Order)
	})

	t.Run("non-numeric order is a bad request", func(t *testing.T) {
		imp, _, _ := newImporter(map[string][]byte{
			"imports/thumbs.csv": []byte("ID,WorkID,ImagePath,Order\nt1,w1,thumbs/t1.png,first\n"),
		})

		_, err := imp.ImportThumbnails(context.Background(), "imports", "thumbs.csv")
		require.Error(t, err)
		assert.True(t, apperr.IsBadRequest(err))
	})
}
