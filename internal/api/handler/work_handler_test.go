package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/canvaslab/nft-server/internal/api/dto"
	"github.com/canvaslab/nft-server/internal/apperr"
	"github.com/canvaslab/nft-server/internal/domain"
	"github.com/canvaslab/nft-server/shared/logger"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeWorkStore struct {
	works   map[string]*domain.Work
	deleted []string
}

func (f *fakeWorkStore) Get(_ context.Context, id string) (*domain.Work, error) {
	w, ok := f.works[id]
	if !ok {
		return nil, fmt.Errorf("work %s: %w", id, apperr.ErrNotFound)
	}
	return w, nil
}

func (f *fakeWorkStore) GetMulti(_ context.Context, ids []string) ([]domain.Work, error) {
	var out []domain.Work
	for _, id := range ids {
		if w, ok := f.works[id]; ok {
			out = append(out, *w)
		}
	}
	return out, nil
}

func (f *fakeWorkStore) Delete(_ context.Context, id string) error {
	delete(f.works, id)
	f.deleted = append(f.deleted, id)
	return nil
}

func (f *fakeWorkStore) List(_ context.Context, cursor string, _ int32) ([]domain.Work, string, error) {
	if cursor == "bad" {
		return nil, "", fmt.Errorf("%w: cursor", apperr.New(apperr.KindBadRequest, "invalid cursor"))
	}
	var out []domain.Work
	for _, w := range f.works {
		out = append(out, *w)
	}
	return out, "next-cursor", nil
}

func (f *fakeWorkStore) ListByStatus(_ context.Context, status domain.WorkStatus, _ string, _ int32) ([]domain.Work, string, error) {
	var out []domain.Work
	for _, w := range f.works {
		if w.Status == status {
			out = append(out, *w)
		}
	}
	return out, "", nil
}

type fakeThumbnailStore struct {
	byWork  map[string][]domain.Thumbnail
	deleted []string
}

func (f *fakeThumbnailStore) GetByWork(_ context.Context, workID, _ string, _ int32) ([]domain.Thumbnail, string, error) {
	return f.byWork[workID], "", nil
}

func (f *fakeThumbnailStore) Delete(_ context.Context, id string) error {
	f.deleted = append(f.deleted, id)
	return nil
}

func newWorkRouter(works *fakeWorkStore, thumbs *fakeThumbnailStore) *gin.Engine {
	deps := &Dependencies{
		Logger:     logger.NewDefault().Logger,
		Works:      works,
		Thumbnails: thumbs,
	}
	h := NewWorkHandler(deps)

	r := gin.New()
	r.GET("/works", h.ListWorks)
	r.POST("/works/batch", h.BatchGetWorks)
	r.GET("/works/:work_id", h.GetWork)
	r.GET("/works/:work_id/thumbnails", h.ListThumbnails)
	r.DELETE("/works/:work_id", h.DeleteWork)
	return r
}

func TestGetWork(t *testing.T) {
	works := &fakeWorkStore{works: map[string]*domain.Work{
		"w1": {ID: "w1", MediaPath: "media/w1.png", Status: domain.StatusPublished, Price: 5},
	}}
	r := newWorkRouter(works, &fakeThumbnailStore{})

	t.Run("found", func(t *testing.T) {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/works/w1", nil))

		require.Equal(t, http.StatusOK, rec.Code)

		var got dto.WorkDTO
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
		assert.Equal(t, "w1", got.ID)
		assert.Equal(t, "Published", got.Status)
	})

	t.Run("not found maps to 404", func(t *testing.T) {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/works/unknown", nil))
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestListWorks(t *testing.T) {
	works := &fakeWorkStore{works: map[string]*domain.Work{
		"w1": {ID: "w1", Status: domain.StatusPrepare},
		"w2": {ID: "w2", Status: domain.StatusPublished},
	}}
	r := newWorkRouter(works, &fakeThumbnailStore{})

	t.Run("returns page and cursor", func(t *testing.T) {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/works", nil))

		require.Equal(t, http.StatusOK, rec.Code)

		var got dto.ListWorksResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
		assert.Len(t, got.Works, 2)
		assert.Equal(t, "next-cursor", got.NextCursor)
	})

	t.Run("filters by status", func(t *testing.T) {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/works?status=Published", nil))

		require.Equal(t, http.StatusOK, rec.Code)

		var got dto.ListWorksResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
		require.Len(t, got.Works, 1)
		assert.Equal(t, "w2", got.Works[0].ID)
	})

	t.Run("unknown status is 400", func(t *testing.T) {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/works?status=Banana", nil))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("bad cursor is 400", func(t *testing.T) {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/works?cursor=bad", nil))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestBatchGetWorks(t *testing.T) {
	works := &fakeWorkStore{works: map[string]*domain.Work{
		"w1": {ID: "w1", Status: domain.StatusPrepare},
		"w2": {ID: "w2", Status: domain.StatusPublished},
	}}
	r := newWorkRouter(works, &fakeThumbnailStore{})

	t.Run("drops unknown ids and keeps order", func(t *testing.T) {
		body := strings.NewReader(`{"ids":["w2","missing","w1"]}`)
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/works/batch", body))

		require.Equal(t, http.StatusOK, rec.Code)

		var got dto.BatchGetWorksResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
		require.Len(t, got.Works, 2)
		assert.Equal(t, "w2", got.Works[0].ID)
		assert.Equal(t, "w1", got.Works[1].ID)
	})

	t.Run("status filter narrows the result", func(t *testing.T) {
		body := strings.NewReader(`{"ids":["w1","w2"],"status":"Published"}`)
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/works/batch", body))

		require.Equal(t, http.StatusOK, rec.Code)

		var got dto.BatchGetWorksResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
		require.Len(t, got.Works, 1)
		assert.Equal(t, "w2", got.Works[0].ID)
	})

	t.Run("missing ids is 400", func(t *testing.T) {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/works/batch", strings.NewReader(`{}`)))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestDeleteWork(t *testing.T) {
	works := &fakeWorkStore{works: map[string]*domain.Work{
		"w1": {ID: "w1", Status: domain.StatusPrepare},
	}}
	thumbs := &fakeThumbnailStore{byWork: map[string][]domain.Thumbnail{
		"w1": {
			{ID: "t1", WorkID: "w1"},
			{ID: "t2", WorkID: "w1"},
		},
	}}
	r := newWorkRouter(works, thumbs)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/works/w1", nil))

	require.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, []string{"w1"}, works.deleted)
	assert.Equal(t, []string{"t1", "t2"}, thumbs.deleted)
}
