// Package importer loads works and thumbnails in bulk from CSV files staged
// in object storage. Columns are addressed by header name, so exports may
// reorder or append columns without breaking the import.
package importer

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"log/slog"
	"path"
	"strconv"

	"github.com/canvaslab/nft-server/internal/apperr"
	"github.com/canvaslab/nft-server/internal/domain"
)

// Storage downloads the staged CSV files.
type Storage interface {
	Download(ctx context.Context, key string) ([]byte, error)
}

// WorkStore persists imported works.
type WorkStore interface {
	Put(ctx context.Context, w *domain.Work) error
}

// ThumbnailStore persists imported thumbnails.
type ThumbnailStore interface {
	Put(ctx context.Context, th *domain.Thumbnail) error
}

// Importer runs the CSV import tasks on the worker.
type Importer struct {
	storage    Storage
	works      WorkStore
	thumbnails ThumbnailStore
	logger     *slog.Logger
}

// NewImporter wires the import dependencies.
func NewImporter(storage Storage, works WorkStore, thumbnails ThumbnailStore, logger *slog.Logger) *Importer {
	return &Importer{
		storage:    storage,
		works:      works,
		thumbnails: thumbnails,
		logger:     logger,
	}
}

// ImportWorks loads the work CSV at prefix/fileName and inserts every row in
// the initial Prepare state. Returns the number of imported rows.
func (i *Importer) ImportWorks(ctx context.Context, prefix, fileName string) (int, error) {
	rows, err := i.readCSV(ctx, prefix, fileName, []string{"ID", "MediaPath"})
	if err != nil {
		return 0, err
	}

	for n, row := range rows {
		if row["ID"] == "" {
			return n, apperr.Newf(apperr.KindBadRequest, "work CSV row %d: empty ID", n+1)
		}
		if err := i.works.Put(ctx, domain.NewWork(row["ID"], row["MediaPath"])); err != nil {
			return n, err
		}
	}

	i.logger.Info("work import finished",
		slog.String("file", path.Join(prefix, fileName)),
		slog.Int("rows", len(rows)),
	)

	return len(rows), nil
}

// ImportThumbnails loads the thumbnail CSV at prefix/fileName. Returns the
// number of imported rows.
func (i *Importer) ImportThumbnails(ctx context.Context, prefix, fileName string) (int, error) {
	rows, err := i.readCSV(ctx, prefix, fileName, []string{"ID", "WorkID", "ImagePath", "Order"})
	if err != nil {
		return 0, err
	}

	for n, row := range rows {
		if row["ID"] == "" {
			return n, apperr.Newf(apperr.KindBadRequest, "thumbnail CSV row %d: empty ID", n+1)
		}

		order, err := strconv.Atoi(row["Order"])
		if err != nil {
			return n, apperr.Wrap(apperr.KindBadRequest, fmt.Sprintf("thumbnail CSV row %d: bad Order %q", n+1, row["Order"]), err)
		}

		th := &domain.Thumbnail{
			ID:        row["ID"],
			WorkID:    row["WorkID"],
			ImagePath: row["ImagePath"],
			Order:     order,
		}
		if err := i.thumbnails.Put(ctx, th); err != nil {
			return n, err
		}
	}

	i.logger.Info("thumbnail import finished",
		slog.String("file", path.Join(prefix, fileName)),
		slog.Int("rows", len(rows)),
	)

	return len(rows), nil
}

// readCSV downloads and parses a CSV, returning one header-keyed map per
// data row. Every column in want must be present in the header.
func (i *Importer) readCSV(ctx context.Context, prefix, fileName string, want []string) ([]map[string]string, error) {
	key := path.Join(prefix, fileName)

	data, err := i.storage.Download(ctx, key)
	if err != nil {
		return nil, err
	}

	records, err := csv.NewReader(bytes.NewReader(data)).ReadAll()
	if err != nil {
		return nil, apperr.Wrap(apperr.KindBadRequest, fmt.Sprintf("parse CSV %s", key), err)
	}
	if len(records) == 0 {
		return nil, apperr.Newf(apperr.KindBadRequest, "CSV %s has no header row", key)
	}

	header := map[string]int{}
	for idx, name := range records[0] {
		header[name] = idx
	}
	for _, name := range want {
		if _, ok := header[name]; !ok {
			return nil, apperr.Newf(apperr.KindBadRequest, "CSV %s missing column %q", key, name)
		}
	}

	rows := make([]map[string]string, 0, len(records)-1)
	for _, record := range records[1:] {
		row := make(map[string]string, len(want))
		for _, name := range want {
			row[name] = record[header[name]]
		}
		rows = append(rows, row)
	}

	return rows, nil
}
