package indexer

import (
	"context"

	"go.uber.org/zap"

	"github.com/hyperjump/voxkb/internal/models"
	"github.com/hyperjump/voxkb/internal/storage"
)

// Status reports counts, the embedder in use and the on-disk footprint of
// diskPaths.
func (idx *Indexer) Status(ctx context.Context, diskPaths ...string) *models.StatusResponse {
	stats := idx.store.Stats()
	st := &models.StatusResponse{
		Status:     "ok",
		Documents:  stats.Documents,
		Chunks:     stats.Chunks,
		Dimensions: stats.Dimensions,
		IndexType:  stats.IndexType,
		Embedder:   idx.embedder.ModelName(),
	}
	if err := idx.store.Recovered(); err != nil {
		st.Status = "recovered"
		st.Recovered = err.Error()
	}
	if disk, err := storage.DiskUsageBytes(diskPaths...); err == nil {
		st.DiskBytes = disk
	} else {
		idx.logger.Warn("disk usage failed", zap.Error(err))
	}
	if idx.registry != nil {
		if n, err := idx.registry.Count(ctx); err == nil {
			st.Uploads = int(n)
		} else {
			idx.logger.Warn("count uploads failed", zap.Error(err))
		}
	}
	return st
}
