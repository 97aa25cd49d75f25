package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/UmarMaaz/pot-hole-detector/internal/embedding"
	"github.com/UmarMaaz/pot-hole-detector/internal/samples"
	"github.com/UmarMaaz/pot-hole-detector/internal/vision"
)

// ThumbnailSize is the edge of the square display thumbnail stored with each
// learned sample.
const ThumbnailSize = 64

// Trainer turns an operator-selected region into a persisted learned sample.
type Trainer struct {
	embedder *embedding.RegionEmbedder
	store    *samples.Store
	logger   *slog.Logger
}

// NewTrainer wires a Trainer.
func NewTrainer(emb *embedding.RegionEmbedder, store *samples.Store) *Trainer {
	return &Trainer{
		embedder: emb,
		store:    store,
		logger:   slog.Default(),
	}
}

// Train embeds the selected region at canonical patch size, renders a display
// thumbnail from the same rectangle, and inserts the resulting sample. The
// operation is atomic: any failure leaves the store untouched. The embedding
// error wraps embedding.ErrEmbeddingUnavailable so callers can distinguish
// an unusable region from a persistence failure.
func (t *Trainer) Train(ctx context.Context, frame vision.Frame, rect vision.Rect) (samples.Sample, error) {
	rect = rect.Clamp()

	vec, err := t.embedder.Embed(ctx, frame, rect)
	if err != nil {
		return samples.Sample{}, fmt.Errorf("embedding training region: %w", err)
	}

	thumb, err := vision.EncodeJPEG(frame.Patch(rect, ThumbnailSize))
	if err != nil {
		return samples.Sample{}, fmt.Errorf("encoding thumbnail: %w", err)
	}

	sample := samples.Sample{
		ID:        uuid.New().String(),
		Embedding: vec,
		Thumbnail: thumb,
		CreatedAt: time.Now().UTC(),
	}

	if err := t.store.Insert(ctx, sample); err != nil {
		return samples.Sample{}, fmt.Errorf("persisting sample: %w", err)
	}

	t.logger.Info("trained new hazard sample", "id", sample.ID, "dim", len(vec))
	return sample, nil
}
