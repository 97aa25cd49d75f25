// Package embedding reduces a region of a frame to a fixed-length feature
// vector via the external embedding model.
package embedding

import (
	"context"
	"errors"
	"image"
	"log/slog"

	"github.com/UmarMaaz/pot-hole-detector/internal/vision"
)

// ErrEmbeddingUnavailable means the model produced no usable vector or the
// requested region was degenerate. Callers treat it as "skip", never as a
// fatal pipeline error.
var ErrEmbeddingUnavailable = errors.New("embedding unavailable")

const (
	// DefaultPatchSize is the canonical square patch edge. Training crops
	// and runtime query crops must use the same size or their embeddings
	// are not comparable.
	DefaultPatchSize = 224

	// MinRegionPixels is the smallest usable region edge in source pixels.
	MinRegionPixels = 10
)

// EmbedModel abstracts the external embedding model.
type EmbedModel interface {
	Embed(ctx context.Context, model string, img image.Image) ([]float32, error)
}

// RegionEmbedder crops and resamples a normalized rectangle of a frame into
// the canonical patch and embeds it.
type RegionEmbedder struct {
	model     EmbedModel
	modelName string
	patchSize int
	logger    *slog.Logger
}

// NewRegionEmbedder creates a RegionEmbedder for the given model. If
// patchSize is <= 0 the canonical default is used.
func NewRegionEmbedder(m EmbedModel, modelName string, patchSize int) *RegionEmbedder {
	if patchSize <= 0 {
		patchSize = DefaultPatchSize
	}
	return &RegionEmbedder{
		model:     m,
		modelName: modelName,
		patchSize: patchSize,
		logger:    slog.Default(),
	}
}

// PatchSize returns the canonical patch edge in pixels.
func (e *RegionEmbedder) PatchSize() int { return e.patchSize }

// Embed resamples the region into the canonical patch and invokes the
// embedding model. Returns ErrEmbeddingUnavailable when the region is
// degenerate (under MinRegionPixels per side in source pixels) or the model
// yields no vector.
func (e *RegionEmbedder) Embed(ctx context.Context, frame vision.Frame, rect vision.Rect) ([]float32, error) {
	px := frame.PixelRect(rect)
	if px.Dx() < MinRegionPixels || px.Dy() < MinRegionPixels {
		return nil, ErrEmbeddingUnavailable
	}

	patch := frame.Patch(rect, e.patchSize)
	vec, err := e.model.Embed(ctx, e.modelName, patch)
	if err != nil {
		e.logger.Debug("embed model call failed", "error", err)
		return nil, ErrEmbeddingUnavailable
	}
	if len(vec) == 0 {
		return nil, ErrEmbeddingUnavailable
	}
	return vec, nil
}
