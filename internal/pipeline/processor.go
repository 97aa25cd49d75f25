// Package pipeline orchestrates the runtime matching pass, the cooperative
// frame loop, and the training workflow.
package pipeline

import (
	"context"
	"errors"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/UmarMaaz/pot-hole-detector/internal/candidate"
	"github.com/UmarMaaz/pot-hole-detector/internal/embedding"
	"github.com/UmarMaaz/pot-hole-detector/internal/matcher"
	"github.com/UmarMaaz/pot-hole-detector/internal/samples"
	"github.com/UmarMaaz/pot-hole-detector/internal/vision"
)

// Processor runs one matching pass: detector → candidates → per-candidate
// region embedding → best-match scan → promotion.
type Processor struct {
	generator   *candidate.Generator
	embedder    *embedding.RegionEmbedder
	store       *samples.Store
	threshold   float64
	parallelism int
	logger      *slog.Logger
}

// NewProcessor wires a Processor. threshold <= 0 selects the default
// promotion threshold; parallelism <= 1 embeds candidates sequentially.
func NewProcessor(gen *candidate.Generator, emb *embedding.RegionEmbedder, store *samples.Store, threshold float64, parallelism int) *Processor {
	if threshold <= 0 {
		threshold = matcher.DefaultThreshold
	}
	if parallelism < 1 {
		parallelism = 1
	}
	return &Processor{
		generator:   gen,
		embedder:    emb,
		store:       store,
		threshold:   threshold,
		parallelism: parallelism,
		logger:      slog.Default(),
	}
}

// Bank returns the current learned-sample collection for display.
func (p *Processor) Bank() []samples.Sample {
	return p.store.Snapshot()
}

// Process runs one full matching pass over the frame and returns the
// Detection list. It never fails: a detector outage yields an empty list and
// a per-candidate embedding failure leaves that candidate's original
// classification in place.
func (p *Processor) Process(ctx context.Context, frame vision.Frame) []candidate.Detection {
	cands := p.generator.Generate(ctx, frame)
	if len(cands) == 0 {
		return nil
	}

	// One snapshot per pass: every candidate in this frame matches against
	// the same immutable collection.
	snapshot := p.store.Snapshot()

	detections := make([]candidate.Detection, len(cands))
	for i, c := range cands {
		typ, label := candidate.Classify(c.RawCategory)
		detections[i] = candidate.Detection{Candidate: c, Type: typ, Label: label}
	}

	if p.parallelism <= 1 {
		for i := range detections {
			p.matchOne(ctx, frame, snapshot, &detections[i])
		}
		return detections
	}

	// Candidates are independent reads of the same frame and snapshot, so a
	// bounded fan-out is safe.
	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(p.parallelism)
	for i := range detections {
		g.Go(func() error {
			p.matchOne(gCtx, frame, snapshot, &detections[i])
			return nil
		})
	}
	g.Wait()
	return detections
}

func (p *Processor) matchOne(ctx context.Context, frame vision.Frame, snapshot []samples.Sample, det *candidate.Detection) {
	if len(snapshot) == 0 {
		return
	}
	query, err := p.embedder.Embed(ctx, frame, det.Box)
	if err != nil {
		if !errors.Is(err, embedding.ErrEmbeddingUnavailable) {
			p.logger.Warn("candidate embedding failed", "category", det.RawCategory, "error", err)
		}
		return
	}
	score := matcher.Best(query, snapshot)
	matcher.Promote(det, score, p.threshold)
}
