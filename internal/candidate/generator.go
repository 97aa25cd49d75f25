package candidate

import (
	"context"
	"image"
	"log/slog"
	"time"

	"github.com/UmarMaaz/pot-hole-detector/internal/inference"
	"github.com/UmarMaaz/pot-hole-detector/internal/vision"
)

// Detector abstracts the external object-detection model.
type Detector interface {
	Detect(ctx context.Context, model string, img image.Image) ([]inference.RawDetection, error)
}

// Generator turns raw detector results into normalized Candidates.
type Generator struct {
	detector Detector
	model    string
	logger   *slog.Logger
}

// NewGenerator creates a Generator using the given detector and model name.
func NewGenerator(d Detector, model string) *Generator {
	return &Generator{
		detector: d,
		model:    model,
		logger:   slog.Default(),
	}
}

// Generate runs the detector once on the frame and returns one Candidate per
// raw detection. A detector failure yields an empty slice for this frame;
// there is no retry — the next frame retries implicitly.
func (g *Generator) Generate(ctx context.Context, frame vision.Frame) []Candidate {
	if frame.Img == nil {
		return nil
	}

	raw, err := g.detector.Detect(ctx, g.model, frame.Img)
	if err != nil {
		g.logger.Warn("detector unavailable, skipping frame", "error", err)
		return nil
	}

	now := time.Now().UTC()
	candidates := make([]Candidate, 0, len(raw))
	for _, r := range raw {
		box := vision.FromPixels(r.Box.X, r.Box.Y, r.Box.W, r.Box.H, frame.Width(), frame.Height())
		candidates = append(candidates, Candidate{
			RawCategory: r.Category,
			Score:       r.Score,
			Box:         box,
			Distance:    EstimateDistance(box.Width()),
			Timestamp:   now,
		})
	}
	return candidates
}
