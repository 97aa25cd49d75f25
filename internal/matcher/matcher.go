// Package matcher scores query embeddings against the learned-sample bank.
// Sample counts stay small (tens to low hundreds), so a brute-force linear
// scan per candidate is deliberate — no approximate index.
package matcher

import (
	"log/slog"
	"math"

	"github.com/UmarMaaz/pot-hole-detector/internal/candidate"
	"github.com/UmarMaaz/pot-hole-detector/internal/samples"
)

// DefaultThreshold is the promotion cutoff: scores strictly above it
// reclassify a candidate as a learned hazard.
const DefaultThreshold = 0.48

// LearnedLabel is the display label for promoted detections.
const LearnedLabel = "TRAINED HAZARD"

// Cosine returns dot(a,b) / (|a|·|b|). Mismatched lengths or a zero
// magnitude yield 0, never an error: a bad pair must not abort a matching
// pass.
func Cosine(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}
	var dot, aSq, bSq float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		aSq += float64(a[i]) * float64(a[i])
		bSq += float64(b[i]) * float64(b[i])
	}
	if aSq == 0 || bSq == 0 {
		return 0
	}
	return dot / (math.Sqrt(aSq) * math.Sqrt(bSq))
}

// Best scans the snapshot linearly and returns the highest cosine similarity
// between the query and any stored sample. An empty snapshot scores 0.
// A dimension mismatch scores 0 per pair but is logged once per call: it
// usually means the embedder model changed since the samples were trained.
func Best(query []float32, snapshot []samples.Sample) float64 {
	best := 0.0
	mismatched := false
	for _, s := range snapshot {
		if len(s.Embedding) != len(query) {
			mismatched = true
			continue
		}
		if score := Cosine(query, s.Embedding); score > best {
			best = score
		}
	}
	if mismatched {
		slog.Warn("embedding dimension mismatch against stored samples; re-train after changing the embed model",
			"query_dim", len(query))
	}
	return best
}

// Promote applies the promotion policy to a detection in place: a score
// strictly above the threshold overwrites the classification with the
// learned-hazard type, label, and confidence. At or below threshold the
// original classification stands.
func Promote(det *candidate.Detection, score, threshold float64) {
	if score <= threshold {
		return
	}
	det.Type = candidate.TypeLearned
	det.Label = LearnedLabel
	det.MatchScore = score
}
