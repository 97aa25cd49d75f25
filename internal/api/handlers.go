// Package api exposes the hazard pipeline over HTTP: one-shot detection on
// stills, training, and the learned-sample memory bank.
package api

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/UmarMaaz/pot-hole-detector/internal/embedding"
	"github.com/UmarMaaz/pot-hole-detector/internal/pipeline"
	"github.com/UmarMaaz/pot-hole-detector/internal/samples"
	"github.com/UmarMaaz/pot-hole-detector/internal/vision"
)

const maxImageBodySize = 20 << 20 // 20MB

// Deps holds dependencies for the HTTP handler.
type Deps struct {
	Store     *samples.Store
	Trainer   *pipeline.Trainer
	Processor *pipeline.Processor
	Token     string // empty disables bearer auth
}

// NewHandler builds the chi router. /health is unauthenticated; everything
// under /api/v1 requires the bearer token when one is configured.
func NewHandler(deps Deps) http.Handler {
	r := chi.NewRouter()

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"status":  "ok",
			"store":   deps.Store.State().String(),
			"samples": deps.Store.Len(),
		})
	})

	r.Group(func(r chi.Router) {
		if deps.Token != "" {
			r.Use(BearerAuth(deps.Token))
		}
		r.Get("/api/v1/samples", handleListSamples(deps))
		r.Delete("/api/v1/samples/{id}", handleDeleteSample(deps))
		r.Post("/api/v1/detect", handleDetect(deps))
		r.Post("/api/v1/train", handleTrain(deps))
	})

	return r
}

// SampleSummary is the wire form of a learned sample; the embedding is
// reduced to its dimensionality.
type SampleSummary struct {
	ID        string    `json:"id"`
	Dim       int       `json:"dim"`
	Thumbnail []byte    `json:"thumbnail"`
	CreatedAt time.Time `json:"created_at"`
}

func handleListSamples(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		bank := deps.Store.Snapshot()
		out := make([]SampleSummary, len(bank))
		for i, s := range bank {
			out[i] = SampleSummary{
				ID:        s.ID,
				Dim:       len(s.Embedding),
				Thumbnail: s.Thumbnail,
				CreatedAt: s.CreatedAt,
			}
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func handleDeleteSample(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		// Unknown ids are a no-op by contract.
		if err := deps.Store.Delete(r.Context(), id); err != nil {
			httpError(w, http.StatusInternalServerError, "storage_error", "deleting sample: %v", err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// DetectRequest carries a base64-encoded still image.
type DetectRequest struct {
	Image string `json:"image"`
}

// DetectionResult is the wire form of one detection.
type DetectionResult struct {
	Category   string      `json:"category"`
	Score      float64     `json:"score"`
	Box        vision.Rect `json:"box"`
	Type       string      `json:"type"`
	Label      string      `json:"label"`
	Distance   float64     `json:"distance"`
	MatchScore float64     `json:"match_score,omitempty"`
}

func handleDetect(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req DetectRequest
		if !decodeBody(w, r, &req) {
			return
		}
		frame, ok := decodeFrame(w, req.Image)
		if !ok {
			return
		}

		detections := deps.Processor.Process(r.Context(), frame)
		out := make([]DetectionResult, len(detections))
		for i, d := range detections {
			out[i] = DetectionResult{
				Category:   d.RawCategory,
				Score:      d.Score,
				Box:        d.Box,
				Type:       d.Type.String(),
				Label:      d.Label,
				Distance:   d.Distance,
				MatchScore: d.MatchScore,
			}
		}
		writeJSON(w, http.StatusOK, map[string]any{"detections": out})
	}
}

// TrainRequest carries a base64-encoded image plus the operator-selected
// normalized rectangle (already corrected for display letterboxing).
type TrainRequest struct {
	Image string      `json:"image"`
	Rect  vision.Rect `json:"rect"`
}

func handleTrain(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req TrainRequest
		if !decodeBody(w, r, &req) {
			return
		}
		frame, ok := decodeFrame(w, req.Image)
		if !ok {
			return
		}

		sample, err := deps.Trainer.Train(r.Context(), frame, req.Rect)
		if errors.Is(err, embedding.ErrEmbeddingUnavailable) {
			httpError(w, http.StatusUnprocessableEntity, "invalid_request_error",
				"region too small or embedding unavailable")
			return
		}
		if err != nil {
			httpError(w, http.StatusInternalServerError, "storage_error", "training failed: %v", err)
			return
		}

		writeJSON(w, http.StatusCreated, SampleSummary{
			ID:        sample.ID,
			Dim:       len(sample.Embedding),
			Thumbnail: sample.Thumbnail,
			CreatedAt: sample.CreatedAt,
		})
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxImageBodySize)
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
		return false
	}
	return true
}

func decodeFrame(w http.ResponseWriter, encoded string) (vision.Frame, bool) {
	if encoded == "" {
		httpError(w, http.StatusBadRequest, "invalid_request_error", "image is required")
		return vision.Frame{}, false
	}
	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		httpError(w, http.StatusBadRequest, "invalid_request_error", "image is not valid base64: %v", err)
		return vision.Frame{}, false
	}
	frame, err := vision.DecodeFrame(data)
	if err != nil {
		httpError(w, http.StatusBadRequest, "invalid_request_error", "undecodable image: %v", err)
		return vision.Frame{}, false
	}
	return frame, true
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func httpError(w http.ResponseWriter, code int, errType string, format string, args ...any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	msg := fmt.Sprintf(format, args...)
	json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]any{
			"message": msg,
			"type":    errType,
		},
	})
}
