// Package samples owns the learned-sample collection: an ordered,
// most-recent-first bank of trained hazard embeddings with dual-backend
// persistence (remote-authoritative when configured, SQLite mirror always).
package samples

import "time"

// Sample is one persisted learned hazard. Samples are immutable once
// created; the store supports insert and delete only.
type Sample struct {
	ID        string    `json:"id"`
	Embedding []float32 `json:"embedding"`
	Thumbnail []byte    `json:"thumbnail"` // encoded JPEG snippet for display
	CreatedAt time.Time `json:"created_at"`
}
