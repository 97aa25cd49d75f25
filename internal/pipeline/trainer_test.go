package pipeline

import (
	"context"
	"errors"
	"testing"

	"github.com/UmarMaaz/pot-hole-detector/internal/embedding"
	"github.com/UmarMaaz/pot-hole-detector/internal/samples"
	"github.com/UmarMaaz/pot-hole-detector/internal/vision"
)

func TestTrain(t *testing.T) {
	sidecar := &fakeSidecar{embedding: []float32{0.1, 0.2, 0.3}}
	store := samples.Open(context.Background(), nil, nullMirror{})
	tr := NewTrainer(embedding.NewRegionEmbedder(sidecar, "e", 0), store)

	sample, err := tr.Train(context.Background(), frame640(), vision.Rect{YMin: 0.1, XMin: 0.1, YMax: 0.5, XMax: 0.5})
	if err != nil {
		t.Fatalf("Train: %v", err)
	}
	if sample.ID == "" {
		t.Error("sample has no id")
	}
	if len(sample.Embedding) != 3 {
		t.Errorf("embedding dim = %d, want 3", len(sample.Embedding))
	}
	if len(sample.Thumbnail) == 0 {
		t.Error("sample has no thumbnail")
	}
	if sample.CreatedAt.IsZero() {
		t.Error("CreatedAt not set")
	}

	snap := store.Snapshot()
	if len(snap) != 1 || snap[0].ID != sample.ID {
		t.Errorf("store = %v, want trained sample at front", snap)
	}
}

func TestTrain_NewestFirst(t *testing.T) {
	sidecar := &fakeSidecar{embedding: []float32{1}}
	store := samples.Open(context.Background(), nil, nullMirror{})
	tr := NewTrainer(embedding.NewRegionEmbedder(sidecar, "e", 0), store)

	first, err := tr.Train(context.Background(), frame640(), vision.Rect{YMax: 0.5, XMax: 0.5})
	if err != nil {
		t.Fatal(err)
	}
	second, err := tr.Train(context.Background(), frame640(), vision.Rect{YMin: 0.5, XMin: 0.5, YMax: 1, XMax: 1})
	if err != nil {
		t.Fatal(err)
	}

	snap := store.Snapshot()
	if snap[0].ID != second.ID || snap[1].ID != first.ID {
		t.Errorf("order = [%s %s], want newest first", snap[0].ID, snap[1].ID)
	}
}

func TestTrain_DegenerateRegion(t *testing.T) {
	sidecar := &fakeSidecar{embedding: []float32{1}}
	store := samples.Open(context.Background(), nil, nullMirror{})
	tr := NewTrainer(embedding.NewRegionEmbedder(sidecar, "e", 0), store)

	_, err := tr.Train(context.Background(), frame640(), vision.Rect{YMin: 0.5, XMin: 0.5, YMax: 0.505, XMax: 0.505})
	if !errors.Is(err, embedding.ErrEmbeddingUnavailable) {
		t.Fatalf("err = %v, want wrapped ErrEmbeddingUnavailable", err)
	}
	if store.Len() != 0 {
		t.Error("failed training must leave the store untouched")
	}
}

func TestTrain_EmbedFailureLeavesStoreUntouched(t *testing.T) {
	sidecar := &fakeSidecar{embedErr: errors.New("down")}
	store := samples.Open(context.Background(), nil, nullMirror{})
	tr := NewTrainer(embedding.NewRegionEmbedder(sidecar, "e", 0), store)

	if _, err := tr.Train(context.Background(), frame640(), vision.Rect{YMax: 1, XMax: 1}); err == nil {
		t.Fatal("want error")
	}
	if store.Len() != 0 {
		t.Error("store must stay empty after failed training")
	}
}

type failingMirror struct{ nullMirror }

func (failingMirror) WriteAll(context.Context, []samples.Sample) error {
	return errors.New("disk full")
}

func TestTrain_PersistFailure(t *testing.T) {
	sidecar := &fakeSidecar{embedding: []float32{1}}
	store := samples.Open(context.Background(), nil, failingMirror{})
	tr := NewTrainer(embedding.NewRegionEmbedder(sidecar, "e", 0), store)

	_, err := tr.Train(context.Background(), frame640(), vision.Rect{YMax: 1, XMax: 1})
	if err == nil {
		t.Fatal("want persistence error")
	}
	if errors.Is(err, embedding.ErrEmbeddingUnavailable) {
		t.Error("persistence failure must not look like an embedding failure")
	}
	if store.Len() != 0 {
		t.Error("failed insert must not appear in the snapshot")
	}
}
