package embedding

import (
	"context"
	"errors"
	"image"
	"testing"

	"github.com/UmarMaaz/pot-hole-detector/internal/vision"
)

type fakeModel struct {
	vec      []float32
	err      error
	gotModel string
	gotSize  int
	calls    int
}

func (f *fakeModel) Embed(_ context.Context, model string, img image.Image) ([]float32, error) {
	f.calls++
	f.gotModel = model
	f.gotSize = img.Bounds().Dx()
	return f.vec, f.err
}

func frame(w, h int) vision.Frame {
	return vision.NewFrame(image.NewRGBA(image.Rect(0, 0, w, h)))
}

func TestEmbed(t *testing.T) {
	m := &fakeModel{vec: []float32{0.1, 0.2, 0.3}}
	e := NewRegionEmbedder(m, "mobilenet-v3-embed", 0)

	vec, err := e.Embed(context.Background(), frame(640, 480), vision.Rect{YMin: 0.1, XMin: 0.1, YMax: 0.6, XMax: 0.6})
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	if len(vec) != 3 {
		t.Errorf("got %d-dim vector, want 3", len(vec))
	}
	if m.gotModel != "mobilenet-v3-embed" {
		t.Errorf("model = %q", m.gotModel)
	}
	if m.gotSize != DefaultPatchSize {
		t.Errorf("patch size = %d, want %d", m.gotSize, DefaultPatchSize)
	}
}

func TestEmbed_CustomPatchSize(t *testing.T) {
	m := &fakeModel{vec: []float32{1}}
	e := NewRegionEmbedder(m, "m", 96)

	if _, err := e.Embed(context.Background(), frame(640, 480), vision.Rect{YMax: 1, XMax: 1}); err != nil {
		t.Fatalf("Embed: %v", err)
	}
	if m.gotSize != 96 {
		t.Errorf("patch size = %d, want 96", m.gotSize)
	}
}

func TestEmbed_DegenerateRegion(t *testing.T) {
	m := &fakeModel{vec: []float32{1}}
	e := NewRegionEmbedder(m, "m", 0)

	// 0.01 of a 640px frame is 6px, under the minimum region edge.
	_, err := e.Embed(context.Background(), frame(640, 480), vision.Rect{YMin: 0.5, XMin: 0.5, YMax: 0.51, XMax: 0.51})
	if !errors.Is(err, ErrEmbeddingUnavailable) {
		t.Fatalf("err = %v, want ErrEmbeddingUnavailable", err)
	}
	if m.calls != 0 {
		t.Error("model must not be called for a degenerate region")
	}
}

func TestEmbed_ModelFailure(t *testing.T) {
	m := &fakeModel{err: errors.New("sidecar down")}
	e := NewRegionEmbedder(m, "m", 0)

	_, err := e.Embed(context.Background(), frame(640, 480), vision.Rect{YMax: 1, XMax: 1})
	if !errors.Is(err, ErrEmbeddingUnavailable) {
		t.Fatalf("err = %v, want ErrEmbeddingUnavailable", err)
	}
}

func TestEmbed_EmptyVector(t *testing.T) {
	e := NewRegionEmbedder(&fakeModel{}, "m", 0)

	_, err := e.Embed(context.Background(), frame(640, 480), vision.Rect{YMax: 1, XMax: 1})
	if !errors.Is(err, ErrEmbeddingUnavailable) {
		t.Fatalf("err = %v, want ErrEmbeddingUnavailable", err)
	}
}
