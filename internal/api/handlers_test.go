package api

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"image"
	"image/png"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/UmarMaaz/pot-hole-detector/internal/candidate"
	"github.com/UmarMaaz/pot-hole-detector/internal/embedding"
	"github.com/UmarMaaz/pot-hole-detector/internal/inference"
	"github.com/UmarMaaz/pot-hole-detector/internal/pipeline"
	"github.com/UmarMaaz/pot-hole-detector/internal/samples"
	"github.com/UmarMaaz/pot-hole-detector/internal/vision"
)

func trainRect() vision.Rect {
	return vision.Rect{YMin: 0.1, XMin: 0.1, YMax: 0.6, XMax: 0.6}
}

// tinyRect covers well under the minimum embeddable region of a 640x480 frame.
func tinyRect() vision.Rect {
	return vision.Rect{YMin: 0.5, XMin: 0.5, YMax: 0.505, XMax: 0.505}
}

type memMirror struct{}

func (memMirror) ReadAll(context.Context) ([]samples.Sample, error) { return nil, nil }
func (memMirror) WriteAll(context.Context, []samples.Sample) error  { return nil }

// fakeSidecar serves as both detector and embed model for handler tests.
type fakeSidecar struct {
	detections []inference.RawDetection
	embedding  []float32
}

func (f *fakeSidecar) Detect(context.Context, string, image.Image) ([]inference.RawDetection, error) {
	return f.detections, nil
}

func (f *fakeSidecar) Embed(context.Context, string, image.Image) ([]float32, error) {
	return f.embedding, nil
}

func newTestDeps(t *testing.T, sidecar *fakeSidecar, token string) Deps {
	t.Helper()
	store := samples.Open(context.Background(), nil, memMirror{})
	emb := embedding.NewRegionEmbedder(sidecar, "e", 0)
	gen := candidate.NewGenerator(sidecar, "d")
	return Deps{
		Store:     store,
		Trainer:   pipeline.NewTrainer(emb, store),
		Processor: pipeline.NewProcessor(gen, emb, store, 0, 1),
		Token:     token,
	}
}

func encodeTestImage(t *testing.T, w, h int) string {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, w, h))); err != nil {
		t.Fatal(err)
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes())
}

func doJSON(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatal(err)
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	h := NewHandler(newTestDeps(t, &fakeSidecar{}, ""))

	rec := doJSON(t, h, http.MethodGet, "/health", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var body struct {
		Status  string `json:"status"`
		Store   string `json:"store"`
		Samples int    `json:"samples"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body.Status != "ok" || body.Store != "ready" {
		t.Errorf("body = %+v", body)
	}
}

func TestBearerAuth(t *testing.T) {
	h := NewHandler(newTestDeps(t, &fakeSidecar{}, "secret"))

	rec := doJSON(t, h, http.MethodGet, "/api/v1/samples", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("no token: status = %d, want 401", rec.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/samples", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("wrong token: status = %d, want 401", rec.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/v1/samples", nil)
	req.Header.Set("Authorization", "Bearer secret")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("good token: status = %d, want 200", rec.Code)
	}

	// Health stays open regardless.
	if rec := doJSON(t, h, http.MethodGet, "/health", nil); rec.Code != http.StatusOK {
		t.Errorf("health status = %d, want 200", rec.Code)
	}
}

func TestTrainThenListThenDelete(t *testing.T) {
	sidecar := &fakeSidecar{embedding: []float32{0.1, 0.2}}
	h := NewHandler(newTestDeps(t, sidecar, ""))

	rec := doJSON(t, h, http.MethodPost, "/api/v1/train", TrainRequest{
		Image: encodeTestImage(t, 640, 480),
		Rect:  trainRect(),
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("train status = %d: %s", rec.Code, rec.Body.String())
	}
	var created SampleSummary
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatal(err)
	}
	if created.ID == "" || created.Dim != 2 {
		t.Errorf("created = %+v", created)
	}

	rec = doJSON(t, h, http.MethodGet, "/api/v1/samples", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("list status = %d", rec.Code)
	}
	var listed []SampleSummary
	if err := json.Unmarshal(rec.Body.Bytes(), &listed); err != nil {
		t.Fatal(err)
	}
	if len(listed) != 1 || listed[0].ID != created.ID {
		t.Errorf("listed = %+v", listed)
	}

	rec = doJSON(t, h, http.MethodDelete, "/api/v1/samples/"+created.ID, nil)
	if rec.Code != http.StatusNoContent {
		t.Errorf("delete status = %d, want 204", rec.Code)
	}

	rec = doJSON(t, h, http.MethodDelete, "/api/v1/samples/unknown", nil)
	if rec.Code != http.StatusNoContent {
		t.Errorf("delete unknown id status = %d, want 204 (no-op)", rec.Code)
	}
}

func TestTrain_RegionTooSmall(t *testing.T) {
	sidecar := &fakeSidecar{embedding: []float32{1}}
	h := NewHandler(newTestDeps(t, sidecar, ""))

	rec := doJSON(t, h, http.MethodPost, "/api/v1/train", TrainRequest{
		Image: encodeTestImage(t, 640, 480),
		Rect:  tinyRect(),
	})
	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("status = %d, want 422: %s", rec.Code, rec.Body.String())
	}
}

func TestDetect(t *testing.T) {
	sidecar := &fakeSidecar{detections: []inference.RawDetection{
		{Category: "person", Score: 0.8, Box: inference.Box{X: 50, Y: 50, W: 100, H: 200}},
	}}
	h := NewHandler(newTestDeps(t, sidecar, ""))

	rec := doJSON(t, h, http.MethodPost, "/api/v1/detect", DetectRequest{
		Image: encodeTestImage(t, 640, 480),
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	var body struct {
		Detections []DetectionResult `json:"detections"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if len(body.Detections) != 1 {
		t.Fatalf("got %d detections, want 1", len(body.Detections))
	}
	d := body.Detections[0]
	if d.Type != "PEDESTRIAN" || d.Label != "PEDESTRIAN" || d.Category != "person" {
		t.Errorf("detection = %+v", d)
	}
	if d.Distance <= 0 {
		t.Errorf("Distance = %f, want > 0", d.Distance)
	}
}

func TestDetect_BadRequests(t *testing.T) {
	h := NewHandler(newTestDeps(t, &fakeSidecar{}, ""))

	if rec := doJSON(t, h, http.MethodPost, "/api/v1/detect", DetectRequest{}); rec.Code != http.StatusBadRequest {
		t.Errorf("missing image: status = %d, want 400", rec.Code)
	}
	if rec := doJSON(t, h, http.MethodPost, "/api/v1/detect", DetectRequest{Image: "!!!"}); rec.Code != http.StatusBadRequest {
		t.Errorf("invalid base64: status = %d, want 400", rec.Code)
	}
	bogus := base64.StdEncoding.EncodeToString([]byte("not an image"))
	if rec := doJSON(t, h, http.MethodPost, "/api/v1/detect", DetectRequest{Image: bogus}); rec.Code != http.StatusBadRequest {
		t.Errorf("undecodable image: status = %d, want 400", rec.Code)
	}
}
