package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/UmarMaaz/pot-hole-detector/internal/candidate"
	"github.com/UmarMaaz/pot-hole-detector/internal/samples"
	"github.com/UmarMaaz/pot-hole-detector/internal/vision"
)

// FrameSource supplies frames to the loop. Next blocks until a frame is
// available and returns io.EOF when the source is exhausted.
type FrameSource interface {
	Next(ctx context.Context) (vision.Frame, error)
}

// Renderer consumes each pass's detections plus the current memory bank.
// Implementations must not mutate either argument.
type Renderer interface {
	Render(detections []candidate.Detection, bank []samples.Sample)
}

// Loop drives the runtime matching pass frame by frame. Exactly one pass is
// in flight at a time: the next frame is requested only after the previous
// pass has produced its detections, so detector and embedder latency bound
// the loop's rate — stale frames are never queued, just skipped at the
// source.
type Loop struct {
	source    FrameSource
	processor *Processor
	renderer  Renderer
	logger    *slog.Logger
}

// NewLoop wires a Loop.
func NewLoop(source FrameSource, processor *Processor, renderer Renderer) *Loop {
	return &Loop{
		source:    source,
		processor: processor,
		renderer:  renderer,
		logger:    slog.Default(),
	}
}

// Run processes frames until the source is exhausted or ctx is cancelled.
// Cancellation stops scheduling between passes; an overlapping store
// mutation is unaffected and completes on its own.
func (l *Loop) Run(ctx context.Context) error {
	frames := 0
	for {
		if err := ctx.Err(); err != nil {
			l.logger.Info("frame loop stopped", "frames", frames)
			return err
		}

		frame, err := l.source.Next(ctx)
		if errors.Is(err, io.EOF) {
			l.logger.Info("frame source exhausted", "frames", frames)
			return nil
		}
		if err != nil {
			return fmt.Errorf("reading frame: %w", err)
		}

		detections := l.processor.Process(ctx, frame)
		if l.renderer != nil {
			l.renderer.Render(detections, l.processor.Bank())
		}
		frames++
	}
}
