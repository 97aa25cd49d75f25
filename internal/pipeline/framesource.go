package pipeline

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/UmarMaaz/pot-hole-detector/internal/vision"
)

// Compile-time check that DirSource implements FrameSource.
var _ FrameSource = (*DirSource)(nil)

// DirSource yields the image files of a directory, in name order, as frames.
// It backs the CLI's watch mode; live camera capture stays outside the core.
type DirSource struct {
	paths  []string
	idx    int
	logger *slog.Logger
}

// NewDirSource lists the readable image files under dir.
func NewDirSource(dir string) (*DirSource, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading frame directory: %w", err)
	}

	var paths []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(e.Name())) {
		case ".jpg", ".jpeg", ".png", ".gif":
			paths = append(paths, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(paths)

	return &DirSource{paths: paths, logger: slog.Default()}, nil
}

// Next decodes and returns the next frame, skipping files that fail to
// decode. Returns io.EOF once the directory is exhausted.
func (s *DirSource) Next(ctx context.Context) (vision.Frame, error) {
	for s.idx < len(s.paths) {
		if err := ctx.Err(); err != nil {
			return vision.Frame{}, err
		}

		path := s.paths[s.idx]
		s.idx++

		data, err := os.ReadFile(path)
		if err != nil {
			s.logger.Warn("skipping unreadable frame", "path", path, "error", err)
			continue
		}
		frame, err := vision.DecodeFrame(data)
		if err != nil {
			s.logger.Warn("skipping undecodable frame", "path", path, "error", err)
			continue
		}
		return frame, nil
	}
	return vision.Frame{}, io.EOF
}
