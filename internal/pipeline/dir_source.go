package pipeline

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// DirSource replays a directory of JPEG files as a frame sequence,
// ordered by file name. Useful for image-sequence exports and tests.
type DirSource struct {
	dir   string
	files []string
	pos   int
	seq   uint64
}

// NewDirSource lists the JPEG files in dir. An empty directory is an
// error: the session cannot start without a readable frame source.
func NewDirSource(dir string) (*DirSource, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read frame directory: %w", err)
	}

	var files []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if ext == ".jpg" || ext == ".jpeg" {
			files = append(files, filepath.Join(dir, entry.Name()))
		}
	}
	sort.Strings(files)

	if len(files) == 0 {
		return nil, fmt.Errorf("no JPEG frames found in %s", dir)
	}

	return &DirSource{dir: dir, files: files}, nil
}

// Next returns the next frame file. Unreadable files are skipped.
func (s *DirSource) Next(ctx context.Context) (*FrameData, error) {
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if s.pos >= len(s.files) {
			return nil, io.EOF
		}

		path := s.files[s.pos]
		s.pos++

		data, err := os.ReadFile(path)
		if err != nil {
			log.Printf("[FrameSource] Skipping unreadable frame %s: %v", path, err)
			continue
		}

		s.seq++
		return &FrameData{
			Source:    s.dir,
			Data:      data,
			Seq:       s.seq,
			Timestamp: time.Now(),
		}, nil
	}
}

// Close is a no-op; the source holds no resources between frames.
func (s *DirSource) Close() error {
	return nil
}

var _ FrameSource = (*DirSource)(nil)
