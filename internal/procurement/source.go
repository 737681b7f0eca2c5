package procurement

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"golang.org/x/sync/singleflight"
)

// Source yields the full procurement dataset.
type Source interface {
	Load(ctx context.Context) ([]Record, error)
}

// FileSource reads the dataset from a JSON file on every load. Concurrent
// loads share a single read.
type FileSource struct {
	path  string
	group singleflight.Group
}

// NewFileSource constructs a FileSource for path.
func NewFileSource(path string) *FileSource {
	return &FileSource{path: path}
}

// Path returns the dataset location.
func (s *FileSource) Path() string {
	return s.path
}

// Load decodes the dataset file.
func (s *FileSource) Load(ctx context.Context) ([]Record, error) {
	ch := s.group.DoChan(s.path, func() (interface{}, error) {
		return readDataset(s.path)
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		cached := res.Val.([]Record)
		out := make([]Record, len(cached))
		copy(out, cached)
		return out, nil
	}
}

func readDataset(path string) ([]Record, error) {
	raw, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrDatasetMissing, path)
	}
	if err != nil {
		return nil, fmt.Errorf("procurement: read dataset: %w", err)
	}
	var records []Record
	if err := json.Unmarshal(raw, &records); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDatasetInvalid, err)
	}
	if records == nil {
		records = []Record{}
	}
	return records, nil
}
