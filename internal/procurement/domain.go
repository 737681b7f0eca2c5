package procurement

import (
	"errors"
	"fmt"

	"github.com/procurehub/procurehub/internal/shared"
)

// Record is one procurement entry as stored in the dataset file.
type Record map[string]any

// Query narrows and pages a listing.
type Query struct {
	Search  string
	Page    int
	PerPage int
}

// Page is a single window of matching records.
type Page struct {
	Items      []Record          `json:"items"`
	Pagination shared.Pagination `json:"pagination"`
}

// ReindexResult reports what a reindex did.
type ReindexResult struct {
	Records     int
	Invalidated bool
}

var (
	// ErrDatasetMissing indicates the dataset file does not exist.
	ErrDatasetMissing = fmt.Errorf("procurement dataset %w", shared.ErrNotFound)
	// ErrDatasetInvalid indicates the dataset file is not a JSON array of objects.
	ErrDatasetInvalid = errors.New("invalid JSON format")
)
