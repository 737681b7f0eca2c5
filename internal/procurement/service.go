package procurement

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"
	"golang.org/x/text/cases"

	"github.com/procurehub/procurehub/internal/shared"
)

// Service serves searchable, paginated views of the procurement dataset.
type Service struct {
	source Source
	cache  *Cache
	logger *slog.Logger
}

// NewService constructs the listing service. cache may be nil.
func NewService(source Source, cache *Cache, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{source: source, cache: cache, logger: logger}
}

// List returns the requested page of records matching q.Search.
func (s *Service) List(ctx context.Context, q Query) (Page, error) {
	search := s.fold(strings.TrimSpace(q.Search))
	window := shared.NewPagination(q.Page, q.PerPage, 0)

	key, err := s.cache.BuildKey(ctx, "procurement", "list", search, strconv.Itoa(window.Page), strconv.Itoa(window.PerPage))
	if err != nil {
		s.logger.Warn("procurement cache unavailable", slog.Any("error", err))
		return s.page(ctx, search, window)
	}

	var page Page
	err = s.cache.FetchJSON(ctx, key, &page, func(ctx context.Context) (any, error) {
		return s.page(ctx, search, window)
	})
	switch {
	case err == nil:
		return page, nil
	case isDatasetError(err), errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return Page{}, err
	default:
		s.logger.Warn("procurement cache unavailable", slog.Any("error", err))
		return s.page(ctx, search, window)
	}
}

// Reindex reloads the dataset and invalidates cached pages when its content
// changed since the last reindex. force invalidates unconditionally.
func (s *Service) Reindex(ctx context.Context, force bool) (ReindexResult, error) {
	records, err := s.source.Load(ctx)
	if err != nil {
		return ReindexResult{}, err
	}
	result := ReindexResult{Records: len(records)}
	fp, err := fingerprint(records)
	if err != nil {
		return ReindexResult{}, err
	}
	prev, err := s.cache.Fingerprint(ctx)
	if err != nil {
		return ReindexResult{}, fmt.Errorf("procurement: read fingerprint: %w", err)
	}
	if !force && prev != "" && prev == fp {
		s.logger.Info("procurement dataset unchanged", slog.Int("records", result.Records))
		return result, nil
	}

	version, err := s.cache.Bump(ctx)
	if err != nil {
		return ReindexResult{}, fmt.Errorf("procurement: bump cache: %w", err)
	}
	if err := s.cache.SetFingerprint(ctx, fp); err != nil {
		return ReindexResult{}, fmt.Errorf("procurement: store fingerprint: %w", err)
	}
	result.Invalidated = true
	s.logger.Info("procurement dataset reindexed",
		slog.Int("records", result.Records),
		slog.Int64("cache_version", version),
		slog.Bool("force", force),
	)
	return result, nil
}

// fingerprint digests the decoded dataset. encoding/json sorts map keys, so
// equal content always yields the same digest.
func fingerprint(records []Record) (string, error) {
	raw, err := json.Marshal(records)
	if err != nil {
		return "", fmt.Errorf("procurement: fingerprint dataset: %w", err)
	}
	return strconv.FormatUint(xxhash.Sum64(raw), 16), nil
}

func (s *Service) page(ctx context.Context, search string, window shared.Pagination) (Page, error) {
	records, err := s.source.Load(ctx)
	if err != nil {
		return Page{}, err
	}
	matched := records
	if search != "" {
		matched = make([]Record, 0, len(records))
		for _, rec := range records {
			if s.matches(rec, search) {
				matched = append(matched, rec)
			}
		}
	}
	p := shared.NewPagination(window.Page, window.PerPage, len(matched))
	start, end := p.Bounds(len(matched))
	items := make([]Record, 0, end-start)
	items = append(items, matched[start:end]...)
	return Page{Items: items, Pagination: p}, nil
}

func (s *Service) matches(rec Record, search string) bool {
	for _, v := range rec {
		if s.containsValue(v, search) {
			return true
		}
	}
	return false
}

func (s *Service) containsValue(v any, search string) bool {
	switch val := v.(type) {
	case string:
		return strings.Contains(s.fold(val), search)
	case map[string]any:
		return s.matches(Record(val), search)
	case []any:
		for _, item := range val {
			if s.containsValue(item, search) {
				return true
			}
		}
	}
	return false
}

// fold applies Unicode case folding. Casers are stateful, so each call gets its own.
func (s *Service) fold(v string) string {
	return cases.Fold().String(v)
}

func isDatasetError(err error) bool {
	return errors.Is(err, ErrDatasetMissing) || errors.Is(err, ErrDatasetInvalid)
}
