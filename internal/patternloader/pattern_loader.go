package patternloader

import (
	"context"
	"fmt"
	"time"

	"github.com/rpattn/sheetpattern/internal/domain"
	"github.com/rpattn/sheetpattern/internal/repository"

	"github.com/google/uuid"
	"github.com/graph-gophers/dataloader"
)

// PatternLoader batches pattern lookups issued during one request.
type PatternLoader struct {
	Loader *dataloader.Loader
}

func NewPatternLoader(repo repository.PatternRepository) *PatternLoader {
	batchFn := func(ctx context.Context, keys dataloader.Keys) []*dataloader.Result {
		results := make([]*dataloader.Result, len(keys))

		// Invalid keys fail individually; the rest still go to the repository.
		ids := make([]uuid.UUID, 0, len(keys))
		for i, k := range keys {
			id, err := uuid.Parse(k.String())
			if err != nil {
				results[i] = &dataloader.Result{Error: fmt.Errorf("invalid UUID: %w", err)}
				continue
			}
			ids = append(ids, id)
		}

		patterns, err := repo.GetByIDs(ctx, ids)
		if err != nil {
			for i := range results {
				if results[i] == nil {
					results[i] = &dataloader.Result{Error: err}
				}
			}
			return results
		}

		patternMap := make(map[uuid.UUID]domain.Pattern, len(patterns))
		for _, p := range patterns {
			patternMap[p.ID] = p
		}

		for i, k := range keys {
			if results[i] != nil {
				continue
			}
			id := uuid.MustParse(k.String())
			if p, ok := patternMap[id]; ok {
				results[i] = &dataloader.Result{Data: p}
			} else {
				results[i] = &dataloader.Result{Error: fmt.Errorf("%w: %s", repository.ErrPatternNotFound, id)}
			}
		}

		return results
	}

	loader := dataloader.NewBatchedLoader(batchFn, dataloader.WithWait(5*time.Millisecond))

	return &PatternLoader{Loader: loader}
}

// Load resolves one pattern through the batch loader.
func (l *PatternLoader) Load(ctx context.Context, id uuid.UUID) (domain.Pattern, error) {
	return Load(ctx, l.Loader, id)
}

// Load resolves one pattern through loader.
func Load(ctx context.Context, loader *dataloader.Loader, id uuid.UUID) (domain.Pattern, error) {
	data, err := loader.Load(ctx, dataloader.StringKey(id.String()))()
	if err != nil {
		return domain.Pattern{}, err
	}
	pattern, ok := data.(domain.Pattern)
	if !ok {
		return domain.Pattern{}, fmt.Errorf("unexpected loader result %T", data)
	}
	return pattern, nil
}
