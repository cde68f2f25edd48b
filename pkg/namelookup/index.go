package namelookup

import (
	"context"

	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/store"
	"github.com/Ramsey-B/fern/pkg/tracing"
)

// Candidate is a normalized name of a raw record used as a matching probe.
type Candidate struct {
	Name string
	Kind models.NameKind
}

// Index loads match candidates from the name-lookup rows of the record store.
type Index struct {
	store  store.NameLookupStore
	logger ectologger.Logger
}

func NewIndex(store store.NameLookupStore, logger ectologger.Logger) *Index {
	return &Index{
		store:  store,
		logger: logger,
	}
}

// Load returns the candidates of a raw record. With structuredOnly set, nickname and
// email-derived names are left out.
func (i *Index) Load(ctx context.Context, rawRecordID int64, structuredOnly bool) ([]Candidate, error) {
	ctx, span := tracing.StartSpan(ctx, "namelookup.Index.Load")
	defer span.End()

	kinds := models.AllNameKinds
	if structuredOnly {
		kinds = models.StructuredNameKinds
	}

	rows, err := i.store.ListNameLookups(ctx, rawRecordID, kinds...)
	if err != nil {
		return nil, err
	}

	candidates := make([]Candidate, 0, len(rows))
	for _, row := range rows {
		candidates = append(candidates, Candidate{Name: row.NormalizedName, Kind: row.Kind})
	}

	i.logger.WithContext(ctx).WithFields(map[string]any{
		"raw_record_id":   rawRecordID,
		"structured_only": structuredOnly,
		"candidates":      len(candidates),
	}).Debug("Loaded match candidates")

	return candidates, nil
}

// Names returns the distinct names of the candidates.
func Names(candidates []Candidate) []string {
	seen := make(map[string]bool, len(candidates))
	names := make([]string, 0, len(candidates))
	for _, c := range candidates {
		if seen[c.Name] {
			continue
		}
		seen[c.Name] = true
		names = append(names, c.Name)
	}
	return names
}
