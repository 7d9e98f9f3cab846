package quotes

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"ShortsFactory/internal/domain"
	"ShortsFactory/internal/ports"
)

// Picker implements ports.QuoteSource over a Corpus.
type Picker struct {
	corpus *Corpus
	logger *slog.Logger
}

var _ ports.QuoteSource = (*Picker)(nil)

// NewPicker builds a picker. logger may be nil.
func NewPicker(corpus *Corpus, logger *slog.Logger) *Picker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Picker{corpus: corpus, logger: logger.With("component", "quote_picker")}
}

// ForDate returns the quote already recorded for date, if any. A run that
// persisted its pick but crashed before saving the batch recovers it here.
func (p *Picker) ForDate(_ context.Context, date string) (domain.Quote, bool, error) {
	quotes, err := p.corpus.Load()
	if err != nil {
		return domain.Quote{}, false, err
	}
	sortByID(quotes)
	for _, q := range quotes {
		if q.UsedOn(date) {
			return q, true, nil
		}
	}
	return domain.Quote{}, false, nil
}

// PickNext selects a quote not yet used on date, preferring never-used quotes
// and then the least recently used one, and records date in its usage list.
// Ties go to the lowest identity.
func (p *Picker) PickNext(ctx context.Context, date string) (domain.Quote, error) {
	var picked domain.Quote

	err := p.corpus.Update(func(quotes []domain.Quote) ([]domain.Quote, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		idx := choose(quotes, date)
		if idx < 0 {
			return nil, fmt.Errorf("%w: every quote in the corpus was already used on %s", domain.ErrNoItems, date)
		}
		quotes[idx].UsedDates = append(quotes[idx].UsedDates, date)
		picked = quotes[idx]
		return quotes, nil
	})
	if err != nil {
		return domain.Quote{}, err
	}

	p.logger.Info("quote selected", "id", picked.ID, "author", picked.Author, "uses", len(picked.UsedDates))
	return picked, nil
}

// choose returns the index into quotes of the next pick or -1.
func choose(quotes []domain.Quote, date string) int {
	order := make([]int, len(quotes))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return quotes[order[a]].ID < quotes[order[b]].ID
	})

	best := -1
	bestLast := ""
	for _, i := range order {
		q := quotes[i]
		if q.UsedOn(date) {
			continue
		}
		last := q.LastUsed()
		if last == "" {
			return i
		}
		if best < 0 || last < bestLast {
			best, bestLast = i, last
		}
	}
	return best
}

func sortByID(quotes []domain.Quote) {
	sort.SliceStable(quotes, func(a, b int) bool { return quotes[a].ID < quotes[b].ID })
}
