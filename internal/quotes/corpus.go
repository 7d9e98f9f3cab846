// Package quotes selects daily quotes from a JSON corpus and records their
// usage dates in the same file.
package quotes

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"ShortsFactory/internal/domain"
	"ShortsFactory/internal/store"
)

// Corpus is the quote document on disk. Every mutation goes through Update,
// which reads, modifies and atomically rewrites the file in one step.
type Corpus struct {
	path string
	mu   sync.Mutex
}

// NewCorpus binds a corpus to its JSON file.
func NewCorpus(path string) *Corpus {
	return &Corpus{path: path}
}

// Path returns the backing file.
func (c *Corpus) Path() string { return c.path }

// Load returns the current corpus contents.
func (c *Corpus) Load() ([]domain.Quote, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.read()
}

// Update applies fn to the corpus and persists its result. When fn returns
// an error nothing is written.
func (c *Corpus) Update(fn func([]domain.Quote) ([]domain.Quote, error)) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	current, err := c.read()
	if err != nil {
		return err
	}
	next, err := fn(current)
	if err != nil {
		return err
	}

	raw, err := json.MarshalIndent(next, "", "  ")
	if err != nil {
		return fmt.Errorf("encode corpus: %w", err)
	}
	if err := store.WriteFileAtomic(c.path, raw); err != nil {
		return fmt.Errorf("persist corpus: %w", err)
	}
	return nil
}

func (c *Corpus) read() ([]domain.Quote, error) {
	raw, err := os.ReadFile(c.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, domain.ConfigError("quote corpus %s not found", c.path)
		}
		return nil, fmt.Errorf("read corpus: %w", err)
	}

	var quotes []domain.Quote
	if err := json.Unmarshal(raw, &quotes); err != nil {
		return nil, fmt.Errorf("decode corpus %s: %w", c.path, err)
	}
	for i := range quotes {
		if quotes[i].UsedDates == nil {
			quotes[i].UsedDates = []string{}
		}
	}
	return quotes, nil
}
