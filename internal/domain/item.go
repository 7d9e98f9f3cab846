package domain

import "time"

// ProfileKind selects the pipeline variant a profile runs.
type ProfileKind string

const (
	KindNews   ProfileKind = "news"
	KindQuotes ProfileKind = "quotes"
)

// SourceItem is a raw collected unit: a news article or a selected quote.
// ID is the deduplication key.
type SourceItem struct {
	ID          string    `json:"id"`
	URL         string    `json:"url,omitempty"`
	Title       string    `json:"title"`
	Text        string    `json:"text"`
	Summary     string    `json:"summary,omitempty"`
	Author      string    `json:"author,omitempty"`
	Category    string    `json:"category"`
	SourceKey   string    `json:"source_key"`
	SourceName  string    `json:"source_name"`
	PublishedAt time.Time `json:"published_at"`
	CollectedAt time.Time `json:"collected_at"`
	FetchOK     bool      `json:"fetch_ok"`
	FetchError  string    `json:"fetch_error,omitempty"`
}

// ItemBatch is the persisted output of the collect stage.
type ItemBatch struct {
	ID        string       `json:"id"`
	Profile   string       `json:"profile"`
	Date      string       `json:"date"`
	Items     []SourceItem `json:"items"`
	Quote     *Quote       `json:"quote,omitempty"`
	CreatedAt time.Time    `json:"created_at"`
}

// IDs lists item identities in batch order.
func (b ItemBatch) IDs() []string {
	ids := make([]string, 0, len(b.Items))
	for _, it := range b.Items {
		ids = append(ids, it.ID)
	}
	return ids
}
