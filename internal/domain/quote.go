package domain

// Quote is a corpus entry. UsedDates holds YYYY-MM-DD strings in the order
// the quote was selected; entries are only ever appended.
type Quote struct {
	ID        string   `json:"id"`
	Text      string   `json:"text"`
	Author    string   `json:"author"`
	Category  string   `json:"category,omitempty"`
	UsedDates []string `json:"used_dates"`
}

// UsedOn reports whether the quote was selected for date.
func (q Quote) UsedOn(date string) bool {
	for _, d := range q.UsedDates {
		if d == date {
			return true
		}
	}
	return false
}

// LastUsed returns the most recent usage date, or "" when never used.
func (q Quote) LastUsed() string {
	last := ""
	for _, d := range q.UsedDates {
		if d > last {
			last = d
		}
	}
	return last
}
