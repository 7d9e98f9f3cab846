// Package subtitle turns speech timing into contiguous subtitle cues and
// reads and writes them as SRT.
package subtitle

import (
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"ShortsFactory/internal/domain"
)

// DefaultCharsPerCue keeps a cue on one line of a vertical video.
const DefaultCharsPerCue = 15

var ErrNothingToSubtitle = errors.New("no text or timing to build subtitles from")

const breakRunes = " ,.:!?·…~"

// Build derives cues from word boundaries, or from text spread evenly over
// total when the speech backend reported none. The result starts at zero,
// ends at total (or the last boundary when total is unknown) and has no gaps
// or overlaps.
func Build(text string, boundaries []domain.WordBoundary, total time.Duration, charsPerCue int) ([]domain.Cue, error) {
	if charsPerCue <= 0 {
		charsPerCue = DefaultCharsPerCue
	}

	var raw []domain.Cue
	if len(boundaries) > 0 {
		for _, b := range boundaries {
			raw = append(raw, spread(b.Text, b.Offset, b.Duration, charsPerCue)...)
		}
	} else {
		if total <= 0 {
			return nil, ErrNothingToSubtitle
		}
		raw = spread(text, 0, total, charsPerCue)
	}
	if len(raw) == 0 {
		return nil, ErrNothingToSubtitle
	}

	return contiguous(raw, total), nil
}

// spread splits text into chunks and divides [offset, offset+dur) between
// them in proportion to their length.
func spread(text string, offset, dur time.Duration, limit int) []domain.Cue {
	chunks := Split(strings.TrimSpace(text), limit)
	if len(chunks) == 0 {
		return nil
	}

	totalChars := 0
	for _, c := range chunks {
		totalChars += utf8.RuneCountInString(c)
	}

	cues := make([]domain.Cue, 0, len(chunks))
	done := 0
	for _, c := range chunks {
		start := offset + time.Duration(int64(dur)*int64(done)/int64(totalChars))
		done += utf8.RuneCountInString(c)
		end := offset + time.Duration(int64(dur)*int64(done)/int64(totalChars))
		cues = append(cues, domain.Cue{Start: start, End: end, Text: c})
	}
	return cues
}

// contiguous snaps cue edges together: the first starts at zero, each ends
// where the next begins and the last ends at total. Cues that would collapse
// to zero length are merged into their predecessor.
func contiguous(raw []domain.Cue, total time.Duration) []domain.Cue {
	out := make([]domain.Cue, 0, len(raw))
	for _, c := range raw {
		if len(out) > 0 && c.Start <= out[len(out)-1].Start {
			prev := &out[len(out)-1]
			prev.Text += " " + c.Text
			if c.End > prev.End {
				prev.End = c.End
			}
			continue
		}
		out = append(out, c)
	}

	out[0].Start = 0
	// Boundaries past the end of the audio fold into the last cue that
	// starts before it.
	if total > 0 {
		kept := out[:1]
		for _, c := range out[1:] {
			if c.Start >= total {
				kept[len(kept)-1].Text += " " + c.Text
				continue
			}
			kept = append(kept, c)
		}
		out = kept
	}
	for i := 0; i < len(out)-1; i++ {
		out[i].End = out[i+1].Start
	}
	last := &out[len(out)-1]
	if total > last.Start {
		last.End = total
	} else if last.End <= last.Start {
		last.End = last.Start + time.Millisecond
	}

	for i := range out {
		out[i].Index = i + 1
	}
	return out
}

// Split breaks text into chunks of at most limit runes, preferring to cut
// just after punctuation or a space within the last five runes of a chunk.
func Split(text string, limit int) []string {
	if limit <= 0 {
		limit = DefaultCharsPerCue
	}
	var chunks []string
	remaining := []rune(strings.TrimSpace(text))

	for len(remaining) > limit {
		cut := limit
		for i := limit - 1; i >= limit-5 && i > 0; i-- {
			if strings.ContainsRune(breakRunes, remaining[i]) {
				cut = i + 1
				break
			}
		}
		if chunk := strings.TrimSpace(string(remaining[:cut])); chunk != "" {
			chunks = append(chunks, chunk)
		}
		remaining = []rune(strings.TrimSpace(string(remaining[cut:])))
	}
	if len(remaining) > 0 {
		chunks = append(chunks, string(remaining))
	}
	return chunks
}
