package subtitle

import (
	"bufio"
	"bytes"
	"fmt"
	"strconv"
	"strings"
	"time"

	"ShortsFactory/internal/domain"
)

// FormatSRT renders cues in SubRip format.
func FormatSRT(cues []domain.Cue) []byte {
	var b bytes.Buffer
	for i, c := range cues {
		idx := c.Index
		if idx == 0 {
			idx = i + 1
		}
		fmt.Fprintf(&b, "%d\n%s --> %s\n%s\n\n", idx, formatTimestamp(c.Start), formatTimestamp(c.End), c.Text)
	}
	return b.Bytes()
}

// ParseSRT reads SubRip cues. Multi-line cue text is joined with spaces.
func ParseSRT(data []byte) ([]domain.Cue, error) {
	var (
		cues    []domain.Cue
		current *domain.Cue
		lines   []string
		state   int // 0 index, 1 timing, 2 text
	)

	flush := func() {
		if current != nil {
			current.Text = strings.Join(lines, " ")
			cues = append(cues, *current)
		}
		current, lines, state = nil, nil, 0
	}

	scanner := bufio.NewScanner(bytes.NewReader(bytes.TrimPrefix(data, []byte("\ufeff"))))
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		switch state {
		case 0:
			if line == "" {
				continue
			}
			idx, err := strconv.Atoi(line)
			if err != nil {
				return nil, fmt.Errorf("srt line %d: bad cue index %q", lineNo, line)
			}
			current = &domain.Cue{Index: idx}
			state = 1
		case 1:
			start, end, ok := strings.Cut(line, "-->")
			if !ok {
				return nil, fmt.Errorf("srt line %d: bad timing %q", lineNo, line)
			}
			var err error
			if current.Start, err = parseTimestamp(start); err != nil {
				return nil, fmt.Errorf("srt line %d: %w", lineNo, err)
			}
			if current.End, err = parseTimestamp(end); err != nil {
				return nil, fmt.Errorf("srt line %d: %w", lineNo, err)
			}
			state = 2
		case 2:
			if line == "" {
				flush()
				continue
			}
			lines = append(lines, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read srt: %w", err)
	}
	if state == 2 {
		flush()
	}
	return cues, nil
}

// Boundaries converts parsed cues into speech timing.
func Boundaries(cues []domain.Cue) []domain.WordBoundary {
	out := make([]domain.WordBoundary, 0, len(cues))
	for _, c := range cues {
		out = append(out, domain.WordBoundary{Text: c.Text, Offset: c.Start, Duration: c.End - c.Start})
	}
	return out
}

func formatTimestamp(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	ms := d.Milliseconds()
	h := ms / 3_600_000
	ms %= 3_600_000
	m := ms / 60_000
	ms %= 60_000
	s := ms / 1_000
	ms %= 1_000
	return fmt.Sprintf("%02d:%02d:%02d,%03d", h, m, s, ms)
}

func parseTimestamp(raw string) (time.Duration, error) {
	raw = strings.TrimSpace(strings.Replace(raw, ".", ",", 1))
	var h, m, s, ms int
	if _, err := fmt.Sscanf(raw, "%d:%d:%d,%d", &h, &m, &s, &ms); err != nil {
		return 0, fmt.Errorf("bad timestamp %q", raw)
	}
	return time.Duration(h)*time.Hour +
		time.Duration(m)*time.Minute +
		time.Duration(s)*time.Second +
		time.Duration(ms)*time.Millisecond, nil
}
