package usecase

import (
	"strings"
	"time"
	"unicode/utf8"

	"ShortsFactory/internal/config"
	"ShortsFactory/internal/ports"
)

// YouTube limits.
const (
	maxTitleRunes       = 100
	maxDescriptionRunes = 5000
	maxTags             = 30
	quoteShortRunes     = 20
)

// renderTitle substitutes {date}, {quote_short} and {author}.
func renderTitle(template string, vars map[string]string) string {
	pairs := make([]string, 0, len(vars)*2)
	for k, v := range vars {
		pairs = append(pairs, "{"+k+"}", v)
	}
	return strings.TrimSpace(strings.NewReplacer(pairs...).Replace(template))
}

// shortQuote keeps the first runes of a quote, marking the cut with "...".
func shortQuote(text string) string {
	text = strings.TrimSpace(text)
	if utf8.RuneCountInString(text) <= quoteShortRunes {
		return text
	}
	return string([]rune(text)[:quoteShortRunes]) + "..."
}

// mergeTags appends extra tags to defaults without duplicates or blanks.
func mergeTags(defaults []string, extra ...string) []string {
	seen := map[string]bool{}
	var out []string
	for _, list := range [][]string{defaults, extra} {
		for _, t := range list {
			t = strings.TrimSpace(t)
			if t == "" || seen[t] {
				continue
			}
			seen[t] = true
			out = append(out, t)
		}
	}
	return out
}

// finishMetadata applies YouTube limits and profile defaults.
func finishMetadata(yt config.YouTubeConfig, title, description string, tags []string) ports.PublishMetadata {
	if len(tags) > maxTags {
		tags = tags[:maxTags]
	}
	return ports.PublishMetadata{
		Title:       truncateRunes(title, maxTitleRunes),
		Description: truncateRunes(description, maxDescriptionRunes),
		Tags:        tags,
		CategoryID:  yt.CategoryID,
		Privacy:     yt.Privacy,
		Language:    yt.Language,
	}
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}

// estimateDuration converts a word count into speaking time.
func estimateDuration(text string, wordsPerMinute int) time.Duration {
	if wordsPerMinute <= 0 {
		wordsPerMinute = 150
	}
	words := len(strings.Fields(text))
	return time.Duration(words) * time.Minute / time.Duration(wordsPerMinute)
}
