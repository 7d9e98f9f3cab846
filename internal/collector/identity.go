package collector

import (
	"crypto/sha256"
	"encoding/hex"
	"net/url"
	"regexp"
	"strings"
)

var trackingParams = map[string]bool{"ref": true}

// NormalizeURL drops tracking parameters, the fragment and a trailing slash,
// and lowercases scheme and host. Unparseable input is returned trimmed.
func NormalizeURL(raw string) string {
	raw = strings.TrimSpace(raw)
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return raw
	}

	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	u.Fragment = ""
	u.RawFragment = ""

	q := u.Query()
	for key := range q {
		if trackingParams[key] || strings.HasPrefix(strings.ToLower(key), "utm_") {
			q.Del(key)
		}
	}
	u.RawQuery = q.Encode()
	u.Path = strings.TrimSuffix(u.Path, "/")
	u.RawPath = ""

	return u.String()
}

// Identity is the dedup key of an article: the first 16 hex characters of
// the SHA-256 of its normalized URL.
func Identity(rawURL string) string {
	norm := NormalizeURL(rawURL)
	if norm == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(norm))
	return hex.EncodeToString(sum[:])[:16]
}

var (
	bracketed   = regexp.MustCompile(`\[.*?\]|\(.*?\)`)
	punctuation = regexp.MustCompile(`[^\p{L}\p{N}_\s]`)
)

// NormalizeTitle strips bracketed tags and punctuation and collapses spaces.
func NormalizeTitle(title string) string {
	title = bracketed.ReplaceAllString(title, "")
	title = punctuation.ReplaceAllString(title, "")
	return strings.Join(strings.Fields(strings.ToLower(title)), " ")
}

// TitleSimilarity is the Jaccard index of the word sets of two normalized
// titles. Empty titles are never similar.
func TitleSimilarity(a, b string) float64 {
	ta := tokenSet(a)
	tb := tokenSet(b)
	if len(ta) == 0 || len(tb) == 0 {
		return 0
	}
	inter := 0
	for tok := range ta {
		if tb[tok] {
			inter++
		}
	}
	union := len(ta) + len(tb) - inter
	return float64(inter) / float64(union)
}

func tokenSet(s string) map[string]bool {
	out := map[string]bool{}
	for _, f := range strings.Fields(s) {
		out[f] = true
	}
	return out
}
