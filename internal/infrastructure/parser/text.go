package parser

import (
	"html"
	"regexp"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var strictPolicy = bluemonday.StrictPolicy()

// boilerplate found at the edges of Korean news articles
var cleanupPatterns = []*regexp.Regexp{
	regexp.MustCompile(`[\w.-]+@[\w.-]+\.\w+`),
	regexp.MustCompile(`\[[\p{L}\s]+\s*기자\]`),
	regexp.MustCompile(`(?m)^[\p{L}\s]+\s*기자\s*=\s*`),
	regexp.MustCompile(`(?m)©.*$`),
	regexp.MustCompile(`\(사진[=:].*?\)`),
	regexp.MustCompile(`(?m)▶.*$`),
	regexp.MustCompile(`<저작권자.*`),
	regexp.MustCompile(`\[ⓒ.*?\]`),
	regexp.MustCompile(`무단\s*전재.*배포\s*금지`),
}

// PlainText strips markup from a feed fragment and collapses whitespace.
func PlainText(fragment string) string {
	text := html.UnescapeString(strictPolicy.Sanitize(fragment))
	return strings.Join(strings.Fields(text), " ")
}

// CleanBody removes bylines, copyright notices and related-link tails.
func CleanBody(text string) string {
	for _, re := range cleanupPatterns {
		text = re.ReplaceAllString(text, "")
	}
	return strings.Join(strings.Fields(text), " ")
}
