package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"ShortsFactory/internal/config"
	"ShortsFactory/internal/domain"
	"ShortsFactory/internal/ports"
)

const (
	briefingBodyRunes    = 500
	fallbackSummaryRunes = 500
	fallbackHeadline     = "오늘의 뉴스 요약"
)

const briefingSystem = `당신은 한국어 뉴스 브리핑 편집자입니다. 주어진 기사들을 주제별로 묶어
3~5개의 세그먼트로 정리하세요. 반드시 아래 JSON 형식만 출력합니다.
{"segments":[{"headline":"짧은 제목","summary":"2~3문장 요약","keywords":["키워드"],"source_indices":[0]}]}`

const scriptSystem = `당신은 유튜브 숏츠 내레이션 작가입니다. 브리핑을 바탕으로 50초 이내로 읽을 수
있는 한국어 내레이션을 작성하세요. 인사 한 문장으로 시작하고, 마크다운이나 목록 기호 없이
자연스러운 구어체 문장만 출력합니다.`

// NewsOptions tune the news variant.
type NewsOptions struct {
	MaxItems       int
	MaxArticles    int
	MinBodyChars   int
	WordsPerMinute int
	MaxTokens      int
	Title          string
	YouTube        config.YouTubeConfig
}

// NewsVariant collects articles and turns them into a daily briefing.
type NewsVariant struct {
	collector ports.ItemCollector
	model     ports.LanguageModel
	opts      NewsOptions
	logger    *slog.Logger
}

var _ Variant = (*NewsVariant)(nil)

func NewNewsVariant(collector ports.ItemCollector, model ports.LanguageModel, opts NewsOptions, logger *slog.Logger) *NewsVariant {
	if opts.MaxArticles <= 0 {
		opts.MaxArticles = 5
	}
	if logger != nil {
		logger = logger.With("component", "news")
	}
	return &NewsVariant{collector: collector, model: model, opts: opts, logger: logger}
}

func (v *NewsVariant) Kind() domain.ProfileKind { return domain.KindNews }

// Collect gathers fresh articles from the configured sources.
func (v *NewsVariant) Collect(ctx context.Context, run RunContext) (domain.ItemBatch, error) {
	items, err := v.collector.Collect(ctx, ports.CollectRequest{MaxItems: v.opts.MaxItems, Sources: run.Sources})
	if err != nil {
		return domain.ItemBatch{}, err
	}
	return domain.ItemBatch{Items: items}, nil
}

// Transform selects articles round-robin across sources, asks the model for
// briefing segments, then for the narration script.
func (v *NewsVariant) Transform(ctx context.Context, run RunContext, batch domain.ItemBatch) (domain.Script, error) {
	top := run.Top
	if top <= 0 {
		top = v.opts.MaxArticles
	}
	articles := selectDiverse(withBody(batch.Items, v.opts.MinBodyChars), top)
	if len(articles) == 0 {
		return domain.Script{}, fmt.Errorf("%w: no article with at least %d body characters", domain.ErrNoItems, v.opts.MinBodyChars)
	}
	v.info("generating briefing", "articles", len(articles), "model", v.model.Name())

	raw, err := v.model.Generate(ctx, ports.Prompt{
		System:    briefingSystem,
		User:      formatArticles(articles),
		MaxTokens: v.opts.MaxTokens,
	})
	if err != nil {
		return domain.Script{}, fmt.Errorf("briefing: %w", err)
	}
	segments := parseSegments(raw, articles)
	if len(segments) == 1 && segments[0].Headline == fallbackHeadline {
		v.warn("briefing was not valid JSON, using raw text")
	}

	text, err := v.model.Generate(ctx, ports.Prompt{
		System:    scriptSystem,
		User:      formatBriefing(segments),
		MaxTokens: v.opts.MaxTokens,
	})
	if err != nil {
		return domain.Script{}, fmt.Errorf("script: %w", err)
	}
	text = cleanScript(text)
	if text == "" {
		return domain.Script{}, fmt.Errorf("%w: %s returned an empty script", domain.ErrProviderRejected, v.model.Name())
	}

	ids := make([]string, 0, len(articles))
	for _, a := range articles {
		ids = append(ids, a.ID)
	}
	return domain.Script{
		SourceIDs:         ids,
		Title:             renderTitle(v.opts.Title, map[string]string{"date": run.Date}),
		Text:              text,
		Segments:          segments,
		EstimatedDuration: estimateDuration(text, v.opts.WordsPerMinute),
		Provider:          v.model.Name(),
	}, nil
}

// Layout shows the title card and one background per segment.
func (v *NewsVariant) Layout(date string, script domain.Script) Layout {
	sets := make([][]string, 0, len(script.Segments))
	for _, seg := range script.Segments {
		sets = append(sets, seg.Keywords)
	}
	if len(sets) == 0 {
		sets = append(sets, nil)
	}
	return Layout{Title: script.Title, BackgroundKeywords: sets}
}

// Metadata lists segment headlines and tags the upload with their keywords.
func (v *NewsVariant) Metadata(date string, script domain.Script) ports.PublishMetadata {
	yt := v.opts.YouTube
	title := renderTitle(yt.TitleTemplate, map[string]string{"date": date})

	var desc strings.Builder
	fmt.Fprintf(&desc, "%s 오늘의 주요 뉴스 브리핑\n\n", date)
	for _, seg := range script.Segments {
		fmt.Fprintf(&desc, "• %s\n", seg.Headline)
	}
	desc.WriteString("\n#뉴스 #오늘의뉴스 #숏츠")

	return finishMetadata(yt, title, desc.String(), mergeTags(yt.DefaultTags, script.Keywords()...))
}

func withBody(items []domain.SourceItem, minChars int) []domain.SourceItem {
	var out []domain.SourceItem
	for _, it := range items {
		if utf8.RuneCountInString(it.Text) >= minChars && strings.TrimSpace(it.Text) != "" {
			out = append(out, it)
		}
	}
	return out
}

// selectDiverse takes one item per source in turn, keeping source order of
// first appearance, until limit items are chosen.
func selectDiverse(items []domain.SourceItem, limit int) []domain.SourceItem {
	var order []string
	bySource := map[string][]domain.SourceItem{}
	for _, it := range items {
		if _, ok := bySource[it.SourceKey]; !ok {
			order = append(order, it.SourceKey)
		}
		bySource[it.SourceKey] = append(bySource[it.SourceKey], it)
	}

	var out []domain.SourceItem
	for round := 0; len(out) < limit; round++ {
		added := false
		for _, key := range order {
			if len(out) >= limit {
				break
			}
			if round < len(bySource[key]) {
				out = append(out, bySource[key][round])
				added = true
			}
		}
		if !added {
			break
		}
	}
	return out
}

func formatArticles(articles []domain.SourceItem) string {
	parts := make([]string, 0, len(articles))
	for i, a := range articles {
		parts = append(parts, fmt.Sprintf("[%d] 제목: %s\n    출처: %s | 카테고리: %s\n    본문: %s",
			i, a.Title, a.SourceName, a.Category, truncateRunes(a.Text, briefingBodyRunes)))
	}
	return strings.Join(parts, "\n\n")
}

func formatBriefing(segments []domain.Segment) string {
	lines := make([]string, 0, len(segments))
	for _, s := range segments {
		lines = append(lines, fmt.Sprintf("- %s: %s", s.Headline, s.Summary))
	}
	return strings.Join(lines, "\n")
}

type briefingJSON struct {
	Segments []struct {
		Headline      string   `json:"headline"`
		Summary       string   `json:"summary"`
		Keywords      []string `json:"keywords"`
		SourceIndices []int    `json:"source_indices"`
	} `json:"segments"`
}

// parseSegments reads the outermost JSON object in raw and maps source
// indices to article IDs. Anything unparseable becomes a single segment
// carrying the raw text.
func parseSegments(raw string, articles []domain.SourceItem) []domain.Segment {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")

	var parsed briefingJSON
	if start < 0 || end <= start || json.Unmarshal([]byte(raw[start:end+1]), &parsed) != nil || len(parsed.Segments) == 0 {
		return []domain.Segment{{
			Headline: fallbackHeadline,
			Summary:  truncateRunes(strings.TrimSpace(raw), fallbackSummaryRunes),
		}}
	}

	segments := make([]domain.Segment, 0, len(parsed.Segments))
	for _, s := range parsed.Segments {
		var ids []string
		for _, idx := range s.SourceIndices {
			if idx >= 0 && idx < len(articles) {
				ids = append(ids, articles[idx].ID)
			}
		}
		segments = append(segments, domain.Segment{
			Headline:  strings.TrimSpace(s.Headline),
			Summary:   strings.TrimSpace(s.Summary),
			Keywords:  s.Keywords,
			SourceIDs: ids,
		})
	}
	return segments
}

// cleanScript strips markdown emphasis, list markers and wrapping quotes a
// model tends to add around narration.
func cleanScript(text string) string {
	text = strings.ReplaceAll(text, "**", "")
	var lines []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		line = strings.TrimLeft(line, "-*#• ")
		if line != "" {
			lines = append(lines, line)
		}
	}
	out := strings.Join(lines, " ")
	return strings.Trim(out, "\"“” ")
}

func (v *NewsVariant) info(msg string, args ...any) {
	if v.logger != nil {
		v.logger.Info(msg, args...)
	}
}

func (v *NewsVariant) warn(msg string, args ...any) {
	if v.logger != nil {
		v.logger.Warn(msg, args...)
	}
}
