package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"ShortsFactory/internal/config"
	"ShortsFactory/internal/domain"
	"ShortsFactory/internal/ports"
)

const commentarySystem = `당신은 명언을 소개하는 유튜브 숏츠 내레이터입니다. 주어진 명언을 먼저 그대로 읽고,
그 의미와 오늘 하루에 적용할 수 있는 생각을 40초 이내 분량의 따뜻한 한국어 구어체로 덧붙이세요.
마크다운, 목록 기호, 따옴표 없이 문장만 출력합니다.`

// quoteBackground is searched when a quote has no visual keyword of its own.
const quoteBackground = "calm nature"

// QuotesOptions tune the quotes variant.
type QuotesOptions struct {
	WordsPerMinute int
	MaxTokens      int
	Title          string
	YouTube        config.YouTubeConfig
}

// QuotesVariant narrates one corpus quote per day.
type QuotesVariant struct {
	source ports.QuoteSource
	model  ports.LanguageModel
	opts   QuotesOptions
	logger *slog.Logger
}

var _ Variant = (*QuotesVariant)(nil)

func NewQuotesVariant(source ports.QuoteSource, model ports.LanguageModel, opts QuotesOptions, logger *slog.Logger) *QuotesVariant {
	if logger != nil {
		logger = logger.With("component", "quotes")
	}
	return &QuotesVariant{source: source, model: model, opts: opts, logger: logger}
}

func (v *QuotesVariant) Kind() domain.ProfileKind { return domain.KindQuotes }

// Collect reuses the quote already selected for the date, so a re-run never
// consumes a second quote, and otherwise picks the least recently used one.
func (v *QuotesVariant) Collect(ctx context.Context, run RunContext) (domain.ItemBatch, error) {
	q, ok, err := v.source.ForDate(ctx, run.Date)
	if err != nil {
		return domain.ItemBatch{}, err
	}
	if ok {
		v.info("reusing quote selected for date", "quote_id", q.ID, "date", run.Date)
	} else {
		q, err = v.source.PickNext(ctx, run.Date)
		if err != nil {
			return domain.ItemBatch{}, err
		}
		v.info("picked quote", "quote_id", q.ID, "author", q.Author)
	}

	item := domain.SourceItem{
		ID:        q.ID,
		Title:     shortQuote(q.Text),
		Text:      q.Text,
		Author:    q.Author,
		Category:  q.Category,
		SourceKey: "quotes",
		FetchOK:   true,
	}
	return domain.ItemBatch{Items: []domain.SourceItem{item}, Quote: &q}, nil
}

// Transform asks the model for a short commentary around the quote.
func (v *QuotesVariant) Transform(ctx context.Context, run RunContext, batch domain.ItemBatch) (domain.Script, error) {
	q := batch.Quote
	if q == nil {
		if len(batch.Items) == 0 {
			return domain.Script{}, fmt.Errorf("%w: batch holds no quote", domain.ErrNoItems)
		}
		it := batch.Items[0]
		q = &domain.Quote{ID: it.ID, Text: it.Text, Author: it.Author, Category: it.Category}
	}

	text, err := v.model.Generate(ctx, ports.Prompt{
		System:    commentarySystem,
		User:      fmt.Sprintf("명언: %s\n인물: %s", q.Text, q.Author),
		MaxTokens: v.opts.MaxTokens,
	})
	if err != nil {
		return domain.Script{}, fmt.Errorf("commentary: %w", err)
	}
	text = cleanScript(text)
	if text == "" {
		return domain.Script{}, fmt.Errorf("%w: %s returned an empty script", domain.ErrProviderRejected, v.model.Name())
	}

	return domain.Script{
		SourceIDs:         []string{q.ID},
		Title:             renderTitle(v.opts.Title, quoteVars(run.Date, q)),
		Text:              text,
		Quote:             q,
		EstimatedDuration: estimateDuration(text, v.opts.WordsPerMinute),
		Provider:          v.model.Name(),
	}, nil
}

// Layout keeps the quote on screen for the whole video.
func (v *QuotesVariant) Layout(date string, script domain.Script) Layout {
	l := Layout{Title: script.Title, BackgroundKeywords: [][]string{{quoteBackground}}}
	if q := script.Quote; q != nil {
		l.Caption = q.Text
		if q.Author != "" {
			l.Caption += "\n- " + q.Author
		}
		if q.Category != "" {
			l.BackgroundKeywords = [][]string{{q.Category, quoteBackground}}
		}
	}
	return l
}

func (v *QuotesVariant) Metadata(date string, script domain.Script) ports.PublishMetadata {
	yt := v.opts.YouTube
	q := script.Quote
	if q == nil {
		q = &domain.Quote{}
	}
	title := renderTitle(yt.TitleTemplate, quoteVars(date, q))

	var desc strings.Builder
	if q.Text != "" {
		fmt.Fprintf(&desc, "\"%s\"\n- %s\n\n", q.Text, q.Author)
	}
	desc.WriteString("#명언 #오늘의명언 #숏츠")

	return finishMetadata(yt, title, desc.String(), mergeTags(yt.DefaultTags, q.Author, q.Category))
}

func quoteVars(date string, q *domain.Quote) map[string]string {
	return map[string]string{
		"date":        date,
		"quote_short": shortQuote(q.Text),
		"author":      q.Author,
	}
}

func (v *QuotesVariant) info(msg string, args ...any) {
	if v.logger != nil {
		v.logger.Info(msg, args...)
	}
}
