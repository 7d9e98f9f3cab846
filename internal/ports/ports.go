package ports

import (
	"context"
	"time"

	"ShortsFactory/internal/domain"
)

// Prompt is the context handed to a language model.
type Prompt struct {
	System      string
	User        string
	MaxTokens   int
	Temperature float64
}

// LanguageModel generates narration text. Implementations return errors
// matching domain.ErrProviderUnavailable or domain.ErrProviderRejected.
type LanguageModel interface {
	Name() string
	Generate(ctx context.Context, prompt Prompt) (string, error)
}

// Voice carries backend-neutral voice settings.
type Voice struct {
	Name         string
	Language     string
	Rate         string
	Volume       string
	SpeakingRate float64
	Pitch        float64
}

// Speech is synthesized audio plus whatever timing the backend reports.
type Speech struct {
	Audio      []byte
	Format     string
	Duration   time.Duration
	Boundaries []domain.WordBoundary
}

// SpeechSynthesizer turns text into audio. Failure kinds match LanguageModel.
type SpeechSynthesizer interface {
	Name() string
	Synthesize(ctx context.Context, text string, voice Voice) (Speech, error)
}

// DedupIndex tracks identities already collected for a profile.
type DedupIndex interface {
	Has(ctx context.Context, id string) (bool, error)
	Seen(ctx context.Context, ids []string) (map[string]bool, error)
	Add(ctx context.Context, ids ...string) error
}

// ArticleFetcher downloads the full body text of a collected item.
type ArticleFetcher interface {
	FetchBody(ctx context.Context, item domain.SourceItem) (string, error)
}

// CollectRequest narrows a collect call.
type CollectRequest struct {
	MaxItems int
	Sources  []string
}

// ItemCollector gathers fresh, deduplicated source items.
type ItemCollector interface {
	Collect(ctx context.Context, req CollectRequest) ([]domain.SourceItem, error)
}

// QuoteSource selects corpus quotes for a date.
type QuoteSource interface {
	ForDate(ctx context.Context, date string) (domain.Quote, bool, error)
	PickNext(ctx context.Context, date string) (domain.Quote, error)
}

// Prober measures media duration.
type Prober interface {
	Duration(ctx context.Context, path string) (time.Duration, error)
}

// ComposeRequest describes one video composition.
type ComposeRequest struct {
	AudioPath    string
	SubtitlePath string
	Backgrounds  []string
	OutputPath   string
	Title        string
	Caption      string
	Duration     time.Duration
}

// Composer renders the final video. Failures match domain.ErrEncoding.
type Composer interface {
	Compose(ctx context.Context, req ComposeRequest) error
}

// BackgroundSource resolves local background footage, one lookup per
// keyword set.
type BackgroundSource interface {
	Backgrounds(ctx context.Context, keywordSets [][]string) ([]string, error)
}

// PublishMetadata is the public description of an upload.
type PublishMetadata struct {
	Title       string
	Description string
	Tags        []string
	CategoryID  string
	Privacy     string
	Language    string
}

// PublishResult identifies an uploaded video on the target platform.
type PublishResult struct {
	ExternalID string
	URL        string
}

// Publisher uploads a composed video.
type Publisher interface {
	Publish(ctx context.Context, video domain.VideoOutput, meta PublishMetadata) (PublishResult, error)
}

// Notifier streams short status messages to Telegram or other channels.
type Notifier interface {
	Notify(ctx context.Context, message string) error
}

// ArtifactStore persists stage artifacts for one profile, keyed by date.
// Load methods return errors matching domain.ErrNotFound when absent.
type ArtifactStore interface {
	LoadItems(date string) (domain.ItemBatch, error)
	SaveItems(date string, batch domain.ItemBatch) error
	LoadScript(date string) (domain.Script, error)
	SaveScript(date string, script domain.Script) error
	LoadAudio(date string) (domain.AudioAsset, error)
	SaveAudio(date string, audio domain.AudioAsset) error
	LoadSubtitles(date string) (domain.SubtitleTrack, error)
	SaveSubtitles(date string, track domain.SubtitleTrack) error
	LoadVideo(date string) (domain.VideoOutput, error)
	SaveVideo(date string, video domain.VideoOutput) error
	LoadPublication(date string) (domain.Publication, error)
	SavePublication(date string, pub domain.Publication) error

	MediaPath(date, name string) string
	WriteMedia(date, name string, data []byte) (string, error)
	StagingPath(date, name string) (string, error)
	Promote(staging, final string) error
	Exists(path string) bool
}

// Scheduler controls when pipelines execute.
type Scheduler interface {
	Start(ctx context.Context, job func(time.Time)) error
	Stop(ctx context.Context) error
}
