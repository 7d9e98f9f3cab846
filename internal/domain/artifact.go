package domain

import "time"

// Segment is one topic of a news briefing.
type Segment struct {
	Headline  string   `json:"headline"`
	Summary   string   `json:"summary"`
	Keywords  []string `json:"keywords,omitempty"`
	SourceIDs []string `json:"source_ids,omitempty"`
}

// Script is the narration text derived from a collected batch.
type Script struct {
	ID                string        `json:"id"`
	BatchID           string        `json:"batch_id"`
	SourceIDs         []string      `json:"source_ids"`
	Title             string        `json:"title"`
	Text              string        `json:"text"`
	Segments          []Segment     `json:"segments,omitempty"`
	Quote             *Quote        `json:"quote,omitempty"`
	EstimatedDuration time.Duration `json:"estimated_duration"`
	Provider          string        `json:"provider"`
	CreatedAt         time.Time     `json:"created_at"`
}

// Keywords flattens segment keywords without duplicates.
func (s Script) Keywords() []string {
	seen := map[string]struct{}{}
	var out []string
	for _, seg := range s.Segments {
		for _, kw := range seg.Keywords {
			if _, ok := seen[kw]; ok || kw == "" {
				continue
			}
			seen[kw] = struct{}{}
			out = append(out, kw)
		}
	}
	return out
}

// WordBoundary is a timed span of spoken text reported by a speech backend.
type WordBoundary struct {
	Text     string        `json:"text"`
	Offset   time.Duration `json:"offset"`
	Duration time.Duration `json:"duration"`
}

// AudioAsset references synthesized speech derived from exactly one Script.
type AudioAsset struct {
	ID         string         `json:"id"`
	ScriptID   string         `json:"script_id"`
	Path       string         `json:"path"`
	Duration   time.Duration  `json:"duration"`
	Provider   string         `json:"provider"`
	Boundaries []WordBoundary `json:"boundaries,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
}

// Cue is a single subtitle line.
type Cue struct {
	Index int           `json:"index"`
	Start time.Duration `json:"start"`
	End   time.Duration `json:"end"`
	Text  string        `json:"text"`
}

// SubtitleTrack covers the whole audio duration with contiguous cues.
type SubtitleTrack struct {
	ID        string    `json:"id"`
	AudioID   string    `json:"audio_id"`
	ScriptID  string    `json:"script_id"`
	Path      string    `json:"path"`
	Cues      []Cue     `json:"cues"`
	CreatedAt time.Time `json:"created_at"`
}

// PublishStatus tags a video with its upload state.
type PublishStatus string

const (
	PublishPending   PublishStatus = "pending"
	PublishPublished PublishStatus = "published"
)

// VideoOutput is the final composed artifact.
type VideoOutput struct {
	ID            string        `json:"id"`
	Profile       string        `json:"profile"`
	Date          string        `json:"date"`
	ScriptID      string        `json:"script_id"`
	AudioID       string        `json:"audio_id"`
	SubtitleID    string        `json:"subtitle_id"`
	Path          string        `json:"path"`
	Backgrounds   []string      `json:"backgrounds,omitempty"`
	Duration      time.Duration `json:"duration"`
	PublishStatus PublishStatus `json:"publish_status"`
	ExternalID    string        `json:"external_id,omitempty"`
	URL           string        `json:"url,omitempty"`
	CreatedAt     time.Time     `json:"created_at"`
}

// Publication records a successful upload of a VideoOutput.
type Publication struct {
	VideoID     string    `json:"video_id"`
	ExternalID  string    `json:"external_id"`
	URL         string    `json:"url"`
	Title       string    `json:"title"`
	Privacy     string    `json:"privacy"`
	PublishedAt time.Time `json:"published_at"`
}
