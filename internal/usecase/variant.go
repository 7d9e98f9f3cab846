package usecase

import (
	"context"

	"ShortsFactory/internal/domain"
	"ShortsFactory/internal/ports"
)

// RunContext carries per-run parameters a variant may consult.
type RunContext struct {
	Profile string
	Date    string
	// Top caps the number of source items fed into a script.
	Top int
	// Sources narrows collection to these source keys.
	Sources []string
}

// Layout describes the visual treatment of a composed video.
type Layout struct {
	Title   string
	Caption string
	// BackgroundKeywords holds one keyword set per background clip.
	BackgroundKeywords [][]string
}

// Variant is the profile-specific half of the pipeline: how material is
// gathered, turned into narration and described for compose and publish.
// Synthesize, Subtitle, Compose and Publish are shared.
type Variant interface {
	Kind() domain.ProfileKind
	Collect(ctx context.Context, run RunContext) (domain.ItemBatch, error)
	Transform(ctx context.Context, run RunContext, batch domain.ItemBatch) (domain.Script, error)
	Layout(date string, script domain.Script) Layout
	Metadata(date string, script domain.Script) ports.PublishMetadata
}
