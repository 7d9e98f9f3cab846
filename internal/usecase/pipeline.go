package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"

	"ShortsFactory/internal/domain"
	"ShortsFactory/internal/ports"
	"ShortsFactory/internal/subtitle"
)

const (
	narrationName = "narration"
	subtitleName  = "narration.srt"
	videoName     = "shorts.mp4"
)

// PipelineDeps wires the driven adapters of one profile into the pipeline.
// Publisher may be nil when publishing is disabled.
type PipelineDeps struct {
	Profile     string
	Variant     Variant
	Store       ports.ArtifactStore
	Speech      ports.SpeechSynthesizer
	Voice       ports.Voice
	Prober      ports.Prober
	Composer    ports.Composer
	Backgrounds ports.BackgroundSource
	Publisher   ports.Publisher
	Notifier    ports.Notifier
	Publish     bool
	CharsPerCue int
	Now         func() time.Time
	NewID       func() string
	Logger      *slog.Logger
}

// Pipeline runs the fixed stage sequence for one profile.
type Pipeline struct {
	profile     string
	variant     Variant
	store       ports.ArtifactStore
	speech      ports.SpeechSynthesizer
	voice       ports.Voice
	prober      ports.Prober
	composer    ports.Composer
	backgrounds ports.BackgroundSource
	publisher   ports.Publisher
	notifier    ports.Notifier
	publish     bool
	charsPerCue int
	now         func() time.Time
	newID       func() string
	logger      *slog.Logger
}

// NewPipeline constructs the orchestration component.
func NewPipeline(deps PipelineDeps) *Pipeline {
	p := &Pipeline{
		profile:     deps.Profile,
		variant:     deps.Variant,
		store:       deps.Store,
		speech:      deps.Speech,
		voice:       deps.Voice,
		prober:      deps.Prober,
		composer:    deps.Composer,
		backgrounds: deps.Backgrounds,
		publisher:   deps.Publisher,
		notifier:    deps.Notifier,
		publish:     deps.Publish,
		charsPerCue: deps.CharsPerCue,
		now:         deps.Now,
		newID:       deps.NewID,
		logger:      deps.Logger,
	}
	if p.now == nil {
		p.now = time.Now
	}
	if p.newID == nil {
		p.newID = uuid.NewString
	}
	if p.charsPerCue <= 0 {
		p.charsPerCue = subtitle.DefaultCharsPerCue
	}
	if p.logger != nil {
		p.logger = p.logger.With("component", "pipeline", "profile", deps.Profile)
	}
	return p
}

// RunRequest selects the date and stage overrides of one run.
type RunRequest struct {
	Date          string
	SkipCollect   bool
	SkipTransform bool
	NoUpload      bool
	UploadOnly    bool
	Force         bool
	Top           int
	Sources       []string
}

// StageResult is the outcome of one stage.
type StageResult struct {
	Stage       domain.Stage
	Disposition domain.Disposition
	Reason      string
	Err         error
}

// Report summarises a run.
type Report struct {
	Profile    string
	Date       string
	Stages     []StageResult
	VideoPath  string
	ExternalID string
	URL        string
}

// Failed reports whether any stage failed.
func (r Report) Failed() bool {
	for _, s := range r.Stages {
		if s.Disposition == domain.DispositionFail {
			return true
		}
	}
	return false
}

// Stage returns the result recorded for stage.
func (r Report) Stage(stage domain.Stage) StageResult {
	for _, s := range r.Stages {
		if s.Stage == stage {
			return s
		}
	}
	return StageResult{Stage: stage, Disposition: domain.DispositionPending}
}

func (r Report) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s\n", r.Profile, r.Date)
	for _, s := range r.Stages {
		fmt.Fprintf(&b, "  %-10s %-7s", s.Stage, s.Disposition)
		switch {
		case s.Err != nil:
			fmt.Fprintf(&b, " %v", s.Err)
		case s.Reason != "":
			fmt.Fprintf(&b, " %s", s.Reason)
		}
		b.WriteByte('\n')
	}
	if r.VideoPath != "" {
		fmt.Fprintf(&b, "  video: %s\n", r.VideoPath)
	}
	if r.URL != "" {
		fmt.Fprintf(&b, "  url: %s\n", r.URL)
	}
	return b.String()
}

// runState caches the artifacts of the run's date as stages produce or load
// them.
type runState struct {
	req RunRequest
	run RunContext

	batch  *domain.ItemBatch
	script *domain.Script
	audio  *domain.AudioAsset
	track  *domain.SubtitleTrack
	video  *domain.VideoOutput
}

func cached[T any](slot **T, load func(string) (T, error), date string) (T, error) {
	if *slot != nil {
		return **slot, nil
	}
	v, err := load(date)
	if err != nil {
		var zero T
		return zero, err
	}
	*slot = &v
	return v, nil
}

// needArtifact loads an upstream artifact, reporting absence as a missing
// dependency of stage.
func needArtifact[T any](stage domain.Stage, artifact string, slot **T, load func(string) (T, error), date string) (T, error) {
	v, err := cached(slot, load, date)
	if err == nil {
		return v, nil
	}
	if errors.Is(err, domain.ErrNotFound) {
		return v, domain.MissingDependency(stage, artifact, err)
	}
	return v, fmt.Errorf("load %s: %w", artifact, err)
}

// stageFunc executes or skips one stage. A non-empty reason means the stage
// was skipped.
type stageFunc func(ctx context.Context, st *runState) (reason string, err error)

// Run executes every stage for req.Date in order. The first failing stage
// halts the run; later stages stay pending and the returned error is a
// *domain.StageError.
func (p *Pipeline) Run(ctx context.Context, req RunRequest) (Report, error) {
	if _, err := time.Parse(time.DateOnly, req.Date); err != nil {
		return Report{}, domain.ConfigError("date %q is not YYYY-MM-DD", req.Date)
	}

	rep := Report{Profile: p.profile, Date: req.Date}
	for _, s := range domain.Stages {
		rep.Stages = append(rep.Stages, StageResult{Stage: s, Disposition: domain.DispositionPending})
	}

	st := &runState{
		req: req,
		run: RunContext{Profile: p.profile, Date: req.Date, Top: req.Top, Sources: req.Sources},
	}
	steps := map[domain.Stage]stageFunc{
		domain.StageCollect:    p.collect,
		domain.StageTransform:  p.transform,
		domain.StageSynthesize: p.synthesize,
		domain.StageSubtitle:   p.subtitles,
		domain.StageCompose:    p.compose,
		domain.StagePublish:    p.upload,
	}

	p.info("run started", "date", req.Date, "force", req.Force, "upload_only", req.UploadOnly)
	for i, stage := range domain.Stages {
		res := &rep.Stages[i]

		var (
			reason string
			err    error
		)
		if req.UploadOnly && stage != domain.StagePublish {
			reason = "upload-only"
		} else if err = ctx.Err(); err == nil {
			started := p.now()
			reason, err = steps[stage](ctx, st)
			if err == nil && reason == "" {
				p.info("stage executed", "stage", stage, "elapsed", p.now().Sub(started).Round(time.Millisecond))
			}
		}

		if err != nil {
			res.Disposition = domain.DispositionFail
			res.Err = err
			p.logError("stage failed", "stage", stage, "error", err)
			p.notify(ctx, fmt.Sprintf("[%s] %s: %s 단계 실패\n%v", p.profile, req.Date, stage, err))
			p.finish(&rep, st)
			return rep, &domain.StageError{Stage: stage, Err: err}
		}
		if reason != "" {
			res.Disposition = domain.DispositionSkip
			res.Reason = reason
			p.info("stage skipped", "stage", stage, "reason", reason)
			continue
		}
		res.Disposition = domain.DispositionExecute
	}

	p.finish(&rep, st)
	p.info("run finished", "date", req.Date, "video", rep.VideoPath, "url", rep.URL)
	return rep, nil
}

func (p *Pipeline) finish(rep *Report, st *runState) {
	if st.video == nil {
		return
	}
	rep.VideoPath = st.video.Path
	rep.ExternalID = st.video.ExternalID
	rep.URL = st.video.URL
}

func (p *Pipeline) collect(ctx context.Context, st *runState) (string, error) {
	date := st.req.Date
	if st.req.SkipCollect {
		return "skip requested", nil
	}
	if !st.req.Force {
		if b, err := cached(&st.batch, p.store.LoadItems, date); err == nil {
			return fmt.Sprintf("%d items already collected", len(b.Items)), nil
		}
	}

	batch, err := p.variant.Collect(ctx, st.run)
	if err != nil {
		return "", err
	}
	if len(batch.Items) == 0 {
		return "", fmt.Errorf("%w for %s", domain.ErrNoItems, date)
	}
	batch.ID = p.newID()
	batch.Profile = p.profile
	batch.Date = date
	batch.CreatedAt = p.now()
	if err := p.store.SaveItems(date, batch); err != nil {
		return "", fmt.Errorf("save items: %w", err)
	}
	st.batch = &batch
	p.debug("items collected", "count", len(batch.Items))
	return "", nil
}

func (p *Pipeline) transform(ctx context.Context, st *runState) (string, error) {
	date := st.req.Date
	if st.req.SkipTransform {
		return "skip requested", nil
	}
	batch, err := needArtifact(domain.StageTransform, "collected items", &st.batch, p.store.LoadItems, date)
	if err != nil {
		return "", err
	}
	if !st.req.Force {
		if s, err := cached(&st.script, p.store.LoadScript, date); err == nil && s.BatchID == batch.ID {
			return "script is current", nil
		}
	}

	script, err := p.variant.Transform(ctx, st.run, batch)
	if err != nil {
		return "", err
	}
	script.ID = p.newID()
	script.BatchID = batch.ID
	script.CreatedAt = p.now()
	if err := p.store.SaveScript(date, script); err != nil {
		return "", fmt.Errorf("save script: %w", err)
	}
	st.script = &script
	return "", nil
}

func (p *Pipeline) synthesize(ctx context.Context, st *runState) (string, error) {
	date := st.req.Date
	script, err := needArtifact(domain.StageSynthesize, "script", &st.script, p.store.LoadScript, date)
	if err != nil {
		return "", err
	}
	if st.batch != nil && script.BatchID != st.batch.ID {
		p.warn("script was built from another item batch", "script_batch", script.BatchID, "batch", st.batch.ID)
	}
	if !st.req.Force {
		if a, err := cached(&st.audio, p.store.LoadAudio, date); err == nil && a.ScriptID == script.ID && p.store.Exists(a.Path) {
			return "audio is current", nil
		}
	}
	if p.speech == nil {
		return "", domain.ConfigError("no speech backend configured")
	}

	speech, err := p.speech.Synthesize(ctx, script.Text, p.voice)
	if err != nil {
		return "", err
	}
	format := speech.Format
	if format == "" {
		format = "mp3"
	}
	path, err := p.store.WriteMedia(date, narrationName+"."+format, speech.Audio)
	if err != nil {
		return "", fmt.Errorf("write audio: %w", err)
	}

	duration := speech.Duration
	if duration <= 0 && p.prober != nil {
		d, err := p.prober.Duration(ctx, path)
		if err != nil {
			p.warn("could not probe narration", "path", path, "error", err)
		}
		duration = d
	}
	if duration <= 0 {
		duration = script.EstimatedDuration
	}
	if duration <= 0 {
		return "", fmt.Errorf("%w: narration duration is unknown", domain.ErrEncoding)
	}

	audio := domain.AudioAsset{
		ID:         p.newID(),
		ScriptID:   script.ID,
		Path:       path,
		Duration:   duration,
		Provider:   p.speech.Name(),
		Boundaries: speech.Boundaries,
		CreatedAt:  p.now(),
	}
	if err := p.store.SaveAudio(date, audio); err != nil {
		return "", fmt.Errorf("save audio: %w", err)
	}
	st.audio = &audio
	return "", nil
}

func (p *Pipeline) subtitles(ctx context.Context, st *runState) (string, error) {
	date := st.req.Date
	script, err := needArtifact(domain.StageSubtitle, "script", &st.script, p.store.LoadScript, date)
	if err != nil {
		return "", err
	}
	audio, err := needArtifact(domain.StageSubtitle, "audio", &st.audio, p.store.LoadAudio, date)
	if err != nil {
		return "", err
	}
	if !st.req.Force {
		t, err := cached(&st.track, p.store.LoadSubtitles, date)
		if err == nil && t.AudioID == audio.ID && t.ScriptID == script.ID && p.store.Exists(t.Path) {
			return "subtitles are current", nil
		}
	}

	cues, err := subtitle.Build(script.Text, audio.Boundaries, audio.Duration, p.charsPerCue)
	if err != nil {
		return "", err
	}
	path, err := p.store.WriteMedia(date, subtitleName, subtitle.FormatSRT(cues))
	if err != nil {
		return "", fmt.Errorf("write subtitles: %w", err)
	}
	track := domain.SubtitleTrack{
		ID:        p.newID(),
		AudioID:   audio.ID,
		ScriptID:  script.ID,
		Path:      path,
		Cues:      cues,
		CreatedAt: p.now(),
	}
	if err := p.store.SaveSubtitles(date, track); err != nil {
		return "", fmt.Errorf("save subtitles: %w", err)
	}
	st.track = &track
	return "", nil
}

func (p *Pipeline) compose(ctx context.Context, st *runState) (string, error) {
	date := st.req.Date
	script, err := needArtifact(domain.StageCompose, "script", &st.script, p.store.LoadScript, date)
	if err != nil {
		return "", err
	}
	audio, err := needArtifact(domain.StageCompose, "audio", &st.audio, p.store.LoadAudio, date)
	if err != nil {
		return "", err
	}
	track, err := needArtifact(domain.StageCompose, "subtitles", &st.track, p.store.LoadSubtitles, date)
	if err != nil {
		return "", err
	}
	if !st.req.Force {
		v, err := cached(&st.video, p.store.LoadVideo, date)
		if err == nil && v.ScriptID == script.ID && v.AudioID == audio.ID && v.SubtitleID == track.ID && p.store.Exists(v.Path) {
			return "video is current", nil
		}
	}
	if p.composer == nil {
		return "", domain.ConfigError("no composer configured")
	}

	layout := p.variant.Layout(date, script)
	var backgrounds []string
	if p.backgrounds != nil {
		backgrounds, err = p.backgrounds.Backgrounds(ctx, layout.BackgroundKeywords)
		if err != nil {
			if ctx.Err() != nil {
				return "", ctx.Err()
			}
			p.warn("background lookup failed, using solid colour", "error", err)
			backgrounds = nil
		}
	}

	staging, err := p.store.StagingPath(date, videoName)
	if err != nil {
		return "", err
	}
	err = p.composer.Compose(ctx, ports.ComposeRequest{
		AudioPath:    audio.Path,
		SubtitlePath: track.Path,
		Backgrounds:  backgrounds,
		OutputPath:   staging,
		Title:        layout.Title,
		Caption:      layout.Caption,
		Duration:     audio.Duration,
	})
	if err != nil {
		_ = os.Remove(staging)
		return "", err
	}
	final := p.store.MediaPath(date, videoName)
	if err := p.store.Promote(staging, final); err != nil {
		return "", err
	}

	duration := audio.Duration
	if p.prober != nil {
		if d, err := p.prober.Duration(ctx, final); err == nil && d > 0 {
			duration = d
		}
	}
	video := domain.VideoOutput{
		ID:            p.newID(),
		Profile:       p.profile,
		Date:          date,
		ScriptID:      script.ID,
		AudioID:       audio.ID,
		SubtitleID:    track.ID,
		Path:          final,
		Backgrounds:   backgrounds,
		Duration:      duration,
		PublishStatus: domain.PublishPending,
		CreatedAt:     p.now(),
	}
	if err := p.store.SaveVideo(date, video); err != nil {
		return "", fmt.Errorf("save video: %w", err)
	}
	st.video = &video
	return "", nil
}

func (p *Pipeline) upload(ctx context.Context, st *runState) (string, error) {
	date := st.req.Date
	switch {
	case st.req.UploadOnly:
	case st.req.NoUpload:
		return "upload disabled for this run", nil
	case !p.publish:
		return "publishing disabled for profile", nil
	}

	video, err := needArtifact(domain.StagePublish, "video", &st.video, p.store.LoadVideo, date)
	if err != nil {
		return "", err
	}
	if !p.store.Exists(video.Path) {
		return "", domain.MissingDependency(domain.StagePublish, "video file "+video.Path, nil)
	}
	if video.PublishStatus == domain.PublishPublished && !st.req.Force {
		return "already published as " + video.ExternalID, nil
	}
	script, err := needArtifact(domain.StagePublish, "script", &st.script, p.store.LoadScript, date)
	if err != nil {
		return "", err
	}
	// Metadata must come from the script the video was rendered from.
	if video.ScriptID != script.ID {
		return "", domain.MissingDependency(domain.StagePublish, "script "+video.ScriptID, nil)
	}
	if p.publisher == nil {
		return "", domain.ConfigError("no publish target configured")
	}

	meta := p.variant.Metadata(date, script)
	res, err := p.publisher.Publish(ctx, video, meta)
	if err != nil {
		return "", err
	}

	pub := domain.Publication{
		VideoID:     video.ID,
		ExternalID:  res.ExternalID,
		URL:         res.URL,
		Title:       meta.Title,
		Privacy:     meta.Privacy,
		PublishedAt: p.now(),
	}
	video.PublishStatus = domain.PublishPublished
	video.ExternalID = res.ExternalID
	video.URL = res.URL
	st.video = &video
	if err := p.store.SavePublication(date, pub); err != nil {
		return "", fmt.Errorf("save publication %s: %w", res.ExternalID, err)
	}
	if err := p.store.SaveVideo(date, video); err != nil {
		return "", fmt.Errorf("save video %s: %w", res.ExternalID, err)
	}

	p.notify(ctx, fmt.Sprintf("[%s] %s 업로드 완료\n%s\n%s", p.profile, date, meta.Title, res.URL))
	return "", nil
}

func (p *Pipeline) notify(ctx context.Context, message string) {
	if p.notifier == nil {
		return
	}
	if err := p.notifier.Notify(ctx, message); err != nil {
		p.warn("notification failed", "error", err)
	}
}

func (p *Pipeline) debug(msg string, args ...any) {
	if p.logger != nil {
		p.logger.Debug(msg, args...)
	}
}

func (p *Pipeline) info(msg string, args ...any) {
	if p.logger != nil {
		p.logger.Info(msg, args...)
	}
}

func (p *Pipeline) warn(msg string, args ...any) {
	if p.logger != nil {
		p.logger.Warn(msg, args...)
	}
}

func (p *Pipeline) logError(msg string, args ...any) {
	if p.logger != nil {
		p.logger.Error(msg, args...)
	}
}
