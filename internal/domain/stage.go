package domain

// Stage enumerates pipeline milestones in execution order.
type Stage string

const (
	StageCollect    Stage = "collect"
	StageTransform  Stage = "transform"
	StageSynthesize Stage = "synthesize"
	StageSubtitle   Stage = "subtitle"
	StageCompose    Stage = "compose"
	StagePublish    Stage = "publish"
)

// Stages is the fixed execution order.
var Stages = []Stage{
	StageCollect,
	StageTransform,
	StageSynthesize,
	StageSubtitle,
	StageCompose,
	StagePublish,
}

// Disposition is the outcome of a stage within one run.
type Disposition string

const (
	DispositionPending Disposition = "pending"
	DispositionSkip    Disposition = "skip"
	DispositionExecute Disposition = "execute"
	DispositionFail    Disposition = "fail"
)
