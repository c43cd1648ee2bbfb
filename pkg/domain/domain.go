package domain

import (
	"fmt"
	"time"

	"github.com/cardops/shiplane/pkg/cmp"
)

// BranchClass is the coarse classification of a source ref.
type BranchClass string

const (
	// Release triggers the full build-and-deploy sequence.
	Release BranchClass = "release"

	// Review triggers checks only.
	Review BranchClass = "review"
)

func AsBranchClass(s string) (BranchClass, error) {
	switch bc := BranchClass(s); bc {
	case Release, Review:
		return bc, nil
	default:
		return BranchClass(""), fmt.Errorf("unknown branch class: %s", s)
	}
}

// RunOutcome is the terminal state of a PipelineRun.
//
// Zero value means "not terminal yet".
type RunOutcome string

const (
	RunSuccess RunOutcome = "success"
	RunFailed  RunOutcome = "failed"
	RunAborted RunOutcome = "aborted"
)

func AsRunOutcome(s string) (RunOutcome, error) {
	switch ro := RunOutcome(s); ro {
	case RunSuccess, RunFailed, RunAborted:
		return ro, nil
	default:
		return RunOutcome(""), fmt.Errorf("unknown run outcome: %s", s)
	}
}

type StageOutcome string

const (
	StageOk      StageOutcome = "ok"
	StageFailed  StageOutcome = "failed"
	StageSkipped StageOutcome = "skipped"
)

func AsStageOutcome(s string) (StageOutcome, error) {
	switch so := StageOutcome(s); so {
	case StageOk, StageFailed, StageSkipped:
		return so, nil
	default:
		return StageOutcome(""), fmt.Errorf("unknown stage outcome: %s", s)
	}
}

// Well-known output keys stages publish into the run context.
const (
	KeyCommit           = "commit"
	KeyModelVersion     = "model_version"
	KeyModelRunId       = "model_run_id"
	KeyModelMetric      = "model_metric"
	KeyGatePassed       = "gate_passed"
	KeyArtifactsDir     = "artifacts_dir"
	KeyImageRef         = "image_ref"
	KeyPreviousRevision = "previous_revision"
	KeyNewRevision      = "new_revision"
)

// Outputs are the named string values a stage declares and publishes.
type Outputs map[string]string

func (o Outputs) Clone() Outputs {
	ret := make(Outputs, len(o))
	for k, v := range o {
		ret[k] = v
	}
	return ret
}

// Merge returns a new Outputs holding o overlaid with other.
// Neither receiver nor argument is mutated.
func (o Outputs) Merge(other Outputs) Outputs {
	ret := o.Clone()
	for k, v := range other {
		ret[k] = v
	}
	return ret
}

func (o Outputs) Equal(other Outputs) bool {
	return cmp.MapEq(o, other)
}

// RunContext is the value passed to stage guards and bodies.
//
// It accumulates outputs of the stages executed so far; stages never
// communicate through process state.
type RunContext struct {
	RunId   string
	Ref     string
	Commit  string
	Class   BranchClass
	Outputs Outputs
}

// GatePassed reports whether the quality gate has run and passed.
func (rc RunContext) GatePassed() bool {
	return rc.Outputs[KeyGatePassed] == "true"
}

func (rc RunContext) Output(key string) (string, bool) {
	v, ok := rc.Outputs[key]
	return v, ok
}

// StageResult records how one stage of a run went.
//
// Executed is false when the stage was skipped by its guard.
type StageResult struct {
	Name     string
	Executed bool
	Outcome  StageOutcome
	Outputs  Outputs
	Error    string
}

func (s StageResult) Equal(o StageResult) bool {
	return s.Name == o.Name &&
		s.Executed == o.Executed &&
		s.Outcome == o.Outcome &&
		s.Error == o.Error &&
		s.Outputs.Equal(o.Outputs)
}

// PipelineRun identifies one pipeline execution.
//
// It is created at trigger time, grows by one StageResult per processed
// stage, and is immutable once Outcome is set.
type PipelineRun struct {
	RunId      string
	Ref        string
	Commit     string
	Class      BranchClass
	Stages     []StageResult
	Outcome    RunOutcome
	StartedAt  time.Time
	FinishedAt time.Time
}

// HaltingFailure returns the stage whose failure terminated the run.
//
// Runs halt at the first failure of a fatal stage, so any earlier
// StageFailed entries belong to non-fatal stages whose failure was
// recorded but did not stop the run. The halting failure is therefore
// the last one.
func (p PipelineRun) HaltingFailure() (StageResult, bool) {
	for i := len(p.Stages) - 1; 0 <= i; i-- {
		if p.Stages[i].Outcome == StageFailed {
			return p.Stages[i], true
		}
	}
	return StageResult{}, false
}

// ModelEvaluation is the quality gate's verdict about one model version.
// Produced once per run and never mutated after creation.
type ModelEvaluation struct {
	ModelName  string
	StageLabel string
	Version    string

	// ModelRunId is the registry's training-run identifier,
	// not the pipeline run id.
	ModelRunId string

	Metric    string
	Value     float64
	Threshold float64
	Pass      bool
}

func (m ModelEvaluation) String() string {
	verdict := "fail"
	if m.Pass {
		verdict = "pass"
	}
	return fmt.Sprintf(
		"%s version %s (%s): %s = %v vs threshold %v: %s",
		m.ModelName, m.Version, m.StageLabel, m.Metric, m.Value, m.Threshold, verdict,
	)
}
