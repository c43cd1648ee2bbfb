package runs

import (
	"github.com/cardops/shiplane/pkg/cmp"
	"github.com/cardops/shiplane/pkg/domain"
	"github.com/cardops/shiplane/pkg/utils"
	"github.com/cardops/shiplane/pkg/utils/pointer"
	"github.com/cardops/shiplane/pkg/utils/rfctime"
)

// Trigger is the request body of `POST /api/runs`.
type Trigger struct {
	Ref       string `json:"ref"`
	Commit    string `json:"commit,omitempty"`
	Requester string `json:"requester,omitempty"`
}

// TriggerResult is the response body of `POST /api/runs`.
//
// The run is accepted, not finished. Poll `GET /api/runs/{runId}`
// for progress.
type TriggerResult struct {
	RunId string `json:"runId"`
}

type StageResult struct {
	Name     string            `json:"name"`
	Executed bool              `json:"executed"`
	Outcome  string            `json:"outcome"`
	Outputs  map[string]string `json:"outputs,omitempty"`
	Error    string            `json:"error,omitempty"`
}

func ComposeStageResult(s domain.StageResult) StageResult {
	return StageResult{
		Name:     s.Name,
		Executed: s.Executed,
		Outcome:  string(s.Outcome),
		Outputs:  s.Outputs,
		Error:    s.Error,
	}
}

func (s StageResult) Equal(o StageResult) bool {
	return s.Name == o.Name &&
		s.Executed == o.Executed &&
		s.Outcome == o.Outcome &&
		s.Error == o.Error &&
		cmp.MapEq(s.Outputs, o.Outputs)
}

type Summary struct {
	RunId  string `json:"runId"`
	Ref    string `json:"ref"`
	Commit string `json:"commit,omitempty"`
	Class  string `json:"class"`

	// Outcome is empty while the run is still going.
	Outcome string `json:"outcome,omitempty"`

	StartedAt  rfctime.RFC3339  `json:"startedAt"`
	FinishedAt *rfctime.RFC3339 `json:"finishedAt,omitempty"`
}

func ComposeSummary(r domain.PipelineRun) Summary {
	var finishedAt *rfctime.RFC3339
	if !r.FinishedAt.IsZero() {
		finishedAt = pointer.Ref(rfctime.RFC3339(r.FinishedAt))
	}
	return Summary{
		RunId:      r.RunId,
		Ref:        r.Ref,
		Commit:     r.Commit,
		Class:      string(r.Class),
		Outcome:    string(r.Outcome),
		StartedAt:  rfctime.RFC3339(r.StartedAt),
		FinishedAt: finishedAt,
	}
}

func (s *Summary) Equal(o *Summary) bool {
	if s == nil || o == nil {
		return s == nil && o == nil
	}
	startedAt := s.StartedAt
	otherStartedAt := o.StartedAt
	return s.RunId == o.RunId &&
		s.Ref == o.Ref &&
		s.Commit == o.Commit &&
		s.Class == o.Class &&
		s.Outcome == o.Outcome &&
		startedAt.Equal(&otherStartedAt) &&
		s.FinishedAt.Equal(o.FinishedAt)
}

type Detail struct {
	Summary
	Stages []StageResult `json:"stages"`
}

func ComposeDetail(r domain.PipelineRun) Detail {
	return Detail{
		Summary: ComposeSummary(r),
		Stages:  utils.Map(r.Stages, ComposeStageResult),
	}
}

func (d *Detail) Equal(o *Detail) bool {
	if d == nil || o == nil {
		return d == nil && o == nil
	}
	summary := d.Summary
	otherSummary := o.Summary
	return summary.Equal(&otherSummary) &&
		cmp.SliceEqWith(
			d.Stages, o.Stages,
			func(a, b StageResult) bool { return a.Equal(b) },
		)
}
