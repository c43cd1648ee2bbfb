package runs_test

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	apiruns "github.com/cardops/shiplane/pkg/api/types/runs"
	"github.com/cardops/shiplane/pkg/domain"
)

func TestComposeDetail(t *testing.T) {
	started := time.Date(2025, time.April, 2, 12, 0, 0, 0, time.UTC)
	finished := started.Add(3 * time.Minute)

	t.Run("when a run is finished, it composes every field: ", func(t *testing.T) {
		r := domain.PipelineRun{
			RunId:   "run-1",
			Ref:     "refs/heads/main",
			Commit:  "aabbccdd",
			Class:   domain.Release,
			Outcome: domain.RunSuccess,
			Stages: []domain.StageResult{
				{
					Name: "Checkout", Executed: true, Outcome: domain.StageOk,
					Outputs: domain.Outputs{domain.KeyCommit: "aabbccdd"},
				},
				{
					Name: "EvaluateModel", Executed: true, Outcome: domain.StageFailed,
					Outputs: domain.Outputs{domain.KeyGatePassed: "false"},
					Error:   "quality gate rejected",
				},
			},
			StartedAt:  started,
			FinishedAt: finished,
		}

		actual := apiruns.ComposeDetail(r)

		if actual.RunId != "run-1" || actual.Ref != "refs/heads/main" ||
			actual.Class != "release" || actual.Outcome != "success" {
			t.Errorf("unexpected summary: %+v", actual.Summary)
		}
		if actual.StartedAt.Time() != started {
			t.Errorf(
				"unexpected startedAt: (actual, expected) = (%v, %v)",
				actual.StartedAt.Time(), started,
			)
		}
		if actual.FinishedAt == nil || actual.FinishedAt.Time() != finished {
			t.Errorf("unexpected finishedAt: %v", actual.FinishedAt)
		}

		expectedStages := []apiruns.StageResult{
			{
				Name: "Checkout", Executed: true, Outcome: "ok",
				Outputs: map[string]string{"commit": "aabbccdd"},
			},
			{
				Name: "EvaluateModel", Executed: true, Outcome: "failed",
				Outputs: map[string]string{"gate_passed": "false"},
				Error:   "quality gate rejected",
			},
		}
		if len(actual.Stages) != len(expectedStages) {
			t.Fatalf("unexpected stages: %+v", actual.Stages)
		}
		for i, expected := range expectedStages {
			if !actual.Stages[i].Equal(expected) {
				t.Errorf(
					"unexpected stage: (actual, expected) = (%+v, %+v)",
					actual.Stages[i], expected,
				)
			}
		}
	})

	t.Run("when a run is still going, outcome and finishedAt are omitted: ", func(t *testing.T) {
		r := domain.PipelineRun{
			RunId:     "run-2",
			Ref:       "feature/x",
			Class:     domain.Review,
			StartedAt: started,
		}

		actual := apiruns.ComposeDetail(r)

		if actual.FinishedAt != nil {
			t.Errorf("unexpected finishedAt: %v", actual.FinishedAt)
		}

		buf, err := json.Marshal(actual)
		if err != nil {
			t.Fatalf("unexpected error: %+v", err)
		}
		body := string(buf)
		for _, absent := range []string{"finishedAt", "outcome", "commit"} {
			if strings.Contains(body, absent) {
				t.Errorf("%s should be omitted: %s", absent, body)
			}
		}
	})
}

func TestDetailEqual(t *testing.T) {
	started := time.Date(2025, time.April, 2, 12, 0, 0, 0, time.UTC)

	base := func() domain.PipelineRun {
		return domain.PipelineRun{
			RunId: "run-1", Ref: "refs/heads/main", Class: domain.Release,
			Outcome: domain.RunSuccess,
			Stages: []domain.StageResult{
				{Name: "Checkout", Executed: true, Outcome: domain.StageOk},
			},
			StartedAt: started,
		}
	}

	a := apiruns.ComposeDetail(base())
	b := apiruns.ComposeDetail(base())
	if !a.Equal(&b) {
		t.Errorf("equal details are not equal: (%+v, %+v)", a, b)
	}

	changed := base()
	changed.Stages[0].Outcome = domain.StageFailed
	c := apiruns.ComposeDetail(changed)
	if a.Equal(&c) {
		t.Errorf("different details are equal: (%+v, %+v)", a, c)
	}
}
