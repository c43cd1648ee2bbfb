// Package report renders a terminal pipeline run for humans.
package report

import (
	"fmt"
	"io"
	"time"

	"github.com/cardops/shiplane/pkg/domain"
)

// Render writes a stage-by-stage summary of a finished run.
//
// Skipped stages are listed too, so the reader sees what the pipeline
// would have done on another branch or with a passing gate.
func Render(w io.Writer, run domain.PipelineRun) {
	fmt.Fprintf(w, "run %s (%s %s)\n", run.RunId, run.Class, run.Ref)
	if run.Commit != "" {
		fmt.Fprintf(w, "commit %s\n", run.Commit)
	}
	fmt.Fprintln(w)

	for _, s := range run.Stages {
		switch s.Outcome {
		case domain.StageSkipped:
			fmt.Fprintf(w, "  skip  %s\n", s.Name)
		case domain.StageFailed:
			fmt.Fprintf(w, "  fail  %s: %s\n", s.Name, s.Error)
		default:
			fmt.Fprintf(w, "  ok    %s\n", s.Name)
		}
	}

	fmt.Fprintln(w)
	if run.Outcome == domain.RunFailed {
		if failing, ok := run.HaltingFailure(); ok {
			fmt.Fprintf(w, "failing stage: %s\n", failing.Name)
		}
	}
	fmt.Fprintf(w, "%s (took %s)\n", run.Outcome, took(run))
}

func took(run domain.PipelineRun) time.Duration {
	return run.FinishedAt.Sub(run.StartedAt).Round(time.Millisecond)
}
