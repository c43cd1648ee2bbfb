// Package run executes the stage graph of a pipeline run.
//
// An Executor walks its stages in declaration order. Each stage has a
// guard deciding whether the body runs for this run's context, and the
// body publishes outputs into the context for later stages. A failing
// stage halts forward progress (unless marked NonFatal), remaining
// stages are recorded as skipped, and a final cleanup phase runs no
// matter how the run ended.
package run

import (
	"context"
	"log"
	"time"

	"github.com/cardops/shiplane/pkg/domain"
	"github.com/cardops/shiplane/pkg/domain/trigger"
)

// Guard decides whether a stage body runs, from the run context alone.
type Guard func(rc domain.RunContext) bool

// Body does the stage's work. The returned outputs are recorded in the
// StageResult and merged into the run context, whether or not the body
// also returns an error.
type Body func(ctx context.Context, rc domain.RunContext) (domain.Outputs, error)

// Cleanup reclaims what a run left behind. It runs after the terminal
// outcome is decided, under its own context, so a cancelled run is
// still cleaned up.
type Cleanup func(ctx context.Context, rc domain.RunContext) error

// Stage is one node of the graph.
type Stage struct {
	Name string

	// Guard gates the body. Nil means the stage always runs.
	Guard Guard

	Body Body

	// Cleanup, if set, runs in the final cleanup phase when the body
	// was executed. Executed stages clean up in reverse order.
	Cleanup Cleanup

	// NonFatal records a failure of this stage without halting the run,
	// and the terminal outcome ignores it.
	NonFatal bool
}

// Observer is notified of each recorded stage result, in order.
type Observer func(runId string, seq int, result domain.StageResult)

type executor struct {
	logger       *log.Logger
	classify     domain.Classifier
	stages       []Stage
	finalCleanup Cleanup
	observer     Observer
	cleanupGrace time.Duration
}

type Option func(*executor) *executor

// WithFinalCleanup sets a cleanup running after all per-stage cleanups,
// once per run.
func WithFinalCleanup(c Cleanup) Option {
	return func(ex *executor) *executor {
		ex.finalCleanup = c
		return ex
	}
}

// WithObserver streams stage results out as they are recorded.
func WithObserver(o Observer) Option {
	return func(ex *executor) *executor {
		ex.observer = o
		return ex
	}
}

// WithCleanupGrace bounds how long the cleanup phase may take.
func WithCleanupGrace(d time.Duration) Option {
	return func(ex *executor) *executor {
		ex.cleanupGrace = d
		return ex
	}
}

func New(logger *log.Logger, classify domain.Classifier, stages []Stage, options ...Option) *executor {
	ex := &executor{
		logger:       logger,
		classify:     classify,
		stages:       stages,
		cleanupGrace: time.Minute,
	}
	for _, opt := range options {
		ex = opt(ex)
	}
	return ex
}

// Run executes the stage graph for one triggered event.
//
// The returned PipelineRun is terminal: its Outcome is RunSuccess,
// RunFailed, or RunAborted, and every stage has a recorded result.
// Failures are data here, not errors. Inspect Outcome and the stage
// results to learn how the run went.
//
// Cancellation of ctx is observed at stage boundaries. Stages which did
// not get to run are recorded as skipped and the outcome is RunAborted.
func (ex *executor) Run(ctx context.Context, runId string, event trigger.Event) domain.PipelineRun {
	rc := domain.RunContext{
		RunId:   runId,
		Ref:     event.Ref,
		Commit:  event.Commit,
		Class:   ex.classify(event.Ref),
		Outputs: domain.Outputs{},
	}
	run := domain.PipelineRun{
		RunId:     runId,
		Ref:       event.Ref,
		Commit:    event.Commit,
		Class:     rc.Class,
		StartedAt: time.Now(),
	}

	ex.logger.Printf("run %s: ref %s classified as %s", runId, event.Ref, rc.Class)

	halted := false
	aborted := false
	executed := []Stage{}

	for seq, stage := range ex.stages {
		if !aborted && !halted && ctx.Err() != nil {
			aborted = true
			ex.logger.Printf("run %s: cancelled before %s", runId, stage.Name)
		}

		var result domain.StageResult
		switch {
		case aborted || halted:
			result = domain.StageResult{Name: stage.Name, Outcome: domain.StageSkipped}
		case stage.Guard != nil && !stage.Guard(rc):
			result = domain.StageResult{Name: stage.Name, Outcome: domain.StageSkipped}
		default:
			ex.logger.Printf("run %s: %s started", runId, stage.Name)
			outputs, err := stage.Body(ctx, rc)
			executed = append(executed, stage)
			if outputs != nil {
				rc.Outputs = rc.Outputs.Merge(outputs)
			}

			if err == nil {
				result = domain.StageResult{
					Name: stage.Name, Executed: true,
					Outcome: domain.StageOk, Outputs: outputs,
				}
				ex.logger.Printf("run %s: %s ok", runId, stage.Name)
			} else {
				result = domain.StageResult{
					Name: stage.Name, Executed: true,
					Outcome: domain.StageFailed, Outputs: outputs,
					Error: err.Error(),
				}
				if stage.NonFatal {
					ex.logger.Printf("run %s: %s failed (non-fatal): %s", runId, stage.Name, err)
				} else {
					halted = true
					ex.logger.Printf("run %s: %s failed: %s", runId, stage.Name, err)
				}
			}
		}

		run.Stages = append(run.Stages, result)
		if ex.observer != nil {
			ex.observer(runId, seq, result)
		}
	}

	// checkout resolves the tip when the event does not pin a commit.
	if run.Commit == "" {
		run.Commit = rc.Outputs[domain.KeyCommit]
	}

	switch {
	case aborted:
		run.Outcome = domain.RunAborted
	case halted:
		run.Outcome = domain.RunFailed
	default:
		run.Outcome = domain.RunSuccess
	}

	ex.runCleanup(rc, executed)

	run.FinishedAt = time.Now()
	ex.logger.Printf("run %s: %s", runId, run.Outcome)
	return run
}

// runCleanup reclaims stage leftovers and the run's workspace. It never
// changes the outcome. Failures here are logged and dropped.
func (ex *executor) runCleanup(rc domain.RunContext, executed []Stage) {
	ctx, cancel := context.WithTimeout(context.Background(), ex.cleanupGrace)
	defer cancel()

	for i := len(executed) - 1; 0 <= i; i-- {
		stage := executed[i]
		if stage.Cleanup == nil {
			continue
		}
		if err := stage.Cleanup(ctx, rc); err != nil {
			ex.logger.Printf("run %s: cleanup of %s failed (ignored): %s", rc.RunId, stage.Name, err)
		}
	}

	if ex.finalCleanup != nil {
		if err := ex.finalCleanup(ctx, rc); err != nil {
			ex.logger.Printf("run %s: final cleanup failed (ignored): %s", rc.RunId, err)
		}
	}
}
