package db

import (
	"context"
	"errors"
	"time"

	"github.com/cardops/shiplane/pkg/domain"
)

var (
	// ErrMissing means the run (or its parent record) does not exist.
	ErrMissing = errors.New("missing")

	// ErrConflict means the record exists already or is already terminal.
	ErrConflict = errors.New("conflict")
)

// Query narrows Find results. Zero fields do not filter.
type Query struct {
	// Ref, when set, limits to runs triggered for this ref.
	Ref string

	// Outcome, when set, limits to runs which ended with it.
	Outcome domain.RunOutcome

	// Limit caps the number of returned runs. 0 means no cap.
	Limit int
}

type HistoryInterface interface {
	// Register records a newly triggered run.
	//
	// The run's stage results are not written here. Report them one by
	// one with AddStageResult as the run proceeds.
	//
	// Returns
	//
	// - error: ErrConflict when a run with the same run id exists.
	Register(ctx context.Context, run domain.PipelineRun) error

	// AddStageResult appends the result of one stage to a run.
	//
	// Args
	//
	// - seq: zero-based position of the stage in the run.
	//
	// Returns
	//
	// - error: ErrMissing when no such run is registered,
	// ErrConflict when the (run, seq) pair is recorded already.
	AddStageResult(ctx context.Context, runId string, seq int, result domain.StageResult) error

	// Finish seals a run with its terminal outcome.
	//
	// Returns
	//
	// - error: ErrMissing when no such run is registered,
	// ErrConflict when the run is terminal already.
	Finish(ctx context.Context, runId string, outcome domain.RunOutcome, finishedAt time.Time) error

	// Get retrieves a run with its stage results in stage order.
	//
	// Returns
	//
	// - error: ErrMissing when no such run is registered.
	Get(ctx context.Context, runId string) (domain.PipelineRun, error)

	// Find lists runs matching the query, newest first.
	Find(ctx context.Context, query Query) ([]domain.PipelineRun, error)
}
