// Package deploy declares the atomic deployment boundary of the pipeline.
//
// The Deployer is the only component allowed to mutate the externally
// running service. Every other stage acts on workspace-local state.
package deploy

import (
	"context"
	"errors"
	"fmt"
)

// Target names the externally running service a run upgrades.
type Target struct {
	Namespace string
	Name      string
}

func (t Target) String() string {
	return t.Namespace + "/" + t.Name
}

// Record is the audit trail of one deploy attempt.
type Record struct {
	Target       Target
	ImageRef     string
	ModelVersion string

	// PreviousRevision is captured before anything is mutated, so a
	// failed upgrade can always be rolled back.
	PreviousRevision string
	NewRevision      string

	// Atomic is true when the new revision reached readiness in time.
	Atomic bool

	// RolledBack reports whether the previous revision was restored
	// after a failed upgrade. Meaningful only when Atomic is false.
	RolledBack bool
}

// Deployer applies a new model image to a target, all or nothing.
type Deployer interface {
	// Deploy captures the running revision of target, applies imageRef
	// and modelVersion, and waits (bounded) for the new revision to be
	// ready. On apply failure or readiness timeout the captured
	// revision is restored before the error is reported.
	//
	// At most one Deploy is in flight per target. A second call for the
	// same target blocks until the first reaches a terminal state.
	Deploy(ctx context.Context, target Target, imageRef string, modelVersion string) (Record, error)
}

// a deploy attempt did not end with the new revision ready.
var ErrDeploy = errors.New("deploy failed")

// Failure carries the audit record of a failed deploy attempt.
type Failure struct {
	Target Target
	Record Record

	// Mutated is true once an upgrade has been applied (or attempted)
	// against the cluster. When it is false the target still runs the
	// previous revision untouched, and no rollback was needed.
	Mutated bool

	Cause error
}

var _ error = Failure{}

func (f Failure) Error() string {
	state := "nothing was changed"
	if f.Mutated {
		state = "previous revision restored"
		if !f.Record.RolledBack {
			state = "rollback did not complete"
		}
	}
	if f.Cause == nil {
		return fmt.Sprintf("deploying %s failed (%s)", f.Target, state)
	}
	return fmt.Sprintf("deploying %s failed (%s): %s", f.Target, state, f.Cause)
}

func (f Failure) Unwrap() []error {
	if f.Cause == nil {
		return []error{ErrDeploy}
	}
	return []error{ErrDeploy, f.Cause}
}

func AsFailure(err error) (Failure, bool) {
	f := Failure{}
	if errors.As(err, &f) {
		return f, true
	}
	return Failure{}, false
}
