package trigger

import (
	"errors"
	"fmt"
)

var ErrBadEvent = errors.New("bad trigger event")

// Event describes one requested pipeline run.
type Event struct {
	// Ref is the git ref the run is triggered for.
	Ref string

	// Commit pins the exact commit. Empty means the head of Ref.
	Commit string

	// Requester identifies who (or what) asked for the run.
	Requester string
}

func (e Event) Validate() error {
	if e.Ref == "" {
		return fmt.Errorf("%w: ref is required", ErrBadEvent)
	}
	return nil
}
