package postgres

import (
	"fmt"

	kdb "github.com/cardops/shiplane/pkg/domain/history/db"
)

// requested record is missing.
type Missing struct {
	Table    string
	Identity string
}

var _ error = Missing{}

func (m Missing) Error() string {
	return fmt.Sprintf("%s is not found in %s", m.Identity, m.Table)
}

func (m Missing) Unwrap() error {
	return kdb.ErrMissing
}

// record to be created exists already, or is sealed against the change.
type Conflict struct {
	Table    string
	Identity string
}

var _ error = Conflict{}

func (c Conflict) Error() string {
	return fmt.Sprintf("%s conflicts in %s", c.Identity, c.Table)
}

func (c Conflict) Unwrap() error {
	return kdb.ErrConflict
}
