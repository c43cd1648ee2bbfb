package domain

import (
	"errors"
	"fmt"

	xe "github.com/cardops/shiplane/pkg/errors"
)

type wrappingError struct {
	message  string
	causedBy error
}

func as[E error](err error) bool {
	if err == nil {
		return false
	}
	p := new(E)
	return errors.As(err, p)
}

func format(e struct {
	message  string
	causedBy error
}) string {
	if e.causedBy == nil {
		return e.message
	}
	if e.message == "" {
		return fmt.Sprintf("caused by: %+v", e.causedBy)
	}

	return fmt.Sprintf("%s / caused by: %+v", e.message, e.causedBy)
}

// Pipeline configuration is unusable.
type ErrConfiguration wrappingError

var AsConfigurationError = as[*ErrConfiguration]

func NewConfiguration(message string) error {
	return xe.WrapAsOuter(&ErrConfiguration{message: message}, 1)
}

func NewConfigurationCausedBy(message string, err error) error {
	return xe.WrapAsOuter(&ErrConfiguration{message: message, causedBy: err}, 1)
}

func (e *ErrConfiguration) Error() string {
	return format(*e)
}

func (e *ErrConfiguration) Unwrap() error {
	return e.causedBy
}

// Container image build failed.
type ErrBuild wrappingError

var AsBuildError = as[*ErrBuild]

func NewBuildCausedBy(message string, err error) error {
	return xe.WrapAsOuter(&ErrBuild{message: message, causedBy: err}, 1)
}

func (e *ErrBuild) Error() string {
	return format(*e)
}

func (e *ErrBuild) Unwrap() error {
	return e.causedBy
}

// Security scan reported findings or could not run.
type ErrScan wrappingError

var AsScanError = as[*ErrScan]

func NewScanCausedBy(message string, err error) error {
	return xe.WrapAsOuter(&ErrScan{message: message, causedBy: err}, 1)
}

func (e *ErrScan) Error() string {
	return format(*e)
}

func (e *ErrScan) Unwrap() error {
	return e.causedBy
}

// Pushing the container image to its registry failed.
type ErrPush wrappingError

var AsPushError = as[*ErrPush]

func NewPushCausedBy(message string, err error) error {
	return xe.WrapAsOuter(&ErrPush{message: message, causedBy: err}, 1)
}

func (e *ErrPush) Error() string {
	return format(*e)
}

func (e *ErrPush) Unwrap() error {
	return e.causedBy
}

// Model version did not clear the quality gate.
type ErrGateRejected struct {
	Evaluation ModelEvaluation
}

var _ error = ErrGateRejected{}

func NewGateRejected(ev ModelEvaluation) error {
	return xe.WrapAsOuter(ErrGateRejected{Evaluation: ev}, 1)
}

func (e ErrGateRejected) Error() string {
	ev := e.Evaluation
	return fmt.Sprintf(
		"quality gate rejected %s version %s: %s = %v below threshold %v",
		ev.ModelName, ev.Version, ev.Metric, ev.Value, ev.Threshold,
	)
}

func AsGateRejected(err error) (ErrGateRejected, bool) {
	rejected := ErrGateRejected{}
	if errors.As(err, &rejected) {
		return rejected, true
	}
	return ErrGateRejected{}, false
}
