package registry

import (
	"errors"
	"fmt"
)

var (
	// no version of the model is promoted to the requested stage.
	ErrNotFound = errors.New("model version is not found")

	// the training run does not record the requested metric.
	ErrMetricMissing = errors.New("metric is missing")

	// fetching artifacts failed, or left no manifest behind.
	ErrDownload = errors.New("artifact download failed")
)

type NotFound struct {
	Model string
	Stage string
}

var _ error = NotFound{}

func (m NotFound) Error() string {
	return fmt.Sprintf("model %s has no version in stage %s", m.Model, m.Stage)
}

func (m NotFound) Unwrap() error {
	return ErrNotFound
}

type MetricMissing struct {
	RunId  string
	Metric string
}

var _ error = MetricMissing{}

func (m MetricMissing) Error() string {
	return fmt.Sprintf("run %s does not record metric %s", m.RunId, m.Metric)
}

func (m MetricMissing) Unwrap() error {
	return ErrMetricMissing
}

type DownloadFailure struct {
	Version     string
	Destination string
	Cause       error
}

var _ error = DownloadFailure{}

func (d DownloadFailure) Error() string {
	if d.Cause == nil {
		return fmt.Sprintf(
			"downloading artifacts of version %s into %s failed",
			d.Version, d.Destination,
		)
	}
	return fmt.Sprintf(
		"downloading artifacts of version %s into %s failed: %s",
		d.Version, d.Destination, d.Cause,
	)
}

func (d DownloadFailure) Unwrap() []error {
	if d.Cause == nil {
		return []error{ErrDownload}
	}
	return []error{ErrDownload, d.Cause}
}
