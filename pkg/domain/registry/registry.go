// Package registry declares the model registry boundary of the pipeline.
//
// Implementations live in subpackages. `registry/mlflow` talks to an
// MLflow tracking server over its REST API, and `registry/mock` is for
// testing stage bodies without a registry.
package registry

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	xe "github.com/cardops/shiplane/pkg/errors"
)

// ManifestFilename is the descriptor written next to downloaded artifacts.
//
// Its presence is the success signal of DownloadArtifacts. A download
// that leaves no manifest behind has failed, whatever its return value.
const ManifestFilename = "model_metadata.json"

// Manifest records identity and provenance of downloaded model artifacts.
type Manifest struct {
	ModelName    string    `json:"model_name"`
	Version      string    `json:"model_version"`
	RunId        string    `json:"run_id"`
	Stage        string    `json:"stage"`
	Metric       string    `json:"metric"`
	MetricValue  float64   `json:"metric_value"`
	DownloadedAt time.Time `json:"downloaded_at"`
}

// WriteManifest puts the manifest file into dir.
func WriteManifest(dir string, m Manifest) error {
	buf, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return xe.Wrap(err)
	}
	if err := os.WriteFile(filepath.Join(dir, ManifestFilename), buf, 0o644); err != nil {
		return xe.Wrap(err)
	}
	return nil
}

// ReadManifest loads the manifest file from dir.
func ReadManifest(dir string) (Manifest, error) {
	buf, err := os.ReadFile(filepath.Join(dir, ManifestFilename))
	if err != nil {
		return Manifest{}, xe.Wrap(err)
	}
	m := Manifest{}
	if err := json.Unmarshal(buf, &m); err != nil {
		return Manifest{}, xe.Wrap(err)
	}
	return m, nil
}

// Client is the pipeline's view of a model registry.
type Client interface {
	// ResolveProduction finds the model version currently promoted to the
	// configured stage label.
	//
	// Returns: the version identifier, the training run which produced it,
	// and error. When the model has no version in the stage, the error
	// matches ErrNotFound.
	ResolveProduction(ctx context.Context, modelName string) (version string, runId string, err error)

	// FetchMetric reads a recorded evaluation metric of a training run.
	//
	// When the run exists but has no such metric, or the run itself is
	// unknown, the error matches ErrMetricMissing.
	FetchMetric(ctx context.Context, runId string, metricName string) (float64, error)

	// DownloadArtifacts fetches the artifacts of a model version into
	// destination and writes a Manifest beside them.
	//
	// Repeated calls with fresh destinations for the same version yield
	// artifacts with the same identity. On any I/O or network trouble the
	// error matches ErrDownload.
	DownloadArtifacts(ctx context.Context, version string, destination string) (Manifest, error)
}
