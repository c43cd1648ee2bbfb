package registry_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/cardops/shiplane/pkg/domain/registry"
)

func TestRegistryErrors(t *testing.T) {
	t.Run("NotFound matches its sentinel only", func(t *testing.T) {
		testee := registry.NotFound{Model: "fraud-detector", Stage: "Production"}

		if !errors.Is(testee, registry.ErrNotFound) {
			t.Errorf("does not match ErrNotFound: %+v", testee)
		}
		if errors.Is(testee, registry.ErrMetricMissing) || errors.Is(testee, registry.ErrDownload) {
			t.Errorf("matches an unrelated sentinel: %+v", testee)
		}
	})

	t.Run("MetricMissing matches its sentinel only", func(t *testing.T) {
		testee := registry.MetricMissing{RunId: "run-abc", Metric: "f1_score"}

		if !errors.Is(testee, registry.ErrMetricMissing) {
			t.Errorf("does not match ErrMetricMissing: %+v", testee)
		}
		if errors.Is(testee, registry.ErrNotFound) || errors.Is(testee, registry.ErrDownload) {
			t.Errorf("matches an unrelated sentinel: %+v", testee)
		}
	})

	t.Run("DownloadFailure carries its cause beside the sentinel", func(t *testing.T) {
		cause := errors.New("fake cause")
		testee := registry.DownloadFailure{
			Version: "12", Destination: "/tmp/artifacts", Cause: cause,
		}

		if !errors.Is(testee, registry.ErrDownload) {
			t.Errorf("does not match ErrDownload: %+v", testee)
		}
		if !errors.Is(testee, cause) {
			t.Errorf("cause is not reachable: %+v", testee)
		}
		if !strings.Contains(testee.Error(), "fake cause") {
			t.Errorf("message misses the cause: %s", testee.Error())
		}
	})

	t.Run("DownloadFailure without cause still matches the sentinel", func(t *testing.T) {
		testee := registry.DownloadFailure{Version: "12", Destination: "/tmp/artifacts"}
		if !errors.Is(testee, registry.ErrDownload) {
			t.Errorf("does not match ErrDownload: %+v", testee)
		}
	})
}

func TestManifestFile(t *testing.T) {
	t.Run("a written manifest is the download success signal", func(t *testing.T) {
		dir := t.TempDir()

		if _, err := registry.ReadManifest(dir); err == nil {
			t.Fatalf("manifest is read from an empty directory")
		}

		written := registry.Manifest{
			ModelName:   "fraud-detector",
			Version:     "12",
			RunId:       "run-abc",
			Stage:       "Production",
			Metric:      "f1_score",
			MetricValue: 0.93,
		}
		if err := registry.WriteManifest(dir, written); err != nil {
			t.Fatalf("failed to write manifest: %+v", err)
		}

		read, err := registry.ReadManifest(dir)
		if err != nil {
			t.Fatalf("failed to read manifest back: %+v", err)
		}
		if read != written {
			t.Errorf("(actual, expected) = (%+v, %+v)", read, written)
		}
	})
}
