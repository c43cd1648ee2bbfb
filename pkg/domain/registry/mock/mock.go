package mock

import (
	"context"
	"errors"

	"github.com/cardops/shiplane/pkg/domain/registry"
)

// MockClient fakes registry.Client.
//
// Set behaviours on Impl and spy invocations on Called.
type MockClient struct {
	Impl struct {
		ResolveProduction func(ctx context.Context, modelName string) (string, string, error)
		FetchMetric       func(ctx context.Context, runId string, metricName string) (float64, error)
		DownloadArtifacts func(ctx context.Context, version string, destination string) (registry.Manifest, error)
	}
	Called struct {
		ResolveProduction uint64
		FetchMetric       uint64
		DownloadArtifacts uint64
	}
}

func NewMockClient() *MockClient {
	return &MockClient{}
}

var _ registry.Client = &MockClient{}

func (m *MockClient) ResolveProduction(ctx context.Context, modelName string) (string, string, error) {
	m.Called.ResolveProduction += 1
	if m.Impl.ResolveProduction == nil {
		return "", "", errors.New("[MOCK] not implemented")
	}
	return m.Impl.ResolveProduction(ctx, modelName)
}

func (m *MockClient) FetchMetric(ctx context.Context, runId string, metricName string) (float64, error) {
	m.Called.FetchMetric += 1
	if m.Impl.FetchMetric == nil {
		return 0, errors.New("[MOCK] not implemented")
	}
	return m.Impl.FetchMetric(ctx, runId, metricName)
}

func (m *MockClient) DownloadArtifacts(ctx context.Context, version string, destination string) (registry.Manifest, error) {
	m.Called.DownloadArtifacts += 1
	if m.Impl.DownloadArtifacts == nil {
		return registry.Manifest{}, errors.New("[MOCK] not implemented")
	}
	return m.Impl.DownloadArtifacts(ctx, version, destination)
}
