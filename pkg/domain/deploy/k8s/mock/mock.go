package mock

import (
	"context"
	"errors"

	kubeapps "k8s.io/api/apps/v1"

	k8s "github.com/cardops/shiplane/pkg/domain/deploy/k8s"
)

// MockClusterClient fakes k8s.ClusterClient.
//
// Set behaviours on Impl and spy invocations on Called.
type MockClusterClient struct {
	Impl struct {
		GetDeployment    func(ctx context.Context, namespace string, name string) (*kubeapps.Deployment, error)
		UpdateDeployment func(ctx context.Context, namespace string, depl *kubeapps.Deployment) (*kubeapps.Deployment, error)
	}
	Called struct {
		GetDeployment    uint64
		UpdateDeployment uint64
	}
}

func NewMockClusterClient() *MockClusterClient {
	return &MockClusterClient{}
}

var _ k8s.ClusterClient = &MockClusterClient{}

func (m *MockClusterClient) GetDeployment(ctx context.Context, namespace string, name string) (*kubeapps.Deployment, error) {
	m.Called.GetDeployment += 1
	if m.Impl.GetDeployment == nil {
		return nil, errors.New("[MOCK] not implemented")
	}
	return m.Impl.GetDeployment(ctx, namespace, name)
}

func (m *MockClusterClient) UpdateDeployment(ctx context.Context, namespace string, depl *kubeapps.Deployment) (*kubeapps.Deployment, error) {
	m.Called.UpdateDeployment += 1
	if m.Impl.UpdateDeployment == nil {
		return nil, errors.New("[MOCK] not implemented")
	}
	return m.Impl.UpdateDeployment(ctx, namespace, depl)
}
