package mock

import (
	"context"
	"errors"

	"github.com/cardops/shiplane/pkg/domain/deploy"
)

// MockDeployer fakes deploy.Deployer.
//
// Set behaviours on Impl and spy invocations on Called.
type MockDeployer struct {
	Impl struct {
		Deploy func(ctx context.Context, target deploy.Target, imageRef string, modelVersion string) (deploy.Record, error)
	}
	Called struct {
		Deploy uint64
	}
}

func NewMockDeployer() *MockDeployer {
	return &MockDeployer{}
}

var _ deploy.Deployer = &MockDeployer{}

func (m *MockDeployer) Deploy(ctx context.Context, target deploy.Target, imageRef string, modelVersion string) (deploy.Record, error) {
	m.Called.Deploy += 1
	if m.Impl.Deploy == nil {
		return deploy.Record{}, errors.New("[MOCK] not implemented")
	}
	return m.Impl.Deploy(ctx, target, imageRef, modelVersion)
}
