package mock

import (
	"context"
	"errors"

	"github.com/cardops/shiplane/pkg/extcmd"
)

// MockRunner fakes extcmd.Runner.
//
// Set behaviours on Impl and spy invocations on Called and Specs.
type MockRunner struct {
	Impl struct {
		Run func(ctx context.Context, spec extcmd.Spec) (extcmd.Result, error)
	}
	Called struct {
		Run uint64
	}

	// Specs records every Spec passed to Run, in order.
	Specs []extcmd.Spec
}

func NewMockRunner() *MockRunner {
	return &MockRunner{}
}

var _ extcmd.Runner = &MockRunner{}

func (m *MockRunner) Run(ctx context.Context, spec extcmd.Spec) (extcmd.Result, error) {
	m.Called.Run += 1
	m.Specs = append(m.Specs, spec)
	if m.Impl.Run == nil {
		return extcmd.Result{}, errors.New("[MOCK] not implemented")
	}
	return m.Impl.Run(ctx, spec)
}
