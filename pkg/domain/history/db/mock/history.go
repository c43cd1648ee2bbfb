package mock

import (
	"context"
	"errors"
	"time"

	"github.com/cardops/shiplane/pkg/domain"
	kdb "github.com/cardops/shiplane/pkg/domain/history/db"
)

type HistoryInterface struct {
	Impl struct {
		Register       func(ctx context.Context, run domain.PipelineRun) error
		AddStageResult func(ctx context.Context, runId string, seq int, result domain.StageResult) error
		Finish         func(ctx context.Context, runId string, outcome domain.RunOutcome, finishedAt time.Time) error
		Get            func(ctx context.Context, runId string) (domain.PipelineRun, error)
		Find           func(ctx context.Context, query kdb.Query) ([]domain.PipelineRun, error)
	}
	Called struct {
		Register       uint64
		AddStageResult uint64
		Finish         uint64
		Get            uint64
		Find           uint64
	}
}

func NewHistoryInterface() *HistoryInterface {
	return &HistoryInterface{}
}

var _ kdb.HistoryInterface = &HistoryInterface{}

func (m *HistoryInterface) Register(ctx context.Context, run domain.PipelineRun) error {
	m.Called.Register += 1
	if m.Impl.Register == nil {
		return errors.New("[MOCK] not implemented")
	}
	return m.Impl.Register(ctx, run)
}

func (m *HistoryInterface) AddStageResult(ctx context.Context, runId string, seq int, result domain.StageResult) error {
	m.Called.AddStageResult += 1
	if m.Impl.AddStageResult == nil {
		return errors.New("[MOCK] not implemented")
	}
	return m.Impl.AddStageResult(ctx, runId, seq, result)
}

func (m *HistoryInterface) Finish(ctx context.Context, runId string, outcome domain.RunOutcome, finishedAt time.Time) error {
	m.Called.Finish += 1
	if m.Impl.Finish == nil {
		return errors.New("[MOCK] not implemented")
	}
	return m.Impl.Finish(ctx, runId, outcome, finishedAt)
}

func (m *HistoryInterface) Get(ctx context.Context, runId string) (domain.PipelineRun, error) {
	m.Called.Get += 1
	if m.Impl.Get == nil {
		return domain.PipelineRun{}, errors.New("[MOCK] not implemented")
	}
	return m.Impl.Get(ctx, runId)
}

func (m *HistoryInterface) Find(ctx context.Context, query kdb.Query) ([]domain.PipelineRun, error) {
	m.Called.Find += 1
	if m.Impl.Find == nil {
		return nil, errors.New("[MOCK] not implemented")
	}
	return m.Impl.Find(ctx, query)
}
