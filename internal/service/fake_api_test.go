package service

import (
	"context"
	"sync/atomic"

	"triage-dashboard/internal/domain"
)

// fakeAPI 每個端點各自可替換，未設定時回傳空結果
type fakeAPI struct {
	list    func(ctx context.Context) ([]domain.AnalysisSession, error)
	start   func(ctx context.Context, req domain.StartAnalysisRequest) (*domain.AnalysisSession, error)
	results func(ctx context.Context, id string) ([]domain.DomainRecord, error)

	listCalls    int32
	startCalls   int32
	resultsCalls int32
}

func (f *fakeAPI) ListAnalyses(ctx context.Context) ([]domain.AnalysisSession, error) {
	atomic.AddInt32(&f.listCalls, 1)
	if f.list == nil {
		return nil, nil
	}
	return f.list(ctx)
}

func (f *fakeAPI) StartAnalysis(ctx context.Context, req domain.StartAnalysisRequest) (*domain.AnalysisSession, error) {
	atomic.AddInt32(&f.startCalls, 1)
	if f.start == nil {
		return &domain.AnalysisSession{ID: "new", Name: req.Name, Status: domain.AnalysisPending}, nil
	}
	return f.start(ctx, req)
}

func (f *fakeAPI) GetResults(ctx context.Context, id string) ([]domain.DomainRecord, error) {
	atomic.AddInt32(&f.resultsCalls, 1)
	if f.results == nil {
		return nil, nil
	}
	return f.results(ctx, id)
}
