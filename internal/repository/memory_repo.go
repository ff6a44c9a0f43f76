package repository

import (
	"context"
	"sort"
	"sync"

	"triage-dashboard/internal/domain"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MemoryRepo 單機或測試用，程序結束即消失
type MemoryRepo struct {
	mu        sync.RWMutex
	decisions map[string]map[string]domain.ReviewDecision // analysis -> domain -> decision
	settings  domain.NotificationSettings
	users     map[string]domain.User
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		decisions: make(map[string]map[string]domain.ReviewDecision),
		users:     make(map[string]domain.User),
	}
}

func (r *MemoryRepo) SaveDecisions(_ context.Context, analysisID string, decisions []domain.ReviewDecision) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	byDomain, ok := r.decisions[analysisID]
	if !ok {
		byDomain = make(map[string]domain.ReviewDecision)
		r.decisions[analysisID] = byDomain
	}
	for _, d := range decisions {
		d.AnalysisID = analysisID
		if prev, ok := byDomain[d.Domain]; ok {
			d.From = prev.From
		}
		byDomain[d.Domain] = d
	}
	return nil
}

func (r *MemoryRepo) ListDecisions(_ context.Context, analysisID string) ([]domain.ReviewDecision, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.ReviewDecision, 0, len(r.decisions[analysisID]))
	for _, d := range r.decisions[analysisID] {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].DecidedAt.Equal(out[j].DecidedAt) {
			return out[i].Domain < out[j].Domain
		}
		return out[i].DecidedAt.After(out[j].DecidedAt)
	})
	return out, nil
}

func (r *MemoryRepo) GetSettings(_ context.Context) (*domain.NotificationSettings, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s := r.settings
	return &s, nil
}

func (r *MemoryRepo) SaveSettings(_ context.Context, settings domain.NotificationSettings) error {
	r.mu.Lock()
	r.settings = settings
	r.mu.Unlock()
	return nil
}

func (r *MemoryRepo) FindUser(_ context.Context, username string) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.users[username]
	if !ok {
		return nil, ErrNotFound
	}
	return &u, nil
}

func (r *MemoryRepo) CreateUser(_ context.Context, user domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if user.ID.IsZero() {
		user.ID = primitive.NewObjectID()
	}
	r.users[user.Username] = user
	return nil
}

func (r *MemoryRepo) CountUsers(_ context.Context) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return int64(len(r.users)), nil
}
