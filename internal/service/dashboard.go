package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"triage-dashboard/internal/domain"
	"triage-dashboard/internal/repository"
	"triage-dashboard/internal/table"

	"github.com/sirupsen/logrus"
)

type View string

const (
	ViewList    View = "list"
	ViewResults View = "results"
)

var (
	ErrNoResults = errors.New("no analysis results loaded")
	ErrNotFound  = errors.New("not found")
)

// 前端顯示用的固定提示
const (
	HintStartFailed   = "Failed to create analysis. Please make sure the backend server is running."
	HintResultsFailed = "Failed to load analysis results. Please make sure the backend server is running."
)

// DashboardState 導覽狀態
type DashboardState struct {
	View          View      `json:"view"`
	AnalysisID    string    `json:"analysis_id,omitempty"`
	Loading       bool      `json:"loading"`
	Error         string    `json:"error,omitempty"`
	PollerRunning bool      `json:"poller_running"`
	ListUpdatedAt time.Time `json:"list_updated_at"`
}

// DashboardService 列表頁 / 結果頁之間的切換，以及結果頁的表格
type DashboardService struct {
	API              AnalysisAPI
	Poller           *Poller
	Repo             repository.ReviewRepository
	Notifier         *NotifierService
	PersistDecisions bool

	mu         sync.Mutex
	view       View
	analysisID string
	loading    bool
	lastErr    error
	table      *table.Table
}

func NewDashboardService(api AnalysisAPI, poller *Poller, repo repository.ReviewRepository, notifier *NotifierService, persist bool) *DashboardService {
	return &DashboardService{
		API:              api,
		Poller:           poller,
		Repo:             repo,
		Notifier:         notifier,
		PersistDecisions: persist,
		view:             ViewList,
	}
}

// Start 從列表頁開始
func (s *DashboardService) Start() {
	s.Poller.Start()
}

func (s *DashboardService) Stop() {
	s.Poller.Stop()
}

func (s *DashboardService) State() DashboardState {
	_, updated, _ := s.Poller.Snapshot()
	s.mu.Lock()
	defer s.mu.Unlock()
	st := DashboardState{
		View:          s.view,
		AnalysisID:    s.analysisID,
		Loading:       s.loading,
		PollerRunning: s.Poller.Running(),
		ListUpdatedAt: updated,
	}
	if s.lastErr != nil {
		st.Error = s.lastErr.Error()
	}
	return st
}

// Analyses 最近一次輪詢結果
func (s *DashboardService) Analyses() ([]domain.AnalysisSession, error) {
	list, _, err := s.Poller.Snapshot()
	return list, err
}

// Submit 檢查後送出新批次，成功後立即刷新列表
func (s *DashboardService) Submit(ctx context.Context, req domain.StartAnalysisRequest) (*domain.AnalysisSession, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	created, err := s.API.StartAnalysis(ctx, req)
	if err != nil {
		logrus.Errorf("[Dashboard] 建立分析失敗: %v", err)
		return nil, err
	}
	logrus.WithFields(logrus.Fields{"analysis_id": created.ID, "domains": len(req.Domains)}).Info("[Dashboard] 已建立分析")

	if _, err := s.Poller.Refresh(ctx); err != nil && !errors.Is(err, ErrSuperseded) {
		logrus.Warnf("[Dashboard] 建立後刷新列表失敗: %v", err)
	}
	return created, nil
}

// OpenAnalysis 切到結果頁並載入結果。
// 失敗時維持 loading (不重試)；使用者已離開時晚到的回應仍會覆寫狀態。
func (s *DashboardService) OpenAnalysis(ctx context.Context, id string) error {
	s.mu.Lock()
	s.view = ViewResults
	s.analysisID = id
	s.loading = true
	s.lastErr = nil
	s.table = nil
	s.mu.Unlock()

	s.Poller.Stop()

	// 不跟著請求取消
	records, err := s.API.GetResults(context.WithoutCancel(ctx), id)
	if err != nil {
		s.mu.Lock()
		s.lastErr = err
		s.mu.Unlock()
		logrus.WithField("analysis_id", id).Errorf("[Dashboard] 載入結果失敗: %v", err)
		return err
	}

	tbl := table.New(records, table.WithOnChange(s.onStatusChange(id)))
	if s.PersistDecisions {
		s.restoreDecisions(ctx, id, tbl)
	}

	s.mu.Lock()
	s.view = ViewResults
	s.analysisID = id
	s.table = tbl
	s.loading = false
	s.mu.Unlock()

	logrus.WithFields(logrus.Fields{"analysis_id": id, "rows": len(records)}).Info("[Dashboard] 結果已載入")
	return nil
}

// Back 回到列表頁並重新啟動輪詢
func (s *DashboardService) Back() {
	s.mu.Lock()
	s.view = ViewList
	s.analysisID = ""
	s.loading = false
	s.lastErr = nil
	s.table = nil
	s.mu.Unlock()

	s.Poller.Start()
}

// Table 目前結果頁的表格
func (s *DashboardService) Table() (*table.Table, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.table == nil {
		return nil, ErrNoResults
	}
	return s.table, nil
}

// Evidence 單一列的佐證
func (s *DashboardService) Evidence(id string) (EvidenceView, error) {
	tbl, err := s.Table()
	if err != nil {
		return EvidenceView{}, err
	}
	rec, ok := tbl.Row(id)
	if !ok {
		return EvidenceView{}, fmt.Errorf("row %s: %w", id, ErrNotFound)
	}
	return BuildEvidence(rec), nil
}

// Decisions 已保存的人工審核紀錄
func (s *DashboardService) Decisions(ctx context.Context) ([]domain.ReviewDecision, error) {
	s.mu.Lock()
	id := s.analysisID
	s.mu.Unlock()
	if id == "" {
		return nil, ErrNoResults
	}
	return s.Repo.ListDecisions(ctx, id)
}

func (s *DashboardService) restoreDecisions(ctx context.Context, id string, tbl *table.Table) {
	saved, err := s.Repo.ListDecisions(ctx, id)
	if err != nil {
		logrus.Warnf("[Dashboard] 讀取審核紀錄失敗: %v", err)
		return
	}
	byDomain := make(map[string]domain.DomainStatus, len(saved))
	for _, d := range saved {
		byDomain[d.Domain] = d.To
	}
	if n := tbl.Restore(byDomain); n > 0 {
		logrus.WithField("analysis_id", id).Infof("[Dashboard] 已套用 %d 筆先前的審核結果", n)
	}
}

// onStatusChange 表格批次改狀態後的回呼: 視設定保存並通知
func (s *DashboardService) onStatusChange(analysisID string) table.ChangeFunc {
	return func(changes []domain.StatusChange) {
		ctx := context.Background()
		logrus.WithFields(logrus.Fields{"analysis_id": analysisID, "count": len(changes)}).Info("[Dashboard] 人工變更狀態")

		if s.PersistDecisions {
			now := time.Now()
			decisions := make([]domain.ReviewDecision, 0, len(changes))
			for _, c := range changes {
				decisions = append(decisions, domain.ReviewDecision{
					AnalysisID: analysisID,
					Domain:     c.Domain,
					From:       c.From,
					To:         c.To,
					DecidedAt:  now,
				})
			}
			if err := s.Repo.SaveDecisions(ctx, analysisID, decisions); err != nil {
				logrus.Errorf("[Dashboard] 保存審核結果失敗: %v", err)
			}
		}

		if s.Notifier != nil {
			s.Notifier.NotifyReview(ctx, s.session(analysisID), changes)
		}
	}
}

func (s *DashboardService) session(id string) domain.AnalysisSession {
	list, _, _ := s.Poller.Snapshot()
	for _, a := range list {
		if a.ID == id {
			return a
		}
	}
	return domain.AnalysisSession{ID: id, Name: id}
}
