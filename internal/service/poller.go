package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"triage-dashboard/internal/domain"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// ErrSuperseded 這次請求已被較新的請求取代，結果不採用
var ErrSuperseded = errors.New("poll superseded by a newer request")

// SnapshotFunc 每次成功輪詢後呼叫
type SnapshotFunc func(list []domain.AnalysisSession)

// Poller 定時拉取分析清單。
// 每個 tick 先取消上一個還沒回來的請求，只有最新序號的結果可以寫入。
type Poller struct {
	API      AnalysisAPI
	Interval time.Duration

	mu       sync.Mutex
	cron     *cron.Cron
	running  bool
	seq      uint64
	epoch    uint64 // 每次 Stop 加一，舊排程的 tick 不再送出
	cancel   context.CancelFunc
	snapshot []domain.AnalysisSession
	updated  time.Time
	lastErr  error
	subs     []SnapshotFunc
}

func NewPoller(api AnalysisAPI, interval time.Duration) *Poller {
	if interval <= 0 {
		interval = 2 * time.Second
	}
	return &Poller{API: api, Interval: interval}
}

// Subscribe 註冊快照回呼 (在鎖外呼叫)
func (p *Poller) Subscribe(fn SnapshotFunc) {
	p.mu.Lock()
	p.subs = append(p.subs, fn)
	p.mu.Unlock()
}

// Start 進入列表頁時啟動，立即拉一次
func (p *Poller) Start() {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return
	}
	epoch := p.epoch
	c := cron.New()
	spec := fmt.Sprintf("@every %s", p.Interval)
	if _, err := c.AddFunc(spec, func() { p.tick(epoch) }); err != nil {
		p.mu.Unlock()
		logrus.Errorf("[Poller] 排程註冊失敗 [%s]: %v", spec, err)
		return
	}
	p.cron = c
	p.running = true
	p.mu.Unlock()

	c.Start()
	logrus.Infof("[Poller] 已啟動，每 %s 拉取一次分析清單", p.Interval)
	go p.tick(epoch)
}

// Stop 離開列表頁時停止，並取消進行中的請求
func (p *Poller) Stop() {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return
	}
	c := p.cron
	p.cron = nil
	p.running = false
	if p.cancel != nil {
		p.cancel()
		p.cancel = nil
	}
	p.seq++ // 已發出的請求全部作廢
	p.epoch++
	p.mu.Unlock()

	<-c.Stop().Done()
	logrus.Info("[Poller] 已停止")
}

func (p *Poller) Running() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

// Snapshot 最近一次成功的清單
func (p *Poller) Snapshot() ([]domain.AnalysisSession, time.Time, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]domain.AnalysisSession(nil), p.snapshot...), p.updated, p.lastErr
}

// Refresh 立即拉一次 (例如送出新批次後)，同樣遵守取代規則
func (p *Poller) Refresh(ctx context.Context) ([]domain.AnalysisSession, error) {
	reqCtx, seq := p.begin(ctx)
	list, err := p.API.ListAnalyses(reqCtx)
	return p.finish(seq, list, err)
}

// tick 排程觸發；已 Stop (或屬於較早的 Start) 時不發請求
func (p *Poller) tick(epoch uint64) {
	p.mu.Lock()
	if !p.running || p.epoch != epoch {
		p.mu.Unlock()
		return
	}
	ctx, seq := p.beginLocked(context.Background())
	p.mu.Unlock()

	list, err := p.API.ListAnalyses(ctx)
	if _, err := p.finish(seq, list, err); err != nil && !errors.Is(err, ErrSuperseded) {
		logrus.Warnf("[Poller] 拉取分析清單失敗: %v", err)
	}
}

func (p *Poller) begin(parent context.Context) (context.Context, uint64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.beginLocked(parent)
}

func (p *Poller) beginLocked(parent context.Context) (context.Context, uint64) {
	if p.cancel != nil {
		p.cancel()
	}
	ctx, cancel := context.WithCancel(parent)
	p.cancel = cancel
	p.seq++
	return ctx, p.seq
}

func (p *Poller) finish(seq uint64, list []domain.AnalysisSession, err error) ([]domain.AnalysisSession, error) {
	p.mu.Lock()
	if seq != p.seq {
		p.mu.Unlock()
		logrus.Debugf("[Poller] 丟棄過期回應 (seq=%d)", seq)
		return nil, ErrSuperseded
	}
	if p.cancel != nil {
		p.cancel()
		p.cancel = nil
	}
	if err != nil {
		p.lastErr = err
		p.mu.Unlock()
		return nil, err
	}
	p.snapshot = append([]domain.AnalysisSession(nil), list...)
	p.updated = time.Now()
	p.lastErr = nil
	subs := append([]SnapshotFunc(nil), p.subs...)
	p.mu.Unlock()

	for _, fn := range subs {
		fn(list)
	}
	return list, nil
}
