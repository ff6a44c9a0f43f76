package domain

import "time"

// StatusChange 表格批次改狀態時往上回報的單筆變更
type StatusChange struct {
	ID     string       `json:"id"`
	Domain string       `json:"domain"`
	From   DomainStatus `json:"from"`
	To     DomainStatus `json:"to"`
}

// ReviewDecision 持久化後的人工審核紀錄
type ReviewDecision struct {
	AnalysisID string       `bson:"analysis_id" json:"analysis_id"`
	Domain     string       `bson:"domain" json:"domain"`
	From       DomainStatus `bson:"from" json:"from"`
	To         DomainStatus `bson:"to" json:"to"`
	DecidedAt  time.Time    `bson:"decided_at" json:"decided_at"`
}
