package model

import "time"

// 举报状态，只能由 pending 单向转换
const (
	ReportPending  = "pending"
	ReportApproved = "approved"
	ReportDeleted  = "deleted"
)

type Report struct {
	ID             string     `json:"id"`
	MessageID      string     `json:"messageId"`
	ConversationID string     `json:"conversationId"`
	ReporterID     string     `json:"reporterId"`
	Reason         string     `json:"reason,omitempty"`
	Status         string     `json:"status"`
	CreatedAt      time.Time  `json:"createdAt"`
	ResolvedBy     string     `json:"resolvedBy,omitempty"`
	ResolvedAt     *time.Time `json:"resolvedAt,omitempty"`
}

// ReportGroup 同一条消息下的待处理举报聚合
type ReportGroup struct {
	MessageID      string    `json:"messageId"`
	ConversationID string    `json:"conversationId"`
	ReportCount    int       `json:"reportCount"`
	Reporters      []string  `json:"reporters"`
	ReportIDs      []string  `json:"reportIds"`
	EarliestAt     time.Time `json:"earliestAt"`
}
