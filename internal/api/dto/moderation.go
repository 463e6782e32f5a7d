package dto

import "time"

// CreateReportReq 举报消息
type CreateReportReq struct {
	ConversationID string `json:"conversation_id" binding:"required"`
	MessageID      string `json:"message_id" binding:"required"`
	Reason         string `json:"reason" binding:"omitempty,max=500"`
}

// ListReportsReq Status 为空时返回全部状态
type ListReportsReq struct {
	Status string `form:"status" binding:"omitempty,oneof=pending approved deleted"`
	Limit  int    `form:"limit" binding:"omitempty,min=1,max=1000"`
}

// ResolveReportReq approved 保留消息，deleted 同时删除被举报消息
type ResolveReportReq struct {
	Status string `json:"status" binding:"required,oneof=approved deleted"`
}

type ReportDTO struct {
	ID             string     `json:"id"`
	MessageID      string     `json:"message_id"`
	ConversationID string     `json:"conversation_id"`
	ReporterID     string     `json:"reporter_id"`
	Reason         string     `json:"reason,omitempty"`
	Status         string     `json:"status"`
	CreatedAt      time.Time  `json:"createdAt"`
	ResolvedBy     string     `json:"resolved_by,omitempty"`
	ResolvedAt     *time.Time `json:"resolvedAt,omitempty"`
}

// ReportGroupDTO 审核队列条目，Message 为被举报消息，已删除时为空
type ReportGroupDTO struct {
	MessageID      string      `json:"message_id"`
	ConversationID string      `json:"conversation_id"`
	ReportCount    int         `json:"report_count"`
	Reporters      []string    `json:"reporters"`
	ReportIDs      []string    `json:"report_ids"`
	EarliestAt     time.Time   `json:"earliestAt"`
	Message        *MessageDTO `json:"message,omitempty"`
}

type ResolveAllDTO struct {
	Resolved       int  `json:"resolved"`
	MessageDeleted bool `json:"message_deleted"`
}

type PurgeDTO struct {
	UserID          string `json:"user_id"`
	DeletedMessages int    `json:"deleted_messages"`
}
