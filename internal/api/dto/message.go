package dto

import "time"

// SendMessageReq 发送消息请求体
type SendMessageReq struct {
	Text string `json:"text" binding:"required"`
}

// EditMessageReq 编辑消息请求体
type EditMessageReq struct {
	Text string `json:"text" binding:"required"`
}

// ReactionReq 回应请求体，Src 为表情标识
type ReactionReq struct {
	Src string `json:"src" binding:"required,max=64"`
}

// ListMessagesReq 历史消息分页，Cursor 为上一页返回的 next_cursor，为空时取最新一页
type ListMessagesReq struct {
	Cursor string `form:"cursor"`
	Limit  int    `form:"limit" binding:"omitempty,min=1,max=200"`
}

// SearchMessagesReq 会话内关键词搜索，Cursor 为上一页返回的游标
type SearchMessagesReq struct {
	Keyword string `form:"keyword" binding:"required,max=100"`
	Cursor  string `form:"cursor"`
	Size    int    `form:"size" binding:"omitempty,min=1,max=100"`
}

type ReactionDTO struct {
	Src   string   `json:"src"`
	Count int      `json:"count"`
	Users []string `json:"users"`
}

// MessageDTO 消息明细响应
type MessageDTO struct {
	ID             string        `json:"id"`
	ConversationID string        `json:"conversation_id"`
	SenderID       string        `json:"sender_id"`
	Text           string        `json:"text"`
	CreatedAt      time.Time     `json:"createdAt"`
	EditedAt       *time.Time    `json:"editedAt,omitempty"`
	Reactions      []ReactionDTO `json:"reactions"`
}

// MessagePageDTO 分页结果，没有更多时 NextCursor 为空
type MessagePageDTO struct {
	Messages   []*MessageDTO `json:"messages"`
	NextCursor string        `json:"next_cursor,omitempty"`
}

// SearchHitDTO 搜索命中，仅含检索字段
type SearchHitDTO struct {
	ID             string    `json:"id"`
	ConversationID string    `json:"conversation_id"`
	SenderID       string    `json:"sender_id"`
	Text           string    `json:"text"`
	CreatedAt      time.Time `json:"createdAt"`
}

type SearchResultDTO struct {
	Hits       []*SearchHitDTO `json:"hits"`
	NextCursor string          `json:"next_cursor,omitempty"`
}
