package es

import (
	"Parley/internal/model"
	"time"
)

// MessageES 写入 ES 的消息文档，仅用于关键词检索，权威数据在行存储中
type MessageES struct {
	ID             string    `json:"id"`
	ConversationID string    `json:"conversation_id"`
	SenderID       string    `json:"sender_id"`
	Text           string    `json:"text"`
	CreatedAt      time.Time `json:"created_at"`

	Sort []interface{} `json:"-"`
}

func NewMessageES(m *model.Message) *MessageES {
	return &MessageES{
		ID:             m.ID,
		ConversationID: m.ConversationID,
		SenderID:       m.SenderID,
		Text:           m.Text,
		CreatedAt:      m.CreatedAt,
	}
}
