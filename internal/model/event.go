package model

import "time"

// Event 发布给实时推送服务的领域事件
type Event struct {
	Type      string    `json:"type"`
	Payload   any       `json:"payload"`
	CreatedAt time.Time `json:"createdAt"`
}

const (
	EventMessageCreated  = "message.created"
	EventMessageEdited   = "message.edited"
	EventMessageDeleted  = "message.deleted"
	EventReactionChanged = "message.reaction"
	EventMemberJoined    = "member.joined"
	EventOwnerChanged    = "server.owner"
	EventTokensRevoked   = "server.tokens_revoked"
	EventModeration      = "moderation.digest"
	EventUserPurged      = "moderation.purged"
)

func NewEvent(typ string, payload any) Event {
	return Event{Type: typ, Payload: payload, CreatedAt: time.Now()}
}
