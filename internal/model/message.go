package model

import (
	"slices"
	"time"

	"github.com/goccy/go-json"
)

// Message 会话消息，主键为 (conversation_id, created_at, id)
type Message struct {
	ID             string     `json:"id"`
	ConversationID string     `json:"conversationId"`
	SenderID       string     `json:"senderId"`
	Text           string     `json:"text"`
	CreatedAt      time.Time  `json:"createdAt"`
	EditedAt       *time.Time `json:"editedAt,omitempty"`
	Reactions      []Reaction `json:"reactions"`
}

// Reaction 某个表情下的回应用户，Count 恒等于 len(Users)，不存在 Count 为 0 的条目
type Reaction struct {
	Src   string   `json:"src"`
	Count int      `json:"count"`
	Users []string `json:"users"`
}

// HasReacted 用户是否已在 src 下回应
func HasReacted(reactions []Reaction, src, userID string) bool {
	for _, r := range reactions {
		if r.Src == src {
			return slices.Contains(r.Users, userID)
		}
	}
	return false
}

// ToggleReaction 返回切换后的新集合，不修改入参。
// 已回应则移除该用户（人数归零时删除整个条目），否则追加到末尾。
func ToggleReaction(reactions []Reaction, src, userID string) []Reaction {
	out := make([]Reaction, 0, len(reactions)+1)
	found := false
	for _, r := range reactions {
		if r.Src != src {
			out = append(out, cloneReaction(r))
			continue
		}
		found = true
		users := slices.Clone(r.Users)
		if i := slices.Index(users, userID); i >= 0 {
			users = slices.Delete(users, i, i+1)
		} else {
			users = append(users, userID)
		}
		if len(users) == 0 {
			continue
		}
		out = append(out, Reaction{Src: src, Count: len(users), Users: users})
	}
	if !found {
		out = append(out, Reaction{Src: src, Count: 1, Users: []string{userID}})
	}
	return out
}

func cloneReaction(r Reaction) Reaction {
	return Reaction{Src: r.Src, Count: len(r.Users), Users: slices.Clone(r.Users)}
}

// EncodeReactions 序列化回应集合，空集合编码为 nil（列为空）
func EncodeReactions(reactions []Reaction) (*string, error) {
	if len(reactions) == 0 {
		return nil, nil
	}
	data, err := json.Marshal(reactions)
	if err != nil {
		return nil, err
	}
	s := string(data)
	return &s, nil
}

// DecodeReactions 反序列化回应集合，空串返回 nil
func DecodeReactions(raw string) ([]Reaction, error) {
	if raw == "" {
		return nil, nil
	}
	var reactions []Reaction
	if err := json.Unmarshal([]byte(raw), &reactions); err != nil {
		return nil, err
	}
	return reactions, nil
}
