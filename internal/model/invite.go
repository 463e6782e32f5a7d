package model

import "time"

// Invite 邀请码。UsesRemaining 归零时 Revoked 必为 true
type Invite struct {
	Code          string     `json:"code"`
	CreatedBy     string     `json:"createdBy"`
	CreatedAt     time.Time  `json:"createdAt"`
	ExpiresAt     *time.Time `json:"expiresAt,omitempty"`
	MaxUses       int        `json:"maxUses"`
	UsesRemaining int        `json:"usesRemaining"`
	Revoked       bool       `json:"revoked"`
	Note          string     `json:"note,omitempty"`
}

// 邀请码消费失败原因
const (
	InviteNotFound = "not_found"
	InviteRevoked  = "revoked"
	InviteExpired  = "expired"
	InviteUsedUp   = "used_up"
)

// Expired 是否已过期，未设置过期时间时永不过期
func (i *Invite) Expired(now time.Time) bool {
	return i.ExpiresAt != nil && i.ExpiresAt.Before(now)
}

// Unusable 返回邀请码当前不可用的原因，可用时返回空串
func (i *Invite) Unusable(now time.Time) string {
	switch {
	case i.Revoked:
		return InviteRevoked
	case i.Expired(now):
		return InviteExpired
	case i.UsesRemaining <= 0:
		return InviteUsedUp
	}
	return ""
}

// ConsumeResult 邀请码消费结果。
// Contended 表示重试次数耗尽，Reason 仍为 used_up，但失败原因实际是并发冲突。
type ConsumeResult struct {
	OK        bool    `json:"ok"`
	Reason    string  `json:"reason,omitempty"`
	Contended bool    `json:"contended,omitempty"`
	Invite    *Invite `json:"invite,omitempty"`
}
