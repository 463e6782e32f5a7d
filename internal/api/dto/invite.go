package dto

import "time"

// CreateInviteReq 创建邀请码，ExpiresInHours 为 0 表示永不过期
type CreateInviteReq struct {
	MaxUses        int    `json:"max_uses" binding:"required,min=1,max=10000"`
	ExpiresInHours int    `json:"expires_in_hours" binding:"omitempty,min=1,max=8760"`
	Note           string `json:"note" binding:"omitempty,max=200"`
}

// JoinReq 通过邀请码加入服务器
type JoinReq struct {
	Code   string `json:"code" binding:"required"`
	UserID string `json:"user_id" binding:"required,max=64"`
}

type InviteDTO struct {
	Code          string     `json:"code"`
	CreatedBy     string     `json:"created_by"`
	CreatedAt     time.Time  `json:"createdAt"`
	ExpiresAt     *time.Time `json:"expiresAt,omitempty"`
	MaxUses       int        `json:"max_uses"`
	UsesRemaining int        `json:"uses_remaining"`
	Revoked       bool       `json:"revoked"`
	Note          string     `json:"note,omitempty"`
}

// SessionDTO 加入或认领成功后签发的会话
type SessionDTO struct {
	UserID string `json:"user_id"`
	Role   string `json:"role"`
	Token  string `json:"token"`
}
