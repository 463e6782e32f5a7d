package dto

import "time"

type ServerConfigDTO struct {
	Name             string  `json:"name"`
	Description      string  `json:"description,omitempty"`
	OwnerID          *string `json:"owner_id,omitempty"`
	TokenVersion     int64   `json:"token_version"`
	MaxUploadBytes   int64   `json:"max_upload_bytes"`
	MaxMessageLength int     `json:"max_message_length"`
	IsConfigured     bool    `json:"is_configured"`
}

// UpdateServerReq 修改服务器名称与简介
type UpdateServerReq struct {
	Name        string `json:"name" binding:"required,max=100"`
	Description string `json:"description" binding:"omitempty,max=500"`
}

// ClaimReq 认领无主服务器
type ClaimReq struct {
	UserID string `json:"user_id" binding:"required,max=64"`
}

// TransferOwnerReq 转让所有权，UserID 为空表示清空所有者
type TransferOwnerReq struct {
	UserID string `json:"user_id" binding:"omitempty,max=64"`
}

type SetRoleReq struct {
	Role string `json:"role" binding:"required,oneof=admin moderator member"`
}

// BatchRolesReq 批量查询用户角色
type BatchRolesReq struct {
	UserIDs []string `json:"user_ids" binding:"required,min=1,max=200,dive,required"`
}

type BanReq struct {
	Reason string `json:"reason" binding:"omitempty,max=200"`
}

type RoleDTO struct {
	UserID    string    `json:"user_id"`
	Role      string    `json:"role"`
	Banned    bool      `json:"banned"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type BanDTO struct {
	UserID   string    `json:"user_id"`
	BannedBy string    `json:"banned_by"`
	Reason   string    `json:"reason,omitempty"`
	BannedAt time.Time `json:"bannedAt"`
}

type TokenVersionDTO struct {
	TokenVersion int64       `json:"token_version"`
	Session      *SessionDTO `json:"session"`
}
