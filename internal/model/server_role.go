package model

import "time"

// 服务器内角色
const (
	RoleOwner     = "owner"
	RoleAdmin     = "admin"
	RoleModerator = "moderator"
	RoleMember    = "member"
)

// ServerRole 用户在服务器内的角色，最后写入者胜出
type ServerRole struct {
	UserID    string    `json:"userId"`
	Role      string    `json:"role"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Ban 封禁记录
type Ban struct {
	UserID   string    `json:"userId"`
	BannedBy string    `json:"bannedBy"`
	Reason   string    `json:"reason,omitempty"`
	BannedAt time.Time `json:"bannedAt"`
}

// IsStaff 是否拥有管理权限
func IsStaff(role string) bool {
	return role == RoleOwner || role == RoleAdmin || role == RoleModerator
}
