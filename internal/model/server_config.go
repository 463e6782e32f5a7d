package model

// ServerConfig 全局唯一的服务器配置行
type ServerConfig struct {
	Name             string  `json:"name"`
	Description      string  `json:"description,omitempty"`
	OwnerID          *string `json:"ownerId,omitempty"`
	TokenVersion     int64   `json:"tokenVersion"`
	MaxUploadBytes   int64   `json:"maxUploadBytes"`
	MaxMessageLength int     `json:"maxMessageLength"`
	IsConfigured     bool    `json:"isConfigured"`
}

// ClaimResult 认领所有权的结果，失败时 OwnerID 为当前所有者
type ClaimResult struct {
	Claimed bool   `json:"claimed"`
	OwnerID string `json:"ownerId"`
}
