package security

import (
	"github.com/golang-jwt/jwt/v5"
)

// UserClaims Token 中携带的身份信息。
// TokenVersion 为签发时服务器配置中的版本号，版本递增后旧 Token 全部失效。
type UserClaims struct {
	UserID       string `json:"user_id"`
	Role         string `json:"role"`
	TokenVersion int64  `json:"token_version"`
	jwt.RegisteredClaims
}
