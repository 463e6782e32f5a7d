package middleware

import (
	"Parley/internal/pkg/logger"
	"Parley/internal/pkg/response"
	"Parley/internal/pkg/security"
	"context"
	"strings"

	"github.com/gin-gonic/gin"
)

// Authorizer 校验 Token 是否仍然有效，返回用户当前角色
type Authorizer interface {
	Authorize(ctx context.Context, claims *security.UserClaims) (string, error)
}

// AuthMiddleware 解析 Bearer Token，并以服务器当前 token 版本、封禁状态与角色为准
func AuthMiddleware(issuer *security.TokenIssuer, authorizer Authorizer) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" || !strings.HasPrefix(authHeader, "Bearer ") {
			response.Abort(c, response.Unauthorized, "Token 缺失或格式错误")
			return
		}

		token := strings.TrimPrefix(authHeader, "Bearer ")
		claims, err := issuer.ValidateToken(token)
		if err != nil {
			response.Abort(c, response.Unauthorized, "Token 无效或已过期")
			return
		}

		ctx := context.WithValue(c.Request.Context(), logger.UserIDKey, claims.UserID)
		role, err := authorizer.Authorize(ctx, claims)
		if err != nil {
			response.Error(c, err)
			c.Abort()
			return
		}

		c.Set("user_id", claims.UserID)
		c.Set("role", role)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}
