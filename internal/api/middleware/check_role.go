package middleware

import (
	"Parley/internal/pkg/response"
	"slices"

	"github.com/gin-gonic/gin"
)

// CheckRoles 要求当前用户角色属于 allowed 之一，需在 AuthMiddleware 之后使用
func CheckRoles(allowed ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		role := c.GetString("role")
		if role == "" || !slices.Contains(allowed, role) {
			response.Abort(c, response.Forbidden, "权限不足")
			return
		}
		c.Next()
	}
}
