package api

import (
	"Parley/internal/api/middleware"
	"Parley/internal/model"
	"Parley/internal/pkg/logger"
	"net/http"

	"github.com/gin-gonic/gin"
)

// SetupRouter allowOrigins 为空时 CORS 放行任意来源
func SetupRouter(group *HandlersGroup, allowOrigins []string) *gin.Engine {
	r := gin.New()
	_ = r.SetTrustedProxies([]string{"localhost"})

	// TraceId & Logger & CORS
	r.Use(middleware.TraceMiddleware())
	r.Use(middleware.AuditMiddleware())
	r.Use(middleware.CORSMiddleware(allowOrigins))
	logger.SetupGin(r)

	staff := middleware.CheckRoles(model.RoleOwner, model.RoleAdmin, model.RoleModerator)
	admin := middleware.CheckRoles(model.RoleOwner, model.RoleAdmin)
	owner := middleware.CheckRoles(model.RoleOwner)

	apiGroup := r.Group("/api")
	{
		apiGroup.GET("/ping", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{
				"code":    200,
				"message": "pong",
				"data":    nil,
			})
		})

		// 无需登录即可访问的接口
		apiGroup.GET("/server", group.ServerHandler.GetConfig)
		apiGroup.POST("/server/claim", group.ServerHandler.Claim)
		apiGroup.POST("/invites/join", group.InviteHandler.Join)

		authGroup := apiGroup.Group("")
		authGroup.Use(group.Auth)
		{
			authGroup.GET("/me", group.ServerHandler.Me)
			authGroup.POST("/roles/batch", group.ServerHandler.BatchRoles)
			authGroup.GET("/preview", group.PreviewHandler.Preview)
			authGroup.POST("/reports", group.ModerationHandler.Report)

			convGroup := authGroup.Group("/conversations/:conversation_id/messages")
			{
				convGroup.GET("", group.MessageHandler.List)
				convGroup.POST("", group.MessageHandler.Send)
				convGroup.GET("/search", group.MessageHandler.Search)
				convGroup.GET("/:message_id", group.MessageHandler.Get)
				convGroup.PUT("/:message_id", group.MessageHandler.Edit)
				convGroup.DELETE("/:message_id", group.MessageHandler.Delete)
				convGroup.POST("/:message_id/reactions", group.MessageHandler.ToggleReaction)
				convGroup.DELETE("/:message_id/reactions", group.MessageHandler.RemoveReaction)
			}

			// 需要 moderator 及以上角色
			modGroup := authGroup.Group("/moderation")
			modGroup.Use(staff)
			{
				modGroup.GET("/reports", group.ModerationHandler.ListReports)
				modGroup.POST("/reports/:report_id/resolve", group.ModerationHandler.ResolveReport)
				modGroup.GET("/queue", group.ModerationHandler.Queue)
				modGroup.POST("/conversations/:conversation_id/messages/:message_id/resolve", group.ModerationHandler.ResolveAllForMessage)
			}

			// 需要 admin 及以上角色
			adminGroup := authGroup.Group("")
			adminGroup.Use(admin)
			{
				adminGroup.PUT("/server", group.ServerHandler.UpdateSettings)
				adminGroup.GET("/invites", group.InviteHandler.List)
				adminGroup.POST("/invites", group.InviteHandler.Create)
				adminGroup.DELETE("/invites/:code", group.InviteHandler.Revoke)
				adminGroup.PUT("/users/:user_id/role", group.ServerHandler.SetRole)
				adminGroup.POST("/users/:user_id/ban", group.ServerHandler.Ban)
				adminGroup.DELETE("/users/:user_id/ban", group.ServerHandler.Unban)
				adminGroup.GET("/bans", group.ServerHandler.ListBans)
				adminGroup.DELETE("/users/:user_id/messages", group.ModerationHandler.PurgeUser)
			}

			// 仅所有者
			ownerGroup := authGroup.Group("/server")
			ownerGroup.Use(owner)
			{
				ownerGroup.PUT("/owner", group.ServerHandler.TransferOwner)
				ownerGroup.POST("/tokens/rotate", group.ServerHandler.RotateTokens)
			}
		}
	}

	return r
}
