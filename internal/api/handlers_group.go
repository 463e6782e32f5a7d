package api

import (
	"Parley/internal/api/handler"

	"github.com/gin-gonic/gin"
)

// HandlersGroup 封装了所有已初始化的 Handler 实例
type HandlersGroup struct {
	Auth              gin.HandlerFunc
	MessageHandler    *handler.MessageHandler
	InviteHandler     *handler.InviteHandler
	ServerHandler     *handler.ServerHandler
	ModerationHandler *handler.ModerationHandler
	PreviewHandler    *handler.PreviewHandler
}
