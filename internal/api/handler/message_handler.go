package handler

import (
	"Parley/internal/api/dto"
	"Parley/internal/pkg/response"
	"Parley/internal/service"

	"github.com/gin-gonic/gin"
)

type MessageHandler struct {
	messageSvc service.MessageService
}

func NewMessageHandler(messageSvc service.MessageService) *MessageHandler {
	return &MessageHandler{messageSvc: messageSvc}
}

// Send 发送消息
func (s *MessageHandler) Send(c *gin.Context) {
	var req dto.SendMessageReq
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, service.ErrParamInvalid)
		return
	}
	msg, err := s.messageSvc.Send(c.Request.Context(), c.GetString("user_id"), c.Param("conversation_id"), &req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, msg)
}

// List 历史消息
func (s *MessageHandler) List(c *gin.Context) {
	var req dto.ListMessagesReq
	if err := c.ShouldBindQuery(&req); err != nil {
		response.Error(c, service.ErrParamInvalid)
		return
	}
	page, err := s.messageSvc.List(c.Request.Context(), c.Param("conversation_id"), &req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, page)
}

func (s *MessageHandler) Get(c *gin.Context) {
	msg, err := s.messageSvc.Get(c.Request.Context(), c.Param("conversation_id"), c.Param("message_id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, msg)
}

// Edit 编辑自己的消息
func (s *MessageHandler) Edit(c *gin.Context) {
	var req dto.EditMessageReq
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, service.ErrParamInvalid)
		return
	}
	msg, err := s.messageSvc.Edit(c.Request.Context(), c.GetString("user_id"), c.Param("conversation_id"), c.Param("message_id"), &req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, msg)
}

func (s *MessageHandler) Delete(c *gin.Context) {
	err := s.messageSvc.Delete(c.Request.Context(), c.GetString("user_id"), c.GetString("role"), c.Param("conversation_id"), c.Param("message_id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, nil)
}

// ToggleReaction 添加/取消回应
func (s *MessageHandler) ToggleReaction(c *gin.Context) {
	var req dto.ReactionReq
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, service.ErrParamInvalid)
		return
	}
	msg, err := s.messageSvc.ToggleReaction(c.Request.Context(), c.GetString("user_id"), c.Param("conversation_id"), c.Param("message_id"), req.Src)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, msg)
}

// RemoveReaction 仅取消回应，未回应时不会变成添加
func (s *MessageHandler) RemoveReaction(c *gin.Context) {
	src := c.Query("src")
	if src == "" {
		response.Error(c, service.ErrParamInvalid)
		return
	}
	msg, err := s.messageSvc.RemoveReaction(c.Request.Context(), c.GetString("user_id"), c.Param("conversation_id"), c.Param("message_id"), src)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, msg)
}

// Search 会话内关键词搜索
func (s *MessageHandler) Search(c *gin.Context) {
	var req dto.SearchMessagesReq
	if err := c.ShouldBindQuery(&req); err != nil {
		response.Error(c, service.ErrParamInvalid)
		return
	}
	result, err := s.messageSvc.Search(c.Request.Context(), c.Param("conversation_id"), &req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, result)
}
