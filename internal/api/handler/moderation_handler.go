package handler

import (
	"Parley/internal/api/dto"
	"Parley/internal/pkg/response"
	"Parley/internal/service"

	"github.com/gin-gonic/gin"
)

type ModerationHandler struct {
	moderationSvc service.ModerationService
}

func NewModerationHandler(moderationSvc service.ModerationService) *ModerationHandler {
	return &ModerationHandler{moderationSvc: moderationSvc}
}

// Report 举报消息
func (s *ModerationHandler) Report(c *gin.Context) {
	var req dto.CreateReportReq
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, service.ErrParamInvalid)
		return
	}
	report, err := s.moderationSvc.Report(c.Request.Context(), c.GetString("user_id"), &req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, report)
}

func (s *ModerationHandler) ListReports(c *gin.Context) {
	var req dto.ListReportsReq
	if err := c.ShouldBindQuery(&req); err != nil {
		response.Error(c, service.ErrParamInvalid)
		return
	}
	reports, err := s.moderationSvc.ListReports(c.Request.Context(), &req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, reports)
}

func (s *ModerationHandler) ResolveReport(c *gin.Context) {
	var req dto.ResolveReportReq
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, service.ErrParamInvalid)
		return
	}
	report, err := s.moderationSvc.ResolveReport(c.Request.Context(), c.GetString("user_id"), c.Param("report_id"), &req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, report)
}

// ResolveAllForMessage 一次处理某条消息下的全部待处理举报
func (s *ModerationHandler) ResolveAllForMessage(c *gin.Context) {
	var req dto.ResolveReportReq
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, service.ErrParamInvalid)
		return
	}
	out, err := s.moderationSvc.ResolveAllForMessage(c.Request.Context(), c.GetString("user_id"),
		c.Param("conversation_id"), c.Param("message_id"), &req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, out)
}

// Queue 审核队列
func (s *ModerationHandler) Queue(c *gin.Context) {
	queue, err := s.moderationSvc.Queue(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, queue)
}

// PurgeUser 删除用户的全部消息
func (s *ModerationHandler) PurgeUser(c *gin.Context) {
	out, err := s.moderationSvc.DeleteAllByUser(c.Request.Context(), c.Param("user_id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, out)
}
