package handler

import (
	"Parley/internal/api/dto"
	"Parley/internal/pkg/response"
	"Parley/internal/service"

	"github.com/gin-gonic/gin"
)

type InviteHandler struct {
	inviteSvc service.InviteService
}

func NewInviteHandler(inviteSvc service.InviteService) *InviteHandler {
	return &InviteHandler{inviteSvc: inviteSvc}
}

func (s *InviteHandler) Create(c *gin.Context) {
	var req dto.CreateInviteReq
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, service.ErrParamInvalid)
		return
	}
	invite, err := s.inviteSvc.Create(c.Request.Context(), c.GetString("user_id"), &req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, invite)
}

func (s *InviteHandler) List(c *gin.Context) {
	invites, err := s.inviteSvc.List(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, invites)
}

func (s *InviteHandler) Revoke(c *gin.Context) {
	if err := s.inviteSvc.Revoke(c.Request.Context(), c.Param("code")); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, nil)
}

// Join 无需登录，凭邀请码换取会话
func (s *InviteHandler) Join(c *gin.Context) {
	var req dto.JoinReq
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, service.ErrParamInvalid)
		return
	}
	session, err := s.inviteSvc.Join(c.Request.Context(), &req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, session)
}
