package handler

import (
	"Parley/internal/api/dto"
	"Parley/internal/pkg/response"
	"Parley/internal/service"

	"github.com/gin-gonic/gin"
)

type ServerHandler struct {
	serverSvc service.ServerService
}

func NewServerHandler(serverSvc service.ServerService) *ServerHandler {
	return &ServerHandler{serverSvc: serverSvc}
}

// GetConfig 服务器公开信息
func (s *ServerHandler) GetConfig(c *gin.Context) {
	cfg, err := s.serverSvc.GetConfig(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, cfg)
}

func (s *ServerHandler) UpdateSettings(c *gin.Context) {
	var req dto.UpdateServerReq
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, service.ErrParamInvalid)
		return
	}
	cfg, err := s.serverSvc.UpdateSettings(c.Request.Context(), &req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, cfg)
}

// Claim 无需登录，先到先得
func (s *ServerHandler) Claim(c *gin.Context) {
	var req dto.ClaimReq
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, service.ErrParamInvalid)
		return
	}
	session, err := s.serverSvc.Claim(c.Request.Context(), &req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, session)
}

func (s *ServerHandler) TransferOwner(c *gin.Context) {
	var req dto.TransferOwnerReq
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, service.ErrParamInvalid)
		return
	}
	if err := s.serverSvc.TransferOwner(c.Request.Context(), c.GetString("user_id"), &req); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, nil)
}

// RotateTokens 注销所有会话，返回操作者的新会话
func (s *ServerHandler) RotateTokens(c *gin.Context) {
	version, err := s.serverSvc.RotateTokens(c.Request.Context(), c.GetString("user_id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, version)
}

// Me 当前用户的角色
func (s *ServerHandler) Me(c *gin.Context) {
	role, err := s.serverSvc.GetRole(c.Request.Context(), c.GetString("user_id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, role)
}

// BatchRoles 批量查询角色，查询失败的用户不出现在结果中
func (s *ServerHandler) BatchRoles(c *gin.Context) {
	var req dto.BatchRolesReq
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, service.ErrParamInvalid)
		return
	}
	roles, err := s.serverSvc.GetRoles(c.Request.Context(), &req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, roles)
}

func (s *ServerHandler) SetRole(c *gin.Context) {
	var req dto.SetRoleReq
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, service.ErrParamInvalid)
		return
	}
	if err := s.serverSvc.SetRole(c.Request.Context(), c.Param("user_id"), &req); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, nil)
}

func (s *ServerHandler) Ban(c *gin.Context) {
	var req dto.BanReq
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, service.ErrParamInvalid)
		return
	}
	if err := s.serverSvc.Ban(c.Request.Context(), c.GetString("user_id"), c.Param("user_id"), &req); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, nil)
}

func (s *ServerHandler) Unban(c *gin.Context) {
	if err := s.serverSvc.Unban(c.Request.Context(), c.Param("user_id")); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, nil)
}

func (s *ServerHandler) ListBans(c *gin.Context) {
	bans, err := s.serverSvc.ListBans(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, bans)
}
