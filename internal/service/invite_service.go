package service

import (
	"Parley/internal/api/dto"
	"Parley/internal/model"
	"Parley/internal/pkg/consts"
	"Parley/internal/pkg/security"
	"Parley/internal/repository"
	"context"
	"errors"
	log "log/slog"
	"strings"
	"time"

	"github.com/jinzhu/copier"
)

type InviteService interface {
	Create(ctx context.Context, createdBy string, req *dto.CreateInviteReq) (*dto.InviteDTO, error)
	List(ctx context.Context) ([]*dto.InviteDTO, error)
	Revoke(ctx context.Context, code string) error
	Join(ctx context.Context, req *dto.JoinReq) (*dto.SessionDTO, error)
}

type inviteServiceImpl struct {
	inviteRepo repository.InviteRepo
	configRepo repository.ServerConfigRepo
	roleRepo   repository.RoleRepo
	banRepo    repository.BanRepo
	issuer     *security.TokenIssuer
	publisher  EventPublisher
}

func NewInviteService(
	inviteRepo repository.InviteRepo,
	configRepo repository.ServerConfigRepo,
	roleRepo repository.RoleRepo,
	banRepo repository.BanRepo,
	issuer *security.TokenIssuer,
	publisher EventPublisher,
) InviteService {
	return &inviteServiceImpl{
		inviteRepo: inviteRepo,
		configRepo: configRepo,
		roleRepo:   roleRepo,
		banRepo:    banRepo,
		issuer:     issuer,
		publisher:  publisher,
	}
}

func (s *inviteServiceImpl) Create(ctx context.Context, createdBy string, req *dto.CreateInviteReq) (*dto.InviteDTO, error) {
	if req.MaxUses <= 0 {
		return nil, ErrParamInvalid
	}
	var expiresAt *time.Time
	if req.ExpiresInHours > 0 {
		t := time.Now().Add(time.Duration(req.ExpiresInHours) * time.Hour)
		expiresAt = &t
	}

	invite, err := s.inviteRepo.Create(ctx, createdBy, req.MaxUses, expiresAt, strings.TrimSpace(req.Note))
	if errors.Is(err, repository.ErrInviteCodeExhausted) {
		log.ErrorContext(ctx, "invite code generation exhausted", "err", err)
		return nil, UnExpectedError
	}
	if err != nil {
		return nil, translate(err)
	}
	return toInviteDTO(invite), nil
}

func (s *inviteServiceImpl) List(ctx context.Context) ([]*dto.InviteDTO, error) {
	invites, err := s.inviteRepo.List(ctx)
	if err != nil {
		return nil, translate(err)
	}
	out := make([]*dto.InviteDTO, 0, len(invites))
	for _, inv := range invites {
		out = append(out, toInviteDTO(inv))
	}
	return out, nil
}

func (s *inviteServiceImpl) Revoke(ctx context.Context, code string) error {
	revoked, err := s.inviteRepo.Revoke(ctx, normalizeCode(code))
	if err != nil {
		return translate(err)
	}
	if !revoked {
		return ErrInviteNotFound
	}
	return nil
}

// Join 消费邀请码并授予 member 角色。
// 已是 member 的用户只校验邀请码可用，不消耗次数；更高角色不能通过邀请码获取会话。
func (s *inviteServiceImpl) Join(ctx context.Context, req *dto.JoinReq) (*dto.SessionDTO, error) {
	code := normalizeCode(req.Code)
	if code == "" {
		return nil, ErrParamInvalid
	}
	banned, err := s.banRepo.IsBanned(ctx, req.UserID)
	if err != nil {
		return nil, translate(err)
	}
	if banned {
		return nil, ErrUserBan
	}

	existing, err := s.roleRepo.Get(ctx, req.UserID)
	if err != nil {
		return nil, translate(err)
	}
	if existing != nil {
		return s.rejoin(ctx, code, existing)
	}

	result, err := s.inviteRepo.Consume(ctx, code)
	if err != nil {
		return nil, translate(err)
	}
	if !result.OK {
		if result.Contended {
			return nil, ErrActionNotApplied
		}
		return nil, inviteReasonError(result.Reason)
	}

	if err = s.roleRepo.Set(ctx, req.UserID, model.RoleMember); err != nil {
		return nil, translate(err)
	}
	log.InfoContext(ctx, "member joined", "user_id", req.UserID, "code", result.Invite.Code)
	publishEvent(ctx, s.publisher, consts.ChannelServer, model.EventMemberJoined, map[string]any{"user_id": req.UserID})
	return issueSession(ctx, s.configRepo, s.issuer, req.UserID, model.RoleMember)
}

// rejoin 已有角色的用户凭可用邀请码重新获取会话
func (s *inviteServiceImpl) rejoin(ctx context.Context, code string, existing *model.ServerRole) (*dto.SessionDTO, error) {
	if existing.Role != model.RoleMember {
		log.WarnContext(ctx, "privileged user tried to rejoin with invite", "user_id", existing.UserID, "role", existing.Role)
		return nil, UnauthorizedError
	}
	invite, err := s.inviteRepo.Get(ctx, code)
	if err != nil {
		return nil, translate(err)
	}
	if invite == nil {
		return nil, ErrInviteNotFound
	}
	if reason := invite.Unusable(time.Now()); reason != "" {
		return nil, inviteReasonError(reason)
	}
	return issueSession(ctx, s.configRepo, s.issuer, existing.UserID, existing.Role)
}

func inviteReasonError(reason string) error {
	if reasonErr, ok := inviteReasonErrors[reason]; ok {
		return reasonErr
	}
	return UnExpectedError
}

// normalizeCode 邀请码不区分大小写
func normalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

func toInviteDTO(inv *model.Invite) *dto.InviteDTO {
	out := &dto.InviteDTO{}
	_ = copier.Copy(out, inv)
	return out
}
