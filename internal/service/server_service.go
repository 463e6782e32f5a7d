package service

import (
	"Parley/internal/api/config"
	"Parley/internal/api/dto"
	"Parley/internal/model"
	"Parley/internal/pkg/consts"
	"Parley/internal/pkg/security"
	"Parley/internal/repository"
	"context"
	log "log/slog"
	"strings"

	"github.com/jinzhu/copier"
	"golang.org/x/sync/errgroup"
)

// fanOutLimit 批量查询时的最大并发数
const fanOutLimit = 16

type ServerService interface {
	EnsureConfig(ctx context.Context) (*dto.ServerConfigDTO, error)
	GetConfig(ctx context.Context) (*dto.ServerConfigDTO, error)
	UpdateSettings(ctx context.Context, req *dto.UpdateServerReq) (*dto.ServerConfigDTO, error)
	Claim(ctx context.Context, req *dto.ClaimReq) (*dto.SessionDTO, error)
	TransferOwner(ctx context.Context, operatorID string, req *dto.TransferOwnerReq) error
	RotateTokens(ctx context.Context, operatorID string) (*dto.TokenVersionDTO, error)
	Authorize(ctx context.Context, claims *security.UserClaims) (string, error)
	GetRole(ctx context.Context, userID string) (*dto.RoleDTO, error)
	GetRoles(ctx context.Context, req *dto.BatchRolesReq) ([]*dto.RoleDTO, error)
	SetRole(ctx context.Context, userID string, req *dto.SetRoleReq) error
	Ban(ctx context.Context, operatorID, userID string, req *dto.BanReq) error
	Unban(ctx context.Context, userID string) error
	ListBans(ctx context.Context) ([]*dto.BanDTO, error)
}

type serverServiceImpl struct {
	configRepo repository.ServerConfigRepo
	roleRepo   repository.RoleRepo
	banRepo    repository.BanRepo
	issuer     *security.TokenIssuer
	publisher  EventPublisher
	defaults   config.ServerDefaults
}

func NewServerService(
	configRepo repository.ServerConfigRepo,
	roleRepo repository.RoleRepo,
	banRepo repository.BanRepo,
	issuer *security.TokenIssuer,
	publisher EventPublisher,
	defaults config.ServerDefaults,
) ServerService {
	return &serverServiceImpl{
		configRepo: configRepo,
		roleRepo:   roleRepo,
		banRepo:    banRepo,
		issuer:     issuer,
		publisher:  publisher,
		defaults:   defaults,
	}
}

// EnsureConfig 启动时调用，配置行不存在时以默认值创建
func (s *serverServiceImpl) EnsureConfig(ctx context.Context) (*dto.ServerConfigDTO, error) {
	cfg, err := s.configRepo.CreateIfAbsent(ctx, &model.ServerConfig{
		Name:             s.defaults.Name,
		MaxUploadBytes:   s.defaults.MaxUploadBytes,
		MaxMessageLength: s.defaults.MaxMessageLength,
	})
	if err != nil {
		return nil, translate(err)
	}
	return toServerConfigDTO(cfg), nil
}

func (s *serverServiceImpl) GetConfig(ctx context.Context) (*dto.ServerConfigDTO, error) {
	cfg, err := s.configRepo.Get(ctx)
	if err != nil {
		return nil, translate(err)
	}
	if cfg == nil {
		return nil, ErrServerNotConfigured
	}
	return toServerConfigDTO(cfg), nil
}

func (s *serverServiceImpl) UpdateSettings(ctx context.Context, req *dto.UpdateServerReq) (*dto.ServerConfigDTO, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, ErrParamInvalid
	}
	cfg, err := s.configRepo.UpdateSettings(ctx, name, strings.TrimSpace(req.Description))
	if err != nil {
		return nil, translate(err)
	}
	if cfg == nil {
		return nil, ErrServerNotConfigured
	}
	return toServerConfigDTO(cfg), nil
}

// Claim 认领无主服务器，成功后认领者成为 owner 并获得会话
func (s *serverServiceImpl) Claim(ctx context.Context, req *dto.ClaimReq) (*dto.SessionDTO, error) {
	result, err := s.configRepo.ClaimOwner(ctx, req.UserID)
	if err != nil {
		return nil, translate(err)
	}
	if !result.Claimed {
		if result.OwnerID == "" {
			return nil, ErrServerNotConfigured
		}
		log.InfoContext(ctx, "owner claim rejected", "user_id", req.UserID, "owner_id", result.OwnerID)
		return nil, ErrOwnerAlreadyClaimed
	}

	if err = s.roleRepo.Set(ctx, req.UserID, model.RoleOwner); err != nil {
		return nil, translate(err)
	}
	publishEvent(ctx, s.publisher, consts.ChannelServer, model.EventOwnerChanged, map[string]any{"owner_id": req.UserID})
	return issueSession(ctx, s.configRepo, s.issuer, req.UserID, model.RoleOwner)
}

// TransferOwner 转让或清空所有权，原所有者降为 admin
func (s *serverServiceImpl) TransferOwner(ctx context.Context, operatorID string, req *dto.TransferOwnerReq) error {
	target := strings.TrimSpace(req.UserID)
	if target == operatorID {
		return ErrParamInvalid
	}
	if target == "" {
		if err := s.configRepo.ClearOwner(ctx); err != nil {
			return translate(err)
		}
	} else {
		if err := s.configRepo.SetOwner(ctx, target); err != nil {
			return translate(err)
		}
		if err := s.roleRepo.Set(ctx, target, model.RoleOwner); err != nil {
			return translate(err)
		}
	}
	if err := s.roleRepo.Set(ctx, operatorID, model.RoleAdmin); err != nil {
		return translate(err)
	}

	log.InfoContext(ctx, "server owner changed", "from", operatorID, "to", target)
	publishEvent(ctx, s.publisher, consts.ChannelServer, model.EventOwnerChanged, map[string]any{"owner_id": target})
	return nil
}

// RotateTokens 递增 token 版本号，之前签发的全部 Token 失效，并为操作者签发新会话
func (s *serverServiceImpl) RotateTokens(ctx context.Context, operatorID string) (*dto.TokenVersionDTO, error) {
	role, err := s.roleRepo.Get(ctx, operatorID)
	if err != nil {
		return nil, translate(err)
	}
	if role == nil {
		return nil, UnauthorizedError
	}
	version, err := s.configRepo.IncrementTokenVersion(ctx)
	if err != nil {
		return nil, translate(err)
	}
	publishEvent(ctx, s.publisher, consts.ChannelServer, model.EventTokensRevoked, map[string]any{"token_version": version})

	token, err := s.issuer.GenerateToken(operatorID, role.Role, version)
	if err != nil {
		log.ErrorContext(ctx, "generate token failed", "user_id", operatorID, "err", err)
		return nil, UnExpectedError
	}
	return &dto.TokenVersionDTO{
		TokenVersion: version,
		Session:      &dto.SessionDTO{UserID: operatorID, Role: role.Role, Token: token},
	}, nil
}

// Authorize 校验 Token 版本与封禁状态，返回用户当前角色
func (s *serverServiceImpl) Authorize(ctx context.Context, claims *security.UserClaims) (string, error) {
	var (
		cfg    *model.ServerConfig
		role   *model.ServerRole
		banned bool
	)
	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		cfg, err = s.configRepo.Get(gCtx)
		return err
	})
	g.Go(func() (err error) {
		role, err = s.roleRepo.Get(gCtx, claims.UserID)
		return err
	})
	g.Go(func() (err error) {
		banned, err = s.banRepo.IsBanned(gCtx, claims.UserID)
		return err
	})
	if err := g.Wait(); err != nil {
		return "", translate(err)
	}

	var current int64
	if cfg != nil {
		current = cfg.TokenVersion
	}
	if claims.TokenVersion != current {
		return "", ErrTokenRevoked
	}
	if banned {
		return "", ErrUserBan
	}
	if role == nil {
		return "", UnauthorizedError
	}
	return role.Role, nil
}

func (s *serverServiceImpl) GetRole(ctx context.Context, userID string) (*dto.RoleDTO, error) {
	return s.lookupRole(ctx, userID)
}

// GetRoles 并发查询，单个用户查询失败或无角色时直接丢弃
func (s *serverServiceImpl) GetRoles(ctx context.Context, req *dto.BatchRolesReq) ([]*dto.RoleDTO, error) {
	results := make([]*dto.RoleDTO, len(req.UserIDs))
	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(fanOutLimit)
	for i, userID := range req.UserIDs {
		g.Go(func() error {
			role, err := s.lookupRole(gCtx, userID)
			if err != nil {
				log.DebugContext(gCtx, "role lookup dropped", "user_id", userID, "err", err)
				return nil
			}
			results[i] = role
			return nil
		})
	}
	_ = g.Wait()

	roles := make([]*dto.RoleDTO, 0, len(results))
	for _, r := range results {
		if r != nil {
			roles = append(roles, r)
		}
	}
	return roles, nil
}

func (s *serverServiceImpl) lookupRole(ctx context.Context, userID string) (*dto.RoleDTO, error) {
	role, err := s.roleRepo.Get(ctx, userID)
	if err != nil {
		return nil, translate(err)
	}
	if role == nil {
		return nil, ErrRoleInvalid
	}
	banned, err := s.banRepo.IsBanned(ctx, userID)
	if err != nil {
		return nil, translate(err)
	}
	out := &dto.RoleDTO{}
	_ = copier.Copy(out, role)
	out.Banned = banned
	return out, nil
}

// SetRole 不能通过此接口修改所有者角色，所有权只能认领或转让
func (s *serverServiceImpl) SetRole(ctx context.Context, userID string, req *dto.SetRoleReq) error {
	if req.Role == model.RoleOwner {
		return ErrRoleInvalid
	}
	if err := s.ensureNotOwner(ctx, userID); err != nil {
		return err
	}
	if err := s.roleRepo.Set(ctx, userID, req.Role); err != nil {
		return translate(err)
	}
	return nil
}

func (s *serverServiceImpl) Ban(ctx context.Context, operatorID, userID string, req *dto.BanReq) error {
	if userID == operatorID {
		return ErrUserBanSelf
	}
	if err := s.ensureNotOwner(ctx, userID); err != nil {
		if err == UnauthorizedError {
			return ErrUserBanOwner
		}
		return err
	}
	if err := s.banRepo.Ban(ctx, userID, operatorID, req.Reason); err != nil {
		return translate(err)
	}
	log.InfoContext(ctx, "user banned", "user_id", userID, "by", operatorID)
	return nil
}

func (s *serverServiceImpl) Unban(ctx context.Context, userID string) error {
	return translate(s.banRepo.Unban(ctx, userID))
}

func (s *serverServiceImpl) ListBans(ctx context.Context) ([]*dto.BanDTO, error) {
	bans, err := s.banRepo.List(ctx)
	if err != nil {
		return nil, translate(err)
	}
	out := make([]*dto.BanDTO, 0, len(bans))
	if err = copier.Copy(&out, &bans); err != nil {
		return nil, UnExpectedError
	}
	return out, nil
}

func (s *serverServiceImpl) ensureNotOwner(ctx context.Context, userID string) error {
	cfg, err := s.configRepo.Get(ctx)
	if err != nil {
		return translate(err)
	}
	if cfg != nil && cfg.OwnerID != nil && *cfg.OwnerID == userID {
		return UnauthorizedError
	}
	return nil
}

// issueSession 以当前 token 版本签发会话
func issueSession(ctx context.Context, configRepo repository.ServerConfigRepo, issuer *security.TokenIssuer, userID, role string) (*dto.SessionDTO, error) {
	cfg, err := configRepo.Get(ctx)
	if err != nil {
		return nil, translate(err)
	}
	var version int64
	if cfg != nil {
		version = cfg.TokenVersion
	}
	token, err := issuer.GenerateToken(userID, role, version)
	if err != nil {
		log.ErrorContext(ctx, "generate token failed", "user_id", userID, "err", err)
		return nil, UnExpectedError
	}
	return &dto.SessionDTO{UserID: userID, Role: role, Token: token}, nil
}

func toServerConfigDTO(cfg *model.ServerConfig) *dto.ServerConfigDTO {
	out := &dto.ServerConfigDTO{}
	_ = copier.Copy(out, cfg)
	return out
}
