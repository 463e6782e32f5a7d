package service

import (
	"Parley/internal/model"
	"Parley/internal/pkg/rowstore"
	"Parley/internal/repository"
	"errors"
	log "log/slog"
)

const (
	BadRequest          = 400
	Unauthorized        = 401
	Forbidden           = 403
	NotFound            = 404
	Conflict            = 409
	InternalServerError = 500
	ServiceUnavailable  = 503
)

var (
	ErrParamInvalid        = errors.New("参数错误")
	ErrMessageNotFound     = errors.New("消息不存在")
	ErrMessageTooLong      = errors.New("消息长度超过限制")
	ErrMessageNotOwned     = errors.New("只能修改自己的消息")
	ErrActionNotApplied    = errors.New("操作未生效，请稍后重试")
	ErrInviteNotFound      = errors.New("邀请码不存在")
	ErrInviteRevoked       = errors.New("邀请码已撤销")
	ErrInviteExpired       = errors.New("邀请码已过期")
	ErrInviteUsedUp        = errors.New("邀请码次数已用尽")
	ErrUserBan             = errors.New("用户已被封禁")
	ErrUserBanSelf         = errors.New("不能封禁自己")
	ErrUserBanOwner        = errors.New("不能封禁服务器所有者")
	ErrOwnerAlreadyClaimed = errors.New("服务器已有所有者")
	ErrServerNotConfigured = errors.New("服务器尚未初始化")
	ErrRoleInvalid         = errors.New("角色无效")
	ErrReportNotFound      = errors.New("举报不存在")
	ErrReportResolved      = errors.New("举报已处理")
	ErrSearchDisabled      = errors.New("消息搜索未启用")
	ErrPreviewFailed       = errors.New("链接预览失败")
	ErrTokenRevoked        = errors.New("登录已失效，请重新登录")
	UnauthorizedError      = errors.New("权限不足")
	ErrStoreUnavailable    = errors.New("存储暂不可用，请稍后重试")
	UnExpectedError        = errors.New("系统异常，请稍后重试")
)

var ErrorMap = map[error]int{
	ErrParamInvalid:        BadRequest,
	ErrMessageNotFound:     NotFound,
	ErrMessageTooLong:      BadRequest,
	ErrMessageNotOwned:     Forbidden,
	ErrActionNotApplied:    Conflict,
	ErrInviteNotFound:      NotFound,
	ErrInviteRevoked:       BadRequest,
	ErrInviteExpired:       BadRequest,
	ErrInviteUsedUp:        BadRequest,
	ErrUserBan:             Forbidden,
	ErrUserBanSelf:         BadRequest,
	ErrUserBanOwner:        Forbidden,
	ErrOwnerAlreadyClaimed: Conflict,
	ErrServerNotConfigured: BadRequest,
	ErrRoleInvalid:         BadRequest,
	ErrReportNotFound:      NotFound,
	ErrReportResolved:      Conflict,
	ErrSearchDisabled:      BadRequest,
	ErrPreviewFailed:       BadRequest,
	ErrTokenRevoked:        Unauthorized,
	UnauthorizedError:      Unauthorized,
	ErrStoreUnavailable:    ServiceUnavailable,
	UnExpectedError:        InternalServerError,
}

// inviteReasonErrors 邀请码消费失败原因到业务错误的映射
var inviteReasonErrors = map[string]error{
	model.InviteNotFound: ErrInviteNotFound,
	model.InviteRevoked:  ErrInviteRevoked,
	model.InviteExpired:  ErrInviteExpired,
	model.InviteUsedUp:   ErrInviteUsedUp,
}

// translate 将仓储层错误转换为业务错误，无法识别的原样返回
func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repository.ErrInvalidArgument), errors.Is(err, repository.ErrDuplicateID):
		return ErrParamInvalid
	case errors.Is(err, rowstore.ErrUnavailable):
		log.Error("row store unavailable", "err", err)
		return ErrStoreUnavailable
	}
	return err
}

// CodeOf 返回错误对应的业务码，未登记的错误视为系统异常
func CodeOf(err error) (int, bool) {
	for target, code := range ErrorMap {
		if errors.Is(err, target) {
			return code, true
		}
	}
	return InternalServerError, false
}
