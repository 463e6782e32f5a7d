package repository

import (
	"Parley/internal/model"
	"Parley/internal/pkg/consts"
	"Parley/internal/pkg/rowstore"
	"Parley/internal/pkg/util"
	"context"
	"errors"
	log "log/slog"
	"sort"
	"time"
)

const (
	colCode          = "code"
	colCreatedBy     = "created_by"
	colExpiresAt     = "expires_at"
	colMaxUses       = "max_uses"
	colUsesRemaining = "uses_remaining"
	colRevoked       = "revoked"
	colNote          = "note"
)

type InviteRepo interface {
	Create(ctx context.Context, createdBy string, maxUses int, expiresAt *time.Time, note string) (*model.Invite, error)
	Get(ctx context.Context, code string) (*model.Invite, error)
	List(ctx context.Context) ([]*model.Invite, error)
	Revoke(ctx context.Context, code string) (bool, error)
	Consume(ctx context.Context, code string) (*model.ConsumeResult, error)
}

type inviteRepoImpl struct {
	invites rowstore.Table
	newCode func() (string, error)
	now     func() time.Time
}

func NewInviteRepo(store rowstore.Store) InviteRepo {
	return &inviteRepoImpl{
		invites: store.Table(consts.TableInvites),
		newCode: func() (string, error) {
			return util.GenerateInviteCode(consts.InviteCodeLength)
		},
		now: time.Now,
	}
}

func inviteKey(code string) rowstore.Key {
	return rowstore.Key{Partition: code}
}

// Create 生成随机邀请码并仅在不存在时插入，冲突则换码重试，耗尽后返回硬错误
func (s *inviteRepoImpl) Create(ctx context.Context, createdBy string, maxUses int, expiresAt *time.Time, note string) (*model.Invite, error) {
	if createdBy == "" || maxUses < 1 {
		return nil, ErrInvalidArgument
	}
	for i := 0; i < rowstore.MaxAttempts; i++ {
		code, err := s.newCode()
		if err != nil {
			return nil, err
		}
		res, err := s.invites.InsertIfAbsent(ctx, inviteKey(code), rowstore.Row{
			colCode:          code,
			colCreatedBy:     createdBy,
			colCreatedAt:     s.now(),
			colExpiresAt:     expiresAt,
			colMaxUses:       maxUses,
			colUsesRemaining: maxUses,
			colRevoked:       false,
			colNote:          note,
		})
		if err != nil {
			return nil, err
		}
		if res.Applied {
			return toInvite(res.Observed), nil
		}
		log.WarnContext(ctx, "invite code collision", "attempt", i+1)
	}
	return nil, ErrInviteCodeExhausted
}

func (s *inviteRepoImpl) Get(ctx context.Context, code string) (*model.Invite, error) {
	if code == "" {
		return nil, ErrInvalidArgument
	}
	row, err := s.invites.Get(ctx, inviteKey(code))
	if errors.Is(err, rowstore.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return toInvite(row), nil
}

// List 全表扫描，按创建时间倒序
func (s *inviteRepoImpl) List(ctx context.Context) ([]*model.Invite, error) {
	entries, err := rowstore.Collect(ctx, s.invites, rowstore.Query{})
	if err != nil {
		return nil, err
	}
	invites := make([]*model.Invite, 0, len(entries))
	for _, e := range entries {
		invites = append(invites, toInvite(e.Row))
	}
	sort.SliceStable(invites, func(i, j int) bool {
		return invites[i].CreatedAt.After(invites[j].CreatedAt)
	})
	return invites, nil
}

// Revoke 显式作废，邀请码不存在时返回 false
func (s *inviteRepoImpl) Revoke(ctx context.Context, code string) (bool, error) {
	if code == "" {
		return false, ErrInvalidArgument
	}
	res, err := s.invites.UpdateIf(ctx, inviteKey(code), rowstore.Row{colRevoked: true}, nil)
	if err != nil {
		return false, err
	}
	return res.Applied, nil
}

// Consume 每次尝试都重新校验 不存在 → 已作废 → 已过期 → 已用完，
// 然后以 {uses_remaining: n, revoked: false} 为条件扣减，扣到 0 时自动作废。
// 重试耗尽时保守地返回 used_up，并标记 Contended。
func (s *inviteRepoImpl) Consume(ctx context.Context, code string) (*model.ConsumeResult, error) {
	if code == "" {
		return nil, ErrInvalidArgument
	}
	key := inviteKey(code)

	result, err := rowstore.Optimistic(ctx, rowstore.MaxAttempts, func(ctx context.Context, attempt int) (*model.ConsumeResult, bool, error) {
		row, err := s.invites.Get(ctx, key)
		if errors.Is(err, rowstore.ErrNotFound) {
			return &model.ConsumeResult{Reason: model.InviteNotFound}, true, nil
		}
		if err != nil {
			return nil, false, err
		}

		invite := toInvite(row)
		if reason := invite.Unusable(s.now()); reason != "" {
			return &model.ConsumeResult{Reason: reason, Invite: invite}, true, nil
		}

		n := invite.UsesRemaining
		res, err := s.invites.UpdateIf(ctx, key,
			rowstore.Row{colUsesRemaining: n - 1, colRevoked: n-1 == 0},
			rowstore.Cond{colUsesRemaining: n, colRevoked: false},
		)
		if err != nil {
			return nil, false, err
		}
		if !res.Applied {
			return &model.ConsumeResult{Reason: model.InviteUsedUp, Contended: true, Invite: invite}, false, nil
		}
		return &model.ConsumeResult{OK: true, Invite: toInvite(res.Observed)}, true, nil
	})
	if errors.Is(err, rowstore.ErrContention) {
		log.WarnContext(ctx, "invite consumption lost every race, reporting used_up", "code", code)
		return result, nil
	}
	return result, err
}

func toInvite(row rowstore.Row) *model.Invite {
	return &model.Invite{
		Code:          row.String(colCode),
		CreatedBy:     row.String(colCreatedBy),
		CreatedAt:     row.Time(colCreatedAt),
		ExpiresAt:     row.TimePtr(colExpiresAt),
		MaxUses:       int(row.Int(colMaxUses)),
		UsesRemaining: int(row.Int(colUsesRemaining)),
		Revoked:       row.Bool(colRevoked),
		Note:          row.String(colNote),
	}
}
