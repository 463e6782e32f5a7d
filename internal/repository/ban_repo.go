package repository

import (
	"Parley/internal/model"
	"Parley/internal/pkg/consts"
	"Parley/internal/pkg/rowstore"
	"context"
	"errors"
	"time"
)

const (
	colBannedBy = "banned_by"
	colReason   = "reason"
	colBannedAt = "banned_at"
)

type BanRepo interface {
	Ban(ctx context.Context, userID, bannedBy, reason string) error
	Unban(ctx context.Context, userID string) error
	IsBanned(ctx context.Context, userID string) (bool, error)
	List(ctx context.Context) ([]*model.Ban, error)
}

type banRepoImpl struct {
	table rowstore.Table
}

// NewBanRepo 所有封禁记录位于同一分区，聚簇键为用户 ID
func NewBanRepo(store rowstore.Store) BanRepo {
	return &banRepoImpl{table: store.Table(consts.TableBans)}
}

func banKey(userID string) rowstore.Key {
	return rowstore.Key{Partition: consts.BansPartition, Clustering: userID}
}

func (s *banRepoImpl) Ban(ctx context.Context, userID, bannedBy, reason string) error {
	if userID == "" {
		return ErrInvalidArgument
	}
	return s.table.Put(ctx, banKey(userID), rowstore.Row{
		colUserID:   userID,
		colBannedBy: bannedBy,
		colReason:   reason,
		colBannedAt: time.Now(),
	})
}

func (s *banRepoImpl) Unban(ctx context.Context, userID string) error {
	if userID == "" {
		return ErrInvalidArgument
	}
	return s.table.Delete(ctx, banKey(userID))
}

func (s *banRepoImpl) IsBanned(ctx context.Context, userID string) (bool, error) {
	if userID == "" {
		return false, ErrInvalidArgument
	}
	_, err := s.table.Get(ctx, banKey(userID))
	if errors.Is(err, rowstore.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (s *banRepoImpl) List(ctx context.Context) ([]*model.Ban, error) {
	entries, err := rowstore.Collect(ctx, s.table, rowstore.Query{Partition: consts.BansPartition})
	if err != nil {
		return nil, err
	}
	bans := make([]*model.Ban, 0, len(entries))
	for _, e := range entries {
		bans = append(bans, &model.Ban{
			UserID:   e.Row.String(colUserID),
			BannedBy: e.Row.String(colBannedBy),
			Reason:   e.Row.String(colReason),
			BannedAt: e.Row.Time(colBannedAt),
		})
	}
	return bans, nil
}
