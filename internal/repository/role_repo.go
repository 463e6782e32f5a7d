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
	colUserID    = "user_id"
	colRole      = "role"
	colUpdatedAt = "updated_at"
)

// RoleRepo 角色为普通覆盖写，不需要条件写入
type RoleRepo interface {
	Get(ctx context.Context, userID string) (*model.ServerRole, error)
	Set(ctx context.Context, userID, role string) error
}

type roleRepoImpl struct {
	table rowstore.Table
}

func NewRoleRepo(store rowstore.Store) RoleRepo {
	return &roleRepoImpl{
		table: store.Table(consts.TableServerRoles),
	}
}

func (s *roleRepoImpl) Get(ctx context.Context, userID string) (*model.ServerRole, error) {
	if userID == "" {
		return nil, ErrInvalidArgument
	}
	row, err := s.table.Get(ctx, rowstore.Key{Partition: userID})
	if errors.Is(err, rowstore.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &model.ServerRole{
		UserID:    row.String(colUserID),
		Role:      row.String(colRole),
		UpdatedAt: row.Time(colUpdatedAt),
	}, nil
}

func (s *roleRepoImpl) Set(ctx context.Context, userID, role string) error {
	if userID == "" || role == "" {
		return ErrInvalidArgument
	}
	return s.table.Put(ctx, rowstore.Key{Partition: userID}, rowstore.Row{
		colUserID:    userID,
		colRole:      role,
		colUpdatedAt: time.Now(),
	})
}
