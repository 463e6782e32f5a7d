package repository

import (
	"Parley/internal/model"
	"Parley/internal/pkg/consts"
	"Parley/internal/pkg/rowstore"
	"context"
	"errors"
	log "log/slog"
)

const (
	colName             = "name"
	colDescription      = "description"
	colOwnerID          = "owner_id"
	colTokenVersion     = "token_version"
	colMaxUploadBytes   = "max_upload_bytes"
	colMaxMessageLength = "max_message_length"
	colIsConfigured     = "is_configured"
)

type ServerConfigRepo interface {
	Get(ctx context.Context) (*model.ServerConfig, error)
	CreateIfAbsent(ctx context.Context, seed *model.ServerConfig) (*model.ServerConfig, error)
	UpdateSettings(ctx context.Context, name, description string) (*model.ServerConfig, error)
	ClaimOwner(ctx context.Context, userID string) (*model.ClaimResult, error)
	SetOwner(ctx context.Context, userID string) error
	ClearOwner(ctx context.Context) error
	IncrementTokenVersion(ctx context.Context) (int64, error)
}

type serverConfigRepoImpl struct {
	table rowstore.Table
}

func NewServerConfigRepo(store rowstore.Store) ServerConfigRepo {
	return &serverConfigRepoImpl{table: store.Table(consts.TableServerConfig)}
}

var configKey = rowstore.Key{Partition: consts.ServerConfigPartition}

func (s *serverConfigRepoImpl) Get(ctx context.Context) (*model.ServerConfig, error) {
	row, err := s.table.Get(ctx, configKey)
	if errors.Is(err, rowstore.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return toServerConfig(row), nil
}

// CreateIfAbsent 幂等，已存在时返回当前配置且不做任何修改
func (s *serverConfigRepoImpl) CreateIfAbsent(ctx context.Context, seed *model.ServerConfig) (*model.ServerConfig, error) {
	if seed == nil {
		return nil, ErrInvalidArgument
	}
	res, err := s.table.InsertIfAbsent(ctx, configKey, rowstore.Row{
		colName:             seed.Name,
		colDescription:      seed.Description,
		colOwnerID:          seed.OwnerID,
		colTokenVersion:     seed.TokenVersion,
		colMaxUploadBytes:   seed.MaxUploadBytes,
		colMaxMessageLength: seed.MaxMessageLength,
		colIsConfigured:     seed.IsConfigured,
	})
	if err != nil {
		return nil, err
	}
	if res.Applied {
		log.InfoContext(ctx, "server config row created")
	}
	return toServerConfig(res.Observed), nil
}

func (s *serverConfigRepoImpl) UpdateSettings(ctx context.Context, name, description string) (*model.ServerConfig, error) {
	res, err := s.table.UpdateIf(ctx, configKey, rowstore.Row{
		colName:         name,
		colDescription:  description,
		colIsConfigured: true,
	}, nil)
	if err != nil || !res.Applied {
		return nil, err
	}
	return toServerConfig(res.Observed), nil
}

// ClaimOwner 单次条件写 owner_id IS NULL，先到先得，不重试
func (s *serverConfigRepoImpl) ClaimOwner(ctx context.Context, userID string) (*model.ClaimResult, error) {
	if userID == "" {
		return nil, ErrInvalidArgument
	}
	res, err := s.table.UpdateIf(ctx, configKey,
		rowstore.Row{colOwnerID: userID},
		rowstore.Cond{colOwnerID: nil},
	)
	if err != nil {
		return nil, err
	}
	if res.Applied {
		return &model.ClaimResult{Claimed: true, OwnerID: userID}, nil
	}
	return &model.ClaimResult{Claimed: false, OwnerID: res.Observed.String(colOwnerID)}, nil
}

func (s *serverConfigRepoImpl) SetOwner(ctx context.Context, userID string) error {
	if userID == "" {
		return ErrInvalidArgument
	}
	return s.table.Put(ctx, configKey, rowstore.Row{colOwnerID: userID})
}

func (s *serverConfigRepoImpl) ClearOwner(ctx context.Context) error {
	return s.table.Put(ctx, configKey, rowstore.Row{colOwnerID: nil})
}

// IncrementTokenVersion 以读到的版本为条件写入 v+1。
// 重试耗尽时返回最后读到的版本，本次递增丢失。
func (s *serverConfigRepoImpl) IncrementTokenVersion(ctx context.Context) (int64, error) {
	version, err := rowstore.Optimistic(ctx, rowstore.MaxAttempts, func(ctx context.Context, attempt int) (int64, bool, error) {
		row, err := s.table.Get(ctx, configKey)
		if errors.Is(err, rowstore.ErrNotFound) {
			return 0, true, nil
		}
		if err != nil {
			return 0, false, err
		}
		v := row.Int(colTokenVersion)
		res, err := s.table.UpdateIf(ctx, configKey,
			rowstore.Row{colTokenVersion: v + 1},
			rowstore.Cond{colTokenVersion: v},
		)
		if err != nil {
			return v, false, err
		}
		if res.Applied {
			return v + 1, true, nil
		}
		return v, false, nil
	})
	if errors.Is(err, rowstore.ErrContention) {
		return version, nil
	}
	return version, err
}

func toServerConfig(row rowstore.Row) *model.ServerConfig {
	if row == nil {
		return nil
	}
	var owner *string
	if !row.IsNull(colOwnerID) {
		id := row.String(colOwnerID)
		owner = &id
	}
	return &model.ServerConfig{
		Name:             row.String(colName),
		Description:      row.String(colDescription),
		OwnerID:          owner,
		TokenVersion:     row.Int(colTokenVersion),
		MaxUploadBytes:   row.Int(colMaxUploadBytes),
		MaxMessageLength: int(row.Int(colMaxMessageLength)),
		IsConfigured:     row.Bool(colIsConfigured),
	}
}
