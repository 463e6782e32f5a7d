package repository

import (
	"context"

	"Parley/internal/pkg/rowstore"
)

// racingStore 在指定表的每次条件更新前执行 interfere，模拟并发写入者抢先
type racingStore struct {
	rowstore.Store
	table      string
	interfere  func(ctx context.Context, t rowstore.Table, key rowstore.Key)
	conditions int
}

func (s *racingStore) Table(name string) rowstore.Table {
	t := s.Store.Table(name)
	if name != s.table {
		return t
	}
	return &racingTable{Table: t, store: s}
}

type racingTable struct {
	rowstore.Table
	store *racingStore
}

func (t *racingTable) UpdateIf(ctx context.Context, key rowstore.Key, values rowstore.Row, cond rowstore.Cond) (*rowstore.Result, error) {
	t.store.conditions++
	if t.store.interfere != nil {
		t.store.interfere(ctx, t.Table, key)
	}
	return t.Table.UpdateIf(ctx, key, values, cond)
}
