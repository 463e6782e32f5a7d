package rowstore

import (
	"context"
	"errors"
)

const (
	colTargetPartition  = "target_pk"
	colTargetClustering = "target_ck"
)

// LookupIndex 模拟二级索引：自然标识 → 主表完整键。
// 主表行与索引行是两次独立写入，没有事务保护，
// 中途崩溃会留下无索引的主表行或悬空的索引行，这里不做检测与修复。
type LookupIndex struct {
	table Table
}

func NewLookupIndex(table Table) *LookupIndex {
	return &LookupIndex{table: table}
}

// Write 无条件写入索引，在主表插入后立即调用。extra 为索引行上的附加列。
func (l *LookupIndex) Write(ctx context.Context, natural Key, target Key, extra Row) error {
	values := make(Row, len(extra)+2)
	for k, v := range extra {
		values[k] = v
	}
	values[colTargetPartition] = target.Partition
	values[colTargetClustering] = target.Clustering
	return l.table.Put(ctx, natural, values)
}

// Resolve 解析自然标识，未命中时 found 为 false
func (l *LookupIndex) Resolve(ctx context.Context, natural Key) (target Key, found bool, err error) {
	row, err := l.table.Get(ctx, natural)
	if errors.Is(err, ErrNotFound) {
		return Key{}, false, nil
	}
	if err != nil {
		return Key{}, false, err
	}
	return Key{
		Partition:  row.String(colTargetPartition),
		Clustering: row.String(colTargetClustering),
	}, true, nil
}

// Delete 删除索引行
func (l *LookupIndex) Delete(ctx context.Context, natural Key) error {
	return l.table.Delete(ctx, natural)
}
