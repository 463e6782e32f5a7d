package rowstore

import (
	"context"
	"errors"
	"fmt"

	pkgerrors "github.com/pkg/errors"
)

var (
	// ErrNotFound 行不存在
	ErrNotFound = errors.New("rowstore: row not found")
	// ErrUnavailable 存储引擎不可用或返回了与条件写语义无关的错误
	ErrUnavailable = errors.New("rowstore: store unavailable")
	// ErrStopScan 由 ScanFunc 返回以提前结束扫描，不会作为错误向上传递
	ErrStopScan = errors.New("rowstore: stop scan")
)

// Key 一行的完整定位：分区键 + 聚簇键
type Key struct {
	Partition  string
	Clustering string
}

func (k Key) String() string {
	return k.Partition + "/" + k.Clustering
}

// Result 条件写入的结果。
// Applied 为 false 不是错误，表示有其他写入者先一步修改了该行；
// Observed 为写入后（或冲突时）观察到的最新行，行不存在时为 nil。
type Result struct {
	Applied  bool
	Observed Row
}

// Query 扫描条件。Partition 为空时为全表扫描（按分区键、聚簇键排序）。
type Query struct {
	Partition string
	// Before 聚簇键上界（不含），仅在指定 Partition 时生效
	Before string
	Desc   bool
	// Limit <= 0 表示不限制
	Limit int
	// Where 逐行等值过滤，没有任何索引支持
	Where Cond
}

// Entry 扫描结果中的一行
type Entry struct {
	Key Key
	Row Row
}

type ScanFunc func(e Entry) error

// Table 单表操作。线性一致性只在同一行内成立，跨行/跨分区不保证任何顺序。
type Table interface {
	Name() string
	// Get 读取一行，不存在时返回 ErrNotFound
	Get(ctx context.Context, key Key) (Row, error)
	// Put 无条件写入（合并列，最后写入者胜出），值为 nil 的列被清空
	Put(ctx context.Context, key Key, values Row) error
	// InsertIfAbsent 仅在行不存在时插入
	InsertIfAbsent(ctx context.Context, key Key, values Row) (*Result, error)
	// UpdateIf 仅在行存在且 cond 中每一列都等于期望值时写入。
	// cond 中值为 nil 表示该列当前必须为空；cond 为空表示仅要求行存在。
	UpdateIf(ctx context.Context, key Key, values Row, cond Cond) (*Result, error)
	// Delete 删除一行，行不存在时不报错
	Delete(ctx context.Context, key Key) error
	Scan(ctx context.Context, q Query, fn ScanFunc) error
}

// Store 存储引擎
type Store interface {
	Table(name string) Table
	Close(ctx context.Context) error
}

// Collect 扫描并收集全部结果
func Collect(ctx context.Context, t Table, q Query) ([]Entry, error) {
	var entries []Entry
	err := t.Scan(ctx, q, func(e Entry) error {
		entries = append(entries, e)
		return nil
	})
	return entries, err
}

// Unavailable 将引擎/驱动错误标记为 ErrUnavailable，保留原始错误链
func Unavailable(err error, op string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrUnavailable) {
		return err
	}
	return pkgerrors.WithStack(fmt.Errorf("%w: %s: %w", ErrUnavailable, op, err))
}
