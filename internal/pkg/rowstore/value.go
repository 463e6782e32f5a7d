package rowstore

import (
	"fmt"
	"math"
	"time"
)

// Row 一行的列值。列值只允许 nil、string、int64、bool 四种类型，
// 时间统一以毫秒时间戳 (int64) 存储。
type Row map[string]any

// Cond 条件写入的期望列值，值为 nil 表示该列必须为空
type Cond map[string]any

type int64er interface {
	Int64() (int64, error)
}

// Normalize 将列值转换为存储允许的类型
func Normalize(v any) (any, error) {
	switch x := v.(type) {
	case nil:
		return nil, nil
	case string, bool, int64:
		return x, nil
	case int:
		return int64(x), nil
	case int32:
		return int64(x), nil
	case uint32:
		return int64(x), nil
	case float64:
		if x != math.Trunc(x) {
			return nil, fmt.Errorf("rowstore: non integral number %v", x)
		}
		return int64(x), nil
	case time.Time:
		if x.IsZero() {
			return nil, nil
		}
		return x.UnixMilli(), nil
	case *time.Time:
		if x == nil || x.IsZero() {
			return nil, nil
		}
		return x.UnixMilli(), nil
	case *string:
		if x == nil {
			return nil, nil
		}
		return *x, nil
	case int64er:
		n, err := x.Int64()
		if err != nil {
			return nil, fmt.Errorf("rowstore: bad number: %w", err)
		}
		return n, nil
	}
	return nil, fmt.Errorf("rowstore: unsupported column type %T", v)
}

// NormalizeRow 返回列值规范化后的副本
func NormalizeRow(r Row) (Row, error) {
	out := make(Row, len(r))
	for col, v := range r {
		n, err := Normalize(v)
		if err != nil {
			return nil, fmt.Errorf("column %q: %w", col, err)
		}
		out[col] = n
	}
	return out, nil
}

// NormalizeCond 同 NormalizeRow
func NormalizeCond(c Cond) (Cond, error) {
	r, err := NormalizeRow(Row(c))
	return Cond(r), err
}

// Match 判断行是否满足所有等值条件。行与条件都必须已规范化。
func Match(r Row, c Cond) bool {
	for col, want := range c {
		got := r[col]
		if want == nil {
			if got != nil {
				return false
			}
			continue
		}
		if got != want {
			return false
		}
	}
	return true
}

// Merge 将 values 合并进 r 的副本，值为 nil 的列被删除
func Merge(r Row, values Row) Row {
	out := r.Clone()
	if out == nil {
		out = make(Row, len(values))
	}
	for col, v := range values {
		if v == nil {
			delete(out, col)
			continue
		}
		out[col] = v
	}
	return out
}

func (r Row) Clone() Row {
	if r == nil {
		return nil
	}
	out := make(Row, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

func (r Row) IsNull(col string) bool {
	return r[col] == nil
}

func (r Row) String(col string) string {
	s, _ := r[col].(string)
	return s
}

func (r Row) Int(col string) int64 {
	n, _ := r[col].(int64)
	return n
}

func (r Row) Bool(col string) bool {
	b, _ := r[col].(bool)
	return b
}

// Time 读取毫秒时间戳列，为空时返回零值
func (r Row) Time(col string) time.Time {
	n, ok := r[col].(int64)
	if !ok {
		return time.Time{}
	}
	return time.UnixMilli(n).UTC()
}

func (r Row) TimePtr(col string) *time.Time {
	if _, ok := r[col].(int64); !ok {
		return nil
	}
	t := r.Time(col)
	return &t
}
