package rowstore

import "errors"

// Scanner 各引擎共用的扫描尾处理：逐行过滤、计数限制、提前结束
type Scanner struct {
	q     Query
	fn    ScanFunc
	count int
}

func NewScanner(q Query, fn ScanFunc) *Scanner {
	return &Scanner{q: q, fn: fn}
}

// Offer 递交一行。stop 为 true 时引擎应停止读取并返回 err（可能为 nil）。
func (s *Scanner) Offer(e Entry) (stop bool, err error) {
	if len(s.q.Where) > 0 && !Match(e.Row, s.q.Where) {
		return false, nil
	}
	if err := s.fn(e); err != nil {
		if errors.Is(err, ErrStopScan) {
			return true, nil
		}
		return true, err
	}
	s.count++
	if s.q.Limit > 0 && s.count >= s.q.Limit {
		return true, nil
	}
	return false, nil
}

// InRange 判断聚簇键是否落在查询的上界之内
func (q Query) InRange(clustering string) bool {
	return q.Before == "" || clustering < q.Before
}

// KeyLess 全表扫描的排序：先分区键，再聚簇键
func KeyLess(a, b Key) bool {
	if a.Partition != b.Partition {
		return a.Partition < b.Partition
	}
	return a.Clustering < b.Clustering
}
