package rowstore

import (
	"context"
	"sort"
	"sync"
)

// memoryStore 进程内引擎，用于测试与单机部署
type memoryStore struct {
	mu     sync.Mutex
	tables map[string]*memoryTable
}

// NewMemoryStore 创建进程内存储
func NewMemoryStore() Store {
	return &memoryStore{tables: make(map[string]*memoryTable)}
}

func (s *memoryStore) Table(name string) Table {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tables[name]
	if !ok {
		t = &memoryTable{name: name, rows: make(map[Key]Row)}
		s.tables[name] = t
	}
	return t
}

func (s *memoryStore) Close(ctx context.Context) error {
	return nil
}

type memoryTable struct {
	name string
	mu   sync.Mutex
	rows map[Key]Row
}

func (t *memoryTable) Name() string {
	return t.name
}

func (t *memoryTable) Get(ctx context.Context, key Key) (Row, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	row, ok := t.rows[key]
	if !ok {
		return nil, ErrNotFound
	}
	return row.Clone(), nil
}

func (t *memoryTable) Put(ctx context.Context, key Key, values Row) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	values, err := NormalizeRow(values)
	if err != nil {
		return err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.rows[key] = Merge(t.rows[key], values)
	return nil
}

func (t *memoryTable) InsertIfAbsent(ctx context.Context, key Key, values Row) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	values, err := NormalizeRow(values)
	if err != nil {
		return nil, err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if existing, ok := t.rows[key]; ok {
		return &Result{Applied: false, Observed: existing.Clone()}, nil
	}
	row := Merge(nil, values)
	t.rows[key] = row
	return &Result{Applied: true, Observed: row.Clone()}, nil
}

func (t *memoryTable) UpdateIf(ctx context.Context, key Key, values Row, cond Cond) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	values, err := NormalizeRow(values)
	if err != nil {
		return nil, err
	}
	cond, err = NormalizeCond(cond)
	if err != nil {
		return nil, err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	existing, ok := t.rows[key]
	if !ok {
		return &Result{Applied: false}, nil
	}
	if !Match(existing, cond) {
		return &Result{Applied: false, Observed: existing.Clone()}, nil
	}
	row := Merge(existing, values)
	t.rows[key] = row
	return &Result{Applied: true, Observed: row.Clone()}, nil
}

func (t *memoryTable) Delete(ctx context.Context, key Key) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.rows, key)
	return nil
}

func (t *memoryTable) Scan(ctx context.Context, q Query, fn ScanFunc) error {
	entries := t.snapshot(q)
	scanner := NewScanner(q, fn)
	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return err
		}
		if stop, err := scanner.Offer(e); stop {
			return err
		}
	}
	return nil
}

// snapshot 在锁内复制匹配分区的行，回调在锁外执行，允许回调中再写本表
func (t *memoryTable) snapshot(q Query) []Entry {
	t.mu.Lock()
	defer t.mu.Unlock()
	entries := make([]Entry, 0, len(t.rows))
	for k, row := range t.rows {
		if q.Partition != "" {
			if k.Partition != q.Partition || !q.InRange(k.Clustering) {
				continue
			}
		}
		entries = append(entries, Entry{Key: k, Row: row.Clone()})
	}
	sort.Slice(entries, func(i, j int) bool {
		if q.Desc {
			return KeyLess(entries[j].Key, entries[i].Key)
		}
		return KeyLess(entries[i].Key, entries[j].Key)
	})
	return entries
}
