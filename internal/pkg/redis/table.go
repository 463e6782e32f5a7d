package redis

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/redis/go-redis/v9"

	"Parley/internal/pkg/rowstore"
)

// sentinelField 每个行哈希都带有的占位字段，保证所有列为空的行依然存在
const sentinelField = "__"

const scanBatch = 100

// insertScript KEYS: row, all, part  ARGV: allMember, ck, field/value...
var insertScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 1 then
  return {0, redis.call('HGETALL', KEYS[1])}
end
redis.call('HSET', KEYS[1], '__', '1')
for i = 3, #ARGV, 2 do
  redis.call('HSET', KEYS[1], ARGV[i], ARGV[i + 1])
end
redis.call('ZADD', KEYS[2], 0, ARGV[1])
redis.call('ZADD', KEYS[3], 0, ARGV[2])
return {1, redis.call('HGETALL', KEYS[1])}
`)

// putScript KEYS: row, all, part  ARGV: allMember, ck, nset, field/value..., delField...
var putScript = redis.NewScript(`
local nset = tonumber(ARGV[3])
redis.call('HSET', KEYS[1], '__', '1')
local i = 4
for j = 1, nset do
  redis.call('HSET', KEYS[1], ARGV[i], ARGV[i + 1])
  i = i + 2
end
for j = i, #ARGV do
  redis.call('HDEL', KEYS[1], ARGV[j])
end
redis.call('ZADD', KEYS[2], 0, ARGV[1])
redis.call('ZADD', KEYS[3], 0, ARGV[2])
return 1
`)

// updateIfScript KEYS: row  ARGV: nset, ndel, ncond, field/value..., delField..., condField/condValue...
// 期望值为空串表示该字段必须不存在
var updateIfScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 0 then
  return {0, {}}
end
local nset, ndel, ncond = tonumber(ARGV[1]), tonumber(ARGV[2]), tonumber(ARGV[3])
local c = 4 + nset * 2 + ndel
for j = 1, ncond do
  local cur = redis.call('HGET', KEYS[1], ARGV[c])
  local want = ARGV[c + 1]
  if want == '' then
    if cur then
      return {0, redis.call('HGETALL', KEYS[1])}
    end
  elseif cur ~= want then
    return {0, redis.call('HGETALL', KEYS[1])}
  end
  c = c + 2
end
local i = 4
for j = 1, nset do
  redis.call('HSET', KEYS[1], ARGV[i], ARGV[i + 1])
  i = i + 2
end
for j = 1, ndel do
  redis.call('HDEL', KEYS[1], ARGV[i])
  i = i + 1
end
return {1, redis.call('HGETALL', KEYS[1])}
`)

// Store 基于 Redis 的行存储。每行一个哈希，分区内的聚簇键与全表键各用一个
// 分值全为 0 的有序集合维护，依靠字典序范围查询实现有序扫描。
type Store struct {
	rdb    *redis.Client
	prefix string
}

func NewStore(rdb *redis.Client, prefix string) *Store {
	if prefix == "" {
		prefix = "parley"
	}
	return &Store{rdb: rdb, prefix: prefix}
}

func (s *Store) Table(name string) rowstore.Table {
	return &table{name: name, rdb: s.rdb, base: s.prefix + ":" + name}
}

func (s *Store) Close(ctx context.Context) error {
	return s.rdb.Close()
}

type table struct {
	name string
	rdb  *redis.Client
	base string
}

func (t *table) rowKey(key rowstore.Key) string {
	return t.base + ":r:" + key.Partition + "\x00" + key.Clustering
}

func (t *table) allKey() string {
	return t.base + ":all"
}

func (t *table) partKey(partition string) string {
	return t.base + ":p:" + partition
}

func allMember(key rowstore.Key) string {
	return key.Partition + "\x00" + key.Clustering
}

func (t *table) Name() string {
	return t.name
}

func (t *table) Get(ctx context.Context, key rowstore.Key) (rowstore.Row, error) {
	fields, err := t.rdb.HGetAll(ctx, t.rowKey(key)).Result()
	if err != nil {
		return nil, rowstore.Unavailable(err, "hgetall "+t.name)
	}
	if len(fields) == 0 {
		return nil, rowstore.ErrNotFound
	}
	return decodeFields(fields)
}

func (t *table) Put(ctx context.Context, key rowstore.Key, values rowstore.Row) error {
	values, err := rowstore.NormalizeRow(values)
	if err != nil {
		return err
	}
	set, del := splitValues(values)
	args := []any{allMember(key), key.Clustering, len(set) / 2}
	args = append(args, set...)
	args = append(args, del...)
	keys := []string{t.rowKey(key), t.allKey(), t.partKey(key.Partition)}
	if err := putScript.Run(ctx, t.rdb, keys, args...).Err(); err != nil {
		return rowstore.Unavailable(err, "put "+t.name)
	}
	return nil
}

func (t *table) InsertIfAbsent(ctx context.Context, key rowstore.Key, values rowstore.Row) (*rowstore.Result, error) {
	values, err := rowstore.NormalizeRow(values)
	if err != nil {
		return nil, err
	}
	set, _ := splitValues(values)
	args := append([]any{allMember(key), key.Clustering}, set...)
	keys := []string{t.rowKey(key), t.allKey(), t.partKey(key.Partition)}
	reply, err := insertScript.Run(ctx, t.rdb, keys, args...).Slice()
	if err != nil {
		return nil, rowstore.Unavailable(err, "insert "+t.name)
	}
	return parseResult(reply)
}

func (t *table) UpdateIf(ctx context.Context, key rowstore.Key, values rowstore.Row, cond rowstore.Cond) (*rowstore.Result, error) {
	values, err := rowstore.NormalizeRow(values)
	if err != nil {
		return nil, err
	}
	cond, err = rowstore.NormalizeCond(cond)
	if err != nil {
		return nil, err
	}
	set, del := splitValues(values)
	condArgs := make([]any, 0, len(cond)*2)
	for col, want := range cond {
		encoded := ""
		if want != nil {
			encoded = encodeValue(want)
		}
		condArgs = append(condArgs, col, encoded)
	}

	args := []any{len(set) / 2, len(del), len(cond)}
	args = append(args, set...)
	args = append(args, del...)
	args = append(args, condArgs...)
	reply, err := updateIfScript.Run(ctx, t.rdb, []string{t.rowKey(key)}, args...).Slice()
	if err != nil {
		return nil, rowstore.Unavailable(err, "update "+t.name)
	}
	return parseResult(reply)
}

func (t *table) Delete(ctx context.Context, key rowstore.Key) error {
	pipe := t.rdb.TxPipeline()
	pipe.Del(ctx, t.rowKey(key))
	pipe.ZRem(ctx, t.allKey(), allMember(key))
	pipe.ZRem(ctx, t.partKey(key.Partition), key.Clustering)
	if _, err := pipe.Exec(ctx); err != nil {
		return rowstore.Unavailable(err, "delete "+t.name)
	}
	return nil
}

func (t *table) Scan(ctx context.Context, q rowstore.Query, fn rowstore.ScanFunc) error {
	where, err := rowstore.NormalizeCond(q.Where)
	if err != nil {
		return err
	}
	q.Where = where
	scanner := rowstore.NewScanner(q, fn)

	var offset int64
	for {
		members, err := t.rangeMembers(ctx, q, offset)
		if err != nil {
			return err
		}
		if len(members) == 0 {
			return nil
		}
		offset += int64(len(members))

		keys := make([]rowstore.Key, len(members))
		pipe := t.rdb.Pipeline()
		cmds := make([]*redis.MapStringStringCmd, len(members))
		for i, m := range members {
			if q.Partition != "" {
				keys[i] = rowstore.Key{Partition: q.Partition, Clustering: m}
			} else {
				pk, ck, _ := strings.Cut(m, "\x00")
				keys[i] = rowstore.Key{Partition: pk, Clustering: ck}
			}
			cmds[i] = pipe.HGetAll(ctx, t.rowKey(keys[i]))
		}
		if _, err := pipe.Exec(ctx); err != nil {
			return rowstore.Unavailable(err, "scan "+t.name)
		}

		for i, cmd := range cmds {
			fields := cmd.Val()
			// 扫描期间被删除
			if len(fields) == 0 {
				continue
			}
			row, err := decodeFields(fields)
			if err != nil {
				return err
			}
			if stop, err := scanner.Offer(rowstore.Entry{Key: keys[i], Row: row}); stop {
				return err
			}
		}
		if len(members) < scanBatch {
			return nil
		}
	}
}

func (t *table) rangeMembers(ctx context.Context, q rowstore.Query, offset int64) ([]string, error) {
	zkey := t.allKey()
	lo, hi := "-", "+"
	if q.Partition != "" {
		zkey = t.partKey(q.Partition)
		if q.Before != "" {
			hi = "(" + q.Before
		}
	}
	by := &redis.ZRangeBy{Min: lo, Max: hi, Offset: offset, Count: scanBatch}
	var (
		members []string
		err     error
	)
	if q.Desc {
		members, err = t.rdb.ZRevRangeByLex(ctx, zkey, by).Result()
	} else {
		members, err = t.rdb.ZRangeByLex(ctx, zkey, by).Result()
	}
	if err != nil {
		return nil, rowstore.Unavailable(err, "range "+t.name)
	}
	return members, nil
}

// splitValues 拆分为 HSET 的 field/value 对与需要 HDEL 的字段
func splitValues(values rowstore.Row) (set []any, del []any) {
	for col, v := range values {
		if v == nil {
			del = append(del, col)
			continue
		}
		set = append(set, col, encodeValue(v))
	}
	return set, del
}

func encodeValue(v any) string {
	switch x := v.(type) {
	case string:
		return "s:" + x
	case int64:
		return "i:" + strconv.FormatInt(x, 10)
	case bool:
		if x {
			return "b:1"
		}
		return "b:0"
	}
	panic(fmt.Sprintf("redis row store: unnormalized value %T", v))
}

func decodeValue(s string) (any, error) {
	tag, body, ok := strings.Cut(s, ":")
	if !ok {
		return nil, fmt.Errorf("redis row store: malformed value %q", s)
	}
	switch tag {
	case "s":
		return body, nil
	case "i":
		return strconv.ParseInt(body, 10, 64)
	case "b":
		return body == "1", nil
	}
	return nil, fmt.Errorf("redis row store: unknown value tag %q", tag)
}

func decodeFields(fields map[string]string) (rowstore.Row, error) {
	row := make(rowstore.Row, len(fields))
	for field, raw := range fields {
		if field == sentinelField {
			continue
		}
		v, err := decodeValue(raw)
		if err != nil {
			return nil, err
		}
		row[field] = v
	}
	return row, nil
}

// parseResult 解析脚本返回的 {applied, HGETALL}
func parseResult(reply []any) (*rowstore.Result, error) {
	if len(reply) != 2 {
		return nil, fmt.Errorf("redis row store: unexpected script reply %v", reply)
	}
	applied, _ := reply[0].(int64)
	flat, _ := reply[1].([]any)
	if len(flat) == 0 {
		return &rowstore.Result{Applied: applied == 1}, nil
	}
	fields := make(map[string]string, len(flat)/2)
	for i := 0; i+1 < len(flat); i += 2 {
		k, _ := flat[i].(string)
		v, _ := flat[i+1].(string)
		fields[k] = v
	}
	observed, err := decodeFields(fields)
	if err != nil {
		return nil, err
	}
	return &rowstore.Result{Applied: applied == 1, Observed: observed}, nil
}
