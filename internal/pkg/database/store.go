package database

import (
	"context"
	"errors"
	log "log/slog"

	"github.com/go-sql-driver/mysql"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"Parley/internal/pkg/rowstore"
)

// errVersionRace 行版本在读取与写回之间持续被其他写入者修改
var errVersionRace = errors.New("row version changed concurrently")

// maxVersionRetries 版本号冲突重试上限，仅用于模拟单行原子写，与业务层重试无关
const maxVersionRetries = 16

const mysqlDuplicateEntry = 1062

// WideRow 所有逻辑表共用的一张物理表，列值以 JSON 保存在 data 中。
// 键列使用二进制排序规则，保证范围扫描与其他引擎的字节序一致。
// Gen 每次插入重新生成，删除后重建的行即使 version 从 0 开始也不会与旧行混淆。
type WideRow struct {
	Tbl     string `gorm:"column:tbl;primaryKey;type:varchar(64) COLLATE utf8mb4_bin"`
	PK      string `gorm:"column:pk;primaryKey;type:varchar(191) COLLATE utf8mb4_bin"`
	CK      string `gorm:"column:ck;primaryKey;type:varchar(191) COLLATE utf8mb4_bin"`
	Gen     string `gorm:"column:gen;type:char(36);not null;default:''"`
	Data    string `gorm:"column:data;type:text"`
	Version int64  `gorm:"column:version;not null;default:0"`
}

func (WideRow) TableName() string {
	return "wide_rows"
}

// Migrate 创建或更新 wide_rows 表结构
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(&WideRow{})
}

// Store 基于 MySQL 的行存储。条件写先在 Go 中比较，再用 version 乐观锁写回，
// 对外表现为单行原子的比较并写入。
type Store struct {
	db *gorm.DB
}

func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

func (s *Store) Table(name string) rowstore.Table {
	return &table{name: name, db: s.db}
}

func (s *Store) Close(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

type table struct {
	name string
	db   *gorm.DB
}

func (t *table) Name() string {
	return t.name
}

func (t *table) where(ctx context.Context, key rowstore.Key) *gorm.DB {
	return t.db.WithContext(ctx).Where("tbl = ? AND pk = ? AND ck = ?", t.name, key.Partition, key.Clustering)
}

// load 读取原始行，不存在时返回 nil, nil
func (t *table) load(ctx context.Context, key rowstore.Key) (*WideRow, rowstore.Row, error) {
	var wr WideRow
	err := t.where(ctx, key).Take(&wr).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, rowstore.Unavailable(err, "select "+t.name)
	}
	row, err := rowstore.UnmarshalRow([]byte(wr.Data))
	if err != nil {
		return nil, nil, err
	}
	return &wr, row, nil
}

func (t *table) Get(ctx context.Context, key rowstore.Key) (rowstore.Row, error) {
	_, row, err := t.load(ctx, key)
	if err != nil {
		return nil, err
	}
	if row == nil {
		return nil, rowstore.ErrNotFound
	}
	return row, nil
}

// insert 插入新行，主键冲突时 inserted 为 false
func (t *table) insert(ctx context.Context, key rowstore.Key, row rowstore.Row) (inserted bool, err error) {
	data, err := rowstore.MarshalRow(row)
	if err != nil {
		return false, err
	}
	wr := WideRow{Tbl: t.name, PK: key.Partition, CK: key.Clustering, Gen: uuid.NewString(), Data: string(data)}
	err = t.db.WithContext(ctx).Create(&wr).Error
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) && myErr.Number == mysqlDuplicateEntry {
		return false, nil
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return false, nil
	}
	if err != nil {
		return false, rowstore.Unavailable(err, "insert "+t.name)
	}
	return true, nil
}

// swap 以插入代号与版本号为条件写回，updated 为 false 表示行已被修改或重建
func (t *table) swap(ctx context.Context, wr *WideRow, row rowstore.Row) (updated bool, err error) {
	data, err := rowstore.MarshalRow(row)
	if err != nil {
		return false, err
	}
	res := t.db.WithContext(ctx).Model(&WideRow{}).
		Where("tbl = ? AND pk = ? AND ck = ? AND gen = ? AND version = ?", wr.Tbl, wr.PK, wr.CK, wr.Gen, wr.Version).
		Updates(map[string]any{"data": string(data), "version": wr.Version + 1})
	if res.Error != nil {
		return false, rowstore.Unavailable(res.Error, "update "+t.name)
	}
	return res.RowsAffected == 1, nil
}

func (t *table) Put(ctx context.Context, key rowstore.Key, values rowstore.Row) error {
	values, err := rowstore.NormalizeRow(values)
	if err != nil {
		return err
	}
	for i := 0; i < maxVersionRetries; i++ {
		wr, row, err := t.load(ctx, key)
		if err != nil {
			return err
		}
		if wr == nil {
			inserted, err := t.insert(ctx, key, rowstore.Merge(nil, values))
			if err != nil || inserted {
				return err
			}
			continue
		}
		updated, err := t.swap(ctx, wr, rowstore.Merge(row, values))
		if err != nil || updated {
			return err
		}
	}
	log.WarnContext(ctx, "MySQL row store put lost every version race", "table", t.name, "key", key.String())
	return rowstore.Unavailable(errVersionRace, "put "+t.name)
}

func (t *table) InsertIfAbsent(ctx context.Context, key rowstore.Key, values rowstore.Row) (*rowstore.Result, error) {
	values, err := rowstore.NormalizeRow(values)
	if err != nil {
		return nil, err
	}
	row := rowstore.Merge(nil, values)
	inserted, err := t.insert(ctx, key, row)
	if err != nil {
		return nil, err
	}
	if inserted {
		return &rowstore.Result{Applied: true, Observed: row}, nil
	}
	_, observed, err := t.load(ctx, key)
	if err != nil {
		return nil, err
	}
	return &rowstore.Result{Applied: false, Observed: observed}, nil
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
	for i := 0; i < maxVersionRetries; i++ {
		wr, row, err := t.load(ctx, key)
		if err != nil {
			return nil, err
		}
		if wr == nil {
			return &rowstore.Result{Applied: false}, nil
		}
		if !rowstore.Match(row, cond) {
			return &rowstore.Result{Applied: false, Observed: row}, nil
		}
		merged := rowstore.Merge(row, values)
		updated, err := t.swap(ctx, wr, merged)
		if err != nil {
			return nil, err
		}
		if updated {
			return &rowstore.Result{Applied: true, Observed: merged}, nil
		}
	}
	log.WarnContext(ctx, "MySQL row store conditional update lost every version race", "table", t.name, "key", key.String())
	return nil, rowstore.Unavailable(errVersionRace, "update "+t.name)
}

func (t *table) Delete(ctx context.Context, key rowstore.Key) error {
	if err := t.where(ctx, key).Delete(&WideRow{}).Error; err != nil {
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

	dir := "ASC"
	if q.Desc {
		dir = "DESC"
	}
	tx := t.db.WithContext(ctx).Model(&WideRow{}).Where("tbl = ?", t.name)
	if q.Partition != "" {
		tx = tx.Where("pk = ?", q.Partition)
		if q.Before != "" {
			tx = tx.Where("ck < ?", q.Before)
		}
		tx = tx.Order("ck " + dir)
	} else {
		tx = tx.Order("pk " + dir).Order("ck " + dir)
	}
	// 过滤在 Go 中进行，只有无过滤条件时才能下推 LIMIT
	if q.Limit > 0 && len(q.Where) == 0 {
		tx = tx.Limit(q.Limit)
	}

	rows, err := tx.Rows()
	if err != nil {
		return rowstore.Unavailable(err, "scan "+t.name)
	}
	defer func() {
		_ = rows.Close()
	}()

	scanner := rowstore.NewScanner(q, fn)
	for rows.Next() {
		var wr WideRow
		if err := t.db.ScanRows(rows, &wr); err != nil {
			return rowstore.Unavailable(err, "scan "+t.name)
		}
		row, err := rowstore.UnmarshalRow([]byte(wr.Data))
		if err != nil {
			return err
		}
		if stop, err := scanner.Offer(rowstore.Entry{Key: rowstore.Key{Partition: wr.PK, Clustering: wr.CK}, Row: row}); stop {
			return err
		}
	}
	if err := rows.Err(); err != nil {
		return rowstore.Unavailable(err, "scan "+t.name)
	}
	return nil
}
