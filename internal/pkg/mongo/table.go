package mongo

import (
	"context"
	"errors"
	log "log/slog"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"Parley/internal/pkg/rowstore"
)

const (
	fieldPartition  = "pk"
	fieldClustering = "ck"
	fieldColumns    = "c"
)

// rowDoc 一行对应一个文档，列值放在子文档 c 中
type rowDoc struct {
	ID         string `bson:"_id"`
	Partition  string `bson:"pk"`
	Clustering string `bson:"ck"`
	Columns    bson.M `bson:"c"`
}

// Store 基于 MongoDB 的行存储，每张表一个集合。
// 单文档更新是原子的，条件写通过 FindOneAndUpdate 的过滤条件实现。
type Store struct {
	db *mongo.Database
}

func NewStore(db *mongo.Database) *Store {
	return &Store{db: db}
}

func (s *Store) Table(name string) rowstore.Table {
	return &table{name: name, col: s.db.Collection(name)}
}

func (s *Store) Close(ctx context.Context) error {
	return s.db.Client().Disconnect(ctx)
}

// EnsureIndexes 为各表建立 (pk, ck) 复合索引
func (s *Store) EnsureIndexes(ctx context.Context, tables ...string) error {
	for _, name := range tables {
		_, err := s.db.Collection(name).Indexes().CreateOne(ctx, mongo.IndexModel{
			Keys: bson.D{{Key: fieldPartition, Value: 1}, {Key: fieldClustering, Value: 1}},
		})
		if err != nil {
			return rowstore.Unavailable(err, "create index "+name)
		}
	}
	log.Info("MongoDB row store indexes ensured", "tables", len(tables))
	return nil
}

type table struct {
	name string
	col  *mongo.Collection
}

func docID(key rowstore.Key) string {
	return key.Partition + "\x00" + key.Clustering
}

func (t *table) Name() string {
	return t.name
}

func (t *table) Get(ctx context.Context, key rowstore.Key) (rowstore.Row, error) {
	row, err := t.find(ctx, key)
	if err != nil {
		return nil, err
	}
	if row == nil {
		return nil, rowstore.ErrNotFound
	}
	return row, nil
}

// find 读取一行，不存在时返回 nil, nil
func (t *table) find(ctx context.Context, key rowstore.Key) (rowstore.Row, error) {
	var doc rowDoc
	err := t.col.FindOne(ctx, bson.M{"_id": docID(key)}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, rowstore.Unavailable(err, "find "+t.name)
	}
	return toRow(doc.Columns)
}

func (t *table) Put(ctx context.Context, key rowstore.Key, values rowstore.Row) error {
	values, err := rowstore.NormalizeRow(values)
	if err != nil {
		return err
	}
	update := buildUpdate(key, values)
	_, err = t.col.UpdateOne(ctx, bson.M{"_id": docID(key)}, update, options.Update().SetUpsert(true))
	if mongo.IsDuplicateKeyError(err) {
		// 并发 upsert 同一 _id，另一方已插入，重试一次即为普通更新
		_, err = t.col.UpdateOne(ctx, bson.M{"_id": docID(key)}, update)
	}
	if err != nil {
		return rowstore.Unavailable(err, "put "+t.name)
	}
	return nil
}

func (t *table) InsertIfAbsent(ctx context.Context, key rowstore.Key, values rowstore.Row) (*rowstore.Result, error) {
	values, err := rowstore.NormalizeRow(values)
	if err != nil {
		return nil, err
	}
	cols := bson.M{}
	for col, v := range values {
		if v != nil {
			cols[col] = v
		}
	}
	doc := rowDoc{ID: docID(key), Partition: key.Partition, Clustering: key.Clustering, Columns: cols}
	_, err = t.col.InsertOne(ctx, doc)
	if mongo.IsDuplicateKeyError(err) {
		observed, err := t.find(ctx, key)
		if err != nil {
			return nil, err
		}
		return &rowstore.Result{Applied: false, Observed: observed}, nil
	}
	if err != nil {
		return nil, rowstore.Unavailable(err, "insert "+t.name)
	}
	return &rowstore.Result{Applied: true, Observed: rowstore.Merge(nil, values)}, nil
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

	filter := bson.M{"_id": docID(key)}
	for col, want := range cond {
		// {c.col: nil} 同时匹配 null 与字段缺失
		filter[fieldColumns+"."+col] = want
	}

	var doc rowDoc
	err = t.col.FindOneAndUpdate(ctx, filter, buildUpdate(key, values),
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		observed, err := t.find(ctx, key)
		if err != nil {
			return nil, err
		}
		return &rowstore.Result{Applied: false, Observed: observed}, nil
	}
	if err != nil {
		return nil, rowstore.Unavailable(err, "update "+t.name)
	}
	observed, err := toRow(doc.Columns)
	if err != nil {
		return nil, err
	}
	return &rowstore.Result{Applied: true, Observed: observed}, nil
}

func (t *table) Delete(ctx context.Context, key rowstore.Key) error {
	if _, err := t.col.DeleteOne(ctx, bson.M{"_id": docID(key)}); err != nil {
		return rowstore.Unavailable(err, "delete "+t.name)
	}
	return nil
}

func (t *table) Scan(ctx context.Context, q rowstore.Query, fn rowstore.ScanFunc) error {
	order := 1
	if q.Desc {
		order = -1
	}

	filter := bson.M{}
	findOptions := options.Find()
	if q.Partition != "" {
		filter[fieldPartition] = q.Partition
		if q.Before != "" {
			filter[fieldClustering] = bson.M{"$lt": q.Before}
		}
		findOptions.SetSort(bson.D{{Key: fieldClustering, Value: order}})
	} else {
		findOptions.SetSort(bson.D{{Key: fieldPartition, Value: order}, {Key: fieldClustering, Value: order}})
	}

	where, err := rowstore.NormalizeCond(q.Where)
	if err != nil {
		return err
	}
	for col, want := range where {
		filter[fieldColumns+"."+col] = want
	}
	if q.Limit > 0 {
		findOptions.SetLimit(int64(q.Limit))
	}

	cursor, err := t.col.Find(ctx, filter, findOptions)
	if err != nil {
		return rowstore.Unavailable(err, "scan "+t.name)
	}
	defer func() {
		_ = cursor.Close(ctx)
	}()

	scanner := rowstore.NewScanner(rowstore.Query{Limit: q.Limit}, fn)
	for cursor.Next(ctx) {
		var doc rowDoc
		if err := cursor.Decode(&doc); err != nil {
			return rowstore.Unavailable(err, "decode "+t.name)
		}
		row, err := toRow(doc.Columns)
		if err != nil {
			return err
		}
		entry := rowstore.Entry{Key: rowstore.Key{Partition: doc.Partition, Clustering: doc.Clustering}, Row: row}
		if stop, err := scanner.Offer(entry); stop {
			return err
		}
	}
	if err := cursor.Err(); err != nil {
		return rowstore.Unavailable(err, "scan "+t.name)
	}
	return nil
}

// buildUpdate 将列写入转换为 $set / $unset，pk 与 ck 总是被写入以保证 $set 非空
func buildUpdate(key rowstore.Key, values rowstore.Row) bson.M {
	set := bson.M{fieldPartition: key.Partition, fieldClustering: key.Clustering}
	unset := bson.M{}
	for col, v := range values {
		if v == nil {
			unset[fieldColumns+"."+col] = ""
			continue
		}
		set[fieldColumns+"."+col] = v
	}
	update := bson.M{"$set": set}
	if len(unset) > 0 {
		update["$unset"] = unset
	}
	return update
}

func toRow(cols bson.M) (rowstore.Row, error) {
	row := make(rowstore.Row, len(cols))
	for col, v := range cols {
		n, err := rowstore.Normalize(v)
		if err != nil {
			return nil, err
		}
		if n != nil {
			row[col] = n
		}
	}
	return row, nil
}
