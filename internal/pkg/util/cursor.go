package util

import (
	"bytes"
	"encoding/base64"
	"errors"
	"time"

	"github.com/goccy/go-json"
)

// EncodeCursor 将 ES 返回的 Sort 值数组编码为 Base64 字符串
func EncodeCursor(sortValues []interface{}) string {
	if len(sortValues) == 0 {
		return ""
	}
	b, _ := json.Marshal(sortValues)
	return base64.URLEncoding.EncodeToString(b)
}

// DecodeCursor 将前端传来的 Base64 字符串解码为 Sort 值数组
func DecodeCursor(cursor string) ([]interface{}, error) {
	if cursor == "" {
		return nil, nil
	}
	b, err := base64.URLEncoding.DecodeString(cursor)
	if err != nil {
		return nil, err
	}
	var sortValues []interface{}
	d := json.NewDecoder(bytes.NewReader(b))
	d.UseNumber()
	err = d.Decode(&sortValues)
	return sortValues, err
}

// EncodeTimeCursor 消息分页游标：最早一条消息的创建时间
func EncodeTimeCursor(t time.Time) string {
	return EncodeCursor([]interface{}{t.UnixMilli()})
}

// DecodeTimeCursor 空游标返回 nil，表示从最新一页开始
func DecodeTimeCursor(cursor string) (*time.Time, error) {
	values, err := DecodeCursor(cursor)
	if err != nil || len(values) == 0 {
		return nil, err
	}
	n, ok := values[0].(json.Number)
	if !ok {
		return nil, errors.New("invalid cursor")
	}
	ms, err := n.Int64()
	if err != nil {
		return nil, err
	}
	t := time.UnixMilli(ms).UTC()
	return &t, nil
}
