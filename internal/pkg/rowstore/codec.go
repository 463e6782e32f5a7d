package rowstore

import (
	"bytes"

	"github.com/goccy/go-json"
	"github.com/pkg/errors"
)

// MarshalRow 将行编码为 JSON，供以文本列保存整行的引擎使用
func MarshalRow(r Row) ([]byte, error) {
	if r == nil {
		r = Row{}
	}
	data, err := json.Marshal(r)
	if err != nil {
		return nil, errors.Wrap(err, "marshal row")
	}
	return data, nil
}

// UnmarshalRow 解码 MarshalRow 的输出，数字还原为 int64
func UnmarshalRow(data []byte) (Row, error) {
	r := Row{}
	if len(data) == 0 {
		return r, nil
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&r); err != nil {
		return nil, errors.Wrap(err, "unmarshal row")
	}
	return NormalizeRow(r)
}
