package redis

import (
	"context"

	"github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"
)

// Publisher 将领域事件以 JSON 发布到 Redis 频道，由外部实时推送服务订阅
type Publisher struct {
	rdb    *redis.Client
	prefix string
}

func NewPublisher(rdb *redis.Client, prefix string) *Publisher {
	return &Publisher{rdb: rdb, prefix: prefix}
}

// Publish 序列化并发布事件
func (s *Publisher) Publish(ctx context.Context, channel string, event any) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	if s.prefix != "" {
		channel = s.prefix + ":" + channel
	}
	return s.rdb.Publish(ctx, channel, data).Err()
}
