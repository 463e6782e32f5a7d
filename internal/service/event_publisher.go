package service

import (
	"Parley/internal/model"
	"context"
	log "log/slog"
)

// EventPublisher 领域事件出口，由外部实时推送服务订阅
type EventPublisher interface {
	Publish(ctx context.Context, channel string, event any) error
}

type noopPublisher struct{}

// NewNoopPublisher 未配置 Redis 时使用，丢弃所有事件
func NewNoopPublisher() EventPublisher {
	return noopPublisher{}
}

func (noopPublisher) Publish(context.Context, string, any) error {
	return nil
}

// publishEvent 事件发布失败只记录日志，不影响已完成的写入
func publishEvent(ctx context.Context, pub EventPublisher, channel, typ string, payload any) {
	if pub == nil {
		return
	}
	if err := pub.Publish(ctx, channel, model.NewEvent(typ, payload)); err != nil {
		log.WarnContext(ctx, "publish event failed", "channel", channel, "type", typ, "err", err)
	}
}
