package kafka

import (
	"context"
	"errors"
	"fmt"
	log "log/slog"
	"time"

	"github.com/IBM/sarama"
	"github.com/goccy/go-json"
	"golang.org/x/sync/errgroup"
)

const (
	batchSize        = 32
	batchTimeout     = 1 * time.Second
	batchConcurrency = 4
	retryBase        = 100 * time.Millisecond
	retryMax         = 5 * time.Second
)

type LogicFunc func(ctx context.Context, msg *sarama.ConsumerMessage) error

// pullMessageBatch 攒批拉取消息，满 batchSize 或超过 batchTimeout 时处理一批
func pullMessageBatch(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim, logic LogicFunc) error {
	batch := make([]*sarama.ConsumerMessage, 0, batchSize)
	ticker := time.NewTicker(batchTimeout)
	defer ticker.Stop()

	flush := func() {
		if len(batch) == 0 {
			return
		}
		if processBatch(session.Context(), batch, logic) {
			session.MarkMessage(batch[len(batch)-1], "")
			session.Commit()
		}
		batch = make([]*sarama.ConsumerMessage, 0, batchSize)
	}

	for {
		select {
		case msg, ok := <-claim.Messages():
			if !ok {
				flush()
				return nil
			}
			batch = append(batch, msg)
			if len(batch) >= batchSize {
				flush()
				ticker.Reset(batchTimeout)
			}
		case <-ticker.C:
			flush()
		case <-session.Context().Done():
			return nil
		}
	}
}

// processBatch 并发处理一批消息，失败的消息指数退避重试直到成功或会话结束。
// 返回 false 表示会话在处理中途结束，这一批不能提交。
func processBatch(ctx context.Context, messages []*sarama.ConsumerMessage, logic LogicFunc) bool {
	g := new(errgroup.Group)
	g.SetLimit(batchConcurrency)
	for _, msg := range messages {
		g.Go(func() error {
			return retryUntilDone(ctx, msg, logic)
		})
	}
	return g.Wait() == nil
}

func retryUntilDone(ctx context.Context, msg *sarama.ConsumerMessage, logic LogicFunc) error {
	interval := retryBase
	for {
		err := logic(ctx, msg)
		if err == nil {
			return nil
		}
		log.ErrorContext(ctx, "process message error", "topic", msg.Topic, "partition", msg.Partition, "offset", msg.Offset, "err", err)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(interval):
		}
		interval = min(interval*2, retryMax)
	}
}

// decodeMessage 解析 JSON 消息体，空消息视为格式错误
func decodeMessage(msg *sarama.ConsumerMessage, v any) error {
	if len(msg.Value) == 0 {
		return errors.New("message value is empty")
	}
	if err := json.Unmarshal(msg.Value, v); err != nil {
		return fmt.Errorf("unmarshal message at offset %d: %w", msg.Offset, err)
	}
	return nil
}
