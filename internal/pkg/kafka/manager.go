package kafka

import (
	"Parley/internal/api/config"
	"context"
	log "log/slog"

	"github.com/IBM/sarama"
)

// ConsumerManager 管理所有 Kafka 消费者
type ConsumerManager struct {
	purgeTopic    string
	purgeConsumer sarama.ConsumerGroup
	purgeHandler  sarama.ConsumerGroupHandler
}

// NewConsumerManager 构造函数
func NewConsumerManager(cfg *config.Config, purger UserPurger) (*ConsumerManager, error) {
	saramaCfg := newSaramaConfig(cfg.Kafka)

	purgeConsumer, err := sarama.NewConsumerGroup(cfg.Kafka.Brokers, cfg.KafkaPurgeConsumer.GroupID, saramaCfg)
	if err != nil {
		return nil, err
	}

	return &ConsumerManager{
		purgeTopic:    cfg.KafkaPurgeConsumer.Topic,
		purgeConsumer: purgeConsumer,
		purgeHandler:  NewPurgeHandler(purger),
	}, nil
}

// Start 启动所有消费者，阻塞直到 ctx 结束
func (m *ConsumerManager) Start(ctx context.Context) error {
	go func() {
		log.Info("Purge consumer started", "topic", m.purgeTopic)
		for {
			if err := m.purgeConsumer.Consume(ctx, []string{m.purgeTopic}, m.purgeHandler); err != nil {
				log.Error("Error from consumer", "err", err)
			}
			if ctx.Err() != nil {
				return
			}
		}
	}()

	go func() {
		for err := range m.purgeConsumer.Errors() {
			log.Error("Purge consumer error", "err", err)
		}
	}()

	<-ctx.Done()
	log.Info("Kafka Manager shutting down...")

	if err := m.purgeConsumer.Close(); err != nil {
		log.Error("Failed to close purge consumer", "err", err)
	}
	return nil
}
