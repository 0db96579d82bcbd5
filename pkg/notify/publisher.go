package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/IBM/sarama"

	"homerent/pkg/logger"
)

// PushMessage 推送到消息总线的通知，由下游推送服务投递到设备
type PushMessage struct {
	NotificationID string    `json:"notification_id"`
	UserID         string    `json:"user_id"`
	PushToken      string    `json:"push_token,omitempty"`
	Title          string    `json:"title"`
	Body           string    `json:"body"`
	Kind           string    `json:"kind"`
	ReferenceID    string    `json:"reference_id,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

// Publisher 推送通道
type Publisher interface {
	Publish(ctx context.Context, msg PushMessage) error
	Close() error
}

// KafkaPublisher 以同步生产者写入 Kafka
type KafkaPublisher struct {
	producer sarama.SyncProducer
	topic    string
}

// NewKafkaPublisher 连接 Kafka，brokers 为逗号分隔的地址
func NewKafkaPublisher(brokers, topic string) (*KafkaPublisher, error) {
	config := sarama.NewConfig()
	config.Producer.Return.Successes = true
	config.Producer.RequiredAcks = sarama.WaitForAll
	config.Producer.Retry.Max = 3

	producer, err := sarama.NewSyncProducer(splitBrokers(brokers), config)
	if err != nil {
		return nil, fmt.Errorf("create kafka producer: %w", err)
	}
	return NewKafkaPublisherWithProducer(producer, topic), nil
}

// NewKafkaPublisherWithProducer 使用已有的生产者
func NewKafkaPublisherWithProducer(producer sarama.SyncProducer, topic string) *KafkaPublisher {
	return &KafkaPublisher{
		producer: producer,
		topic:    topic,
	}
}

// Publish 以用户 ID 作为分区键，保证同一用户的通知有序
func (p *KafkaPublisher) Publish(ctx context.Context, msg PushMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal push message: %w", err)
	}

	partition, offset, err := p.producer.SendMessage(&sarama.ProducerMessage{
		Topic: p.topic,
		Key:   sarama.StringEncoder(msg.UserID),
		Value: sarama.ByteEncoder(data),
	})
	if err != nil {
		return fmt.Errorf("send %s message: %w", p.topic, err)
	}

	logger.DebugString("Notify", "Publish", fmt.Sprintf("%s partition=%d offset=%d", p.topic, partition, offset))
	return nil
}

// Close 关闭生产者
func (p *KafkaPublisher) Close() error {
	return p.producer.Close()
}

// NopPublisher 未配置 Kafka 时只保留站内通知
type NopPublisher struct{}

func (NopPublisher) Publish(ctx context.Context, msg PushMessage) error { return nil }

func (NopPublisher) Close() error { return nil }

func splitBrokers(brokers string) []string {
	var out []string
	for _, b := range strings.Split(brokers, ",") {
		if b = strings.TrimSpace(b); b != "" {
			out = append(out, b)
		}
	}
	return out
}
