package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/IBM/sarama"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/weight-adjuster/internal/domain"
)

// Producer публикует уведомления о корректировках веса в Kafka.
type Producer struct {
	producer sarama.SyncProducer
	topic    string
	logger   *log.Entry
}

// NewProducer создает новый Kafka producer
func NewProducer(brokers []string, topic string) (*Producer, error) {
	config := sarama.NewConfig()
	config.Producer.RequiredAcks = sarama.WaitForLocal
	// Повторы отправки отключены: уведомление best-effort, как и сама корректировка.
	config.Producer.Retry.Max = 0
	config.Producer.Return.Successes = true
	config.Producer.Compression = sarama.CompressionSnappy
	config.Producer.Timeout = 5 * time.Second

	producer, err := sarama.NewSyncProducer(brokers, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka producer: %w", err)
	}

	return newProducer(producer, topic), nil
}

func newProducer(producer sarama.SyncProducer, topic string) *Producer {
	if topic == "" {
		topic = TopicAdjustmentEvents
	}
	return &Producer{
		producer: producer,
		topic:    topic,
		logger:   log.WithField("component", "kafka-producer"),
	}
}

// Topic возвращает топик публикации.
func (p *Producer) Topic() string {
	return p.topic
}

// PublishAdjustment публикует событие о корректировке; ключом сообщения служит id заказа.
// Возвращает ошибку контекста, если отправка не уложилась в его дедлайн; сообщение при этом может дойти позже.
func (p *Producer) PublishAdjustment(ctx context.Context, adjustment domain.Adjustment) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	event := NewAdjustmentEvent(adjustment)
	errCh := make(chan error, 1)
	go func() {
		errCh <- p.PublishEvent(event.OrderID, event)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		p.logger.WithField("key", event.OrderID).Warn("kafka send did not finish before context deadline")
		return ctx.Err()
	}
}

// PublishEvent публикует произвольное событие в топик producer'а.
func (p *Producer) PublishEvent(key string, event interface{}) error {
	eventData, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	msg := &sarama.ProducerMessage{
		Topic:     p.topic,
		Key:       sarama.StringEncoder(key),
		Value:     sarama.ByteEncoder(eventData),
		Timestamp: time.Now(),
	}

	partition, offset, err := p.producer.SendMessage(msg)
	if err != nil {
		p.logger.WithError(err).WithFields(log.Fields{
			"topic": p.topic,
			"key":   key,
		}).Error("failed to send message to kafka")
		return fmt.Errorf("failed to send message: %w", err)
	}

	p.logger.WithFields(log.Fields{
		"topic":     p.topic,
		"key":       key,
		"partition": partition,
		"offset":    offset,
	}).Debug("message sent to kafka")

	return nil
}

// Close закрывает producer
func (p *Producer) Close() error {
	if err := p.producer.Close(); err != nil {
		return fmt.Errorf("failed to close kafka producer: %w", err)
	}
	return nil
}

var _ domain.AdjustmentPublisher = (*Producer)(nil)
