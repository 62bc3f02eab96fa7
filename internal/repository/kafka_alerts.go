package repository

import (
	"context"
	"time"

	"BreakoutScan/internal/domain/models"
	pkgkafka "BreakoutScan/pkg/kafka"
)

// BatchPublisher is satisfied by *kafka.Producer.
type BatchPublisher interface {
	PublishBatch(ctx context.Context, topic string, messages []pkgkafka.Message) error
}

// AlertEvent is the JSON value of one alert message.
type AlertEvent struct {
	RunID     string    `json:"run_id"`
	RunDate   string    `json:"run_date"`
	Rank      int       `json:"rank"`
	Benchmark string    `json:"benchmark"`
	EmittedAt time.Time `json:"emitted_at"`
	models.ScanResult
}

// KafkaAlertPublisher implements Notifier by publishing alerts keyed by ticker.
type KafkaAlertPublisher struct {
	producer BatchPublisher
	topic    string
	now      func() time.Time
}

func NewKafkaAlertPublisher(producer BatchPublisher, topic string) *KafkaAlertPublisher {
	return &KafkaAlertPublisher{producer: producer, topic: topic, now: time.Now}
}

func (p *KafkaAlertPublisher) Name() string { return "kafka" }

func (p *KafkaAlertPublisher) Notify(ctx context.Context, run *models.ScanRun, alerts []models.ScanResult) error {
	if len(alerts) == 0 {
		return nil
	}
	now := p.now().UTC()
	msgs := make([]pkgkafka.Message, len(alerts))
	for i, a := range alerts {
		msgs[i] = pkgkafka.Message{
			Key: []byte(a.Ticker),
			Value: AlertEvent{
				RunID:      run.ID,
				RunDate:    models.DateKey(run.RunDate),
				Rank:       i + 1,
				Benchmark:  run.Benchmark,
				EmittedAt:  now,
				ScanResult: a,
			},
		}
	}
	return p.producer.PublishBatch(ctx, p.topic, msgs)
}
