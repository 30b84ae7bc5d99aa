package ingest

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/example/med-dispatch/internal/models"
)

// KafkaProducer publishes position telemetry for fleet-side visibility.
// Publishing is best-effort; a dropped sample is replaced by the next one.
type KafkaProducer struct {
	writer   *kafka.Writer
	driverID string
}

type positionEvent struct {
	DriverID string                `json:"driver_id"`
	Status   models.DriverStatus   `json:"status"`
	Sample   models.PositionSample `json:"sample"`
}

func NewKafkaProducer(brokers []string, topic, driverID string) *KafkaProducer {
	w := kafka.NewWriter(kafka.WriterConfig{Brokers: brokers, Topic: topic, Balancer: &kafka.LeastBytes{}})
	return &KafkaProducer{writer: w, driverID: driverID}
}

func (k *KafkaProducer) PublishPosition(status models.DriverStatus, sample models.PositionSample) error {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	b, _ := json.Marshal(positionEvent{DriverID: k.driverID, Status: status, Sample: sample})
	return k.writer.WriteMessages(ctx, kafka.Message{Key: []byte(k.driverID), Value: b})
}

func (k *KafkaProducer) Close() error {
	if k.writer == nil {
		return nil
	}
	return k.writer.Close()
}
