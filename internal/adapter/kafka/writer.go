package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/couchcryptid/carpark-etl/internal/config"
	"github.com/couchcryptid/carpark-etl/internal/domain"
	kafkago "github.com/segmentio/kafka-go"
)

// Header keys attached to every published record.
const (
	HeaderRunID         = "run_id"
	HeaderFeedTimestamp = "feed_timestamp"
	HeaderBuiltAt       = "built_at"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// Writer publishes snapshot rows to a Kafka topic, one message per car park.
// It implements pipeline.Publisher.
type Writer struct {
	writer messageWriter
	logger *slog.Logger
}

// NewWriter creates a Kafka producer for the configured sink topic.
func NewWriter(cfg *config.Config, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaSinkTopic,
		Balancer:     &kafkago.Hash{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Writer{writer: w, logger: logger}
}

// Publish serializes every merged row of the snapshot and writes them in a
// single WriteMessages call. Rows are keyed by car park number so all updates
// for one facility land on the same partition.
func (w *Writer) Publish(ctx context.Context, snap *domain.Snapshot) error {
	if snap == nil || len(snap.Table.Records) == 0 {
		return nil
	}
	msgs := make([]kafkago.Message, len(snap.Table.Records))
	for i := range snap.Table.Records {
		msg, err := serializeToMessage(snap, snap.Table.Records[i])
		if err != nil {
			return err
		}
		msgs[i] = msg
	}
	if err := w.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("publish snapshot %s: %w", snap.RunID, err)
	}
	w.logger.Debug("snapshot published", "run_id", snap.RunID, "records", len(msgs))
	return nil
}

// Close flushes pending messages and releases the producer.
func (w *Writer) Close() error {
	return w.writer.Close()
}

// serializeToMessage marshals one merged row into a Kafka message carrying the
// snapshot's provenance as headers.
func serializeToMessage(snap *domain.Snapshot, rec domain.MergedRecord) (kafkago.Message, error) {
	data, err := json.Marshal(rec)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize car park %s: %w", rec.ID, err)
	}
	headers := []kafkago.Header{
		{Key: HeaderRunID, Value: []byte(snap.RunID)},
		{Key: HeaderBuiltAt, Value: []byte(snap.BuiltAt.Format(time.RFC3339))},
	}
	if snap.FeedTimestamp != nil {
		headers = append(headers, kafkago.Header{Key: HeaderFeedTimestamp, Value: []byte(*snap.FeedTimestamp)})
	}
	return kafkago.Message{
		Key:     []byte(rec.ID),
		Value:   data,
		Headers: headers,
	}, nil
}
