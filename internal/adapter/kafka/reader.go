package kafka

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/couchcryptid/storm-track-service/internal/config"
	"github.com/couchcryptid/storm-track-service/internal/domain"
	kafkago "github.com/segmentio/kafka-go"
)

// Reader consumes raw frames from the source topic as part of a consumer
// group. It implements pipeline.BatchExtractor.
type Reader struct {
	reader    *kafkago.Reader
	logger    *slog.Logger
	batchWait time.Duration
}

// NewReader creates a Kafka consumer for the configured source topic.
func NewReader(cfg *config.Config, logger *slog.Logger) *Reader {
	r := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:  cfg.KafkaBrokers,
		Topic:    cfg.KafkaSourceTopic,
		GroupID:  cfg.KafkaGroupID,
		MinBytes: 1,
		MaxBytes: 10e6,
		MaxWait:  500 * time.Millisecond,
	})
	return &Reader{reader: r, logger: logger, batchWait: cfg.BatchFlushInterval}
}

// ExtractBatch reads up to batchSize messages, waiting at most the
// configured flush interval for the first one. An empty batch is returned
// when no messages arrive in time; the pipeline treats that as an idle poll.
func (r *Reader) ExtractBatch(ctx context.Context, batchSize int) ([]domain.RawFrame, error) {
	batchCtx, cancel := context.WithTimeout(ctx, r.batchWait)
	defer cancel()

	var batch []domain.RawFrame
	for len(batch) < batchSize {
		msg, err := r.reader.FetchMessage(batchCtx)
		if err != nil {
			// The batch window elapsing is not an error unless the parent
			// context is also done.
			if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
				return batch, nil
			}
			if len(batch) > 0 && ctx.Err() == nil {
				return batch, nil
			}
			return nil, err
		}
		batch = append(batch, r.mapMessageToRawFrame(msg))
	}
	return batch, nil
}

// Close shuts down the consumer and leaves the group.
func (r *Reader) Close() error {
	return r.reader.Close()
}

// mapMessageToRawFrame converts a Kafka message into a domain RawFrame with
// a commit callback bound to this reader's consumer group.
func (r *Reader) mapMessageToRawFrame(msg kafkago.Message) domain.RawFrame {
	headers := make(map[string]string, len(msg.Headers))
	for _, h := range msg.Headers {
		headers[h.Key] = string(h.Value)
	}
	return domain.RawFrame{
		Key:       msg.Key,
		Value:     msg.Value,
		Headers:   headers,
		Topic:     msg.Topic,
		Partition: msg.Partition,
		Offset:    msg.Offset,
		Timestamp: msg.Time,
		Commit: func(ctx context.Context) error {
			return r.reader.CommitMessages(ctx, msg)
		},
	}
}
