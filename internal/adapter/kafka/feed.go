package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/couchcryptid/crisis-intel-service/internal/config"
	"github.com/couchcryptid/crisis-intel-service/internal/domain"
	kafkago "github.com/segmentio/kafka-go"
)

// SourceName identifies the Kafka raw-reports feed in ingestion summaries.
const SourceName = "REPORTS"

// drainTimeout bounds how long a single Fetch waits for the topic to go
// quiet before returning whatever it has collected.
const drainTimeout = 5 * time.Second

// Feed consumes raw hazard reports from a Kafka topic.
// It implements ingest.Feed.
type Feed struct {
	reader *kafkago.Reader
	logger *slog.Logger
}

// NewFeed creates a Kafka consumer for the raw-reports topic.
func NewFeed(cfg *config.Config, logger *slog.Logger) *Feed {
	r := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:  cfg.KafkaBrokers,
		Topic:    cfg.KafkaReportsTopic,
		GroupID:  cfg.KafkaGroupID,
		MinBytes: 1,
		MaxBytes: 10e6,
		MaxWait:  time.Second,
	})
	return &Feed{reader: r, logger: logger}
}

// Fetch drains the currently available messages from the reports topic and
// returns them as raw records. Malformed messages are committed and skipped
// so one bad producer cannot wedge the partition.
func (f *Feed) Fetch(ctx context.Context) ([]domain.RawRecord, error) {
	drainCtx, cancel := context.WithTimeout(ctx, drainTimeout)
	defer cancel()

	var records []domain.RawRecord
	for {
		msg, err := f.reader.FetchMessage(drainCtx)
		if err != nil {
			if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
				return records, nil
			}
			return records, err
		}

		var rec domain.RawRecord
		if err := json.Unmarshal(msg.Value, &rec); err != nil {
			f.logger.Warn("skipping malformed report",
				"topic", msg.Topic,
				"partition", msg.Partition,
				"offset", msg.Offset,
				"error", err,
			)
		} else {
			records = append(records, rec)
		}

		if err := f.reader.CommitMessages(ctx, msg); err != nil {
			return records, err
		}
	}
}

func (f *Feed) Close() error {
	return f.reader.Close()
}
