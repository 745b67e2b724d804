//go:build integration

package integration_test

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tckafka "github.com/testcontainers/testcontainers-go/modules/kafka"

	kafkaadapter "github.com/couchcryptid/crisis-intel-service/internal/adapter/kafka"
	"github.com/couchcryptid/crisis-intel-service/internal/config"
	"github.com/couchcryptid/crisis-intel-service/internal/domain"
	"github.com/couchcryptid/crisis-intel-service/internal/ingest"
	"github.com/couchcryptid/crisis-intel-service/internal/observability"
)

const (
	testReportsTopic  = "test-raw-hazard-reports"
	testAssessedTopic = "test-assessed-events"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// startKafka launches a single-node Kafka container and returns its broker address.
func startKafka(ctx context.Context, t *testing.T) string {
	t.Helper()

	container, err := tckafka.Run(ctx, "confluentinc/confluent-local:7.6.1",
		tckafka.WithClusterID("test-cluster"))
	require.NoError(t, err, "start kafka container")
	t.Cleanup(func() {
		_ = container.Terminate(context.Background())
	})

	brokers, err := container.Brokers(ctx)
	require.NoError(t, err, "resolve brokers")
	require.NotEmpty(t, brokers)
	return brokers[0]
}

func createTopic(t *testing.T, broker, topic string) {
	t.Helper()
	conn, err := kafkago.Dial("tcp", broker)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.CreateTopics(kafkago.TopicConfig{
		Topic:             topic,
		NumPartitions:     1,
		ReplicationFactor: 1,
	}))
}

type memoryWriter struct {
	saved []domain.Event
}

func (m *memoryWriter) UpsertIfNotAssessed(_ context.Context, event domain.Event) (string, bool, error) {
	m.saved = append(m.saved, event)
	return event.Identity, true, nil
}

// TestKafkaFeedToIngest publishes raw hazard reports to the reports topic and
// verifies the Kafka feed drains and normalizes them through an ingestion batch.
func TestKafkaFeedToIngest(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 90*time.Second)
	defer cancel()

	broker := startKafka(ctx, t)
	createTopic(t, broker, testReportsTopic)

	cfg := &config.Config{
		KafkaBrokers:      []string{broker},
		KafkaReportsTopic: testReportsTopic,
		KafkaGroupID:      fmt.Sprintf("test-feed-%d", time.Now().UnixNano()),
	}

	report := domain.RawRecord{
		Type:        "Flood",
		Location:    "New Brunswick, NJ",
		Description: "flash flooding reported",
		Timestamp:   "2025-06-15T12:00:00Z",
		Coordinates: []float64{-74.4518, 40.4862},
	}
	payload, err := json.Marshal(report)
	require.NoError(t, err)

	producer := &kafkago.Writer{
		Addr:  kafkago.TCP(broker),
		Topic: testReportsTopic,
	}
	t.Cleanup(func() { _ = producer.Close() })

	require.NoError(t, producer.WriteMessages(ctx,
		kafkago.Message{Key: []byte("bad"), Value: []byte("not-json{{{")},
		kafkago.Message{Key: []byte("good"), Value: payload},
	))

	feed := kafkaadapter.NewFeed(cfg, discardLogger())
	t.Cleanup(func() { _ = feed.Close() })

	writer := &memoryWriter{}
	ingestor := ingest.New(writer, discardLogger(), observability.NewMetricsForTesting())
	ingestor.Register(kafkaadapter.SourceName, feed)

	// Retry: the consumer group may need time to rebalance before messages
	// become visible.
	var summary ingest.Summary
	for {
		summary, err = ingestor.Ingest(ctx, kafkaadapter.SourceName, "")
		require.NoError(t, err)
		if summary.Status != ingest.StatusNoEvents {
			break
		}
		if ctx.Err() != nil {
			t.Fatal("timed out waiting for reports")
		}
	}

	// The malformed message is skipped, the valid one normalized and saved.
	assert.Equal(t, ingest.StatusSuccess, summary.Status)
	assert.Equal(t, 1, summary.SavedCount)
	require.Len(t, writer.saved, 1)
	event := writer.saved[0]
	assert.Equal(t, "Flood", event.Type)
	assert.Equal(t, domain.StatusNew, event.Status)
	assert.Equal(t, []float64{-74.4518, 40.4862}, event.Coordinates)
}

// TestPublisherRoundTrip publishes an assessed event and verifies value and
// headers on the assessed topic.
func TestPublisherRoundTrip(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 90*time.Second)
	defer cancel()

	broker := startKafka(ctx, t)
	createTopic(t, broker, testAssessedTopic)

	cfg := &config.Config{
		KafkaBrokers:       []string{broker},
		KafkaAssessedTopic: testAssessedTopic,
	}

	publisher := kafkaadapter.NewPublisher(cfg, discardLogger())
	t.Cleanup(func() { _ = publisher.Close() })

	event := domain.Event{
		Identity:    "flood-abc123",
		Type:        "Flood",
		Location:    "New Brunswick, NJ",
		Coordinates: []float64{-74.4518, 40.4862},
		Status:      domain.StatusAssessed,
		Risk:        &domain.RiskAssessment{Severity: domain.SeverityHigh, RiskScore: 85, Reasoning: "river overflow"},
	}
	require.NoError(t, publisher.PublishAssessed(ctx, event))

	consumer := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:     []string{broker},
		Topic:       testAssessedTopic,
		GroupID:     fmt.Sprintf("test-assessed-%d", time.Now().UnixNano()),
		StartOffset: kafkago.FirstOffset,
	})
	t.Cleanup(func() { _ = consumer.Close() })

	readCtx, readCancel := context.WithTimeout(ctx, 30*time.Second)
	defer readCancel()
	msg, err := consumer.ReadMessage(readCtx)
	require.NoError(t, err)

	assert.Equal(t, []byte("flood-abc123"), msg.Key)
	headers := make(map[string]string, len(msg.Headers))
	for _, h := range msg.Headers {
		headers[h.Key] = string(h.Value)
	}
	assert.Equal(t, "Flood", headers["event_type"])
	assert.Equal(t, "ASSESSED", headers["status"])

	var decoded domain.Event
	require.NoError(t, json.Unmarshal(msg.Value, &decoded))
	assert.Equal(t, event.Identity, decoded.Identity)
	require.NotNil(t, decoded.Risk)
	assert.Equal(t, 85, decoded.Risk.RiskScore)
}
