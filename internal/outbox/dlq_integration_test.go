//go:build integration

package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/require"
	kafkacontainer "github.com/testcontainers/testcontainers-go/modules/kafka"

	"example.com/babylog/internal/events"
)

func TestDLQReplayReachesKafka(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 4*time.Minute)
	defer cancel()

	pool, cleanup := setupPostgres(t, ctx)
	defer cleanup()

	tenantID := uuid.NewString()
	activityID := uuid.NewString()
	require.NotZero(t, seedOutbox(t, ctx, pool, tenantID, activityID, events.TypeActivityRecorded))

	registry := &stubRegistry{id: 100}

	failing := &stubProducer{err: errors.New("upstream kafka unavailable")}
	require.NoError(t, NewDispatcher(pool, failing, registry, 5*time.Millisecond, 10).processBatch(ctx))

	var dlqCount int
	require.NoError(t, pool.QueryRow(ctx, `SELECT COUNT(*) FROM outbox_dlq`).Scan(&dlqCount))
	require.Equal(t, 1, dlqCount, "expected message routed to DLQ on failure")

	manager := NewDLQManager(pool, 5, time.Second)
	replayed, err := manager.RunOnce(ctx, 10)
	require.NoError(t, err)
	require.Equal(t, 1, replayed)

	require.NoError(t, pool.QueryRow(ctx, `SELECT COUNT(*) FROM outbox_dlq`).Scan(&dlqCount))
	require.Equal(t, 0, dlqCount, "expected DLQ cleared after requeue")

	kc, err := kafkacontainer.Run(ctx, "confluentinc/confluent-local:7.5.0")
	require.NoError(t, err)
	t.Cleanup(func() { _ = kc.Terminate(context.Background()) })

	brokers, err := kc.Brokers(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, brokers)

	conn, err := kafka.Dial("tcp", brokers[0])
	require.NoError(t, err)
	require.NoError(t, conn.CreateTopics(kafka.TopicConfig{Topic: "babylog_activity_changes", NumPartitions: 1, ReplicationFactor: 1}))
	_ = conn.Close()

	producer := NewKafkaProducer(brokers)
	defer producer.Close()
	require.NoError(t, NewDispatcher(pool, producer, registry, 5*time.Millisecond, 10).processBatch(ctx))

	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:   brokers,
		Topic:     "babylog_activity_changes",
		Partition: 0,
		MinBytes:  1,
		MaxBytes:  1 << 20,
	})
	defer reader.Close()

	msg, err := reader.ReadMessage(ctx)
	require.NoError(t, err)

	schemaID, body, err := DecodeWireFormat(msg.Value)
	require.NoError(t, err)
	require.Equal(t, 100, schemaID)

	var changed events.ActivityChanged
	require.NoError(t, json.Unmarshal(body, &changed))
	require.Equal(t, activityID, changed.ActivityID)
	require.Equal(t, tenantID, changed.TenantID)
}

func TestDLQManagerQuarantinesExhaustedEntries(t *testing.T) {
	ctx := context.Background()
	pool, cleanup := setupPostgres(t, ctx)
	defer cleanup()

	tenantID := uuid.NewString()
	eventID := seedOutbox(t, ctx, pool, tenantID, uuid.NewString(), events.TypeActivityRevised)

	failing := &stubProducer{err: errors.New("broker down")}
	require.NoError(t, NewDispatcher(pool, failing, &stubRegistry{id: 3}, 5*time.Millisecond, 10).processBatch(ctx))

	_, err := pool.Exec(ctx, `UPDATE outbox_dlq SET retry_count = 2 WHERE event_id = $1`, eventID)
	require.NoError(t, err)

	manager := NewDLQManager(pool, 2, time.Second)
	replayed, err := manager.RunOnce(ctx, 10)
	require.NoError(t, err)
	require.Zero(t, replayed)

	var reason string
	require.NoError(t, pool.QueryRow(ctx, `SELECT quarantine_reason FROM outbox_dlq WHERE event_id = $1 AND quarantined_at IS NOT NULL`, eventID).Scan(&reason))
	require.Equal(t, "retry limit reached", reason)

	replayed, err = manager.RunOnce(ctx, 10)
	require.NoError(t, err)
	require.Zero(t, replayed, "quarantined entries are not picked up again")
}
