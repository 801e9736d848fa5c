//go:build integration

package integration_test

import (
	"context"
	"io"
	"log/slog"
	"net"
	"strconv"
	"testing"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	kafkamod "github.com/testcontainers/testcontainers-go/modules/kafka"
	"github.com/testcontainers/testcontainers-go/wait"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// startKafka runs a single-node Kafka broker for the duration of the test.
func startKafka(ctx context.Context, t *testing.T) []string {
	t.Helper()
	container, err := kafkamod.Run(ctx, "confluentinc/confluent-local:7.5.0",
		kafkamod.WithClusterID("city-info-test"),
	)
	testcontainers.CleanupContainer(t, container)
	require.NoError(t, err, "start kafka")

	brokers, err := container.Brokers(ctx)
	require.NoError(t, err, "kafka brokers")
	return brokers
}

// createTopic creates a single-partition topic through the cluster controller.
func createTopic(ctx context.Context, t *testing.T, brokers []string, topic string) {
	t.Helper()
	conn, err := kafkago.DialContext(ctx, "tcp", brokers[0])
	require.NoError(t, err, "dial kafka")
	defer conn.Close()

	controller, err := conn.Controller()
	require.NoError(t, err, "kafka controller")

	ctrl, err := kafkago.DialContext(ctx, "tcp", net.JoinHostPort(controller.Host, strconv.Itoa(controller.Port)))
	require.NoError(t, err, "dial kafka controller")
	defer ctrl.Close()

	require.NoError(t, ctrl.CreateTopics(kafkago.TopicConfig{
		Topic:             topic,
		NumPartitions:     1,
		ReplicationFactor: 1,
	}), "create topic %s", topic)
}

// startRedis runs a Redis server and returns its host:port address.
func startRedis(ctx context.Context, t *testing.T) string {
	t.Helper()
	container, err := testcontainers.Run(ctx, "redis:7-alpine",
		testcontainers.WithExposedPorts("6379/tcp"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("Ready to accept connections").WithStartupTimeout(30*time.Second),
		),
	)
	testcontainers.CleanupContainer(t, container)
	require.NoError(t, err, "start redis")

	addr, err := container.PortEndpoint(ctx, "6379/tcp", "")
	require.NoError(t, err, "redis endpoint")
	return addr
}
