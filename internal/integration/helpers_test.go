//go:build integration

package integration_test

import (
	"context"
	"io"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/couchcryptid/weather-forecast-service/internal/domain"
	"github.com/couchcryptid/weather-forecast-service/internal/mockdata"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tckafka "github.com/testcontainers/testcontainers-go/modules/kafka"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// startKafka runs a single-node KRaft broker and returns its bootstrap address.
func startKafka(ctx context.Context, t *testing.T) string {
	t.Helper()

	container, err := tckafka.Run(ctx, "confluentinc/confluent-local:7.5.0", tckafka.WithClusterID("weather-forecast-test"))
	testcontainers.CleanupContainer(t, container)
	require.NoError(t, err, "start kafka container")

	brokers, err := container.Brokers(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, brokers)
	return brokers[0]
}

// createTopic creates a single-partition topic through the cluster controller.
func createTopic(t *testing.T, broker, topic string) {
	t.Helper()

	conn, err := kafkago.Dial("tcp", broker)
	require.NoError(t, err)
	defer conn.Close()

	controller, err := conn.Controller()
	require.NoError(t, err)

	ctrl, err := kafkago.Dial("tcp", net.JoinHostPort(controller.Host, strconv.Itoa(controller.Port)))
	require.NoError(t, err)
	defer ctrl.Close()

	require.NoError(t, ctrl.CreateTopics(kafkago.TopicConfig{
		Topic:             topic,
		NumPartitions:     1,
		ReplicationFactor: 1,
	}))
}

// loadMockData reads the checked-in sensor fixture.
func loadMockData(t *testing.T) []domain.Sample {
	t.Helper()

	f, err := os.Open(filepath.Join("..", "..", "data", "mock", "sensor_readings_14d.jsonl"))
	require.NoError(t, err)
	defer f.Close()

	samples, err := mockdata.ReadJSONL(f)
	require.NoError(t, err)
	return samples
}

// loadMockLines returns the fixture as raw JSON payloads, exactly as a sensor
// node would publish them.
func loadMockLines(t *testing.T) [][]byte {
	t.Helper()

	f, err := os.Open(filepath.Join("..", "..", "data", "mock", "sensor_readings_14d.jsonl"))
	require.NoError(t, err)
	defer f.Close()

	raws, err := mockdata.ReadRaw(f)
	require.NoError(t, err)
	lines := make([][]byte, len(raws))
	for i, r := range raws {
		lines[i] = r.Value
	}
	return lines
}
