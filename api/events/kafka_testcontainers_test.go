//go:build testcontainers

// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package events

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/z5labs/drivethru/order"

	"github.com/docker/docker/api/types/container"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kgo"
)

func startKafka(t *testing.T) []string {
	t.Helper()

	ctx := context.Background()
	req := testcontainers.ContainerRequest{
		Image: "docker.io/apache/kafka-native:latest",
		Env: map[string]string{
			"KAFKA_NODE_ID":                          "1",
			"KAFKA_PROCESS_ROLES":                    "broker,controller",
			"KAFKA_CONTROLLER_QUORUM_VOTERS":         "1@localhost:9093",
			"KAFKA_CONTROLLER_LISTENER_NAMES":        "CONTROLLER",
			"KAFKA_LISTENERS":                        "PLAINTEXT://0.0.0.0:9092,CONTROLLER://0.0.0.0:9093",
			"KAFKA_ADVERTISED_LISTENERS":             "PLAINTEXT://localhost:9092",
			"KAFKA_LISTENER_SECURITY_PROTOCOL_MAP":   "PLAINTEXT:PLAINTEXT,CONTROLLER:PLAINTEXT",
			"KAFKA_OFFSETS_TOPIC_REPLICATION_FACTOR": "1",
		},
		// the broker advertises localhost:9092
		HostConfigModifier: func(hc *container.HostConfig) {
			hc.NetworkMode = "host"
		},
		WaitingFor:         wait.ForLog("Kafka Server started").WithStartupTimeout(60 * time.Second),
	}

	c, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := c.Terminate(context.Background()); err != nil {
			t.Logf("failed to terminate kafka container: %v", err)
		}
	})

	return []string{"localhost:9092"}
}

func TestKafka_Integration(t *testing.T) {
	brokers := startKafka(t)
	ctx := context.Background()

	client, err := kgo.NewClient(kgo.SeedBrokers(brokers...))
	require.NoError(t, err)
	defer client.Close()

	admin := kadm.NewClient(client)
	resp, err := admin.CreateTopics(ctx, 1, 1, nil, DefaultTopic)
	require.NoError(t, err)
	for _, r := range resp {
		require.NoError(t, r.Err)
	}

	t.Run("will deliver the entry", func(t *testing.T) {
		t.Run("if the broker is reachable", func(t *testing.T) {
			k, err := NewKafka(brokers)
			require.NoError(t, err)

			k.Publish(ctx, testEntry())
			require.NoError(t, k.Close(ctx))

			consumer, err := kgo.NewClient(
				kgo.SeedBrokers(brokers...),
				kgo.ConsumeTopics(DefaultTopic),
				kgo.ConsumeResetOffset(kgo.NewOffset().AtStart()),
			)
			require.NoError(t, err)
			defer consumer.Close()

			pollCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
			defer cancel()

			fetches := consumer.PollFetches(pollCtx)
			require.NoError(t, fetches.Err())

			records := fetches.Records()
			require.Len(t, records, 1)
			require.Equal(t, []byte("7"), records[0].Key)

			var entry order.HistoryEntry
			err = json.Unmarshal(records[0].Value, &entry)
			require.NoError(t, err)
			require.Equal(t, order.ActionOrder, entry.ActionType)
		})
	})
}
