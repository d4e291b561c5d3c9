// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package events

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/z5labs/drivethru"
	"github.com/z5labs/drivethru/order"

	"github.com/twmb/franz-go/pkg/kgo"
	"github.com/twmb/franz-go/plugin/kotel"
	"github.com/twmb/franz-go/plugin/kslog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

// DefaultTopic receives history entries unless overridden.
const DefaultTopic = "drivethru.history"

// TopicAttr returns a slog attribute for the Kafka topic.
func TopicAttr(topic string) slog.Attr {
	return slog.String("messaging.destination.name", topic)
}

// PartitionAttr returns a slog attribute for the Kafka partition.
func PartitionAttr(partition int32) slog.Attr {
	return slog.Int64("messaging.destination.partition.id", int64(partition))
}

// OffsetAttr returns a slog attribute for the Kafka offset.
func OffsetAttr(offset int64) slog.Attr {
	return slog.Int64("messaging.kafka.offset", offset)
}

type producer interface {
	Produce(context.Context, *kgo.Record, func(*kgo.Record, error))
	Flush(context.Context) error
	Close()
}

// Kafka publishes entries as JSON records keyed by entry id.
type Kafka struct {
	log    *slog.Logger
	topic  string
	client producer
	failed metric.Int64Counter
}

// KafkaOption configures [Kafka].
type KafkaOption func(*kafkaOptions)

type kafkaOptions struct {
	topic     string
	tlsConfig *tls.Config
}

// Topic overrides [DefaultTopic].
func Topic(name string) KafkaOption {
	return func(ko *kafkaOptions) {
		ko.topic = name
	}
}

// TLS dials the brokers over TLS.
func TLS(cfg *tls.Config) KafkaOption {
	return func(ko *kafkaOptions) {
		ko.tlsConfig = cfg
	}
}

// NewKafka returns a publisher producing to brokers. Brokers are dialed
// lazily so an unreachable cluster does not prevent startup.
func NewKafka(brokers []string, opts ...KafkaOption) (*Kafka, error) {
	ko := &kafkaOptions{
		topic: DefaultTopic,
	}
	for _, opt := range opts {
		opt(ko)
	}

	clientOpts := []kgo.Opt{
		kgo.WithLogger(kslog.New(drivethru.Logger("github.com/twmb/franz-go/pkg/kgo"))),
		kgo.WithHooks(
			kotel.NewTracer(
				kotel.TracerProvider(otel.GetTracerProvider()),
				kotel.TracerPropagator(otel.GetTextMapPropagator()),
			),
			kotel.NewMeter(
				kotel.MeterProvider(otel.GetMeterProvider()),
				kotel.WithMergedConnectsMeter(),
			),
		),
		kgo.SeedBrokers(brokers...),
		kgo.DefaultProduceTopic(ko.topic),
		kgo.AllowAutoTopicCreation(),
	}
	if ko.tlsConfig != nil {
		clientOpts = append(clientOpts, kgo.DialTLSConfig(ko.tlsConfig))
	}

	client, err := kgo.NewClient(clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("kafka: failed to create client: %w", err)
	}
	return newKafka(client, ko.topic), nil
}

func newKafka(client producer, topic string) *Kafka {
	log := drivethru.Logger("github.com/z5labs/drivethru/api/events")

	failed, err := otel.Meter("github.com/z5labs/drivethru/api/events").Int64Counter(
		"messaging.client.messages.failed",
		metric.WithDescription("Total number of history entries that could not be published"),
		metric.WithUnit("{message}"),
	)
	if err != nil {
		log.Warn("failed to create messages failed metric", slog.Any("error", err))
	}

	return &Kafka{
		log:    log,
		topic:  topic,
		client: client,
		failed: failed,
	}
}

// Publish implements [Publisher]. Delivery happens in the background and
// failures are only logged.
func (k *Kafka) Publish(ctx context.Context, e order.HistoryEntry) {
	value, err := json.Marshal(e)
	if err != nil {
		k.log.ErrorContext(ctx, "failed to marshal history entry", slog.Int("id", e.ID), slog.Any("error", err))
		return
	}

	record := &kgo.Record{
		Topic: k.topic,
		Key:   []byte(strconv.Itoa(e.ID)),
		Value: value,
		Headers: []kgo.RecordHeader{
			{Key: "action_type", Value: []byte(e.ActionType)},
		},
	}

	// the request context ends with the response, delivery should not
	k.client.Produce(context.WithoutCancel(ctx), record, func(r *kgo.Record, err error) {
		if err != nil {
			if k.failed != nil {
				k.failed.Add(ctx, 1)
			}
			k.log.ErrorContext(ctx, "failed to publish history entry", TopicAttr(r.Topic), slog.Int("id", e.ID), slog.Any("error", err))
			return
		}
		k.log.DebugContext(ctx, "published history entry", TopicAttr(r.Topic), PartitionAttr(r.Partition), OffsetAttr(r.Offset))
	})
}

// Close flushes buffered records and closes the client.
func (k *Kafka) Close(ctx context.Context) error {
	defer k.client.Close()

	err := k.client.Flush(ctx)
	if err != nil {
		return fmt.Errorf("kafka: failed to flush records: %w", err)
	}
	return nil
}
