package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/IBM/sarama"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
	"github.com/vladislavdragonenkov/storefront/internal/messaging/kafka"
)

const (
	defaultReplayLimit = 100
	defaultIdleTimeout = 2 * time.Second
)

// errUnsupportedRecord — сообщение в DLQ не похоже ни на один известный формат.
var errUnsupportedRecord = errors.New("unsupported dlq record")

type replayConfig struct {
	brokers     []string
	sourceTopic string
	orderTopic  string
	eventType   string
	limit       int
	execute     bool
	fromNewest  bool
	idleTimeout time.Duration
}

func parseReplayConfig(args []string, getenv func(string) string) (replayConfig, error) {
	var (
		cfg        replayConfig
		brokersRaw string
	)
	fs := flag.NewFlagSet("replay", flag.ContinueOnError)
	fs.StringVar(&brokersRaw, "brokers", "", "Kafka brokers as comma-separated list (fallback: KAFKA_BROKERS)")
	fs.StringVar(&cfg.sourceTopic, "source-topic", kafka.TopicDeadLetterQueue, "DLQ topic to scan")
	fs.StringVar(&cfg.orderTopic, "order-topic", kafka.TopicOrderEvents, "topic for replayed outbox events")
	fs.StringVar(&cfg.eventType, "event-type", "", "replay only records of this event type")
	fs.IntVar(&cfg.limit, "limit", defaultReplayLimit, "max number of messages to scan")
	fs.BoolVar(&cfg.execute, "execute", false, "publish replayed messages; default is dry-run")
	fs.BoolVar(&cfg.fromNewest, "from-newest", false, "scan the latest messages of each partition")
	fs.DurationVar(&cfg.idleTimeout, "idle-timeout", defaultIdleTimeout, "idle timeout per partition")
	if err := fs.Parse(args); err != nil {
		return replayConfig{}, err
	}

	if strings.TrimSpace(brokersRaw) == "" {
		brokersRaw = getenv("KAFKA_BROKERS")
	}
	cfg.brokers = parseBrokers(brokersRaw)
	cfg.eventType = strings.TrimSpace(cfg.eventType)

	switch {
	case len(cfg.brokers) == 0:
		return replayConfig{}, fmt.Errorf("kafka brokers are required (-brokers or KAFKA_BROKERS)")
	case strings.TrimSpace(cfg.sourceTopic) == "":
		return replayConfig{}, fmt.Errorf("source-topic is required")
	case strings.TrimSpace(cfg.orderTopic) == "":
		return replayConfig{}, fmt.Errorf("order-topic is required")
	case cfg.limit <= 0:
		return replayConfig{}, fmt.Errorf("limit must be > 0")
	case cfg.idleTimeout <= 0:
		return replayConfig{}, fmt.Errorf("idle-timeout must be > 0")
	}
	return cfg, nil
}

type offsetClient interface {
	GetOffset(topic string, partition int32, time int64) (int64, error)
	Partitions(topic string) ([]int32, error)
	Close() error
}

type partitionConsumer interface {
	Messages() <-chan *sarama.ConsumerMessage
	Errors() <-chan *sarama.ConsumerError
	Close() error
}

type partitionSource interface {
	ConsumePartition(topic string, partition int32, offset int64) (partitionConsumer, error)
	Close() error
}

type saramaSource struct {
	consumer sarama.Consumer
}

func (s saramaSource) ConsumePartition(topic string, partition int32, offset int64) (partitionConsumer, error) {
	return s.consumer.ConsumePartition(topic, partition, offset)
}

func (s saramaSource) Close() error {
	return s.consumer.Close()
}

// dlqRecord — восстановленное из DLQ исходное сообщение.
type dlqRecord struct {
	topic     string
	key       string
	eventType string
	// value заполнен для сообщений, которые не смог обработать consumer.
	value json.RawMessage
	// outbox заполнен для событий, которые outbox worker не смог опубликовать.
	outbox *domain.OutboxMessage
}

type consumerDLQPayload struct {
	OriginalTopic string `json:"original_topic"`
	OriginalKey   string `json:"original_key"`
	OriginalValue string `json:"original_value"`
}

type outboxDLQPayload struct {
	OutboxID      string          `json:"outbox_id"`
	AggregateType string          `json:"aggregate_type"`
	AggregateID   string          `json:"aggregate_id"`
	EventType     string          `json:"event_type"`
	Payload       json.RawMessage `json:"payload"`
}

// decodeDLQRecord разбирает оба формата DLQ: конверт consumer'а с original_*
// и outbox-конверт, внутри которого лежит исходное событие.
func decodeDLQRecord(msg *sarama.ConsumerMessage, orderTopic string) (dlqRecord, error) {
	var consumed consumerDLQPayload
	if err := json.Unmarshal(msg.Value, &consumed); err == nil && consumed.OriginalValue != "" {
		value := json.RawMessage(consumed.OriginalValue)
		if !json.Valid(value) {
			return dlqRecord{}, fmt.Errorf("original value of %s is not valid json", consumed.OriginalTopic)
		}
		if strings.TrimSpace(consumed.OriginalTopic) == "" {
			return dlqRecord{}, fmt.Errorf("consumer dlq record has no original topic")
		}
		var typed struct {
			EventType string `json:"event_type"`
		}
		_ = json.Unmarshal(value, &typed)
		return dlqRecord{
			topic:     consumed.OriginalTopic,
			key:       consumed.OriginalKey,
			eventType: typed.EventType,
			value:     value,
		}, nil
	}

	envelope, err := kafka.ParseOutboxEnvelope(msg)
	if err != nil || len(envelope.Payload) == 0 {
		return dlqRecord{}, errUnsupportedRecord
	}
	var failed outboxDLQPayload
	if err := json.Unmarshal(envelope.Payload, &failed); err != nil {
		return dlqRecord{}, fmt.Errorf("decode outbox dlq payload: %w", err)
	}
	if len(failed.Payload) == 0 {
		return dlqRecord{}, fmt.Errorf("outbox dlq record %s has no original payload", envelope.ID)
	}

	event := domain.OutboxMessage{
		ID:            firstNonEmpty(failed.OutboxID, envelope.ID),
		AggregateType: firstNonEmpty(failed.AggregateType, envelope.AggregateType),
		AggregateID:   firstNonEmpty(failed.AggregateID, envelope.AggregateID),
		EventType:     firstNonEmpty(failed.EventType, envelope.EventType),
		Payload:       failed.Payload,
	}
	return dlqRecord{
		topic:     orderTopic,
		key:       firstNonEmpty(event.AggregateID, event.ID),
		eventType: event.EventType,
		outbox:    &event,
	}, nil
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if strings.TrimSpace(value) != "" {
			return value
		}
	}
	return ""
}

type replayStats struct {
	scanned  int
	replayed int
	skipped  int
}

// replayer сканирует DLQ по партициям и публикует восстановленные сообщения.
// producer равен nil в режиме dry-run.
type replayer struct {
	cfg      replayConfig
	offsets  offsetClient
	source   partitionSource
	producer *kafka.Producer
	stats    replayStats
}

func runReplay(ctx context.Context, cfg replayConfig) error {
	consumerConfig := sarama.NewConfig()
	consumerConfig.Consumer.Return.Errors = true

	client, err := sarama.NewClient(cfg.brokers, consumerConfig)
	if err != nil {
		return fmt.Errorf("create kafka client: %w", err)
	}
	defer func() { _ = client.Close() }()

	consumer, err := sarama.NewConsumerFromClient(client)
	if err != nil {
		return fmt.Errorf("create kafka consumer: %w", err)
	}
	source := saramaSource{consumer: consumer}
	defer func() { _ = source.Close() }()

	var producer *kafka.Producer
	if cfg.execute {
		producer, err = kafka.NewProducer(cfg.brokers, log.WithField("component", "eventctl"))
		if err != nil {
			return err
		}
		defer func() { _ = producer.Close() }()
	}

	r := &replayer{cfg: cfg, offsets: client, source: source, producer: producer}
	return r.run(ctx)
}

func (r *replayer) run(ctx context.Context) error {
	if r.cfg.execute && r.producer == nil {
		return fmt.Errorf("producer is required in execute mode")
	}

	log.WithFields(log.Fields{
		"source_topic": r.cfg.sourceTopic,
		"order_topic":  r.cfg.orderTopic,
		"event_type":   r.cfg.eventType,
		"limit":        r.cfg.limit,
		"execute":      r.cfg.execute,
	}).Info("starting dlq replay")

	partitions, err := r.offsets.Partitions(r.cfg.sourceTopic)
	if err != nil {
		return fmt.Errorf("get partitions for topic %s: %w", r.cfg.sourceTopic, err)
	}
	sort.Slice(partitions, func(i, j int) bool { return partitions[i] < partitions[j] })

	for _, partition := range partitions {
		if r.stats.scanned >= r.cfg.limit {
			break
		}
		if err := r.scanPartition(ctx, partition); err != nil {
			return err
		}
	}

	mode := "dry-run"
	if r.cfg.execute {
		mode = "execute"
	}
	log.WithFields(log.Fields{
		"mode":     mode,
		"scanned":  r.stats.scanned,
		"replayed": r.stats.replayed,
		"skipped":  r.stats.skipped,
	}).Info("dlq replay finished")
	return nil
}

func (r *replayer) scanPartition(ctx context.Context, partition int32) error {
	topic := r.cfg.sourceTopic
	oldest, err := r.offsets.GetOffset(topic, partition, sarama.OffsetOldest)
	if err != nil {
		return fmt.Errorf("get oldest offset for partition %d: %w", partition, err)
	}
	newest, err := r.offsets.GetOffset(topic, partition, sarama.OffsetNewest)
	if err != nil {
		return fmt.Errorf("get newest offset for partition %d: %w", partition, err)
	}
	if newest <= oldest {
		return nil
	}

	remaining := r.cfg.limit - r.stats.scanned
	start := oldest
	if r.cfg.fromNewest && newest-int64(remaining) > oldest {
		start = newest - int64(remaining)
	}

	pc, err := r.source.ConsumePartition(topic, partition, start)
	if err != nil {
		return fmt.Errorf("consume partition %d: %w", partition, err)
	}
	defer func() { _ = pc.Close() }()

	idle := time.NewTimer(r.cfg.idleTimeout)
	defer idle.Stop()

	for r.stats.scanned < r.cfg.limit {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-idle.C:
			return nil
		case consumerErr := <-pc.Errors():
			if consumerErr != nil {
				return fmt.Errorf("partition %d consumer error: %w", partition, consumerErr)
			}
		case msg, ok := <-pc.Messages():
			if !ok || msg == nil || msg.Offset >= newest {
				return nil
			}
			if !idle.Stop() {
				select {
				case <-idle.C:
				default:
				}
			}
			idle.Reset(r.cfg.idleTimeout)

			r.stats.scanned++
			if err := r.handle(msg); err != nil {
				return err
			}
			if msg.Offset+1 >= newest {
				return nil
			}
		}
	}
	return nil
}

// handle возвращает ошибку только при сбое публикации; нераспознанные записи пропускаются.
func (r *replayer) handle(msg *sarama.ConsumerMessage) error {
	logger := log.WithFields(log.Fields{"partition": msg.Partition, "offset": msg.Offset})

	record, err := decodeDLQRecord(msg, r.cfg.orderTopic)
	if err != nil {
		r.stats.skipped++
		logger.WithError(err).Warn("skip dlq message")
		return nil
	}
	if r.cfg.eventType != "" && record.eventType != r.cfg.eventType {
		r.stats.skipped++
		return nil
	}

	logger = logger.WithFields(log.Fields{
		"target_topic": record.topic,
		"key":          record.key,
		"event_type":   record.eventType,
	})
	if !r.cfg.execute {
		r.stats.replayed++
		logger.Info("dlq replay candidate")
		return nil
	}

	if err := r.publish(record); err != nil {
		return fmt.Errorf("replay offset %d: %w", msg.Offset, err)
	}
	r.stats.replayed++
	logger.Info("dlq message replayed")
	return nil
}

func (r *replayer) publish(record dlqRecord) error {
	if record.outbox != nil {
		return kafka.NewOutboxPublisher(r.producer, record.topic).Publish(*record.outbox)
	}
	var headers []kafka.Header
	if record.eventType != "" {
		headers = append(headers, kafka.Header{Key: kafka.HeaderEventType, Value: record.eventType})
	}
	return r.producer.PublishEvent(record.topic, record.key, record.value, headers...)
}
