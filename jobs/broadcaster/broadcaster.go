// Package broadcaster ships engine events to Kafka. Live events arrive
// on the service's channel and go out best-effort; fill records take
// the durable path through the fill store outbox, so a crash between
// match and publish never loses a fill event.
package broadcaster

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/IBM/sarama"

	"njord/engine"
	"njord/infra/fillstore"
)

type Broadcaster struct {
	producer sarama.SyncProducer
	topic    string
	events   <-chan engine.Event
	fills    *fillstore.Store
	interval time.Duration
}

// envelope is the published wire shape. Consumers switch on Type.
type envelope struct {
	V    int          `json:"v"`
	Type string       `json:"type"`
	Data engine.Event `json:"data"`
}

func New(brokers []string, topic string, events <-chan engine.Event, fills *fillstore.Store) (*Broadcaster, error) {
	cfg := sarama.NewConfig()
	cfg.Producer.Return.Successes = true
	cfg.Producer.RequiredAcks = sarama.WaitForAll
	cfg.Producer.Retry.Max = 5

	producer, err := sarama.NewSyncProducer(brokers, cfg)
	if err != nil {
		return nil, err
	}

	return &Broadcaster{
		producer: producer,
		topic:    topic,
		events:   events,
		fills:    fills,
		interval: 250 * time.Millisecond,
	}, nil
}

func (b *Broadcaster) Start(ctx context.Context) {
	log.Println("[broadcaster] started")

	go func() {
		ticker := time.NewTicker(b.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return

			case ev := <-b.events:
				b.publishEvent(ev)

			case <-ticker.C:
				b.flushFills()
			}
		}
	}()
}

func (b *Broadcaster) publishEvent(ev engine.Event) {
	payload, err := json.Marshal(envelope{V: 1, Type: ev.Kind(), Data: ev})
	if err != nil {
		log.Printf("[broadcaster] encode %s: %v", ev.Kind(), err)
		return
	}
	msg := &sarama.ProducerMessage{
		Topic: b.topic,
		Value: sarama.ByteEncoder(payload),
	}
	if _, _, err := b.producer.SendMessage(msg); err != nil {
		// best-effort stream; fills retry through the outbox
		log.Printf("[broadcaster] publish %s: %v", ev.Kind(), err)
	}
}

// flushFills drains the fill outbox: publish, then mark. A crash
// between the two re-sends the fill next pass, so consumers dedupe on
// the fill id key.
func (b *Broadcaster) flushFills() {
	err := b.fills.ScanUnpublished(func(f engine.Fill) error {
		ev := engine.FillCreated{Market: f.Market, Fill: f, Time: f.Time}
		payload, err := json.Marshal(envelope{V: 1, Type: ev.Kind(), Data: ev})
		if err != nil {
			return err
		}
		msg := &sarama.ProducerMessage{
			Topic: b.topic,
			Key:   sarama.StringEncoder(f.Market),
			Value: sarama.ByteEncoder(payload),
		}
		if _, _, err := b.producer.SendMessage(msg); err != nil {
			return nil // broker unreachable, retry next tick
		}
		return b.fills.MarkPublished(f.ID)
	})
	if err != nil {
		log.Printf("[broadcaster] outbox scan: %v", err)
	}
}

func (b *Broadcaster) Close() error {
	return b.producer.Close()
}
