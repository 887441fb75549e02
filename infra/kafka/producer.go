// Package kafka holds the thin kafka-go producer used for settlement
// confirmations. Engine events go out through the sarama broadcaster;
// this writer serves the settler's lower-volume confirmation topic.
package kafka

import (
	"context"
	"strconv"
	"time"

	"github.com/segmentio/kafka-go"
)

type Producer struct {
	writer *kafka.Writer
}

func NewProducer(brokers []string, topic string) *Producer {
	return &Producer{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			RequiredAcks: kafka.RequireAll,
			Async:        false,
			BatchTimeout: 10 * time.Millisecond,
		},
	}
}

// SendFillSettled publishes one settlement confirmation keyed by fill
// id, so consumers can dedupe on the key.
func (p *Producer) SendFillSettled(ctx context.Context, fillID uint64, payload []byte) error {
	return p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(strconv.FormatUint(fillID, 10)),
		Value: payload,
	})
}

func (p *Producer) Close() error {
	return p.writer.Close()
}
