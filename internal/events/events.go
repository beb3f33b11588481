// Package events provides a Kafka publisher for demo toggles and request
// outcomes. Publishing never blocks the request path.
package events

import (
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/IBM/sarama"
)

type Event struct {
	Kind     string    `json:"kind"`
	Scenario string    `json:"scenario,omitempty"`
	Source   string    `json:"source,omitempty"`
	Hash     string    `json:"hash,omitempty"`
	Enabled  bool      `json:"enabled,omitempty"`
	TS       time.Time `json:"ts"`
}

type Publisher struct {
	topic   string
	events  chan Event
	prod    sarama.AsyncProducer
	stopped chan struct{}
}

func NewPublisher(brokers []string, topic string, queueSize int) (*Publisher, error) {
	if queueSize <= 0 {
		queueSize = 1024
	}

	cfg := sarama.NewConfig()
	cfg.Version = sarama.V2_5_0_0
	cfg.Producer.Return.Errors = true
	cfg.Producer.Return.Successes = false

	prod, err := sarama.NewAsyncProducer(brokers, cfg)
	if err != nil {
		return nil, fmt.Errorf("events: create async producer: %w", err)
	}

	p := &Publisher{
		topic:   topic,
		events:  make(chan Event, queueSize),
		prod:    prod,
		stopped: make(chan struct{}),
	}

	go func() {
		defer close(p.stopped)
		for ev := range p.events {
			b, err := json.Marshal(ev)
			if err != nil {
				log.Printf("events: marshal error: %v", err)
				continue
			}
			p.prod.Input() <- &sarama.ProducerMessage{
				Topic: p.topic,
				Value: sarama.ByteEncoder(b),
			}
		}
	}()

	go func() {
		for err := range p.prod.Errors() {
			if err != nil {
				log.Printf("events: producer error: %v", err)
			}
		}
	}()

	return p, nil
}

func (p *Publisher) Publish(ev Event) {
	if ev.TS.IsZero() {
		ev.TS = time.Now()
	}
	select {
	case p.events <- ev:
	default:
		// queue full → drop silently (do NOT block request path)
	}
}

func (p *Publisher) Close() error {
	close(p.events)
	<-p.stopped

	if err := p.prod.Close(); err != nil {
		return fmt.Errorf("events: close producer: %w", err)
	}
	return nil
}
