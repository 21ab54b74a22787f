// Package event publishes dataset lifecycle events to NSQ and consumes them.
package event

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/nsqio/go-nsq"

	"chemviz/internal/config"
)

const (
	TypeDatasetCreated = "dataset.created"
	TypeDatasetEvicted = "dataset.evicted"
	TypeDatasetDeleted = "dataset.deleted"
)

type Event struct {
	Type       string    `json:"type"`
	DatasetIds []int     `json:"datasetIds"`
	Filename   string    `json:"filename,omitempty"`
	TotalCount int       `json:"totalCount,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

type Publisher interface {
	Publish(e *Event) error
	Stop()
}

// NewPublisher returns an NSQ producer when enabled, otherwise Nop.
func NewPublisher(conf config.NSQConfig) (Publisher, error) {
	if !conf.Enabled {
		return Nop{}, nil
	}
	p, err := NewNSQPublisher(conf)
	if err != nil {
		return nil, err
	}
	return p, nil
}

type NSQPublisher struct {
	producer *nsq.Producer
	topic    string
}

func NewNSQPublisher(conf config.NSQConfig) (*NSQPublisher, error) {
	producer, err := nsq.NewProducer(conf.NSQDAddr, nsq.NewConfig())
	if err != nil {
		return nil, fmt.Errorf("create NSQ producer failed: %w", err)
	}
	return &NSQPublisher{producer: producer, topic: conf.Topic}, nil
}

func (p *NSQPublisher) Publish(e *Event) error {
	body, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	if err := p.producer.Publish(p.topic, body); err != nil {
		return fmt.Errorf("publish %s to %s failed: %w", e.Type, p.topic, err)
	}
	return nil
}

func (p *NSQPublisher) Stop() {
	p.producer.Stop()
}

type Nop struct{}

func (Nop) Publish(*Event) error { return nil }

func (Nop) Stop() {}
