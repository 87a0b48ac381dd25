package events

import (
	"coopledger/internal/handlers/business"

	log "github.com/sirupsen/logrus"
)

// QueuePublisher is the part of config.Publisher the event feed needs
type QueuePublisher interface {
	Publish(queueName string, message interface{}) error
}

// RabbitPublisher forwards ledger events to a durable queue. Failures are
// logged and dropped; the ledger never waits on the broker.
type RabbitPublisher struct {
	publisher QueuePublisher
	queue     string
}

func NewRabbitPublisher(publisher QueuePublisher, queue string) *RabbitPublisher {
	return &RabbitPublisher{publisher: publisher, queue: queue}
}

func (p *RabbitPublisher) Publish(evt business.LedgerEvent) {
	if err := p.publisher.Publish(p.queue, evt); err != nil {
		log.WithFields(log.Fields{
			"queue":    p.queue,
			"event_id": evt.ID,
			"type":     evt.Type,
		}).Errorf("Failed to publish ledger event: %v", err)
	}
}
