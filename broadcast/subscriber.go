package broadcast

import (
	"context"
	"encoding/json"

	"github.com/IBM/sarama"
	"github.com/apex/log"
)

// Handler processes a DocOpEvent received from another server instance.
type Handler func(DocOpEvent)

// Subscriber consumes DocOpEvents published by other instances via a
// sarama ConsumerGroup, so a Hub that did not originate an edit still
// learns about it and can replay it to its own directly-connected
// clients.
type Subscriber struct {
	group   sarama.ConsumerGroup
	topics  []string
	handler Handler
}

func NewSubscriber(group sarama.ConsumerGroup, topics []string, handler Handler) *Subscriber {
	return &Subscriber{group: group, topics: topics, handler: handler}
}

// Run consumes until ctx is cancelled or the consumer group returns a
// non-recoverable error.
func (s *Subscriber) Run(ctx context.Context) error {
	for {
		if err := s.group.Consume(ctx, s.topics, &consumerGroupHandler{handler: s.handler}); err != nil {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
}

type consumerGroupHandler struct {
	handler Handler
}

func (consumerGroupHandler) Setup(sarama.ConsumerGroupSession) error   { return nil }
func (consumerGroupHandler) Cleanup(sarama.ConsumerGroupSession) error { return nil }

func (h consumerGroupHandler) ConsumeClaim(sess sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for msg := range claim.Messages() {
		var evt DocOpEvent
		if err := json.Unmarshal(msg.Value, &evt); err != nil {
			log.WithError(err).Error("broadcast: dropping malformed event")
			sess.MarkMessage(msg, "")
			continue
		}
		h.handler(evt)
		sess.MarkMessage(msg, "")
	}
	return nil
}
