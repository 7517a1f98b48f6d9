package mqtt

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mbeaufort/loadboard/core/market"
	"github.com/mbeaufort/loadboard/infra/logger"
	"github.com/mbeaufort/loadboard/internal/eventbus"
)

// Notifier forwards marketplace lifecycle events from the bus to MQTT
// topics. Each event kind gets its own topic below the prefix, e.g.
// loadboard/events/request_opened.
type Notifier struct {
	pub    Publisher
	prefix string
	log    logger.Logger
}

// NewNotifier creates a Notifier over the given publisher.
func NewNotifier(pub Publisher, topicPrefix string) *Notifier {
	return &Notifier{pub: pub, prefix: topicPrefix, log: logger.New("notifier")}
}

// Run consumes bus events until the context is cancelled or the bus closes.
func (n *Notifier) Run(ctx context.Context, bus *eventbus.Bus[market.Event]) {
	sub := bus.Subscribe()
	defer bus.Unsubscribe(sub)
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-sub:
			if !ok {
				return
			}
			if err := n.notify(ev); err != nil {
				n.log.Errorf("notify %s: %v", ev.Kind, err)
			}
		}
	}
}

func (n *Notifier) notify(ev market.Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	topic := fmt.Sprintf("%s/%s", n.prefix, ev.Kind)
	return n.pub.Publish(topic, payload)
}

// Close releases the underlying publisher.
func (n *Notifier) Close() { n.pub.Close() }
