package messaging

import "context"

// PublisherInterface is what the workflows need from the broker. A nil
// PublisherInterface means events are disabled.
type PublisherInterface interface {
	Publish(ctx context.Context, routingKey string, eventData interface{}) error
	Close() error
}

var _ PublisherInterface = (*Publisher)(nil)
