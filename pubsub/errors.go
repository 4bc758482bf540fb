package pubsub

import "errors"

var (
	// ErrStopped reports a value that was dropped because its topic no longer accepts values.
	ErrStopped = errors.New("topic stopped")
	// ErrEmptyTopic is returned for an empty topic name.
	ErrEmptyTopic = errors.New("topic name is required")
	// ErrNilHandler is returned by Subscribe and SubscribeStream when the handler is nil.
	ErrNilHandler = errors.New("handler is required")
	// ErrProducerDone is returned by Producer.Publish after Done.
	ErrProducerDone = errors.New("producer is done")

	errUnsubscribed = errors.New("unsubscribed")
)
