package pubsubtest

import (
	"context"
	"sync"

	"github.com/golang/protobuf/proto"
)

type (
	// TestPublisher is a simple implementation of pubsub.Publisher meant to
	// help mock out any implementations.
	TestPublisher struct {
		mu sync.Mutex

		// Published will contain a list of all messages that have been published.
		Published []TestPublishMsg

		// GivenError will be returned by the TestPublisher on publish.
		// Good for testing error scenarios.
		GivenError error

		// FoundError will contain any errors encountered while marshalling
		// the protobuf struct.
		FoundError error
	}

	// TestPublishMsg is a single published message.
	TestPublishMsg struct {
		Key  string
		Body []byte
	}
)

// Publish marshals msg and records it.
func (t *TestPublisher) Publish(ctx context.Context, key string, msg proto.Message) error {
	data, err := proto.Marshal(msg)
	t.mu.Lock()
	t.FoundError = err
	t.mu.Unlock()
	return t.PublishRaw(ctx, key, data)
}

// PublishRaw records the message.
func (t *TestPublisher) PublishRaw(_ context.Context, key string, msg []byte) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.Published = append(t.Published, TestPublishMsg{key, msg})
	return t.GivenError
}

// Messages returns a copy of the messages published so far.
func (t *TestPublisher) Messages() []TestPublishMsg {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]TestPublishMsg(nil), t.Published...)
}
