package messaging

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"
)

// ErrTopicRequired is returned when the destination or source is empty.
var ErrTopicRequired = errors.New("messaging: topic is required")

// ErrHandlerRequired is returned when Consume is called with a nil handler.
var ErrHandlerRequired = errors.New("messaging: handler is required")

const memoryBuffer = 64

// Memory is an in-process broker. Every Consume call receives every message
// published after it subscribed; messages published with no subscriber are
// dropped, as with core NATS. Nack does not redeliver.
type Memory struct {
	mu     sync.RWMutex
	subs   map[string][]chan *memoryMessage
	closed bool
}

// NewMemory creates an empty in-process broker.
func NewMemory() *Memory {
	return &Memory{subs: make(map[string][]chan *memoryMessage)}
}

func (m *Memory) Publish(ctx context.Context, destination string, msg OutgoingMessage) (PublishResult, error) {
	if err := ctx.Err(); err != nil {
		return PublishResult{}, err
	}
	if destination == "" {
		return PublishResult{}, ErrTopicRequired
	}
	if msg.Delay > 0 {
		return PublishResult{}, ErrUnsupported
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return PublishResult{}, io.ErrClosedPipe
	}

	now := time.Now()
	for _, ch := range m.subs[destination] {
		mm := &memoryMessage{
			topic:   destination,
			body:    append([]byte(nil), msg.Body...),
			key:     append([]byte(nil), msg.Key...),
			headers: append([]Header(nil), msg.Headers...),
			ts:      now,
		}
		select {
		case ch <- mm:
		case <-ctx.Done():
			return PublishResult{}, ctx.Err()
		}
	}

	return PublishResult{Topic: destination, Timestamp: now}, nil
}

func (m *Memory) Consume(ctx context.Context, source string, handler Handler, opts ...ConsumeOption) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if source == "" {
		return ErrTopicRequired
	}
	if handler == nil {
		return ErrHandlerRequired
	}

	co := newConsumeOptions(opts...)
	ch, err := m.subscribe(source)
	if err != nil {
		return err
	}

	var wg sync.WaitGroup
	for range co.concurrency {
		wg.Go(func() {
			for {
				select {
				case <-ctx.Done():
					return
				case mm, ok := <-ch:
					if !ok {
						return
					}
					//nolint:errcheck // in-process ack cannot fail
					_ = dispatch(ctx, DriverMemory, mm, handler, co.autoAck)
				}
			}
		})
	}

	<-ctx.Done()
	m.unsubscribe(source, ch)
	wg.Wait()
	return ctx.Err()
}

func (m *Memory) subscribe(topic string) (chan *memoryMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil, io.ErrClosedPipe
	}
	ch := make(chan *memoryMessage, memoryBuffer)
	m.subs[topic] = append(m.subs[topic], ch)
	return ch, nil
}

func (m *Memory) unsubscribe(topic string, ch chan *memoryMessage) {
	m.mu.Lock()
	defer m.mu.Unlock()
	subs := m.subs[topic]
	for i := range subs {
		if subs[i] == ch {
			m.subs[topic] = append(subs[:i], subs[i+1:]...)
			return
		}
	}
}

// Close stops accepting publishes; running consumers exit when their context ends.
func (m *Memory) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

type memoryMessage struct {
	responder
	topic   string
	body    []byte
	key     []byte
	headers []Header
	ts      time.Time
}

func (mm *memoryMessage) Body() []byte         { return mm.body }
func (mm *memoryMessage) Key() []byte          { return mm.key }
func (mm *memoryMessage) Headers() []Header    { return mm.headers }
func (mm *memoryMessage) Topic() string        { return mm.topic }
func (mm *memoryMessage) Timestamp() time.Time { return mm.ts }

func (mm *memoryMessage) Ack(context.Context) error {
	mm.claim()
	return nil
}

func (mm *memoryMessage) Nack(context.Context) error {
	mm.claim()
	return nil
}
