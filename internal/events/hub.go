// Package events fans session snapshots out to server-sent event subscribers.
package events

import (
	"context"
	"sync"
)

// Hub manages subscribers per topic. All changes to the topic table happen on
// the Run goroutine.
type Hub struct {
	topics map[string]map[chan []byte]struct{}

	subscribe   chan subscription
	unsubscribe chan subscription
	publish     chan topicMessage
	done        chan struct{}
	once        sync.Once
}

type subscription struct {
	ch    chan []byte
	topic string
}

type topicMessage struct {
	topic string
	msg   []byte
}

func NewHub() *Hub {
	return &Hub{
		topics:      make(map[string]map[chan []byte]struct{}),
		subscribe:   make(chan subscription),
		unsubscribe: make(chan subscription),
		publish:     make(chan topicMessage, 100),
		done:        make(chan struct{}),
	}
}

// Run processes subscriptions and publications until ctx is cancelled.
func (h *Hub) Run(ctx context.Context) {
	defer h.once.Do(func() { close(h.done) })
	for {
		select {
		case <-ctx.Done():
			return
		case s := <-h.subscribe:
			subs, ok := h.topics[s.topic]
			if !ok {
				subs = make(map[chan []byte]struct{})
				h.topics[s.topic] = subs
			}
			subs[s.ch] = struct{}{}
		case s := <-h.unsubscribe:
			if subs, ok := h.topics[s.topic]; ok {
				delete(subs, s.ch)
				if len(subs) == 0 {
					delete(h.topics, s.topic)
				}
			}
		case tm := <-h.publish:
			for ch := range h.topics[tm.topic] {
				deliverLatest(ch, tm.msg)
			}
		}
	}
}

// deliverLatest sends msg to ch, evicting the oldest queued message when a
// slow reader has filled the buffer. Only Run sends on subscriber channels,
// so the second send cannot block.
func deliverLatest(ch chan []byte, msg []byte) {
	select {
	case ch <- msg:
		return
	default:
	}
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- msg:
	default:
	}
}

// Publish queues msg for every subscriber of topic. It returns without
// delivering once the hub has stopped.
func (h *Hub) Publish(topic string, msg []byte) {
	select {
	case h.publish <- topicMessage{topic: topic, msg: msg}:
	case <-h.done:
	}
}

// Subscribe registers ch for topic. The caller owns ch and must Unsubscribe
// before closing it.
func (h *Hub) Subscribe(ch chan []byte, topic string) bool {
	select {
	case h.subscribe <- subscription{ch: ch, topic: topic}:
		return true
	case <-h.done:
		return false
	}
}

func (h *Hub) Unsubscribe(ch chan []byte, topic string) {
	select {
	case h.unsubscribe <- subscription{ch: ch, topic: topic}:
	case <-h.done:
	}
}

// Done is closed when Run returns.
func (h *Hub) Done() <-chan struct{} {
	return h.done
}
