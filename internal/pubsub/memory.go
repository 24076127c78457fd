package pubsub

import (
	"sync"

	"github.com/google/uuid"
)

func makeInMemoryPubSub() PubSub {
	return &inMemoryPubSub{
		subscribers: make(map[string]map[string]chan []byte),
	}
}

type inMemoryPubSub struct {
	mu          sync.RWMutex
	subscribers map[string]map[string]chan []byte // topic -> subscription id -> channel
}

func (ps *inMemoryPubSub) Publish(topic string, message []byte) error {
	ps.mu.RLock()
	defer ps.mu.RUnlock()
	for _, ch := range ps.subscribers[topic] {
		ch := ch
		go func() {
			// The channel may be closed concurrently by Unsubscribe/Close;
			// a send racing that close is expected, not a bug.
			defer func() { _ = recover() }()
			ch <- message
		}()
	}
	return nil
}

func (ps *inMemoryPubSub) Subscribe(topic string) Subscription {
	id := uuid.NewString()
	ch := make(chan []byte, 16)

	ps.mu.Lock()
	if ps.subscribers[topic] == nil {
		ps.subscribers[topic] = make(map[string]chan []byte)
	}
	ps.subscribers[topic][id] = ch
	ps.mu.Unlock()

	return &inMemorySubscription{ps: ps, topic: topic, id: id, ch: ch}
}

func (ps *inMemoryPubSub) Close() error {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	for _, subs := range ps.subscribers {
		for _, ch := range subs {
			close(ch)
		}
	}
	ps.subscribers = make(map[string]map[string]chan []byte)
	return nil
}

type inMemorySubscription struct {
	ps    *inMemoryPubSub
	topic string
	id    string
	ch    chan []byte
}

func (s *inMemorySubscription) Close() error {
	s.ps.mu.Lock()
	defer s.ps.mu.Unlock()
	if subs, ok := s.ps.subscribers[s.topic]; ok {
		if ch, ok := subs[s.id]; ok {
			close(ch)
			delete(subs, s.id)
		}
	}
	return nil
}

func (s *inMemorySubscription) Channel() <-chan []byte {
	return s.ch
}
