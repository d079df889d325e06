// Package events allows for the registering and receiving of events.
package events

import (
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
)

// messageBuffer is the number of events held for a receiver. Since a message
// is dropped if the receiver is not ready, this arbitrary buffer should give
// the receiver enough time to not lose a message. Websocket send could take
// long.
const messageBuffer = 100

type subscriber struct {
	ch     chan string
	filter string
}

// Events maintains a mapping of unique id and channels so goroutines
// can register and receive events.
type Events struct {
	mu      sync.RWMutex
	m       map[string]subscriber
	dropped atomic.Uint64
}

// New constructs an events for registering and receiving events.
func New() *Events {
	return &Events{
		m: make(map[string]subscriber),
	}
}

// Shutdown closes and removes all channels that were provided by
// the call to Acquire.
func (evt *Events) Shutdown() {
	evt.mu.Lock()
	defer evt.mu.Unlock()

	for id, sub := range evt.m {
		delete(evt.m, id)
		close(sub.ch)
	}
}

// Acquire takes a unique id and returns a channel that can be used to
// receive events. When filter is not empty, only events containing the
// filter text are delivered, such as the id of a chain or a node.
func (evt *Events) Acquire(id string, filter string) chan string {
	evt.mu.Lock()
	defer evt.mu.Unlock()

	if sub, exists := evt.m[id]; exists {
		return sub.ch
	}

	sub := subscriber{
		ch:     make(chan string, messageBuffer),
		filter: filter,
	}
	evt.m[id] = sub

	return sub.ch
}

// Release closes and removes the channel that was provided by
// the call to Acquire.
func (evt *Events) Release(id string) error {
	evt.mu.Lock()
	defer evt.mu.Unlock()

	sub, exists := evt.m[id]
	if !exists {
		return fmt.Errorf("id %q does not exist", id)
	}

	delete(evt.m, id)
	close(sub.ch)
	return nil
}

// Send signals a message to every registered channel whose filter matches.
// Send will not block waiting for a receiver on any given channel.
func (evt *Events) Send(s string) {
	evt.mu.RLock()
	defer evt.mu.RUnlock()

	for _, sub := range evt.m {
		if sub.filter != "" && !strings.Contains(s, sub.filter) {
			continue
		}

		select {
		case sub.ch <- s:
		default:
			evt.dropped.Add(1)
		}
	}
}

// Subscribers returns the number of registered receivers.
func (evt *Events) Subscribers() int {
	evt.mu.RLock()
	defer evt.mu.RUnlock()

	return len(evt.m)
}

// Dropped returns the number of messages lost because a receiver was full.
func (evt *Events) Dropped() uint64 {
	return evt.dropped.Load()
}
