// Package signal provides a minimal change-notification primitive.
//
// Signals carry no payload: subscribers re-read current state from the
// producer instead of trusting a value carried with the notification, so
// multiple writes racing within one tick cannot deliver stale data.
package signal

import "sync"

// Notifier fans a payload-free signal out to subscribers.
// The zero value is ready to use.
type Notifier struct {
	mu   sync.Mutex
	subs map[int]chan struct{}
	next int
}

// Subscribe registers a subscriber. The returned function unsubscribes;
// calling it more than once is harmless.
func (n *Notifier) Subscribe() (<-chan struct{}, func()) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.subs == nil {
		n.subs = make(map[int]chan struct{})
	}
	id := n.next
	n.next++
	ch := make(chan struct{}, 1)
	n.subs[id] = ch

	return ch, func() {
		n.mu.Lock()
		defer n.mu.Unlock()
		delete(n.subs, id)
	}
}

// Notify signals all subscribers. Sends are non-blocking; a subscriber that
// has not drained its channel still holds one pending signal, which is
// enough because signals carry no payload.
func (n *Notifier) Notify() {
	n.mu.Lock()
	defer n.mu.Unlock()
	for _, ch := range n.subs {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}
