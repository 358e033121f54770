package attendance

import (
	"sync"

	"github.com/kozaktomas/attendance/internal/constants"
)

// Notification announces a mark or an identification.
type Notification struct {
	StudentID string `json:"student_id"`
	Name      string `json:"name"`
	Status    string `json:"status"`
	Time      string `json:"time,omitempty"`
}

// Notifier fans notifications out to listeners.
type Notifier struct {
	mu        sync.RWMutex
	listeners []chan Notification
}

// Subscribe registers a listener. Call Unsubscribe to release it.
func (n *Notifier) Subscribe() chan Notification {
	n.mu.Lock()
	defer n.mu.Unlock()
	ch := make(chan Notification, constants.EventChannelBuffer)
	n.listeners = append(n.listeners, ch)
	return ch
}

// Unsubscribe removes a listener and closes its channel.
func (n *Notifier) Unsubscribe(ch chan Notification) {
	n.mu.Lock()
	defer n.mu.Unlock()
	for i, listener := range n.listeners {
		if listener == ch {
			n.listeners = append(n.listeners[:i], n.listeners[i+1:]...)
			close(ch)
			return
		}
	}
}

// Publish sends a notification to every listener without blocking.
func (n *Notifier) Publish(note Notification) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	for _, listener := range n.listeners {
		select {
		case listener <- note:
		default:
			// Slow listener, drop.
		}
	}
}
