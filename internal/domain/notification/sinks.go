package notification

import (
	"log"
	"sync"
)

// LogNotifier writes notifications to the process log.
type LogNotifier struct{}

func (LogNotifier) Notify(n Notification) {
	log.Printf("[%s/%s] %s: %s", n.Severity, n.Category, n.Title, n.Message)
}

// ChannelNotifier buffers notifications for a consumer such as a UI event
// loop. When the buffer is full the oldest notification is dropped so the
// emitting side never blocks.
type ChannelNotifier struct {
	mu sync.Mutex
	ch chan Notification
}

func NewChannelNotifier(buffer int) *ChannelNotifier {
	if buffer < 1 {
		buffer = 16
	}
	return &ChannelNotifier{ch: make(chan Notification, buffer)}
}

func (c *ChannelNotifier) Notify(n Notification) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for {
		select {
		case c.ch <- n:
			return
		default:
			select {
			case <-c.ch:
			default:
			}
		}
	}
}

// Events returns the receive side of the buffer.
func (c *ChannelNotifier) Events() <-chan Notification {
	return c.ch
}

// Multi fans a notification out to several sinks.
type Multi []Notifier

func (m Multi) Notify(n Notification) {
	for _, sink := range m {
		sink.Notify(n)
	}
}
