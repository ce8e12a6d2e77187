// Package router fans core events out to UI subscribers without ever blocking
// the event loop.
package router

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"blink-reminder/src/messages"
)

// ChannelInfo holds information about a subscriber channel
type ChannelInfo struct {
	Channel chan messages.Event
	Name    string
	Dropped int
}

// Router delivers events to named subscribers.
type Router struct {
	channels    map[string]*ChannelInfo
	mu          sync.RWMutex
	ctx         context.Context
	cancel      context.CancelFunc
	logMessages bool
}

// NewRouter creates a new event router
func NewRouter() *Router {
	ctx, cancel := context.WithCancel(context.Background())
	return &Router{
		channels: make(map[string]*ChannelInfo),
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Subscribe registers a subscriber with the given buffer size.
func (r *Router) Subscribe(name string, bufferSize int) (<-chan messages.Event, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.ctx.Err() != nil {
		return nil, fmt.Errorf("router is shut down")
	}
	if _, exists := r.channels[name]; exists {
		return nil, fmt.Errorf("subscriber %s already registered", name)
	}
	if bufferSize < 1 {
		bufferSize = 1
	}

	ch := make(chan messages.Event, bufferSize)
	r.channels[name] = &ChannelInfo{Channel: ch, Name: name}
	slog.Debug("router: subscribed", "name", name, "buffer", bufferSize)
	return ch, nil
}

// Unsubscribe removes a subscriber and closes its channel.
func (r *Router) Unsubscribe(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if info, exists := r.channels[name]; exists {
		close(info.Channel)
		delete(r.channels, name)
		slog.Debug("router: unsubscribed", "name", name)
	}
}

// Publish delivers ev to every subscriber. A subscriber whose buffer is full
// misses the event.
func (r *Router) Publish(ev messages.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.ctx.Err() != nil {
		return
	}
	if r.logMessages {
		slog.Debug("router: publish", "type", ev.Type())
	}

	for name, info := range r.channels {
		select {
		case info.Channel <- ev:
		default:
			info.Dropped++
			slog.Warn("router: subscriber too slow, event dropped", "name", name, "type", ev.Type(), "dropped", info.Dropped)
		}
	}
}

// Stats returns the queued event count per subscriber.
func (r *Router) Stats() map[string]int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stats := make(map[string]int)
	for name, info := range r.channels {
		stats[name] = len(info.Channel)
	}
	return stats
}

// Dropped returns how many events a subscriber has missed.
func (r *Router) Dropped(name string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if info, ok := r.channels[name]; ok {
		return info.Dropped
	}
	return 0
}

// SetMessageLogging enables or disables per-event debug logging
func (r *Router) SetMessageLogging(enabled bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.logMessages = enabled
}

// Shutdown closes every subscriber channel. Later publishes are ignored.
func (r *Router) Shutdown() {
	r.cancel()

	r.mu.Lock()
	defer r.mu.Unlock()

	for name, info := range r.channels {
		close(info.Channel)
		slog.Debug("router: closed subscriber", "name", name)
	}
	r.channels = make(map[string]*ChannelInfo)
}

// WaitForEvent waits for a specific event type from a channel with timeout
func WaitForEvent(ch <-chan messages.Event, eventType string, timeout time.Duration) (messages.Event, error) {
	deadline := time.After(timeout)

	for {
		select {
		case ev, ok := <-ch:
			if !ok {
				return nil, fmt.Errorf("channel closed waiting for %s", eventType)
			}
			if ev.Type() == eventType {
				return ev, nil
			}
		case <-deadline:
			return nil, fmt.Errorf("timeout waiting for event type %s", eventType)
		}
	}
}

// DrainChannel drains all queued events from a channel
func DrainChannel(ch <-chan messages.Event) int {
	count := 0
	for {
		select {
		case _, ok := <-ch:
			if !ok {
				return count
			}
			count++
		default:
			return count
		}
	}
}
