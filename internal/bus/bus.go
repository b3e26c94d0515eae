// Package bus is the in-process message channel between the session
// controller and the UI surfaces (tray, sound cues, screen-capture renderer).
// Delivery is fire-and-forget: each subscriber gets at most one copy of a
// message, and a slow subscriber drops messages rather than blocking the
// publisher.
package bus

import (
	"sync"
	"time"
)

// Event names the message types carried on the bus.
type Event string

const (
	StartVideoRecording   Event = "start-video-recording"
	StopVideoRecording    Event = "stop-video-recording"
	VideoRecordingStarted Event = "video-recording-started"
	VideoRecordingError   Event = "video-recording-error"
	VideoFrame            Event = "video-frame"
	VideoFileComplete     Event = "video-file-complete"
	SetMode               Event = "set-mode"
	SetIncludeVideo       Event = "set-include-video"
	CancelRecording       Event = "cancel-recording"
	UpdateStatus          Event = "update-status"
	PlaySound             Event = "play-sound"
	ShowTranscription     Event = "show-transcription"
)

// Tone is the payload of a PlaySound message.
type Tone struct {
	Frequency float64
	Duration  time.Duration
}

// Message pairs an event name with its payload.
type Message struct {
	Event   Event
	Payload any
}

// Handler receives messages for a subscribed event.
type Handler func(Message)

type subscriber struct {
	ch chan Message
}

// Bus routes messages to subscribers by event name.
type Bus struct {
	mu     sync.RWMutex
	subs   map[Event][]*subscriber
	closed bool
	wg     sync.WaitGroup
}

// New creates an empty bus.
func New() *Bus {
	return &Bus{subs: make(map[Event][]*subscriber)}
}

// Subscribe registers a handler for the given event. The handler runs on its
// own goroutine; messages published while the handler is busy queue up to a
// small buffer and are dropped beyond it.
func (b *Bus) Subscribe(ev Event, fn Handler) {
	sub := &subscriber{ch: make(chan Message, 16)}

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.subs[ev] = append(b.subs[ev], sub)
	b.wg.Add(1)
	b.mu.Unlock()

	go func() {
		defer b.wg.Done()
		for msg := range sub.ch {
			fn(msg)
		}
	}()
}

// Publish delivers a message to every subscriber of the event.
// It never blocks: subscribers with a full buffer miss the message.
func (b *Bus) Publish(ev Event, payload any) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return
	}
	msg := Message{Event: ev, Payload: payload}
	for _, sub := range b.subs[ev] {
		select {
		case sub.ch <- msg:
		default: // don't block if subscriber is behind
		}
	}
}

// Close shuts down all subscriber goroutines after draining queued messages.
// It is safe to call once; Publish and Subscribe become no-ops afterwards.
func (b *Bus) Close() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	for _, subs := range b.subs {
		for _, sub := range subs {
			close(sub.ch)
		}
	}
	b.mu.Unlock()

	b.wg.Wait()
}
