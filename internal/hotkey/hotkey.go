// Package hotkey provides a global hotkey listener using gohook.
// One combo toggles recording; a second combo cancels an active recording.
package hotkey

import (
	"sync"

	hook "github.com/robotn/gohook"
)

// EventType distinguishes the two hotkey actions.
type EventType int

const (
	// EventToggle signals the start/stop hotkey was pressed.
	EventToggle EventType = iota
	// EventCancel signals the cancel hotkey was pressed.
	EventCancel
)

// Event is emitted on the channel returned by Events.
type Event struct {
	Type EventType
}

// Listener manages the global hotkeys and emits toggle/cancel events.
type Listener struct {
	toggleKeys []string
	cancelKeys []string
	ch         chan Event
	done       chan struct{}
	once       sync.Once
}

// NewListener creates a Listener for the given key combos.
// Keys should be lowercase key names (e.g., ["ctrl", "shift", "d"]).
// cancelKeys may be empty to disable the cancel hotkey.
func NewListener(toggleKeys, cancelKeys []string) *Listener {
	return &Listener{
		toggleKeys: toggleKeys,
		cancelKeys: cancelKeys,
		ch:         make(chan Event, 16),
		done:       make(chan struct{}),
	}
}

// Events returns the channel that receives hotkey events.
// The channel is closed when Stop is called.
func (l *Listener) Events() <-chan Event {
	return l.ch
}

// Start begins listening for the global hotkeys.
// This function blocks until Stop is called. Run it in a goroutine.
func (l *Listener) Start() {
	hook.Register(hook.KeyDown, l.toggleKeys, func(e hook.Event) {
		select {
		case l.ch <- Event{Type: EventToggle}:
		default: // don't block if channel is full
		}
	})

	if len(l.cancelKeys) > 0 {
		hook.Register(hook.KeyDown, l.cancelKeys, func(e hook.Event) {
			select {
			case l.ch <- Event{Type: EventCancel}:
			default:
			}
		})
	}

	evChan := hook.Start()
	go func() {
		<-l.done
		hook.End()
	}()
	<-hook.Process(evChan)
	close(l.ch)
}

// Stop terminates the hotkey listener.
// It is safe to call multiple times.
func (l *Listener) Stop() {
	l.once.Do(func() {
		close(l.done)
	})
}
