package dispatch

import (
	"errors"
	"log/slog"
	"sync"

	"github.com/FarhanAli04/multi-sub000/pkg/protocol"
)

// HandlerFunc consumes one decoded event. Each handler owns exactly one
// tracker's state; handlers never reach into each other.
type HandlerFunc func(ev protocol.Event)

// Dispatcher decodes inbound frames and routes each event to the handler
// registered for its type. Decode failures and unknown types are logged and
// dropped; nothing on this path may tear down the connection.
type Dispatcher struct {
	logger   *slog.Logger
	mu       sync.RWMutex
	handlers map[string]HandlerFunc
}

func New(logger *slog.Logger) *Dispatcher {
	return &Dispatcher{
		logger:   logger.With(slog.String("component", "event_dispatcher")),
		handlers: make(map[string]HandlerFunc),
	}
}

func (d *Dispatcher) Register(eventType string, fn HandlerFunc) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, exists := d.handlers[eventType]; exists {
		panic("event handler already registered: " + eventType)
	}
	d.handlers[eventType] = fn
}

// Dispatch decodes and routes one raw frame.
func (d *Dispatcher) Dispatch(frame []byte) {
	ev, err := protocol.DecodeEvent(frame)
	if err != nil {
		if errors.Is(err, protocol.ErrUnknownType) {
			d.logger.Warn("dropping frame of unknown type", slog.Any("error", err))
		} else {
			d.logger.Warn("dropping malformed frame", slog.Any("error", err))
		}
		return
	}

	d.mu.RLock()
	fn, ok := d.handlers[ev.EventType()]
	d.mu.RUnlock()
	if !ok {
		d.logger.Debug("no handler for event", slog.String("type", ev.EventType()))
		return
	}
	fn(ev)
}
