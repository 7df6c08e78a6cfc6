package engine

import (
	"fmt"
	"strings"

	log "github.com/sirupsen/logrus"
)

// Upstream lifecycle event types.
const (
	EventSessionCreated    = "session.created"
	EventSessionUpdated    = "session.updated"
	EventSessionIdle       = "session.idle"
	EventSessionCompacting = "session.compacting"
	EventMessageUpdated    = "message.updated"
)

// Event is the tagged envelope delivered by the event source.
type Event struct {
	Type       string         `json:"type"`
	Properties map[string]any `json:"properties"`
}

func (ev Event) stringProp(key string) string {
	v, _ := ev.Properties[key].(string)
	return strings.TrimSpace(v)
}

// HandleEvent dispatches an upstream event to its handler. Handlers are
// best effort: failures and panics are counted and logged at this
// boundary and never propagate, so one bad event cannot block the next.
// Unknown event types are ignored.
func (e *Engine) HandleEvent(ev Event) {
	var handler func(Event) error
	switch ev.Type {
	case EventSessionCreated:
		handler = e.handleSessionCreated
	case EventSessionUpdated:
		handler = e.handleSessionUpdated
	case EventSessionIdle:
		handler = e.handleSessionIdle
	case EventSessionCompacting:
		handler = e.handleSessionCompacting
	case EventMessageUpdated:
		handler = e.handleMessageUpdated
	default:
		log.WithField("type", ev.Type).Debug("ignoring unknown event type")
		return
	}

	if err := e.runHandler(handler, ev); err != nil {
		e.handlerFailures.Add(1)
		log.WithError(err).WithFields(log.Fields{
			"type":    ev.Type,
			"session": ev.stringProp("sessionId"),
		}).Warn("event handler failed")
	}
}

func (e *Engine) runHandler(handler func(Event) error, ev Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panic: %v", r)
		}
	}()
	return handler(ev)
}
