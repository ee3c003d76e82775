package handlers

import (
	"github.com/gofiber/websocket/v2"
	"go.uber.org/zap"

	"github.com/knowledge-gate/backend/internal/events"
	"github.com/knowledge-gate/backend/pkg/logger"
)

// EventsHandler streams routing decisions to websocket clients as they
// happen, so dashboards and bots can watch the gate in real time.
type EventsHandler struct {
	bus *events.Bus
}

func NewEventsHandler(bus *events.Bus) *EventsHandler {
	return &EventsHandler{
		bus: bus,
	}
}

func (h *EventsHandler) HandleConnection(c *websocket.Conn) {
	logger.Info("WebSocket connection established")

	ch := h.bus.Subscribe()
	defer func() {
		h.bus.Unsubscribe(ch)
		c.Close()
		logger.Info("WebSocket connection closed")
	}()

	// Drain incoming frames so close messages are processed; clients
	// only listen on this socket.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := c.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case evt, ok := <-ch:
			if !ok {
				return
			}
			if err := c.WriteJSON(evt); err != nil {
				logger.Debug("Failed to write event to websocket", zap.Error(err))
				return
			}
		case <-done:
			return
		}
	}
}
