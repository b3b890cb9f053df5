package websocket

import (
	"log/slog"
	"sync"

	"github.com/lorrc/sla-engine/internal/core/domain"
	"github.com/lorrc/sla-engine/internal/core/ports"
)

// Hub maintains the set of connected dashboard clients, grouped by tenant,
// and fans SLA events out to them. Delivery is best effort: a slow client is
// dropped, never waited on.
type Hub struct {
	// tenants maps tenant identifiers to their connected clients
	tenants map[string]map[*Client]bool

	// broadcast channel for events
	broadcast chan domain.Event

	// Register requests from clients
	Register chan *Client

	// Unregister requests from clients
	Unregister chan *Client

	// mu protects the tenants map
	mu sync.RWMutex

	logger *slog.Logger
}

// Ensure Hub implements the EventBroadcaster interface.
var _ ports.EventBroadcaster = (*Hub)(nil)

// NewHub creates a new WebSocket hub
func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		tenants:    make(map[string]map[*Client]bool),
		broadcast:  make(chan domain.Event, 256),
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		logger:     logger.With("component", "websocket_hub"),
	}
}

// Broadcast queues an event for delivery to the tenant's clients.
// This method implements the ports.EventBroadcaster interface.
func (h *Hub) Broadcast(event domain.Event) error {
	select {
	case h.broadcast <- event:
		return nil
	default:
		h.logger.Warn("broadcast channel full, dropping event",
			"event_type", event.Type,
			"ticket_id", event.TicketID,
		)
		return nil
	}
}

// Run starts the hub's event loop. This MUST be run as a goroutine.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.Register:
			h.registerClient(client)

		case client := <-h.Unregister:
			h.unregisterClient(client)

		case event := <-h.broadcast:
			h.broadcastEvent(event)
		}
	}
}

// registerClient adds a client to its tenant's room
func (h *Hub) registerClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.tenants[client.Tenant] == nil {
		h.tenants[client.Tenant] = make(map[*Client]bool)
	}
	h.tenants[client.Tenant][client] = true

	h.logger.Info("client registered",
		"tenant", client.Tenant,
		"tenant_connections", len(h.tenants[client.Tenant]),
	)
}

// unregisterClient removes a client and closes its send channel
func (h *Hub) unregisterClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if room, ok := h.tenants[client.Tenant]; ok {
		if _, exists := room[client]; exists {
			delete(room, client)
			if len(room) == 0 {
				delete(h.tenants, client.Tenant)
			}
		}
	}

	client.CloseSend()

	h.logger.Info("client unregistered", "tenant", client.Tenant)
}

// broadcastEvent sends an event to every client of the event's tenant
func (h *Hub) broadcastEvent(event domain.Event) {
	h.mu.RLock()
	room, ok := h.tenants[event.Tenant]
	if !ok {
		h.mu.RUnlock()
		return
	}

	// Copy the client list to avoid holding the lock while sending
	clients := make([]*Client, 0, len(room))
	for client := range room {
		clients = append(clients, client)
	}
	h.mu.RUnlock()

	h.logger.Debug("broadcasting event",
		"event_type", event.Type,
		"tenant", event.Tenant,
		"ticket_id", event.TicketID,
		"client_count", len(clients),
	)

	for _, client := range clients {
		select {
		case client.Send <- event:
			// Successfully queued
		default:
			// Client's send buffer is full, unregister them
			h.logger.Warn("client send buffer full, unregistering",
				"tenant", client.Tenant,
			)
			h.Unregister <- client
		}
	}
}

// ClientCount returns the total number of connected clients
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	count := 0
	for _, room := range h.tenants {
		count += len(room)
	}
	return count
}

// TenantCount returns the number of tenants with at least one connection
func (h *Hub) TenantCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.tenants)
}
