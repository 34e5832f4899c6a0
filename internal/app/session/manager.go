/*
Package session runs the room session engine.

This file defines the Manager struct, which tracks every open connection of the
process so that they can be counted and closed together on shutdown.
*/
package session

import (
	"sync"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"planpoker/internal/pkg/logx"
)

// Manager tracks all open client connections, keyed by connection ID.
type Manager struct {
	// clients stores every open Client.
	clients map[string]*Client

	// mu protects concurrent access to the clients map.
	mu sync.RWMutex

	// wg counts clients whose cleanup has not finished yet.
	wg sync.WaitGroup

	// structured logger with Manager context.
	logger zerolog.Logger
}

// NewManager constructs and returns a new Manager instance.
func NewManager() *Manager {
	return &Manager{
		clients: make(map[string]*Client),
		logger:  logx.Component("Manager"),
	}
}

func (m *Manager) register(c *Client) {
	m.mu.Lock()
	m.clients[c.ID] = c
	m.wg.Add(1)
	total := len(m.clients)
	m.mu.Unlock()

	m.logger.Debug().Str("conn_id", c.ID).Int("total_connections", total).Msg("Client connected.")
}

func (m *Manager) unregister(c *Client) {
	m.mu.Lock()
	_, ok := m.clients[c.ID]
	delete(m.clients, c.ID)
	total := len(m.clients)
	m.mu.Unlock()

	if ok {
		m.wg.Done()
		m.logger.Debug().Str("conn_id", c.ID).Int("total_connections", total).Msg("Client disconnected.")
	}
}

// Len returns the number of open connections.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.clients)
}

// Shutdown closes every open connection and waits until each one has left its room.
func (m *Manager) Shutdown() {
	m.mu.RLock()
	clients := make([]*Client, 0, len(m.clients))
	for _, c := range m.clients {
		clients = append(clients, c)
	}
	m.mu.RUnlock()

	m.logger.Info().Int("connections", len(clients)).Msg("Shutting down open connections...")

	for _, c := range clients {
		c.Kick(websocket.CloseGoingAway, "Server is shutting down.")
	}
	m.wg.Wait()

	m.logger.Info().Msg("Manager shutdown complete.")
}
