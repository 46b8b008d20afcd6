package ws

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
)

// client serializa as escritas numa conexão (gorilla aceita um único writer)
type client struct {
	conn *websocket.Conn
	wmu  sync.Mutex
}

func (c *client) write(b []byte) error {
	c.wmu.Lock()
	defer c.wmu.Unlock()
	return c.conn.WriteMessage(websocket.TextMessage, b)
}

// Hub gerencia conexões WebSocket e assinaturas por aposta
type Hub struct {
	upgrader websocket.Upgrader
	mu       sync.RWMutex
	// betID -> conjunto de clientes
	subs map[string]map[*client]struct{}
}

// NewHub cria uma instância de Hub com política customizada de origem (CORS)
func NewHub(allowOrigin func(r *http.Request) bool) *Hub {
	return &Hub{
		upgrader: websocket.Upgrader{CheckOrigin: allowOrigin},
		subs:     make(map[string]map[*client]struct{}),
	}
}

// ServeHTTP gerencia o ciclo de vida de uma conexão WebSocket
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()
	c := &client{conn: conn}

	for {
		var msg ClientMsg
		if err := conn.ReadJSON(&msg); err != nil {
			break
		}
		switch msg.Type {
		case "subscribe":
			if msg.BetID == "" {
				continue
			}
			h.mu.Lock()
			if _, ok := h.subs[msg.BetID]; !ok {
				h.subs[msg.BetID] = make(map[*client]struct{})
			}
			h.subs[msg.BetID][c] = struct{}{}
			h.mu.Unlock()
		case "unsubscribe":
			h.remove(msg.BetID, c)
		case "ping":
			_ = c.write([]byte(`{"type":"pong"}`))
		}
	}

	h.mu.Lock()
	for betID, set := range h.subs {
		delete(set, c)
		if len(set) == 0 {
			delete(h.subs, betID)
		}
	}
	h.mu.Unlock()
}

func (h *Hub) remove(betID string, c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if m, ok := h.subs[betID]; ok {
		delete(m, c)
		if len(m) == 0 {
			delete(h.subs, betID)
		}
	}
}

// Subscribers conta os clientes inscritos na aposta
func (h *Hub) Subscribers(betID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[betID])
}

// Broadcast envia a atualização para todos os clientes inscritos na aposta
func (h *Hub) Broadcast(update FulfillmentUpdate) {
	h.mu.RLock()
	targets := make([]*client, 0, len(h.subs[update.BetID]))
	for c := range h.subs[update.BetID] {
		targets = append(targets, c)
	}
	h.mu.RUnlock()
	if len(targets) == 0 {
		return
	}

	b, _ := json.Marshal(update)
	for _, c := range targets {
		_ = c.write(b)
	}
}
