package ws

import "encoding/json"

// ClientMsg representa uma mensagem recebida do cliente WebSocket
type ClientMsg struct {
	Type  string `json:"type"`  // subscribe | unsubscribe | ping
	BetID string `json:"betId"` // requerido em subscribe/unsubscribe
}

// FulfillmentUpdate é o que trafega no canal Redis e é entregue aos clientes
type FulfillmentUpdate struct {
	BetID   string          `json:"betId"`
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}
