package ws

import "encoding/json"

// ClientMsg é a mensagem enviada pelo cliente WebSocket
type ClientMsg struct {
	Type   string `json:"type"`   // subscribe | unsubscribe | ping
	GameID string `json:"gameId"` // requerido em subscribe/unsubscribe
}

// OddsUpdate é o que vai para os inscritos de um jogo
type OddsUpdate struct {
	GameID  string          `json:"gameId"`
	Payload json.RawMessage `json:"payload"`
}
