package events

// BetResolved é publicado pelo subsistema de resolução depois que a aposta
// foi marcada como RESOLVED e todas as participações receberam WON/LOST.
type BetResolved struct {
	BetID    string `json:"bet_id"`
	Outcome  string `json:"outcome"`
	TsUnixMs int64  `json:"ts_unix_ms"`
}
