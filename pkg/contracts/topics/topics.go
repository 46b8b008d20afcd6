package topics

const (
	// Resolução de apostas (publicado pelo subsistema de resolução)
	BetResolved = "bet_resolved"

	// Fulfillment de stakes sociais
	BetFulfillment = "bet_fulfillment"

	// DLQs
	BetFulfillmentDLQ = "bet_fulfillment_dlq"
)
