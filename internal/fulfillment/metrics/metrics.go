package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/radieske/social-bet-fulfillment/internal/fulfillment/domain"
	"github.com/radieske/social-bet-fulfillment/internal/fulfillment/service"
)

// Metrics agrupa os contadores Prometheus do serviço de fulfillment
type Metrics struct {
	LoserClaims   prometheus.Counter
	Confirmations prometheus.Counter
	Transitions   *prometheus.CounterVec // to
	Rejections    *prometheus.CounterVec // op, reason

	ResolvedConsumed prometheus.Counter
	ConsumerErrors   *prometheus.CounterVec // stage
	PublishErrors    *prometheus.CounterVec // type
}

// New cria e registra os contadores em reg
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		LoserClaims:      prometheus.NewCounter(prometheus.CounterOpts{Name: "fulfillment_loser_claims_total", Help: "claims de perdedores aceitos"}),
		Confirmations:    prometheus.NewCounter(prometheus.CounterOpts{Name: "fulfillment_winner_confirmations_total", Help: "confirmações de vencedores gravadas"}),
		Transitions:      prometheus.NewCounterVec(prometheus.CounterOpts{Name: "fulfillment_status_transitions_total", Help: "mudanças de status agregado"}, []string{"to"}),
		Rejections:       prometheus.NewCounterVec(prometheus.CounterOpts{Name: "fulfillment_rejections_total", Help: "operações rejeitadas por motivo"}, []string{"op", "reason"}),
		ResolvedConsumed: prometheus.NewCounter(prometheus.CounterOpts{Name: "fulfillment_bet_resolved_consumed_total", Help: "eventos bet_resolved consumidos"}),
		ConsumerErrors:   prometheus.NewCounterVec(prometheus.CounterOpts{Name: "fulfillment_consumer_errors_total", Help: "erros do consumer por estágio"}, []string{"stage"}),
		PublishErrors:    prometheus.NewCounterVec(prometheus.CounterOpts{Name: "fulfillment_publish_errors_total", Help: "falhas ao publicar eventos"}, []string{"type"}),
	}
	reg.MustRegister(
		m.LoserClaims, m.Confirmations, m.Transitions, m.Rejections,
		m.ResolvedConsumed, m.ConsumerErrors, m.PublishErrors,
	)
	return m
}

// Instrument conecta os callbacks do serviço aos contadores
func (m *Metrics) Instrument(s *service.Service) {
	s.OnLoserClaim = func() { m.LoserClaims.Inc() }
	s.OnConfirmation = func() { m.Confirmations.Inc() }
	s.OnTransition = func(_, to domain.FulfillmentStatus) { m.Transitions.WithLabelValues(string(to)).Inc() }
	s.OnRejected = func(op string, err error) { m.Rejections.WithLabelValues(op, domain.Reason(err)).Inc() }
}
