package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"gosementes/internal/pkg/middleware"
)

// Metrics agrupa os coletores do serviço. Um *Metrics nil é válido e não registra nada,
// o que simplifica os testes de serviço.
type Metrics struct {
	registry *prometheus.Registry

	requests        *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	transitions     *prometheus.CounterVec
	movements       *prometheus.CounterVec
	claimConflicts  prometheus.Counter
	rejections      *prometheus.CounterVec
}

// New cria e registra os coletores no registry informado.
func New(reg *prometheus.Registry) *Metrics {
	m := &Metrics{
		registry: reg,
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total de requisições HTTP.",
		}, []string{"method", "route", "status"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duração das requisições HTTP em segundos.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gosementes_product_transitions_total",
			Help: "Transições de status de produto confirmadas.",
		}, []string{"operation", "from", "to"}),
		movements: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gosementes_movements_total",
			Help: "Movimentações gravadas no livro.",
		}, []string{"type"}),
		claimConflicts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "gosementes_location_claim_conflicts_total",
			Help: "Reivindicações de localização perdidas para outra operação.",
		}),
		rejections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gosementes_operation_rejections_total",
			Help: "Operações rejeitadas por regra de negócio, por categoria.",
		}, []string{"operation", "category"}),
	}
	reg.MustRegister(m.requests, m.requestDuration, m.transitions, m.movements, m.claimConflicts, m.rejections)
	return m
}

// Handler expõe o registry no formato Prometheus (/metrics).
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Middleware registra contagem e duração por rota (template do mux, não o path bruto).
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &middleware.StatusRecorder{ResponseWriter: w, Status: http.StatusOK}

		next.ServeHTTP(rec, r)

		route := r.URL.Path
		if current := mux.CurrentRoute(r); current != nil {
			if tpl, err := current.GetPathTemplate(); err == nil {
				route = tpl
			}
		}
		m.requests.WithLabelValues(r.Method, route, strconv.Itoa(rec.Status)).Inc()
		m.requestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}

func (m *Metrics) ObserveTransition(op, from, to string) {
	if m == nil {
		return
	}
	m.transitions.WithLabelValues(op, from, to).Inc()
}

func (m *Metrics) ObserveMovement(movementType string) {
	if m == nil {
		return
	}
	m.movements.WithLabelValues(movementType).Inc()
}

func (m *Metrics) ObserveClaimConflict() {
	if m == nil {
		return
	}
	m.claimConflicts.Inc()
}

func (m *Metrics) ObserveRejection(op, category string) {
	if m == nil {
		return
	}
	m.rejections.WithLabelValues(op, category).Inc()
}
