package infra

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// BarMetrics holds the POS counters exported on /metrics. A nil *BarMetrics
// (or one built with a nil registerer) is a no-op, so services and tests can
// skip wiring it.
type BarMetrics struct {
	vendas         *prometheus.CounterVec
	valorVendas    *prometheus.CounterVec
	recusas        *prometheus.CounterVec
	carteirinha    *prometheus.CounterVec
	caixas         *prometheus.CounterVec
	nfce           *prometheus.CounterVec
	nfceDuracao    prometheus.Histogram
	circuitoFiscal prometheus.Gauge
}

func NewBarMetrics(reg prometheus.Registerer) *BarMetrics {
	if reg == nil {
		return &BarMetrics{}
	}
	m := &BarMetrics{
		vendas: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bar_pedidos_total",
			Help: "Pedidos committed or cancelled, by status.",
		}, []string{"status"}),
		valorVendas: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bar_pagamentos_valor_total",
			Help: "Amount received per tender, in reais.",
		}, []string{"forma"}),
		recusas: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bar_pedidos_recusados_total",
			Help: "Commit attempts rejected, by reason.",
		}, []string{"motivo"}),
		carteirinha: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "carteirinha_movimentos_total",
			Help: "Stored-value ledger entries, by kind.",
		}, []string{"tipo"}),
		caixas: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bar_caixas_total",
			Help: "Cash drawer sessions opened and closed.",
		}, []string{"evento"}),
		nfce: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bar_nfce_total",
			Help: "NFC-e bridge outcomes.",
		}, []string{"resultado"}),
		nfceDuracao: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "bar_nfce_duracao_seconds",
			Help:    "Round-trip time of ACBrMonitor commands.",
			Buckets: []float64{0.25, 0.5, 1, 2, 5, 10, 20, 30},
		}),
		circuitoFiscal: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "bar_nfce_circuito_estado",
			Help: "Fiscal bridge breaker state: 0 closed, 1 open, 2 half-open.",
		}),
	}
	reg.MustRegister(m.vendas, m.valorVendas, m.recusas, m.carteirinha, m.caixas, m.nfce, m.nfceDuracao, m.circuitoFiscal)
	return m
}

func (m *BarMetrics) PedidoRegistrado(status string) {
	if m == nil || m.vendas == nil {
		return
	}
	m.vendas.WithLabelValues(normalizeLabel(status)).Inc()
}

func (m *BarMetrics) PagamentoRecebido(forma string, valor float64) {
	if m == nil || m.valorVendas == nil {
		return
	}
	m.valorVendas.WithLabelValues(normalizeLabel(forma)).Add(valor)
}

func (m *BarMetrics) PedidoRecusado(motivo string) {
	if m == nil || m.recusas == nil {
		return
	}
	m.recusas.WithLabelValues(normalizeLabel(motivo)).Inc()
}

func (m *BarMetrics) MovimentoCarteirinha(tipo string) {
	if m == nil || m.carteirinha == nil {
		return
	}
	m.carteirinha.WithLabelValues(normalizeLabel(tipo)).Inc()
}

func (m *BarMetrics) EventoCaixa(evento string) {
	if m == nil || m.caixas == nil {
		return
	}
	m.caixas.WithLabelValues(normalizeLabel(evento)).Inc()
}

func (m *BarMetrics) ResultadoNFCe(resultado string, duracao time.Duration) {
	if m == nil || m.nfce == nil {
		return
	}
	m.nfce.WithLabelValues(normalizeLabel(resultado)).Inc()
	m.nfceDuracao.Observe(duracao.Seconds())
}

func (m *BarMetrics) EstadoCircuito(s CBState) {
	if m == nil || m.circuitoFiscal == nil {
		return
	}
	m.circuitoFiscal.Set(float64(s))
}

func normalizeLabel(v string) string {
	if v == "" {
		return "unknown"
	}
	return v
}
