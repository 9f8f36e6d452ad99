package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
)

// PaymentMetrics records wallet and gateway activity.
type PaymentMetrics struct {
	topups        prometheus.Counter
	topupAmount   prometheus.Counter
	orderPayments prometheus.Counter
	captures      *prometheus.CounterVec
}

// NewPaymentMetrics registers the payment metrics on the provided registerer.
func NewPaymentMetrics(reg prometheus.Registerer) *PaymentMetrics {
	if reg == nil {
		return &PaymentMetrics{}
	}
	topups := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "wallet_topups_total",
		Help: "Wallet credit entries written.",
	})
	topupAmount := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "wallet_topup_amount_total",
		Help: "Total amount credited to wallets.",
	})
	orderPayments := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "wallet_order_payments_total",
		Help: "Orders paid from wallet balances.",
	})
	captures := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "paypal_captures_total",
		Help: "PayPal order captures by result.",
	}, []string{"result"})
	reg.MustRegister(topups, topupAmount, orderPayments, captures)
	return &PaymentMetrics{
		topups:        topups,
		topupAmount:   topupAmount,
		orderPayments: orderPayments,
		captures:      captures,
	}
}

// IncTopUp records a wallet credit and its amount.
func (p *PaymentMetrics) IncTopUp(amount decimal.Decimal) {
	if p == nil || p.topups == nil {
		return
	}
	p.topups.Inc()
	f, _ := amount.Float64()
	p.topupAmount.Add(f)
}

// IncOrderPayments records n orders settled from a wallet.
func (p *PaymentMetrics) IncOrderPayments(n int) {
	if p == nil || p.orderPayments == nil {
		return
	}
	p.orderPayments.Add(float64(n))
}

// IncCapture records a PayPal capture attempt by result label.
func (p *PaymentMetrics) IncCapture(result string) {
	if p == nil || p.captures == nil {
		return
	}
	if result == "" {
		result = "unknown"
	}
	p.captures.WithLabelValues(result).Inc()
}
