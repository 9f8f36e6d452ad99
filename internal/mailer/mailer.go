package mailer

import (
	"context"
	"fmt"
	"strings"

	"gopkg.in/gomail.v2"

	"github.com/renpay/renpay-backend/internal/wallet"
	"github.com/renpay/renpay-backend/pkg/config"
	"github.com/renpay/renpay-backend/pkg/logger"
	"github.com/renpay/renpay-backend/pkg/money"
)

// Status reports the outcome of a delivery attempt. Mail failures never abort
// the payment that triggered them; callers surface the status instead.
type Status struct {
	Sent    bool    `json:"sent"`
	Skipped bool    `json:"skipped"`
	Reason  *string `json:"reason,omitempty"`
}

// Mailer sends transactional mail over SMTP.
type Mailer interface {
	SendOrdersPaid(ctx context.Context, to string, result *wallet.PayOrdersResult) Status
}

type dialer interface {
	DialAndSend(m ...*gomail.Message) error
}

type mailer struct {
	cfg    config.SMTPConfig
	appURL string
	dialer dialer
	logger *logger.Logger
}

// New builds an SMTP mailer from config. An unconfigured SMTP section yields
// a mailer that skips every send. appURL is the public front end address
// referenced in receipt bodies.
func New(cfg config.SMTPConfig, appURL string, logg *logger.Logger) Mailer {
	m := &mailer{cfg: cfg, appURL: appURL, logger: logg}
	if cfg.Configured() {
		m.dialer = gomail.NewDialer(cfg.Host, cfg.Port, cfg.User, cfg.Password)
	}
	return m
}

func (m *mailer) SendOrdersPaid(ctx context.Context, to string, result *wallet.PayOrdersResult) Status {
	if m.dialer == nil {
		return skipped("smtp is not configured")
	}
	if to == "" {
		return skipped("recipient address missing")
	}
	if result == nil || len(result.Paid) == 0 {
		return skipped("no paid orders to report")
	}

	msg := gomail.NewMessage()
	msg.SetAddressHeader("From", m.cfg.Sender(), m.cfg.FromName)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", fmt.Sprintf("Payment receipt: %d order(s) paid", len(result.Paid)))
	msg.SetBody("text/plain", receiptBody(result, m.appURL))

	if err := m.dialer.DialAndSend(msg); err != nil {
		if m.logger != nil {
			m.logger.Error(ctx, "sending payment receipt failed", err)
		}
		return failed(err.Error())
	}

	if m.logger != nil {
		m.logger.Info(m.logger.WithUserEmail(ctx, to), "payment receipt sent")
	}
	return Status{Sent: true}
}

func receiptBody(result *wallet.PayOrdersResult, appURL string) string {
	var b strings.Builder
	b.WriteString("Your Leaf wallet payment went through.\n\nPaid orders:\n")
	for _, order := range result.Paid {
		name := order.OrderName
		if name == "" {
			name = "(unnamed)"
		}
		fmt.Fprintf(&b, "  %s | %s | $%s\n", order.OrderNumber, name, money.Format(order.Amount))
	}
	if len(result.AlreadyPaid) > 0 {
		fmt.Fprintf(&b, "\nAlready paid (skipped): %s\n", strings.Join(result.AlreadyPaid, ", "))
	}
	fmt.Fprintf(&b, "\nTotal paid: $%s\n", money.Format(result.TotalAmount))
	fmt.Fprintf(&b, "Remaining balance: $%s\n", money.Format(result.NewBalance))
	if appURL != "" {
		fmt.Fprintf(&b, "\nView your orders: %s\n", appURL)
	}
	return b.String()
}

func skipped(reason string) Status {
	return Status{Skipped: true, Reason: &reason}
}

// failed marks an attempted delivery that errored, as opposed to one that was
// never attempted.
func failed(reason string) Status {
	return Status{Reason: &reason}
}
