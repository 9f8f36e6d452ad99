package enums

import "fmt"

// PaymentGateway identifies where a subscription is billed.
type PaymentGateway string

const (
	PaymentGatewayPayPal   PaymentGateway = "PAYPAL"
	PaymentGatewayInternal PaymentGateway = "INTERNAL"
)

var validPaymentGateways = []PaymentGateway{
	PaymentGatewayPayPal,
	PaymentGatewayInternal,
}

// IsValid reports whether the value is known.
func (g PaymentGateway) IsValid() bool {
	for _, candidate := range validPaymentGateways {
		if candidate == g {
			return true
		}
	}
	return false
}

// ParsePaymentGateway converts raw input into a PaymentGateway.
func ParsePaymentGateway(value string) (PaymentGateway, error) {
	for _, candidate := range validPaymentGateways {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid payment gateway %q", value)
}
