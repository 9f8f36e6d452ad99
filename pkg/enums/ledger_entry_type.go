package enums

import "fmt"

// LedgerEntryType maps to the wallet_ledger_type enum in Postgres.
type LedgerEntryType string

const (
	LedgerEntryTypeTopUp        LedgerEntryType = "TOPUP"
	LedgerEntryTypeOrderPayment LedgerEntryType = "ORDER_PAYMENT"
)

var validLedgerEntryTypes = []LedgerEntryType{
	LedgerEntryTypeTopUp,
	LedgerEntryTypeOrderPayment,
}

// IsValid reports whether the value matches the canonical ledger enum.
func (t LedgerEntryType) IsValid() bool {
	for _, candidate := range validLedgerEntryTypes {
		if candidate == t {
			return true
		}
	}
	return false
}

// ParseLedgerEntryType converts raw input into LedgerEntryType.
func ParseLedgerEntryType(value string) (LedgerEntryType, error) {
	for _, candidate := range validLedgerEntryTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid ledger entry type %q", value)
}
