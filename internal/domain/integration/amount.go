package integration

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Amount is an optional decimal read from storefront JSON. The storefront
// emits numbers, numeric strings, empty strings and nulls for the same
// field; an absent, null or empty value leaves Valid false, which is
// distinct from an explicit zero.
type Amount struct {
	Value decimal.Decimal
	Valid bool
}

// NewAmount returns a valid Amount.
func NewAmount(v decimal.Decimal) Amount {
	return Amount{Value: v, Valid: true}
}

// AmountFromFloat returns a valid Amount from a float.
func AmountFromFloat(v float64) Amount {
	return NewAmount(decimal.NewFromFloat(v))
}

// UnmarshalJSON implements json.Unmarshaler.
func (a *Amount) UnmarshalJSON(b []byte) error {
	raw := bytes.TrimSpace(b)
	if bytes.Equal(raw, []byte("null")) {
		*a = Amount{}
		return nil
	}
	s := strings.TrimSpace(strings.Trim(string(raw), `"`))
	if s == "" {
		*a = Amount{}
		return nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return fmt.Errorf("%w: amount %s: %v", ErrInvalidPayload, raw, err)
	}
	*a = Amount{Value: d, Valid: true}
	return nil
}

// MarshalJSON implements json.Marshaler.
func (a Amount) MarshalJSON() ([]byte, error) {
	if !a.Valid {
		return []byte("null"), nil
	}
	return []byte(a.Value.String()), nil
}

// Decimal returns the value, or zero when the amount is missing.
func (a Amount) Decimal() decimal.Decimal {
	if !a.Valid {
		return decimal.Zero
	}
	return a.Value
}

// IsPositive reports whether the amount is present and greater than zero.
func (a Amount) IsPositive() bool {
	return a.Valid && a.Value.IsPositive()
}

// IsNonZero reports whether the amount is present and not zero.
func (a Amount) IsNonZero() bool {
	return a.Valid && !a.Value.IsZero()
}

// Or returns a when it is present, otherwise fallback.
func (a Amount) Or(fallback Amount) Amount {
	if a.Valid {
		return a
	}
	return fallback
}

// currencyAmount selects the base-currency variant of a field when the
// instance prices in base currency and the storefront sent it.
func currencyAmount(useBaseCurrency bool, base, order Amount) Amount {
	if useBaseCurrency && base.Valid {
		return base
	}
	return order
}
