package entity

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

type Money struct {
	Amount   decimal.Decimal `json:"amount" db:"amount"`
	Currency string          `json:"currency" db:"currency"`
}

func NewMoney(amount, currency string) (Money, error) {
	d, err := decimal.NewFromString(amount)
	if err != nil {
		return Money{}, fmt.Errorf("parsing amount %q: %w", amount, err)
	}

	return Money{
		Amount:   d,
		Currency: strings.ToUpper(currency),
	}, nil
}

func (m Money) Times(quantity int) Money {
	return Money{
		Amount:   m.Amount.Mul(decimal.NewFromInt(int64(quantity))),
		Currency: m.Currency,
	}
}

func (m Money) Plus(other Money) Money {
	currency := m.Currency
	if currency == "" {
		currency = other.Currency
	}

	return Money{
		Amount:   m.Amount.Add(other.Amount),
		Currency: currency,
	}
}

// MinorUnits returns the amount in the currency's smallest unit, assuming two decimal places.
func (m Money) MinorUnits() int64 {
	return m.Amount.Shift(2).Round(0).IntPart()
}

func (m Money) String() string {
	return m.Amount.StringFixed(2) + " " + m.Currency
}
