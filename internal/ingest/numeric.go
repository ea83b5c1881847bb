package ingest

import (
	"strings"

	"github.com/shopspring/decimal"
)

const amountPlaces = 2

// ParseAmount turns a spreadsheet cell into a non-negative amount with two
// decimal places. Empty cells, unparseable text and negative values all yield
// 0.00; it never fails.
func ParseAmount(v interface{}) decimal.Decimal {
	switch t := v.(type) {
	case nil:
		return zeroAmount()
	case decimal.Decimal:
		return clampAmount(t)
	case float64:
		return clampAmount(decimal.NewFromFloat(t))
	case int:
		return clampAmount(decimal.NewFromInt(int64(t)))
	case int64:
		return clampAmount(decimal.NewFromInt(t))
	case string:
		return parseAmountString(t)
	default:
		return zeroAmount()
	}
}

func parseAmountString(s string) decimal.Decimal {
	s = strings.TrimSpace(s)
	s = strings.Trim(s, `"'`)
	s = strings.ReplaceAll(s, ",", "")
	s = strings.TrimSpace(s)
	if s == "" {
		return zeroAmount()
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return zeroAmount()
	}
	return clampAmount(d)
}

func clampAmount(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return zeroAmount()
	}
	return d.Round(amountPlaces)
}

func zeroAmount() decimal.Decimal {
	return decimal.New(0, -amountPlaces)
}
