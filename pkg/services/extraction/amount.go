package extraction

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	amountNoise  = regexp.MustCompile(`[^0-9.\-]`)
	amountPrefix = regexp.MustCompile(`^-?(\d+\.?\d*|\.\d+)`)
)

// ParseAmount coerces an extracted amount into a non-negative decimal.
// Strings like "$1,234.56" or "EUR -20.00" keep only digits, '.' and '-'
// before parsing. Anything that cannot be read yields zero; the sign is
// always discarded.
func ParseAmount(value any) decimal.Decimal {
	switch v := value.(type) {
	case nil:
		return decimal.Zero
	case decimal.Decimal:
		return v.Abs()
	case float64:
		return decimal.NewFromFloat(v).Abs()
	case float32:
		return decimal.NewFromFloat32(v).Abs()
	case int:
		return decimal.NewFromInt(int64(v)).Abs()
	case int64:
		return decimal.NewFromInt(v).Abs()
	case json.Number:
		if d, err := decimal.NewFromString(v.String()); err == nil {
			return d.Abs()
		}
		return parseAmountString(v.String())
	case string:
		return parseAmountString(v)
	default:
		return decimal.Zero
	}
}

func parseAmountString(s string) decimal.Decimal {
	clean := amountNoise.ReplaceAllString(strings.TrimSpace(s), "")
	num := strings.TrimSuffix(amountPrefix.FindString(clean), ".")
	if num == "" || num == "-" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(num)
	if err != nil {
		return decimal.Zero
	}
	return d.Abs()
}
