package holdings

import (
	"encoding/json"
	"strings"

	"github.com/shopspring/decimal"

	"holdingsd/internal/domain"
)

// balanceScale is the number of fractional digits balances are rounded to.
const balanceScale = 12

// Normalize coerces untrusted upstream account records into holding items.
// The upstream account shape varies across response variants, so this is
// defensive coercion, not schema validation: anything unparseable degrades
// to zero and zero balances are dropped. Output order follows input order.
func Normalize(accounts []map[string]interface{}) []domain.HoldingItem {
	items := make([]domain.HoldingItem, 0, len(accounts))
	for _, acc := range accounts {
		currency := stringField(acc, "currency")
		if currency == "" {
			currency = stringField(acc, "profile_id")
		}
		if currency == "" {
			currency = "UNKNOWN"
		}

		balance := parseBalance(rawBalance(acc)).Round(balanceScale)
		if balance.Sign() <= 0 {
			continue
		}
		items = append(items, domain.HoldingItem{Currency: currency, Balance: balance})
	}
	return items
}

// rawBalance picks the balance value from the fields the upstream has been
// seen to use, in precedence order.
func rawBalance(acc map[string]interface{}) interface{} {
	if nested, ok := acc["balance"].(map[string]interface{}); ok {
		if v, ok := nested["amount"]; ok && v != nil {
			return v
		}
	} else if v, ok := acc["balance"]; ok && v != nil {
		return v
	}
	if v, ok := acc["available"]; ok && v != nil {
		return v
	}
	if v, ok := acc["amount"]; ok && v != nil {
		return v
	}
	return "0"
}

func parseBalance(v interface{}) decimal.Decimal {
	var s string
	switch t := v.(type) {
	case json.Number:
		s = t.String()
	case string:
		s = strings.TrimSpace(t)
	case float64:
		return decimal.NewFromFloat(t)
	default:
		return decimal.Zero
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

func stringField(m map[string]interface{}, key string) string {
	v, _ := m[key].(string)
	return strings.TrimSpace(v)
}
