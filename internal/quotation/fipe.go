package quotation

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// LimitTable holds the FIPE value ceiling of each category.
type LimitTable map[VehicleCategory]decimal.Decimal

// DefaultFipeLimits is the ceiling table used unless configuration overrides it.
var DefaultFipeLimits = LimitTable{
	CategoryNormal:     decimal.NewFromInt(180000),
	CategoryEspecial:   decimal.NewFromInt(190000),
	CategoryUtilitario: decimal.NewFromInt(450000),
	CategoryMoto:       decimal.NewFromInt(90000),
}

// LimitCheck is the outcome of a FIPE limit check.
type LimitCheck struct {
	Allowed bool            `json:"allowed"`
	Limit   decimal.Decimal `json:"limit"`
}

// Check allows value when it does not exceed the category ceiling. A category
// missing from the table is never allowed.
func (t LimitTable) Check(category VehicleCategory, value decimal.Decimal) LimitCheck {
	limit, ok := t[category]
	if !ok {
		return LimitCheck{Allowed: false, Limit: decimal.Zero}
	}
	return LimitCheck{Allowed: value.LessThanOrEqual(limit), Limit: limit}
}

// WithOverrides returns a copy of t with the given ceilings replaced. Keys are
// category names in any case.
func (t LimitTable) WithOverrides(overrides map[string]float64) (LimitTable, error) {
	out := make(LimitTable, len(t))
	for k, v := range t {
		out[k] = v
	}
	for name, value := range overrides {
		category, ok := ParseCategory(name)
		if !ok {
			return nil, fmt.Errorf("unknown vehicle category %q in fipe limits", name)
		}
		if value <= 0 {
			return nil, fmt.Errorf("fipe limit for %s must be positive", category)
		}
		out[category] = decimal.NewFromFloat(value)
	}
	return out, nil
}

// CheckFipeLimit checks value against the default ceiling table.
func CheckFipeLimit(category VehicleCategory, value decimal.Decimal) LimitCheck {
	return DefaultFipeLimits.Check(category, value)
}
