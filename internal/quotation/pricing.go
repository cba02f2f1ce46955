package quotation

import (
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// PricingRule prices vehicles of one category whose FIPE value falls in
// [MinValue, MaxValue). A null MaxValue leaves the range open-ended.
type PricingRule struct {
	ID                    int64               `json:"id"`
	Category              VehicleCategory     `json:"category"`
	MinValue              decimal.Decimal     `json:"minValue"`
	MaxValue              decimal.NullDecimal `json:"maxValue"`
	MonthlyFee            decimal.Decimal     `json:"monthlyFee"`
	EnrollmentFee         decimal.Decimal     `json:"enrollmentFee"`
	EnrollmentDiscountPct decimal.Decimal     `json:"enrollmentDiscountPct"`
	ParticipationQuota    decimal.NullDecimal `json:"participationQuota"`
	Active                bool                `json:"active"`
}

// Contains reports whether value lies in the rule's range.
func (r PricingRule) Contains(value decimal.Decimal) bool {
	if value.LessThan(r.MinValue) {
		return false
	}
	return !r.MaxValue.Valid || value.LessThan(r.MaxValue.Decimal)
}

// FindPricingRule returns the active rule of category whose range contains
// value, or nil. Overlapping matches resolve to the lowest MinValue, then the
// lowest ID, then slice order.
func FindPricingRule(rules []PricingRule, category VehicleCategory, value decimal.Decimal) *PricingRule {
	var best *PricingRule
	for i := range rules {
		r := &rules[i]
		if !r.Active || r.Category != category || !r.Contains(value) {
			continue
		}
		if best == nil || preferRule(r, best) {
			best = r
		}
	}
	if best == nil {
		return nil
	}
	found := *best
	return &found
}

func preferRule(candidate, current *PricingRule) bool {
	switch candidate.MinValue.Cmp(current.MinValue) {
	case -1:
		return true
	case 1:
		return false
	}
	return candidate.ID < current.ID
}

// HasActiveRules reports whether any active rule exists for category.
func HasActiveRules(rules []PricingRule, category VehicleCategory) bool {
	for _, r := range rules {
		if r.Active && r.Category == category {
			return true
		}
	}
	return false
}

// QuotationValues are the monetary values offered to the customer.
type QuotationValues struct {
	Mensalidade      decimal.Decimal     `json:"mensalidade"`
	Adesao           decimal.Decimal     `json:"adesao"`
	AdesaoDesconto   decimal.Decimal     `json:"adesaoDesconto"`
	CotaParticipacao decimal.NullDecimal `json:"cotaParticipacao"`
}

// CalculateQuotationValues derives the quotation values from rule. The
// discounted enrollment fee is rounded half-up to cents.
func CalculateQuotationValues(rule PricingRule) QuotationValues {
	factor := decimal.NewFromInt(1).Sub(rule.EnrollmentDiscountPct.Div(hundred))
	return QuotationValues{
		Mensalidade:      rule.MonthlyFee,
		Adesao:           rule.EnrollmentFee,
		AdesaoDesconto:   rule.EnrollmentFee.Mul(factor).Round(2),
		CotaParticipacao: rule.ParticipationQuota,
	}
}
