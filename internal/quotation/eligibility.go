package quotation

import (
	"github.com/shopspring/decimal"
)

// Vehicle is a quotation request after FIPE lookup.
type Vehicle struct {
	Category  UserCategory    `json:"category"`
	Usage     Usage           `json:"usage"`
	RawType   string          `json:"rawType"`
	Brand     string          `json:"brand"`
	Model     string          `json:"model"`
	FipeValue decimal.Decimal `json:"fipeValue"`
}

type Outcome string

const (
	OutcomeAccepted Outcome = "ACCEPTED"
	OutcomeRejected Outcome = "REJECTED"
)

type RejectionCode string

const (
	RejectionBlacklisted RejectionCode = "BLACKLISTED"
	RejectionOverLimit   RejectionCode = "OVER_LIMIT"
	RejectionNoRule      RejectionCode = "NO_RULE"
)

// Result is either Accepted or Rejected.
type Result interface {
	Outcome() Outcome
	isResult()
}

// Accepted carries the priced quotation.
type Accepted struct {
	Category VehicleCategory `json:"category"`
	Values   QuotationValues `json:"values"`
	RuleID   int64           `json:"ruleId"`
}

func (Accepted) Outcome() Outcome { return OutcomeAccepted }
func (Accepted) isResult()        {}

// Rejected carries one of the typed rejection payloads.
type Rejected struct {
	Details RejectionDetails `json:"details"`
}

func (Rejected) Outcome() Outcome { return OutcomeRejected }
func (Rejected) isResult()        {}

func (r Rejected) Code() RejectionCode { return r.Details.Code() }

// SaveAsLead reports whether the customer's contact should still be captured.
func (r Rejected) SaveAsLead() bool { return r.Details.saveAsLead() }

// RejectionDetails is implemented by BlacklistedDetails, OverLimitDetails and NoRuleDetails.
type RejectionDetails interface {
	Code() RejectionCode
	saveAsLead() bool
}

type BlacklistedDetails struct {
	Brand  string `json:"marca"`
	Model  string `json:"modelo"`
	Reason string `json:"motivo,omitempty"`
}

func (BlacklistedDetails) Code() RejectionCode { return RejectionBlacklisted }
func (BlacklistedDetails) saveAsLead() bool    { return true }

type OverLimitDetails struct {
	Category  VehicleCategory `json:"categoria"`
	FipeValue decimal.Decimal `json:"valorFipe"`
	Limit     decimal.Decimal `json:"limite"`
}

func (OverLimitDetails) Code() RejectionCode { return RejectionOverLimit }
func (OverLimitDetails) saveAsLead() bool    { return true }

// NoRuleDetails is returned when no active pricing rule covers the value.
// RulesConfigured is false when the category has no active rules at all.
type NoRuleDetails struct {
	Category        VehicleCategory `json:"categoria"`
	FipeValue       decimal.Decimal `json:"valorFipe"`
	RulesConfigured bool            `json:"rulesConfigured"`
}

func (NoRuleDetails) Code() RejectionCode { return RejectionNoRule }
func (NoRuleDetails) saveAsLead() bool    { return false }

// Evaluate runs blacklist, category, FIPE limit and pricing in that order and
// returns the first rejection or the accepted quotation.
func Evaluate(v Vehicle, blacklist []BlacklistEntry, rules []PricingRule, limits LimitTable) Result {
	if match := IsBlacklisted(blacklist, v.Brand, v.Model); match.Blocked {
		return Rejected{Details: BlacklistedDetails{
			Brand:  normalizeName(v.Brand),
			Model:  normalizeName(v.Model),
			Reason: match.Reason,
		}}
	}

	category := DetermineCategory(v.RawType, v.Category, v.Usage)

	if check := limits.Check(category, v.FipeValue); !check.Allowed {
		return Rejected{Details: OverLimitDetails{
			Category:  category,
			FipeValue: v.FipeValue,
			Limit:     check.Limit,
		}}
	}

	rule := FindPricingRule(rules, category, v.FipeValue)
	if rule == nil {
		return Rejected{Details: NoRuleDetails{
			Category:        category,
			FipeValue:       v.FipeValue,
			RulesConfigured: HasActiveRules(rules, category),
		}}
	}

	return Accepted{
		Category: category,
		Values:   CalculateQuotationValues(*rule),
		RuleID:   rule.ID,
	}
}
