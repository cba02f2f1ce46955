package evaluatequotation

import (
	"strings"

	"cotacao-workers/internal/quotation"

	"github.com/shopspring/decimal"
)

// VehicleInput is the vehicle as the quotation form sends it.
type VehicleInput struct {
	Category  string          `json:"category"`
	Usage     string          `json:"usage"`
	RawType   string          `json:"rawType"`
	Brand     string          `json:"brand"`
	Model     string          `json:"model"`
	FipeValue decimal.Decimal `json:"fipeValue"`
}

func (v VehicleInput) ToVehicle() quotation.Vehicle {
	userCategory := quotation.UserCategory(strings.ToUpper(strings.TrimSpace(v.Category)))
	if userCategory == "" {
		userCategory = quotation.UserCategoryLeve
	}
	usage := quotation.Usage(strings.ToUpper(strings.TrimSpace(v.Usage)))
	if usage == "" {
		usage = quotation.UsageParticular
	}
	return quotation.Vehicle{
		Category:  userCategory,
		Usage:     usage,
		RawType:   v.RawType,
		Brand:     v.Brand,
		Model:     v.Model,
		FipeValue: v.FipeValue,
	}
}

type Input struct {
	Vehicle VehicleInput `json:"vehicle"`
}

// Output is the eligibility decision flattened into process variables.
// Kind selects which of the remaining fields are set. Money is a decimal
// string with two places.
type Output struct {
	Kind             string                 `json:"kind"`
	Category         string                 `json:"category,omitempty"`
	Mensalidade      *string                `json:"mensalidade,omitempty"`
	Adesao           *string                `json:"adesao,omitempty"`
	AdesaoDesconto   *string                `json:"adesaoDesconto,omitempty"`
	CotaParticipacao *string                `json:"cotaParticipacao"`
	RuleID           int64                  `json:"ruleId,omitempty"`
	Code             string                 `json:"code,omitempty"`
	Details          map[string]interface{} `json:"details,omitempty"`
	SaveAsLead       *bool                  `json:"saveAsLead,omitempty"`
}

// NewOutput maps an eligibility result to its variable form.
func NewOutput(result quotation.Result) *Output {
	switch r := result.(type) {
	case quotation.Accepted:
		out := &Output{
			Kind:           string(quotation.OutcomeAccepted),
			Category:       string(r.Category),
			Mensalidade:    money(r.Values.Mensalidade),
			Adesao:         money(r.Values.Adesao),
			AdesaoDesconto: money(r.Values.AdesaoDesconto),
			RuleID:         r.RuleID,
		}
		if r.Values.CotaParticipacao.Valid {
			out.CotaParticipacao = money(r.Values.CotaParticipacao.Decimal)
		}
		return out

	case quotation.Rejected:
		saveAsLead := r.SaveAsLead()
		return &Output{
			Kind:       string(quotation.OutcomeRejected),
			Code:       string(r.Code()),
			Details:    rejectionDetails(r.Details),
			SaveAsLead: &saveAsLead,
		}
	}
	return &Output{Kind: string(result.Outcome())}
}

func money(d decimal.Decimal) *string {
	s := d.StringFixed(2)
	return &s
}

func rejectionDetails(details quotation.RejectionDetails) map[string]interface{} {
	switch d := details.(type) {
	case quotation.BlacklistedDetails:
		out := map[string]interface{}{
			"marca":  d.Brand,
			"modelo": d.Model,
		}
		if d.Reason != "" {
			out["motivo"] = d.Reason
		}
		return out
	case quotation.OverLimitDetails:
		return map[string]interface{}{
			"categoria": string(d.Category),
			"valorFipe": d.FipeValue.StringFixed(2),
			"limite":    d.Limit.StringFixed(2),
		}
	case quotation.NoRuleDetails:
		return map[string]interface{}{
			"categoria":       string(d.Category),
			"valorFipe":       d.FipeValue.StringFixed(2),
			"rulesConfigured": d.RulesConfigured,
		}
	}
	return nil
}
