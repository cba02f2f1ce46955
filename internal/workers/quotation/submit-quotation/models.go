package submitquotation

import (
	"strings"

	"cotacao-workers/internal/quotation"
	eq "cotacao-workers/internal/workers/quotation/evaluate-quotation"
)

type ContactInput struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}

func (c ContactInput) ToContact() quotation.Contact {
	return quotation.Contact{
		Name:  strings.TrimSpace(c.Name),
		Email: strings.ToLower(strings.TrimSpace(c.Email)),
		Phone: strings.TrimSpace(c.Phone),
	}
}

// Input is the job variables plus the key of the job carrying them.
type Input struct {
	Vehicle eq.VehicleInput `json:"vehicle"`
	Contact ContactInput    `json:"contact"`
	JobKey  int64           `json:"-"`
}

// Output is the eligibility decision plus what was stored. QuotationID is
// empty when nothing was persisted.
type Output struct {
	*eq.Output
	QuotationID string `json:"quotationId,omitempty"`
	SellerID    string `json:"sellerId,omitempty"`
	Status      string `json:"status,omitempty"`
	NeedsTriage bool   `json:"needsTriage"`
}

func NewOutput(sub *quotation.Submission) *Output {
	out := &Output{Output: eq.NewOutput(sub.Result)}
	if q := sub.Quotation; q != nil {
		out.QuotationID = q.ID
		out.SellerID = q.SellerID
		out.Status = string(q.Status)
		out.NeedsTriage = q.NeedsTriage
	}
	return out
}
