package quotation

import (
	"time"
)

type QuotationStatus string

const (
	StatusPending  QuotationStatus = "PENDING"
	StatusRejected QuotationStatus = "REJECTED"
)

// Contact is what the customer left on the quotation form.
type Contact struct {
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
	Phone string `json:"phone,omitempty"`
}

// Quotation is the persisted outcome of a submission. Values are zero for
// rejected quotations and SellerID is empty until a seller is assigned.
type Quotation struct {
	ID              string          `json:"id"`
	Vehicle         Vehicle         `json:"vehicle"`
	Contact         Contact         `json:"contact"`
	VehicleCategory VehicleCategory `json:"vehicleCategory"`
	Values          QuotationValues `json:"values"`
	SellerID        string          `json:"sellerId,omitempty"`
	Status          QuotationStatus `json:"status"`
	RejectionReason RejectionCode   `json:"rejectionReason,omitempty"`
	NeedsTriage     bool            `json:"needsTriage"`
	JobKey          int64           `json:"jobKey,omitempty"`
	CreatedAt       time.Time       `json:"createdAt"`
}

// Assigned reports whether a seller owns the quotation.
func (q *Quotation) Assigned() bool {
	return q.SellerID != ""
}
