package repository

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"cotacao-workers/internal/quotation"

	"github.com/elastic/go-elasticsearch/v8"
)

// QuotationIndexMapping is applied when the search index is created.
const QuotationIndexMapping = `{
  "mappings": {
    "properties": {
      "id":               {"type": "keyword"},
      "brand":            {"type": "keyword"},
      "model":            {"type": "text", "fields": {"raw": {"type": "keyword"}}},
      "vehicleCategory":  {"type": "keyword"},
      "fipeValue":        {"type": "scaled_float", "scaling_factor": 100},
      "monthlyFee":       {"type": "scaled_float", "scaling_factor": 100},
      "enrollmentFee":    {"type": "scaled_float", "scaling_factor": 100},
      "status":           {"type": "keyword"},
      "rejectionReason":  {"type": "keyword"},
      "sellerId":         {"type": "keyword"},
      "needsTriage":      {"type": "boolean"},
      "contactName":      {"type": "text"},
      "contactEmail":     {"type": "keyword"},
      "createdAt":        {"type": "date"}
    }
  }
}`

type quotationDocument struct {
	ID              string    `json:"id"`
	Brand           string    `json:"brand"`
	Model           string    `json:"model"`
	VehicleCategory string    `json:"vehicleCategory"`
	FipeValue       float64   `json:"fipeValue"`
	MonthlyFee      *float64  `json:"monthlyFee,omitempty"`
	EnrollmentFee   *float64  `json:"enrollmentFee,omitempty"`
	Status          string    `json:"status"`
	RejectionReason string    `json:"rejectionReason,omitempty"`
	SellerID        string    `json:"sellerId,omitempty"`
	NeedsTriage     bool      `json:"needsTriage"`
	ContactName     string    `json:"contactName,omitempty"`
	ContactEmail    string    `json:"contactEmail,omitempty"`
	CreatedAt       time.Time `json:"createdAt"`
}

func newQuotationDocument(q *quotation.Quotation) quotationDocument {
	doc := quotationDocument{
		ID:              q.ID,
		Brand:           q.Vehicle.Brand,
		Model:           q.Vehicle.Model,
		VehicleCategory: string(q.VehicleCategory),
		FipeValue:       q.Vehicle.FipeValue.InexactFloat64(),
		Status:          string(q.Status),
		RejectionReason: string(q.RejectionReason),
		SellerID:        q.SellerID,
		NeedsTriage:     q.NeedsTriage,
		ContactName:     q.Contact.Name,
		ContactEmail:    q.Contact.Email,
		CreatedAt:       q.CreatedAt,
	}
	if q.Status != quotation.StatusRejected {
		monthly := q.Values.Mensalidade.InexactFloat64()
		enrollment := q.Values.AdesaoDesconto.InexactFloat64()
		doc.MonthlyFee = &monthly
		doc.EnrollmentFee = &enrollment
	}
	return doc
}

// QuotationIndex makes stored quotations searchable for the sales back office.
type QuotationIndex struct {
	client *elasticsearch.Client
	index  string
}

func NewQuotationIndex(client *elasticsearch.Client, index string) *QuotationIndex {
	return &QuotationIndex{client: client, index: index}
}

func (i *QuotationIndex) IndexQuotation(ctx context.Context, q *quotation.Quotation) error {
	body, err := json.Marshal(newQuotationDocument(q))
	if err != nil {
		return fmt.Errorf("encode quotation document: %w", err)
	}

	res, err := i.client.Index(
		i.index,
		bytes.NewReader(body),
		i.client.Index.WithDocumentID(q.ID),
		i.client.Index.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("index quotation %s: %w", q.ID, err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("index quotation %s: %s", q.ID, res.String())
	}
	return nil
}
