// Package notify delivers the out-of-band notices that follow a stored
// quotation: an email to the assigned seller and an admin alert when a
// quotation is waiting for manual triage.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"cotacao-workers/internal/common/aws"
	apperrors "cotacao-workers/internal/common/errors"
	"cotacao-workers/internal/common/logger"
	"cotacao-workers/internal/quotation"
	"cotacao-workers/internal/roundrobin"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	sesTypes "github.com/aws/aws-sdk-go-v2/service/ses/types"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	snsTypes "github.com/aws/aws-sdk-go-v2/service/sns/types"
)

const eventUnassigned = "quotation.unassigned"

type SellerDirectory interface {
	GetSeller(ctx context.Context, id string) (*roundrobin.Seller, error)
}

type Config struct {
	SESEnabled     bool
	FromEmail      string
	SNSEnabled     bool
	TriageTopicARN string
}

type Notifier struct {
	config  Config
	ses     aws.SESAPI
	sns     aws.SNSAPI
	sellers SellerDirectory
	logger  logger.Logger
}

func NewNotifier(config Config, sesClient aws.SESAPI, snsClient aws.SNSAPI, sellers SellerDirectory, log logger.Logger) *Notifier {
	return &Notifier{
		config:  config,
		ses:     sesClient,
		sns:     snsClient,
		sellers: sellers,
		logger:  log,
	}
}

// NotifyAssigned emails the seller who received q.
func (n *Notifier) NotifyAssigned(ctx context.Context, q *quotation.Quotation) error {
	if !n.config.SESEnabled || n.ses == nil || !q.Assigned() {
		return nil
	}

	seller, err := n.sellers.GetSeller(ctx, q.SellerID)
	if err != nil {
		return apperrors.NewNotificationSendFailedError("email", err)
	}
	if seller == nil || strings.TrimSpace(seller.Email) == "" {
		n.logger.Warn("assigned seller has no email, skipping notification", map[string]interface{}{
			"quotationId": q.ID,
			"sellerId":    q.SellerID,
		})
		return nil
	}

	input := &ses.SendEmailInput{
		Source: awssdk.String(n.config.FromEmail),
		Destination: &sesTypes.Destination{
			ToAddresses: []string{seller.Email},
		},
		Message: &sesTypes.Message{
			Subject: &sesTypes.Content{
				Data:    awssdk.String(fmt.Sprintf("Nova cotação %s %s", q.Vehicle.Brand, q.Vehicle.Model)),
				Charset: awssdk.String("UTF-8"),
			},
			Body: &sesTypes.Body{
				Text: &sesTypes.Content{
					Data:    awssdk.String(assignedBody(seller, q)),
					Charset: awssdk.String("UTF-8"),
				},
			},
		},
	}

	if _, err := n.ses.SendEmail(ctx, input); err != nil {
		return apperrors.NewNotificationSendFailedError("email", err)
	}

	n.logger.Info("seller notified", map[string]interface{}{
		"quotationId": q.ID,
		"sellerId":    q.SellerID,
	})
	return nil
}

func assignedBody(seller *roundrobin.Seller, q *quotation.Quotation) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Olá %s,\n\n", seller.Name)
	fmt.Fprintf(&b, "Cotação %s atribuída a você.\n", q.ID)
	fmt.Fprintf(&b, "Veículo: %s %s (%s)\n", q.Vehicle.Brand, q.Vehicle.Model, q.VehicleCategory)
	fmt.Fprintf(&b, "Valor FIPE: %s\n", q.Vehicle.FipeValue.StringFixed(2))
	fmt.Fprintf(&b, "Mensalidade: %s\n", q.Values.Mensalidade.StringFixed(2))
	fmt.Fprintf(&b, "Adesão com desconto: %s\n", q.Values.AdesaoDesconto.StringFixed(2))
	if q.Contact.Name != "" || q.Contact.Phone != "" || q.Contact.Email != "" {
		fmt.Fprintf(&b, "Contato: %s %s %s\n", q.Contact.Name, q.Contact.Phone, q.Contact.Email)
	}
	return b.String()
}

type unassignedAlert struct {
	Event           string `json:"event"`
	QuotationID     string `json:"quotationId"`
	VehicleCategory string `json:"vehicleCategory"`
	FipeValue       string `json:"fipeValue"`
	Brand           string `json:"brand"`
	Model           string `json:"model"`
	ContactName     string `json:"contactName,omitempty"`
	ContactPhone    string `json:"contactPhone,omitempty"`
	CreatedAt       string `json:"createdAt"`
}

// NotifyUnassigned alerts admins that q is waiting for manual assignment.
func (n *Notifier) NotifyUnassigned(ctx context.Context, q *quotation.Quotation) error {
	if !n.config.SNSEnabled || n.sns == nil {
		return nil
	}

	payload, err := json.Marshal(unassignedAlert{
		Event:           eventUnassigned,
		QuotationID:     q.ID,
		VehicleCategory: string(q.VehicleCategory),
		FipeValue:       q.Vehicle.FipeValue.StringFixed(2),
		Brand:           q.Vehicle.Brand,
		Model:           q.Vehicle.Model,
		ContactName:     q.Contact.Name,
		ContactPhone:    q.Contact.Phone,
		CreatedAt:       q.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
	})
	if err != nil {
		return apperrors.NewNotificationSendFailedError("sns", err)
	}

	out, err := n.sns.Publish(ctx, &sns.PublishInput{
		TopicArn: awssdk.String(n.config.TriageTopicARN),
		Subject:  awssdk.String("Cotação sem vendedor"),
		Message:  awssdk.String(string(payload)),
		MessageAttributes: map[string]snsTypes.MessageAttributeValue{
			"event_type": {
				DataType:    awssdk.String("String"),
				StringValue: awssdk.String(eventUnassigned),
			},
		},
	})
	if err != nil {
		return apperrors.NewNotificationSendFailedError("sns", err)
	}

	n.logger.Info("triage alert published", map[string]interface{}{
		"quotationId": q.ID,
		"messageId":   awssdk.ToString(out.MessageId),
	})
	return nil
}
