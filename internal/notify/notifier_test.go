package notify

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	apperrors "cotacao-workers/internal/common/errors"
	"cotacao-workers/internal/common/logger"
	"cotacao-workers/internal/quotation"
	"cotacao-workers/internal/roundrobin"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockSES struct {
	sendFunc func(ctx context.Context, params *ses.SendEmailInput) (*ses.SendEmailOutput, error)
	calls    []*ses.SendEmailInput
}

func (m *mockSES) SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error) {
	m.calls = append(m.calls, params)
	if m.sendFunc != nil {
		return m.sendFunc(ctx, params)
	}
	return &ses.SendEmailOutput{MessageId: awssdk.String("msg-1")}, nil
}

type mockSNS struct {
	publishFunc func(ctx context.Context, params *sns.PublishInput) (*sns.PublishOutput, error)
	calls       []*sns.PublishInput
}

func (m *mockSNS) Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error) {
	m.calls = append(m.calls, params)
	if m.publishFunc != nil {
		return m.publishFunc(ctx, params)
	}
	return &sns.PublishOutput{MessageId: awssdk.String("sns-1")}, nil
}

type staticSellers map[string]roundrobin.Seller

func (s staticSellers) GetSeller(ctx context.Context, id string) (*roundrobin.Seller, error) {
	seller, ok := s[id]
	if !ok {
		return nil, nil
	}
	return &seller, nil
}

var testConfig = Config{
	SESEnabled:     true,
	FromEmail:      "cotacoes@example.com",
	SNSEnabled:     true,
	TriageTopicARN: "arn:aws:sns:sa-east-1:000000000000:quotation-triage",
}

func assignedQuotation() *quotation.Quotation {
	return &quotation.Quotation{
		ID: "q-1",
		Vehicle: quotation.Vehicle{
			Brand:     "TOYOTA",
			Model:     "COROLLA",
			FipeValue: decimal.NewFromInt(150000),
		},
		Contact:         quotation.Contact{Name: "Ana", Phone: "+5511999990000"},
		VehicleCategory: quotation.CategoryNormal,
		Values: quotation.QuotationValues{
			Mensalidade:    decimal.NewFromInt(120),
			Adesao:         decimal.NewFromInt(500),
			AdesaoDesconto: decimal.NewFromInt(400),
		},
		SellerID:  "seller-a",
		Status:    quotation.StatusPending,
		CreatedAt: time.Date(2026, 5, 4, 10, 30, 0, 0, time.UTC),
	}
}

func TestNotifyAssigned(t *testing.T) {
	sesClient := &mockSES{}
	sellers := staticSellers{"seller-a": {ID: "seller-a", Name: "Bruna", Email: "bruna@example.com"}}
	n := NewNotifier(testConfig, sesClient, &mockSNS{}, sellers, logger.NewTestLogger(t))

	require.NoError(t, n.NotifyAssigned(context.Background(), assignedQuotation()))
	require.Len(t, sesClient.calls, 1)

	input := sesClient.calls[0]
	assert.Equal(t, "cotacoes@example.com", awssdk.ToString(input.Source))
	assert.Equal(t, []string{"bruna@example.com"}, input.Destination.ToAddresses)
	assert.Contains(t, awssdk.ToString(input.Message.Subject.Data), "COROLLA")

	body := awssdk.ToString(input.Message.Body.Text.Data)
	assert.Contains(t, body, "Olá Bruna")
	assert.Contains(t, body, "Mensalidade: 120.00")
	assert.Contains(t, body, "Adesão com desconto: 400.00")
}

func TestNotifyAssigned_Skipped(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		sellers staticSellers
		mutate  func(q *quotation.Quotation)
	}{
		{
			name:    "ses disabled",
			config:  Config{},
			sellers: staticSellers{"seller-a": {Email: "bruna@example.com"}},
		},
		{
			name:    "unassigned quotation",
			config:  testConfig,
			sellers: staticSellers{"seller-a": {Email: "bruna@example.com"}},
			mutate:  func(q *quotation.Quotation) { q.SellerID = "" },
		},
		{
			name:    "seller without email",
			config:  testConfig,
			sellers: staticSellers{"seller-a": {ID: "seller-a"}},
		},
		{
			name:    "seller no longer exists",
			config:  testConfig,
			sellers: staticSellers{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sesClient := &mockSES{}
			n := NewNotifier(tt.config, sesClient, nil, tt.sellers, logger.NewTestLogger(t))

			q := assignedQuotation()
			if tt.mutate != nil {
				tt.mutate(q)
			}
			require.NoError(t, n.NotifyAssigned(context.Background(), q))
			assert.Empty(t, sesClient.calls)
		})
	}
}

func TestNotifyAssigned_SendFailure(t *testing.T) {
	sesClient := &mockSES{
		sendFunc: func(ctx context.Context, params *ses.SendEmailInput) (*ses.SendEmailOutput, error) {
			return nil, assert.AnError
		},
	}
	sellers := staticSellers{"seller-a": {Email: "bruna@example.com"}}
	n := NewNotifier(testConfig, sesClient, nil, sellers, logger.NewTestLogger(t))

	err := n.NotifyAssigned(context.Background(), assignedQuotation())
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeNotificationSendFailed, apperrors.Normalize(err).Code)
	assert.ErrorIs(t, err, assert.AnError)
}

func TestNotifyUnassigned(t *testing.T) {
	snsClient := &mockSNS{}
	n := NewNotifier(testConfig, nil, snsClient, staticSellers{}, logger.NewTestLogger(t))

	q := assignedQuotation()
	q.SellerID = ""
	q.NeedsTriage = true

	require.NoError(t, n.NotifyUnassigned(context.Background(), q))
	require.Len(t, snsClient.calls, 1)

	input := snsClient.calls[0]
	assert.Equal(t, testConfig.TriageTopicARN, awssdk.ToString(input.TopicArn))
	assert.Equal(t, eventUnassigned, awssdk.ToString(input.MessageAttributes["event_type"].StringValue))

	var alert map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(awssdk.ToString(input.Message)), &alert))
	assert.Equal(t, "q-1", alert["quotationId"])
	assert.Equal(t, "NORMAL", alert["vehicleCategory"])
	assert.Equal(t, "150000.00", alert["fipeValue"])
	assert.Equal(t, "2026-05-04T10:30:00Z", alert["createdAt"])
}

func TestNotifyUnassigned_Failure(t *testing.T) {
	snsClient := &mockSNS{
		publishFunc: func(ctx context.Context, params *sns.PublishInput) (*sns.PublishOutput, error) {
			return nil, assert.AnError
		},
	}
	n := NewNotifier(testConfig, nil, snsClient, staticSellers{}, logger.NewTestLogger(t))

	err := n.NotifyUnassigned(context.Background(), assignedQuotation())
	require.Error(t, err)
	assert.True(t, apperrors.Normalize(err).Retryable)
}

func TestNotifyUnassigned_Disabled(t *testing.T) {
	snsClient := &mockSNS{}
	n := NewNotifier(Config{}, nil, snsClient, staticSellers{}, logger.NewNoOpLogger())

	require.NoError(t, n.NotifyUnassigned(context.Background(), assignedQuotation()))
	assert.Empty(t, snsClient.calls)
}
