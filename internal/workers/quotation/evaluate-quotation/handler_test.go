package evaluatequotation

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"cotacao-workers/internal/common/config"
	"cotacao-workers/internal/common/errors"
	"cotacao-workers/internal/common/logger"
	"cotacao-workers/internal/quotation"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type blacklistFunc func(ctx context.Context) ([]quotation.BlacklistEntry, error)

func (f blacklistFunc) ListBlacklist(ctx context.Context) ([]quotation.BlacklistEntry, error) {
	return f(ctx)
}

type rulesFunc func(ctx context.Context, c quotation.VehicleCategory) ([]quotation.PricingRule, error)

func (f rulesFunc) ListActiveRules(ctx context.Context, c quotation.VehicleCategory) ([]quotation.PricingRule, error) {
	return f(ctx, c)
}

func normalRules(ctx context.Context, c quotation.VehicleCategory) ([]quotation.PricingRule, error) {
	if c != quotation.CategoryNormal {
		return nil, nil
	}
	return []quotation.PricingRule{{
		ID:                    7,
		Category:              quotation.CategoryNormal,
		MinValue:              decimal.Zero,
		MaxValue:              decimal.NewNullDecimal(decimal.NewFromInt(180000)),
		MonthlyFee:            decimal.NewFromInt(120),
		EnrollmentFee:         decimal.NewFromInt(500),
		EnrollmentDiscountPct: decimal.NewFromInt(20),
		Active:                true,
	}}, nil
}

func fiatBlacklist(ctx context.Context) ([]quotation.BlacklistEntry, error) {
	return []quotation.BlacklistEntry{{ID: 1, Brand: "FIAT"}}, nil
}

func newTestHandler(t *testing.T, blacklist blacklistFunc, rules rulesFunc) *Handler {
	service := quotation.NewService(quotation.ServiceDeps{
		Blacklist: blacklist,
		Rules:     rules,
		Logger:    logger.NewTestLogger(t),
	})
	h, err := NewHandler(HandlerOptions{
		CustomConfig: &Config{Enabled: true, MaxJobsActive: 1, Timeout: time.Second},
		Service:      service,
		Logger:       logger.NewTestLogger(t),
	})
	require.NoError(t, err)
	return h
}

func vehicle(brand, model string, fipe int64) *Input {
	return &Input{Vehicle: VehicleInput{
		Category:  "LEVE",
		Usage:     "PARTICULAR",
		RawType:   "AUTOMOVEL",
		Brand:     brand,
		Model:     model,
		FipeValue: decimal.NewFromInt(fipe),
	}}
}

func TestHandler_Execute(t *testing.T) {
	h := newTestHandler(t, fiatBlacklist, normalRules)

	t.Run("accepted", func(t *testing.T) {
		out, err := h.Execute(context.Background(), vehicle("TOYOTA", "COROLLA", 150000))
		require.NoError(t, err)

		assert.Equal(t, "ACCEPTED", out.Kind)
		assert.Equal(t, "NORMAL", out.Category)
		assert.Equal(t, "120.00", *out.Mensalidade)
		assert.Equal(t, "500.00", *out.Adesao)
		assert.Equal(t, "400.00", *out.AdesaoDesconto)
		assert.Nil(t, out.CotaParticipacao)
		assert.Equal(t, int64(7), out.RuleID)
		assert.Nil(t, out.SaveAsLead)
	})

	t.Run("blacklisted brand", func(t *testing.T) {
		out, err := h.Execute(context.Background(), vehicle("fiat", "Uno", 30000))
		require.NoError(t, err)

		assert.Equal(t, "REJECTED", out.Kind)
		assert.Equal(t, "BLACKLISTED", out.Code)
		assert.True(t, *out.SaveAsLead)
		assert.Equal(t, "FIAT", out.Details["marca"])
		assert.Equal(t, "UNO", out.Details["modelo"])
	})

	t.Run("boundary value has no rule", func(t *testing.T) {
		out, err := h.Execute(context.Background(), vehicle("TOYOTA", "COROLLA", 180000))
		require.NoError(t, err)

		assert.Equal(t, "NO_RULE", out.Code)
		assert.False(t, *out.SaveAsLead)
		assert.Equal(t, true, out.Details["rulesConfigured"])
		assert.Equal(t, "180000.00", out.Details["valorFipe"])
	})

	t.Run("over limit", func(t *testing.T) {
		in := vehicle("VOLVO", "FH", 500000)
		in.Vehicle.Category = "UTILITARIO"

		out, err := h.Execute(context.Background(), in)
		require.NoError(t, err)

		assert.Equal(t, "OVER_LIMIT", out.Code)
		assert.Equal(t, "UTILITARIO", out.Details["categoria"])
		assert.Equal(t, "450000.00", out.Details["limite"])
	})
}

func TestHandler_Execute_LookupFailure(t *testing.T) {
	failing := func(ctx context.Context) ([]quotation.BlacklistEntry, error) {
		return nil, assert.AnError
	}
	h := newTestHandler(t, failing, normalRules)

	_, err := h.Execute(context.Background(), vehicle("TOYOTA", "COROLLA", 150000))
	require.Error(t, err)

	stdErr := errors.Normalize(err)
	assert.Equal(t, errors.ErrCodeBlacklistLookupFailed, stdErr.Code)
	assert.True(t, stdErr.Retryable)
}

func TestParseInput(t *testing.T) {
	tests := []struct {
		name      string
		variables string
		wantErr   string
	}{
		{
			name:      "valid",
			variables: `{"vehicle":{"category":"LEVE","usage":"PARTICULAR","rawType":"AUTOMOVEL","brand":"TOYOTA","model":"COROLLA","fipeValue":150000.50}}`,
		},
		{
			name:      "optional category and usage",
			variables: `{"vehicle":{"brand":"HONDA","model":"CG 160","rawType":"MOTOCICLETA","fipeValue":15000}}`,
		},
		{
			name:      "missing vehicle",
			variables: `{"brand":"TOYOTA"}`,
			wantErr:   "vehicle is required",
		},
		{
			name:      "negative fipe value",
			variables: `{"vehicle":{"brand":"TOYOTA","model":"COROLLA","fipeValue":-1}}`,
			wantErr:   "vehicle.fipeValue",
		},
		{
			name:      "unknown usage",
			variables: `{"vehicle":{"brand":"TOYOTA","model":"COROLLA","fipeValue":1,"usage":"RENTAL"}}`,
			wantErr:   "vehicle.usage",
		},
		{
			name:      "not json",
			variables: `vehicle`,
			wantErr:   "not a JSON object",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			input, err := ParseInput(tt.variables)
			if tt.wantErr == "" {
				require.NoError(t, err)
				require.NotNil(t, input)
				return
			}
			require.Error(t, err)
			stdErr := errors.Normalize(err)
			assert.Equal(t, errors.ErrCodeInputValidationFailed, stdErr.Code)
			assert.Contains(t, stdErr.Details, tt.wantErr)
		})
	}
}

func TestParseInput_KeepsDecimalPrecision(t *testing.T) {
	input, err := ParseInput(`{"vehicle":{"brand":"TOYOTA","model":"COROLLA","fipeValue":99999.99}}`)
	require.NoError(t, err)
	assert.Equal(t, "99999.99", input.Vehicle.FipeValue.String())

	v := input.Vehicle.ToVehicle()
	assert.Equal(t, quotation.UserCategoryLeve, v.Category)
	assert.Equal(t, quotation.UsageParticular, v.Usage)
}

func TestOutput_JSON(t *testing.T) {
	out := NewOutput(quotation.Rejected{Details: quotation.OverLimitDetails{
		Category:  quotation.CategoryMoto,
		FipeValue: decimal.NewFromInt(95000),
		Limit:     decimal.NewFromInt(90000),
	}})

	raw, err := json.Marshal(out)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"kind": "REJECTED",
		"code": "OVER_LIMIT",
		"saveAsLead": true,
		"cotaParticipacao": null,
		"details": {"categoria": "MOTO", "valorFipe": "95000.00", "limite": "90000.00"}
	}`, string(raw))
}

func TestOutput_MoneyKeepsCents(t *testing.T) {
	out := NewOutput(quotation.Accepted{
		Category: quotation.CategoryEspecial,
		Values: quotation.CalculateQuotationValues(quotation.PricingRule{
			MonthlyFee:            decimal.RequireFromString("189.90"),
			EnrollmentFee:         decimal.RequireFromString("333.33"),
			EnrollmentDiscountPct: decimal.NewFromInt(15),
			ParticipationQuota:    decimal.NewNullDecimal(decimal.RequireFromString("1234.56")),
		}),
	})

	raw, err := json.Marshal(out)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"kind": "ACCEPTED",
		"category": "ESPECIAL",
		"mensalidade": "189.90",
		"adesao": "333.33",
		"adesaoDesconto": "283.33",
		"cotaParticipacao": "1234.56"
	}`, string(raw))
}

func TestNewHandler_Validation(t *testing.T) {
	_, err := NewHandler(HandlerOptions{AppConfig: &config.Config{}})
	assert.Error(t, err)

	_, err = NewHandler(HandlerOptions{
		CustomConfig: &Config{Enabled: true, MaxJobsActive: 0, Timeout: time.Second},
		Service:      newTestHandler(t, fiatBlacklist, normalRules).service,
	})
	assert.Error(t, err)
}
