package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"cotacao-workers/internal/common/logger"
	"cotacao-workers/internal/quotation"

	"github.com/redis/go-redis/v9"
)

const pricingRulesKeyPrefix = "pricing_rules:"

const selectActivePricingRules = `
	SELECT id, category, min_value, max_value, monthly_fee, enrollment_fee,
	       enrollment_discount_pct, participation_quota, active
	FROM pricing_rules
	WHERE category = $1 AND active = TRUE
	ORDER BY min_value, id`

type PricingRuleRepository struct {
	db    *sql.DB
	cache referenceCache
}

func NewPricingRuleRepository(db *sql.DB, rdb redis.Cmdable, ttl time.Duration, log logger.Logger) *PricingRuleRepository {
	return &PricingRuleRepository{
		db:    db,
		cache: referenceCache{client: rdb, ttl: ttl, logger: log},
	}
}

func pricingRulesKey(category quotation.VehicleCategory) string {
	return pricingRulesKeyPrefix + string(category)
}

// ListActiveRules returns the active rules of category ordered by range start.
func (r *PricingRuleRepository) ListActiveRules(ctx context.Context, category quotation.VehicleCategory) ([]quotation.PricingRule, error) {
	key := pricingRulesKey(category)

	var cached []quotation.PricingRule
	if r.cache.get(ctx, "pricing_rules", key, &cached) {
		return cached, nil
	}

	rows, err := r.db.QueryContext(ctx, selectActivePricingRules, string(category))
	if err != nil {
		return nil, fmt.Errorf("query pricing rules: %w", err)
	}
	defer rows.Close()

	rules := make([]quotation.PricingRule, 0)
	for rows.Next() {
		var (
			rule        quotation.PricingRule
			rowCategory string
		)
		if err := rows.Scan(
			&rule.ID, &rowCategory, &rule.MinValue, &rule.MaxValue, &rule.MonthlyFee,
			&rule.EnrollmentFee, &rule.EnrollmentDiscountPct, &rule.ParticipationQuota, &rule.Active,
		); err != nil {
			return nil, fmt.Errorf("scan pricing rule: %w", err)
		}
		rule.Category = quotation.VehicleCategory(rowCategory)
		rules = append(rules, rule)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate pricing rules: %w", err)
	}

	r.cache.set(ctx, key, rules)
	return rules, nil
}

// Invalidate drops the cached rules of the given categories, or of every
// category when none are given.
func (r *PricingRuleRepository) Invalidate(ctx context.Context, categories ...quotation.VehicleCategory) error {
	if len(categories) == 0 {
		categories = quotation.Categories
	}
	keys := make([]string, 0, len(categories))
	for _, c := range categories {
		keys = append(keys, pricingRulesKey(c))
	}
	return r.cache.invalidate(ctx, keys...)
}
