package postgres

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jfs-fashion/storefront/internal/domain/promotion"
)

const (
	findPromotionSQL = `SELECT code, discount_type, value, description, min_order_amount,
		max_discount, valid_from, valid_until, max_uses, uses
		FROM promotions WHERE UPPER(code) = UPPER($1) AND active = TRUE`

	incrementPromotionUsesSQL = `UPDATE promotions SET uses = uses + 1
		WHERE UPPER(code) = UPPER($1) AND (max_uses = 0 OR uses < max_uses)`

	upsertPromotionSQL = `INSERT INTO promotions (code, discount_type, value, description,
		min_order_amount, max_discount, valid_from, valid_until, max_uses)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (code) DO UPDATE SET
			discount_type = EXCLUDED.discount_type,
			value = EXCLUDED.value,
			description = EXCLUDED.description,
			min_order_amount = EXCLUDED.min_order_amount,
			max_discount = EXCLUDED.max_discount,
			valid_from = EXCLUDED.valid_from,
			valid_until = EXCLUDED.valid_until,
			max_uses = EXCLUDED.max_uses,
			active = TRUE`
)

var _ promotion.Repository = (*PromotionRepository)(nil)

// PromotionRepository implements promotion.Repository.
type PromotionRepository struct {
	pool *pgxpool.Pool
}

// NewPromotionRepository returns a PromotionRepository that uses the given pool.
func NewPromotionRepository(pool *pgxpool.Pool) *PromotionRepository {
	return &PromotionRepository{pool: pool}
}

// FindByCode looks up an active promotion by code, case-insensitively.
func (r *PromotionRepository) FindByCode(ctx context.Context, code string) (*promotion.Rule, error) {
	rows, err := r.pool.Query(ctx, findPromotionSQL, code)
	if err != nil {
		return nil, errors.Wrapf(err, "find promotion %q", code)
	}
	rule, err := pgx.CollectExactlyOneRow(rows, scanRule)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, promotion.ErrInvalidCode
		}
		return nil, errors.Wrapf(err, "find promotion %q", code)
	}
	return &rule, nil
}

// IncrementUses records one redemption. A promotion already at its limit
// yields promotion.ErrUsageLimitReached.
func (r *PromotionRepository) IncrementUses(ctx context.Context, code string) error {
	tag, err := r.pool.Exec(ctx, incrementPromotionUsesSQL, code)
	if err != nil {
		return errors.Wrapf(err, "increment uses of %q", code)
	}
	if tag.RowsAffected() == 0 {
		return promotion.ErrUsageLimitReached
	}
	return nil
}

// Upsert inserts rules or refreshes existing ones, keeping their use counts.
func (r *PromotionRepository) Upsert(ctx context.Context, rules []promotion.Rule) error {
	if len(rules) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, rule := range rules {
		batch.Queue(upsertPromotionSQL,
			rule.Code, string(rule.DiscountType), rule.Value, rule.Description,
			rule.MinOrderAmount, rule.MaxDiscount, rule.ValidFrom, rule.ValidUntil, rule.MaxUses,
		)
	}
	if err := r.pool.SendBatch(ctx, batch).Close(); err != nil {
		return errors.Wrap(err, "upsert promotions")
	}
	return nil
}

func scanRule(row pgx.CollectableRow) (promotion.Rule, error) {
	var (
		rule         promotion.Rule
		discountType string
	)
	err := row.Scan(
		&rule.Code, &discountType, &rule.Value, &rule.Description, &rule.MinOrderAmount,
		&rule.MaxDiscount, &rule.ValidFrom, &rule.ValidUntil, &rule.MaxUses, &rule.Uses,
	)
	rule.DiscountType = promotion.DiscountType(discountType)
	return rule, err
}
