package repository

import (
	"context"

	"github.com/pesio-ai/be-quote-approvals/internal/database"
	"github.com/pesio-ai/be-quote-approvals/internal/errors"
)

// QuoteLineItemRepository reads quote line items as field maps. Each row is
// the line item's columns plus its product under "Product2", so dotted field
// paths resolve against nested objects.
type QuoteLineItemRepository struct {
	db database.Querier
}

// NewQuoteLineItemRepository creates a new QuoteLineItemRepository.
func NewQuoteLineItemRepository(db database.Querier) *QuoteLineItemRepository {
	return &QuoteLineItemRepository{db: db}
}

// ListQuoteLineItems returns the line items of a quote, optionally limited to
// one product family, ordered by line number.
func (r *QuoteLineItemRepository) ListQuoteLineItems(ctx context.Context, quoteID, family string) ([]map[string]any, error) {
	query := `
		SELECT to_jsonb(li) - 'quote_id'
		       || jsonb_build_object('Product2', to_jsonb(p))
		FROM quote_line_items li
		LEFT JOIN products p ON p.id = li.product_id
		WHERE li.quote_id = $1
		  AND ($2 = '' OR p.family = $2)
		ORDER BY li.line_number ASC
	`

	rows, err := r.db.Query(ctx, query, quoteID, family)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to list quote line items")
	}
	defer rows.Close()

	items := make([]map[string]any, 0)
	for rows.Next() {
		var item map[string]any
		if err := rows.Scan(&item); err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to scan quote line item")
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to read quote line items")
	}
	return items, nil
}
