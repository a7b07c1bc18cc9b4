package repository

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/pesio-ai/be-quote-approvals/internal/database"
	"github.com/pesio-ai/be-quote-approvals/internal/errors"
	"github.com/pesio-ai/be-quote-approvals/internal/preview"
)

// ApprovalStepsRepository reads the flattened approval steps of quotes.
type ApprovalStepsRepository struct {
	db database.Querier
}

// NewApprovalStepsRepository creates a new ApprovalStepsRepository.
func NewApprovalStepsRepository(db database.Querier) *ApprovalStepsRepository {
	return &ApprovalStepsRepository{db: db}
}

// FetchApprovalSteps returns every step of a quote in the order the approval
// engine flattened them. Rows carry no display ordering of their own; the
// preview builders sort.
func (r *ApprovalStepsRepository) FetchApprovalSteps(ctx context.Context, quoteID string) ([]preview.ApprovalStepRecord, error) {
	query := `
		SELECT id, live_approval_id, approval_rule_id, rule_slot,
		       chain, level, sort_order,
		       approver_name, approver, title, approver_title,
		       status, url, notes, avatar_url
		FROM quote_approval_steps
		WHERE quote_id = $1
		ORDER BY flattened_index ASC, id ASC
	`

	rows, err := r.db.Query(ctx, query, quoteID)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to get approval steps")
	}
	defer rows.Close()

	return r.scanRows(rows)
}

func (r *ApprovalStepsRepository) scanRows(rows pgx.Rows) ([]preview.ApprovalStepRecord, error) {
	steps := make([]preview.ApprovalStepRecord, 0)
	for rows.Next() {
		var row approvalStepRow
		if err := rows.Scan(row.scanTargets()...); err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to scan approval step")
		}
		steps = append(steps, row.record())
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to read approval steps")
	}
	return steps, nil
}
