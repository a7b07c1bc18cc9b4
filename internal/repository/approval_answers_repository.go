package repository

import (
	"context"

	"github.com/pesio-ai/be-quote-approvals/internal/database"
	"github.com/pesio-ai/be-quote-approvals/internal/errors"
	"github.com/pesio-ai/be-quote-approvals/internal/preview"
)

// ApprovalAnswersRepository reads the answers recorded against approval rules.
type ApprovalAnswersRepository struct {
	db database.Querier
}

// NewApprovalAnswersRepository creates a new ApprovalAnswersRepository.
func NewApprovalAnswersRepository(db database.Querier) *ApprovalAnswersRepository {
	return &ApprovalAnswersRepository{db: db}
}

// FetchApprovalAnswers returns the answers of one rule for a quote, oldest
// first. A rule with no answers yields an empty slice.
func (r *ApprovalAnswersRepository) FetchApprovalAnswers(ctx context.Context, quoteID, ruleID string) ([]preview.AnswerRecord, error) {
	query := `
		SELECT id, approval_rule_id, question, answer, answered_by, answered_at
		FROM quote_approval_answers
		WHERE quote_id = $1 AND approval_rule_id = $2
		ORDER BY answered_at ASC NULLS LAST, id ASC
	`

	rows, err := r.db.Query(ctx, query, quoteID, ruleID)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to get approval answers")
	}
	defer rows.Close()

	answers := make([]preview.AnswerRecord, 0)
	for rows.Next() {
		var row approvalAnswerRow
		if err := rows.Scan(
			&row.ID,
			&row.ApprovalRuleID,
			&row.Question,
			&row.Answer,
			&row.AnsweredBy,
			&row.AnsweredAt,
		); err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to scan approval answer")
		}
		answers = append(answers, row.record())
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to read approval answers")
	}
	return answers, nil
}
