package client

import (
	"context"

	"github.com/pesio-ai/be-quote-approvals/internal/preview"
)

// RecordSource provides the approval steps of a quote and the answers of its
// approval rules.
type RecordSource interface {
	FetchApprovalSteps(ctx context.Context, quoteID string) ([]preview.ApprovalStepRecord, error)
	FetchApprovalAnswers(ctx context.Context, quoteID, ruleID string) ([]preview.AnswerRecord, error)
}

var (
	_ RecordSource          = (*RecordsClient)(nil)
	_ preview.AnswerFetcher = (*CachedAnswerSource)(nil)
)
