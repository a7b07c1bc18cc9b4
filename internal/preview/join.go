package preview

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// answerFetchConcurrency bounds in-flight answer fetches per join.
const answerFetchConcurrency = 8

// AnswerFetcher retrieves the answers recorded for one approval rule of a quote.
type AnswerFetcher interface {
	FetchApprovalAnswers(ctx context.Context, quoteID, ruleID string) ([]AnswerRecord, error)
}

// RuleIDs returns the distinct non-empty approval rule ids in first-seen order.
func RuleIDs(records []EnrichedRecord) []string {
	seen := make(map[string]struct{}, len(records))
	ids := make([]string, 0, len(records))
	for _, r := range records {
		if r.ApprovalRuleID == "" {
			continue
		}
		if _, ok := seen[r.ApprovalRuleID]; ok {
			continue
		}
		seen[r.ApprovalRuleID] = struct{}{}
		ids = append(ids, r.ApprovalRuleID)
	}
	return ids
}

// JoinAnswers fetches answers once per distinct rule id, concurrently, and
// attaches them to every record sharing that rule. The join is all or
// nothing: if any fetch fails the error is returned and records are left
// untouched.
func JoinAnswers(ctx context.Context, records []EnrichedRecord, quoteID string, fetcher AnswerFetcher) error {
	ruleIDs := RuleIDs(records)
	results := make([][]AnswerRecord, len(ruleIDs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(answerFetchConcurrency)
	for i, ruleID := range ruleIDs {
		g.Go(func() error {
			answers, err := fetcher.FetchApprovalAnswers(gctx, quoteID, ruleID)
			if err != nil {
				return fmt.Errorf("fetch answers for rule %s: %w", ruleID, err)
			}
			results[i] = answers
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	byRule := make(map[string][]AnswerRecord, len(ruleIDs))
	for i, ruleID := range ruleIDs {
		byRule[ruleID] = results[i]
	}

	for i := range records {
		answers := byRule[records[i].ApprovalRuleID]
		if len(answers) == 0 {
			records[i].Answers = []AnswerRecord{}
			continue
		}
		records[i].Answers = answers
	}
	return nil
}
