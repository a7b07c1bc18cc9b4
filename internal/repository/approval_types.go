package repository

import (
	"time"

	"github.com/pesio-ai/be-quote-approvals/internal/preview"
)

// ── Row types for quote approvals ────────────────────────────────────────────

// approvalStepRow mirrors one row of quote_approval_steps. Nullable columns
// scan into pointers.
type approvalStepRow struct {
	ID             string
	LiveApprovalID *string
	ApprovalRuleID *string
	RuleSlot       *int32
	Chain          *string
	Level          *int32
	SortOrder      *int32
	ApproverName   *string
	Approver       *string
	Title          *string
	ApproverTitle  *string
	Status         *string
	URL            *string
	Notes          *string
	AvatarURL      *string
}

func (r *approvalStepRow) scanTargets() []any {
	return []any{
		&r.ID,
		&r.LiveApprovalID,
		&r.ApprovalRuleID,
		&r.RuleSlot,
		&r.Chain,
		&r.Level,
		&r.SortOrder,
		&r.ApproverName,
		&r.Approver,
		&r.Title,
		&r.ApproverTitle,
		&r.Status,
		&r.URL,
		&r.Notes,
		&r.AvatarURL,
	}
}

// record converts the row to the flattened step shape.
func (r *approvalStepRow) record() preview.ApprovalStepRecord {
	return preview.ApprovalStepRecord{
		ID:             r.ID,
		LiveApprovalID: str(r.LiveApprovalID),
		ApprovalRuleID: str(r.ApprovalRuleID),
		Slot:           num(r.RuleSlot),
		Chain:          str(r.Chain),
		Level:          num(r.Level),
		Order:          num(r.SortOrder),
		ApproverName:   str(r.ApproverName),
		Approver:       str(r.Approver),
		Title:          str(r.Title),
		ApproverTitle:  str(r.ApproverTitle),
		Status:         str(r.Status),
		URL:            str(r.URL),
		Notes:          str(r.Notes),
		AvatarURL:      str(r.AvatarURL),
	}
}

// approvalAnswerRow mirrors one row of quote_approval_answers.
type approvalAnswerRow struct {
	ID             string
	ApprovalRuleID string
	Question       *string
	Answer         *string
	AnsweredBy     *string
	AnsweredAt     *time.Time
}

func (r *approvalAnswerRow) record() preview.AnswerRecord {
	return preview.AnswerRecord{
		ID:             r.ID,
		ApprovalRuleID: r.ApprovalRuleID,
		Question:       str(r.Question),
		Answer:         str(r.Answer),
		AnsweredBy:     str(r.AnsweredBy),
		AnsweredAt:     r.AnsweredAt,
	}
}

func str(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func num(n *int32) preview.Number {
	if n == nil {
		return preview.Number{}
	}
	return preview.NumberOf(int(*n))
}
