package service

import (
	"context"
	stderrors "errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pesio-ai/be-quote-approvals/internal/errors"
	"github.com/pesio-ai/be-quote-approvals/internal/logger"
	"github.com/pesio-ai/be-quote-approvals/internal/preview"
)

type stubSteps struct {
	mu      sync.Mutex
	records []preview.ApprovalStepRecord
	err     error
	calls   []string
}

func (s *stubSteps) FetchApprovalSteps(_ context.Context, quoteID string) ([]preview.ApprovalStepRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, quoteID)
	return s.records, s.err
}

func (s *stubSteps) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.calls)
}

type stubAnswerSource struct {
	answers map[string][]preview.AnswerRecord
	err     error
}

func (s *stubAnswerSource) FetchApprovalAnswers(_ context.Context, _ string, ruleID string) ([]preview.AnswerRecord, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.answers[ruleID], nil
}

func newTestPreviewService(steps StepSource, answers preview.AnswerFetcher) *ApprovalPreviewService {
	colors := preview.NewColorResolver(preview.ColorConfig{
		StatusColorMap: "Approved=#2e844a;Pending=#dd7a01",
	})
	return NewApprovalPreviewService(
		steps,
		answers,
		preview.NewEnricher(colors, "/resource/icons"),
		preview.TableOptions{MaxLevel: 3, DividerLevel: 2},
		logger.Nop(),
	)
}

func quoteSteps() []preview.ApprovalStepRecord {
	return []preview.ApprovalStepRecord{
		{ID: "s1", ApprovalRuleID: "r1", Slot: preview.NumberOf(1), Chain: "Finance", Level: preview.NumberOf(1), Order: preview.NumberOf(1), ApproverName: "Ana", Status: "Approved"},
		{ID: "s2", ApprovalRuleID: "r2", Slot: preview.NumberOf(1), Chain: "Legal", Level: preview.NumberOf(2), Order: preview.NumberOf(2), ApproverName: "Ben", Status: "Pending"},
		{ID: "s3", ApprovalRuleID: "r1", Slot: preview.NumberOf(2), Chain: "Finance", Level: preview.NumberOf(2), Order: preview.NumberOf(3), ApproverName: "Cy", Status: "Approved"},
	}
}

func TestLoadMatrix_MissingQuoteID(t *testing.T) {
	steps := &stubSteps{}
	svc := newTestPreviewService(steps, &stubAnswerSource{})

	view, err := svc.LoadMatrix(context.Background(), "  ")

	require.Error(t, err)
	assert.Nil(t, view)
	assert.True(t, errors.Is(err, errors.ErrCodeConfiguration))
	assert.Equal(t, "Quote ID is required to load approval preview data", err.Error())
	assert.Zero(t, steps.callCount(), "no fetch without a quote id")
}

func TestLoadMatrix_BuildsMatrixWithAnswers(t *testing.T) {
	steps := &stubSteps{records: quoteSteps()}
	answers := &stubAnswerSource{answers: map[string][]preview.AnswerRecord{
		"r1": {{ID: "a1", ApprovalRuleID: "r1", Question: "Budget approved?", Answer: "Yes"}},
	}}
	svc := newTestPreviewService(steps, answers)

	view, err := svc.LoadMatrix(context.Background(), "Q-1")
	require.NoError(t, err)

	assert.NotEmpty(t, view.LoadID)
	assert.Equal(t, "Q-1", view.QuoteID)
	assert.Equal(t, []float64{1, 2}, view.Levels)
	require.Len(t, view.Chains, 2)
	assert.Equal(t, "Finance", view.Chains[0].Name)
	assert.Equal(t, "Legal", view.Chains[1].Name)

	m := preview.Matrix{Chains: view.Chains, Levels: view.Levels, Rows: view.Rows}
	cell, ok := m.Cell(2, "Finance")
	require.True(t, ok)
	require.Len(t, cell.Items, 1)
	item := cell.Items[0]
	assert.Equal(t, "r1-2", item.Key)
	assert.Equal(t, "#2e844a", item.StatusColor)
	require.Len(t, item.Answers, 1)
	assert.Equal(t, "Yes", item.Answers[0].Answer)

	legal, ok := m.Cell(2, "Legal")
	require.True(t, ok)
	require.Len(t, legal.Items, 1)
	assert.Empty(t, legal.Items[0].Answers)
	assert.Equal(t, "#dd7a01", legal.Items[0].StatusColor)
}

func TestLoadMatrix_StepFetchFailure(t *testing.T) {
	steps := &stubSteps{err: stderrors.New("connection refused")}
	svc := newTestPreviewService(steps, &stubAnswerSource{})

	view, err := svc.LoadMatrix(context.Background(), "Q-1")

	require.Error(t, err)
	assert.Nil(t, view)
	assert.True(t, errors.Is(err, errors.ErrCodeRemoteFetch))
	assert.Contains(t, err.Error(), "connection refused")
}

func TestLoadMatrix_AnswerFetchFailureFailsWholeLoad(t *testing.T) {
	steps := &stubSteps{records: quoteSteps()}
	svc := newTestPreviewService(steps, &stubAnswerSource{err: stderrors.New("answers unavailable")})

	view, err := svc.LoadMatrix(context.Background(), "Q-1")

	require.Error(t, err)
	assert.Nil(t, view)
	assert.True(t, errors.Is(err, errors.ErrCodeRemoteFetch))
}

func TestLoadTable_InlineFlowData(t *testing.T) {
	steps := &stubSteps{}
	svc := newTestPreviewService(steps, &stubAnswerSource{})

	view, err := svc.LoadTable(context.Background(), &TableRequest{
		FlowData: `[{"Id":"x","Chain":"A","Level":"1","Order":1,"ApproverName":"Ana"}]`,
	})
	require.NoError(t, err)

	assert.True(t, view.Inline)
	assert.Zero(t, steps.callCount(), "inline data is used without fetching")
	assert.Equal(t, 3, view.MaxLevel)
	assert.Equal(t, 2, view.DividerLevel)
	require.Len(t, view.Rows, 1)
	assert.Equal(t, "x", view.Rows[0].Key)
	require.Len(t, view.Chains, 1)
	assert.Len(t, view.Chains[0].Levels, 3)
}

func TestLoadTable_EmptyInlineArray(t *testing.T) {
	steps := &stubSteps{}
	svc := newTestPreviewService(steps, &stubAnswerSource{})

	view, err := svc.LoadTable(context.Background(), &TableRequest{FlowData: "[]"})
	require.NoError(t, err)

	assert.True(t, view.Inline)
	assert.Empty(t, view.Rows)
	assert.Zero(t, steps.callCount())
}

func TestLoadTable_UnparseableFlowDataFallsBackToFetch(t *testing.T) {
	steps := &stubSteps{records: quoteSteps()}
	svc := newTestPreviewService(steps, &stubAnswerSource{})

	for _, flow := range []string{"not json", "null", `{"Id":"x"}`} {
		view, err := svc.LoadTable(context.Background(), &TableRequest{QuoteID: "Q-1", FlowData: flow})
		require.NoErrorf(t, err, "flow data %q", flow)
		assert.Falsef(t, view.Inline, "flow data %q", flow)
		assert.Len(t, view.Rows, 4, "Legal is padded at level 1")
	}
	assert.Equal(t, 3, steps.callCount())
}

func TestLoadTable_MissingQuoteIDWithoutInlineData(t *testing.T) {
	steps := &stubSteps{}
	svc := newTestPreviewService(steps, &stubAnswerSource{})

	_, err := svc.LoadTable(context.Background(), &TableRequest{FlowData: "garbage"})

	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrCodeConfiguration))
	assert.Zero(t, steps.callCount())
}

func TestLoadTable_RequestOverridesLevels(t *testing.T) {
	svc := newTestPreviewService(&stubSteps{records: quoteSteps()}, &stubAnswerSource{})

	view, err := svc.LoadTable(context.Background(), &TableRequest{QuoteID: "Q-1", MaxLevel: 1, DividerLevel: 1})
	require.NoError(t, err)

	assert.Equal(t, 1, view.MaxLevel)
	assert.Equal(t, 1, view.DividerLevel)
	for _, r := range view.Rows {
		assert.Equal(t, 1, r.Level)
	}
}

func TestLoadTable_MaxLevelAboveLimit(t *testing.T) {
	steps := &stubSteps{records: quoteSteps()}
	svc := newTestPreviewService(steps, &stubAnswerSource{})

	_, err := svc.LoadTable(context.Background(), &TableRequest{QuoteID: "Q-1", MaxLevel: 2147483647})

	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrCodeInvalidInput))
	assert.Zero(t, steps.callCount())

	view, err := svc.LoadTable(context.Background(), &TableRequest{QuoteID: "Q-1", MaxLevel: preview.MaxLevelLimit})
	require.NoError(t, err)
	assert.Equal(t, preview.MaxLevelLimit, view.MaxLevel)
}

func TestLoadTable_FetchFailure(t *testing.T) {
	svc := newTestPreviewService(&stubSteps{err: stderrors.New("boom")}, &stubAnswerSource{})

	_, err := svc.LoadTable(context.Background(), &TableRequest{QuoteID: "Q-1"})

	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrCodeRemoteFetch))
}
