package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/pesio-ai/be-quote-approvals/internal/errors"
	"github.com/pesio-ai/be-quote-approvals/internal/logger"
	"github.com/pesio-ai/be-quote-approvals/internal/preview"
)

// StepSource returns the flattened approval steps of a quote.
type StepSource interface {
	FetchApprovalSteps(ctx context.Context, quoteID string) ([]preview.ApprovalStepRecord, error)
}

// errMissingQuoteID is reported when a load has neither a quote id nor usable
// inline data.
const errMissingQuoteID = "Quote ID is required to load approval preview data"

// MatrixView is the result of one matrix load.
type MatrixView struct {
	LoadID   string              `json:"loadId"`
	QuoteID  string              `json:"quoteId"`
	Chains   []preview.Chain     `json:"chains"`
	Levels   []float64           `json:"levels"`
	Rows     []preview.MatrixRow `json:"rows"`
	LoadedAt time.Time           `json:"loadedAt"`
}

// TableRequest describes a grouped table load. FlowData, when it parses to a
// record array, is used instead of fetching.
type TableRequest struct {
	QuoteID      string `json:"quote_id"`
	FlowData     string `json:"flow_data"`
	MaxLevel     int    `json:"max_level"`
	DividerLevel int    `json:"divider_level"`
}

// TableView is the result of one grouped table load.
type TableView struct {
	LoadID       string                `json:"loadId"`
	QuoteID      string                `json:"quoteId,omitempty"`
	Inline       bool                  `json:"inline"`
	MaxLevel     int                   `json:"maxLevel"`
	DividerLevel int                   `json:"dividerLevel"`
	Chains       []preview.ChainColumn `json:"chains"`
	Rows         []preview.TableRow    `json:"rows"`
	LoadedAt     time.Time             `json:"loadedAt"`
}

// ApprovalPreviewService loads approval steps and builds the matrix and table
// views.
type ApprovalPreviewService struct {
	steps    StepSource
	answers  preview.AnswerFetcher
	enricher *preview.Enricher
	table    preview.TableOptions
	log      *logger.Logger
	now      func() time.Time
}

// NewApprovalPreviewService creates a new ApprovalPreviewService.
func NewApprovalPreviewService(
	steps StepSource,
	answers preview.AnswerFetcher,
	enricher *preview.Enricher,
	tableDefaults preview.TableOptions,
	log *logger.Logger,
) *ApprovalPreviewService {
	return &ApprovalPreviewService{
		steps:    steps,
		answers:  answers,
		enricher: enricher,
		table:    tableDefaults,
		log:      log,
		now:      time.Now,
	}
}

// ── Matrix ────────────────────────────────────────────────────────────────────

// LoadMatrix fetches the quote's steps, enriches them, joins rule answers and
// builds the level × chain matrix. Nothing is returned unless every step
// succeeds.
func (s *ApprovalPreviewService) LoadMatrix(ctx context.Context, quoteID string) (*MatrixView, error) {
	quoteID = strings.TrimSpace(quoteID)
	if quoteID == "" {
		return nil, errors.Configuration(errMissingQuoteID)
	}

	loadID := uuid.NewString()
	start := s.now()

	raw, err := s.steps.FetchApprovalSteps(ctx, quoteID)
	if err != nil {
		s.log.Error().Err(err).Str("quote_id", quoteID).Str("load_id", loadID).Msg("Failed to fetch approval steps")
		return nil, errors.RemoteFetch(err, "failed to fetch approval steps")
	}

	records := s.enricher.Enrich(raw)

	if err := preview.JoinAnswers(ctx, records, quoteID, s.answers); err != nil {
		s.log.Error().Err(err).Str("quote_id", quoteID).Str("load_id", loadID).Msg("Failed to fetch approval answers")
		return nil, errors.RemoteFetch(err, "failed to fetch approval answers")
	}

	m := preview.BuildMatrix(records)

	s.log.Info().
		Str("quote_id", quoteID).
		Str("load_id", loadID).
		Int("steps", len(records)).
		Int("chains", len(m.Chains)).
		Int("levels", len(m.Levels)).
		Dur("elapsed", s.now().Sub(start)).
		Msg("Approval matrix built")

	return &MatrixView{
		LoadID:   loadID,
		QuoteID:  quoteID,
		Chains:   m.Chains,
		Levels:   m.Levels,
		Rows:     m.Rows,
		LoadedAt: s.now(),
	}, nil
}

// ── Grouped table ─────────────────────────────────────────────────────────────

// LoadTable builds the grouped table from inline data when it parses, else
// from the quote's steps. Without a quote id and usable inline data it fails
// with a configuration error before any fetch.
func (s *ApprovalPreviewService) LoadTable(ctx context.Context, req *TableRequest) (*TableView, error) {
	if req.MaxLevel > preview.MaxLevelLimit {
		return nil, errors.InvalidInput("max_level", fmt.Sprintf("must not exceed %d", preview.MaxLevelLimit))
	}
	opts := s.tableOptions(req)
	loadID := uuid.NewString()
	quoteID := strings.TrimSpace(req.QuoteID)

	raw, inline := s.decodeInline(req.FlowData, loadID)
	if !inline {
		if quoteID == "" {
			return nil, errors.Configuration(errMissingQuoteID)
		}
		fetched, err := s.steps.FetchApprovalSteps(ctx, quoteID)
		if err != nil {
			s.log.Error().Err(err).Str("quote_id", quoteID).Str("load_id", loadID).Msg("Failed to fetch approval steps")
			return nil, errors.RemoteFetch(err, "failed to fetch approval steps")
		}
		raw = fetched
	}

	tbl := preview.BuildGroupedTable(raw, opts)

	s.log.Info().
		Str("quote_id", quoteID).
		Str("load_id", loadID).
		Bool("inline", inline).
		Int("chains", len(tbl.Chains)).
		Int("rows", len(tbl.Rows)).
		Msg("Approval table built")

	return &TableView{
		LoadID:       loadID,
		QuoteID:      quoteID,
		Inline:       inline,
		MaxLevel:     opts.MaxLevel,
		DividerLevel: opts.DividerLevel,
		Chains:       tbl.Chains,
		Rows:         tbl.Rows,
		LoadedAt:     s.now(),
	}, nil
}

// decodeInline parses inline flow data. A parse failure is logged and treated
// as absent so the caller falls back to fetching.
func (s *ApprovalPreviewService) decodeInline(flowData, loadID string) ([]preview.ApprovalStepRecord, bool) {
	if strings.TrimSpace(flowData) == "" {
		return nil, false
	}
	records, err := preview.DecodeRecords([]byte(flowData))
	if err != nil {
		s.log.Warn().Err(err).Str("load_id", loadID).Msg("Inline flow data is not a record list; falling back to fetch")
		return nil, false
	}
	if records == nil {
		return nil, false
	}
	return records, true
}

func (s *ApprovalPreviewService) tableOptions(req *TableRequest) preview.TableOptions {
	opts := s.table
	if req.MaxLevel > 0 {
		opts.MaxLevel = req.MaxLevel
	}
	if req.DividerLevel > 0 {
		opts.DividerLevel = req.DividerLevel
	}
	if opts.MaxLevel <= 0 {
		opts.MaxLevel = preview.DefaultMaxLevel
	}
	if opts.DividerLevel <= 0 {
		opts.DividerLevel = preview.DefaultDividerLevel
	}
	return opts
}
