package service

import (
	"context"
	"strings"

	"github.com/pesio-ai/be-quote-approvals/internal/errors"
	"github.com/pesio-ai/be-quote-approvals/internal/lineitems"
	"github.com/pesio-ai/be-quote-approvals/internal/logger"
)

// LineItemSource returns the line items of a quote as generic field maps,
// optionally filtered by product family.
type LineItemSource interface {
	ListQuoteLineItems(ctx context.Context, quoteID, family string) ([]map[string]any, error)
}

// LineItemService handles the quote line item table
type LineItemService struct {
	items LineItemSource
	log   *logger.Logger
}

// NewLineItemService creates a new line item service
func NewLineItemService(items LineItemSource, log *logger.Logger) *LineItemService {
	return &LineItemService{items: items, log: log}
}

// ListLineItemsRequest represents a line item table request
type ListLineItemsRequest struct {
	QuoteID string
	Fields  []string
	Family  string
}

// LineItemTable is the line item table view.
type LineItemTable struct {
	Title   string             `json:"title"`
	Headers []lineitems.Header `json:"headers"`
	Items   []map[string]any   `json:"items"`
}

// ListLineItems loads a quote's line items and shapes them for the configured
// fields.
func (s *LineItemService) ListLineItems(ctx context.Context, req *ListLineItemsRequest) (*LineItemTable, error) {
	quoteID := strings.TrimSpace(req.QuoteID)
	if quoteID == "" {
		return nil, errors.InvalidInput("quote_id", "quote id is required")
	}

	fields := lineitems.ConfiguredFields(req.Fields...)
	if len(fields) == 0 {
		return nil, errors.InvalidInput("fields", "at least one field is required")
	}

	family := strings.TrimSpace(req.Family)
	rows, err := s.items.ListQuoteLineItems(ctx, quoteID, family)
	if err != nil {
		s.log.Error().Err(err).Str("quote_id", quoteID).Msg("Failed to list quote line items")
		return nil, errors.RemoteFetch(err, "failed to list quote line items")
	}

	s.log.Debug().
		Str("quote_id", quoteID).
		Str("family", family).
		Int("items", len(rows)).
		Msg("Quote line items listed")

	return &LineItemTable{
		Title:   lineitems.Title(family),
		Headers: lineitems.Headers(fields),
		Items:   lineitems.Process(rows, fields),
	}, nil
}
