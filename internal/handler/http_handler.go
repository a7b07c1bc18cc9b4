package handler

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/pesio-ai/be-quote-approvals/internal/errors"
	"github.com/pesio-ai/be-quote-approvals/internal/logger"
	"github.com/pesio-ai/be-quote-approvals/internal/service"
)

// AnswerCache drops cached approval answers of a quote.
type AnswerCache interface {
	Invalidate(ctx context.Context, quoteID string) error
}

// HealthChecker reports whether a dependency is reachable.
type HealthChecker interface {
	Ping(ctx context.Context) error
}

const healthCheckTimeout = 2 * time.Second

type healthCheck struct {
	name    string
	checker HealthChecker
}

// HTTPHandler handles HTTP requests
type HTTPHandler struct {
	boards    *service.Boards
	preview   *service.ApprovalPreviewService
	lineItems *service.LineItemService
	cache     AnswerCache
	checks    []healthCheck
	log       *logger.Logger
}

// NewHTTPHandler creates a new HTTP handler. cache may be nil.
func NewHTTPHandler(
	boards *service.Boards,
	preview *service.ApprovalPreviewService,
	lineItems *service.LineItemService,
	cache AnswerCache,
	log *logger.Logger,
) *HTTPHandler {
	return &HTTPHandler{
		boards:    boards,
		preview:   preview,
		lineItems: lineItems,
		cache:     cache,
		log:       log,
	}
}

// AddHealthCheck makes /health report on the named dependency.
func (h *HTTPHandler) AddHealthCheck(name string, checker HealthChecker) {
	h.checks = append(h.checks, healthCheck{name: name, checker: checker})
}

// Routes registers every endpoint on a new mux.
func (h *HTTPHandler) Routes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", h.Health)

	mux.HandleFunc("/api/v1/quotes/approval-matrix", h.ReloadMatrix)
	mux.HandleFunc("/api/v1/quotes/approval-matrix/state", h.GetMatrixState)
	mux.HandleFunc("/api/v1/quotes/approval-table", h.GetApprovalTable)
	mux.HandleFunc("/api/v1/quotes/line-items", h.ListLineItems)

	return mux
}

// Health handles GET /health. It answers 503 when any registered dependency
// fails its ping.
func (h *HTTPHandler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
	defer cancel()

	body := map[string]any{"status": "healthy"}
	status := http.StatusOK

	if len(h.checks) > 0 {
		results := make(map[string]string, len(h.checks))
		for _, c := range h.checks {
			if err := c.checker.Ping(ctx); err != nil {
				h.log.Warn().Err(err).Str("dependency", c.name).Msg("Health check failed")
				results[c.name] = err.Error()
				status = http.StatusServiceUnavailable
				continue
			}
			results[c.name] = "ok"
		}
		body["checks"] = results
	}
	if status != http.StatusOK {
		body["status"] = "unhealthy"
	}
	writeJSON(w, status, body)
}

// ReloadMatrix handles GET /api/v1/quotes/approval-matrix. It reloads the
// quote's board and returns the resulting view model. With refresh=true the
// cached answers of the quote are dropped first.
func (h *HTTPHandler) ReloadMatrix(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	quoteID := strings.TrimSpace(r.URL.Query().Get("quote_id"))

	if h.cache != nil && quoteID != "" && r.URL.Query().Get("refresh") == "true" {
		if err := h.cache.Invalidate(r.Context(), quoteID); err != nil {
			h.log.Warn().Err(err).Str("quote_id", quoteID).Msg("Failed to invalidate cached approval answers")
		}
	}

	state, err := h.boards.Reload(r.Context(), quoteID)
	switch {
	case err == nil, stderrors.Is(err, service.ErrSuperseded):
		writeJSON(w, http.StatusOK, state)
	default:
		writeJSON(w, statusForError(err), map[string]any{
			"error": err.Error(),
			"code":  errors.CodeOf(err),
			"state": state,
		})
	}
}

// GetMatrixState handles GET /api/v1/quotes/approval-matrix/state.
func (h *HTTPHandler) GetMatrixState(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	quoteID := strings.TrimSpace(r.URL.Query().Get("quote_id"))
	if quoteID == "" {
		h.writeError(w, errors.InvalidInput("quote_id", "quote id is required"))
		return
	}

	board, ok := h.boards.Lookup(quoteID)
	if !ok {
		h.writeError(w, errors.NotFound("approval matrix", quoteID))
		return
	}
	writeJSON(w, http.StatusOK, board.State())
}

// GetApprovalTable handles GET and POST /api/v1/quotes/approval-table.
func (h *HTTPHandler) GetApprovalTable(w http.ResponseWriter, r *http.Request) {
	var req service.TableRequest

	switch r.Method {
	case http.MethodGet:
		q := r.URL.Query()
		req.QuoteID = q.Get("quote_id")
		var err error
		if req.MaxLevel, err = optionalInt(q.Get("max_level"), "max_level"); err != nil {
			h.writeError(w, err)
			return
		}
		if req.DividerLevel, err = optionalInt(q.Get("divider_level"), "divider_level"); err != nil {
			h.writeError(w, err)
			return
		}
	case http.MethodPost:
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	view, err := h.preview.LoadTable(r.Context(), &req)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// ListLineItems handles GET /api/v1/quotes/line-items.
func (h *HTTPHandler) ListLineItems(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	q := r.URL.Query()
	tbl, err := h.lineItems.ListLineItems(r.Context(), &service.ListLineItemsRequest{
		QuoteID: q.Get("quote_id"),
		Fields:  strings.Split(q.Get("fields"), ","),
		Family:  q.Get("family"),
	})
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tbl)
}

func (h *HTTPHandler) writeError(w http.ResponseWriter, err error) {
	status := statusForError(err)
	if status >= http.StatusInternalServerError {
		h.log.Error().Err(err).Msg("Request failed")
	}
	writeJSON(w, status, map[string]any{
		"error": err.Error(),
		"code":  errors.CodeOf(err),
	})
}

func statusForError(err error) int {
	switch errors.CodeOf(err) {
	case errors.ErrCodeConfiguration, errors.ErrCodeInvalidInput:
		return http.StatusBadRequest
	case errors.ErrCodeNotFound:
		return http.StatusNotFound
	case errors.ErrCodeRemoteFetch:
		return http.StatusBadGateway
	case errors.ErrCodeUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func optionalInt(raw, field string) (int, error) {
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return 0, errors.InvalidInput(field, "must be a non-negative integer")
	}
	return v, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
