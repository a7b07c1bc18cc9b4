package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/pesio-ai/be-quote-approvals/internal/preview"
)

// maxErrorBody bounds how much of an error response is kept.
const maxErrorBody = 512

// RecordsClient is a client for the remote records API that owns quote
// approval data.
type RecordsClient struct {
	baseURL string
	token   string
	http    *http.Client
}

// NewRecordsClient creates a new records API client
func NewRecordsClient(baseURL, token string, timeout time.Duration) *RecordsClient {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &RecordsClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		http:    &http.Client{Timeout: timeout},
	}
}

// FetchApprovalSteps returns the flattened approval steps of a quote.
func (c *RecordsClient) FetchApprovalSteps(ctx context.Context, quoteID string) ([]preview.ApprovalStepRecord, error) {
	path := fmt.Sprintf("/api/v1/quotes/%s/approval-steps", url.PathEscape(quoteID))

	var steps []preview.ApprovalStepRecord
	if err := c.get(ctx, path, &steps); err != nil {
		return nil, fmt.Errorf("failed to fetch approval steps: %w", err)
	}
	if steps == nil {
		steps = []preview.ApprovalStepRecord{}
	}
	return steps, nil
}

// FetchApprovalAnswers returns the answers recorded for one rule of a quote.
func (c *RecordsClient) FetchApprovalAnswers(ctx context.Context, quoteID, ruleID string) ([]preview.AnswerRecord, error) {
	path := fmt.Sprintf("/api/v1/quotes/%s/approval-rules/%s/answers", url.PathEscape(quoteID), url.PathEscape(ruleID))

	var answers []preview.AnswerRecord
	if err := c.get(ctx, path, &answers); err != nil {
		return nil, fmt.Errorf("failed to fetch approval answers: %w", err)
	}
	if answers == nil {
		answers = []preview.AnswerRecord{}
	}
	return answers, nil
}

func (c *RecordsClient) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &APIError{StatusCode: resp.StatusCode, Path: path, Body: strings.TrimSpace(string(body))}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}
