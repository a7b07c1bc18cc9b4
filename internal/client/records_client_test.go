package client

import (
	"context"
	stderrors "errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordsClient_FetchApprovalSteps(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/quotes/Q%201/approval-steps", r.URL.EscapedPath())
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[
			{"Id":"s1","Chain":"Finance","Level":"2","Order":1,"ApprovalRuleSlot":"3","ApprovalRuleId":"r1"},
			{"Id":"s2","Level":null}
		]`))
	}))
	defer srv.Close()

	c := NewRecordsClient(srv.URL+"/", "secret", time.Second)

	steps, err := c.FetchApprovalSteps(context.Background(), "Q 1")
	require.NoError(t, err)
	require.Len(t, steps, 2)

	assert.Equal(t, "Finance", steps[0].Chain)
	assert.Equal(t, 2.0, steps[0].LevelValue())
	assert.Equal(t, "3", steps[0].Slot.Text())
	assert.Zero(t, steps[1].LevelValue())
}

func TestRecordsClient_FetchApprovalAnswers(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/quotes/Q-1/approval-rules/r1/answers", r.URL.Path)
		assert.Empty(t, r.Header.Get("Authorization"))
		w.Write([]byte(`[{"Id":"a1","ApprovalRuleId":"r1","Answer":"Yes","AnsweredAt":"2026-03-04T10:00:00Z"}]`))
	}))
	defer srv.Close()

	answers, err := NewRecordsClient(srv.URL, "", 0).FetchApprovalAnswers(context.Background(), "Q-1", "r1")
	require.NoError(t, err)
	require.Len(t, answers, 1)
	assert.Equal(t, "Yes", answers[0].Answer)
	require.NotNil(t, answers[0].AnsweredAt)
}

func TestRecordsClient_NullBodyIsEmpty(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`null`))
	}))
	defer srv.Close()

	answers, err := NewRecordsClient(srv.URL, "", 0).FetchApprovalAnswers(context.Background(), "Q-1", "r1")
	require.NoError(t, err)
	assert.NotNil(t, answers)
	assert.Empty(t, answers)
}

func TestRecordsClient_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "no such quote", http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := NewRecordsClient(srv.URL, "", 0).FetchApprovalSteps(context.Background(), "Q-404")
	require.Error(t, err)

	var apiErr *APIError
	require.True(t, stderrors.As(err, &apiErr))
	assert.True(t, apiErr.NotFound())
	assert.Equal(t, "no such quote", apiErr.Body)
	assert.Contains(t, err.Error(), "404 Not Found")
}

func TestRecordsClient_BadJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"not":"a list"}`))
	}))
	defer srv.Close()

	_, err := NewRecordsClient(srv.URL, "", 0).FetchApprovalSteps(context.Background(), "Q-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode")
}
