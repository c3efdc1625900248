package web

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docqa-cli/internal/core/domain"
	"github.com/custodia-labs/docqa-cli/internal/metrics"
)

// stubAnswerService returns a fixed answer or error.
type stubAnswerService struct {
	answer *domain.Answer
	err    error
	asked  []string
}

func (s *stubAnswerService) Ask(_ context.Context, question string) (*domain.Answer, error) {
	s.asked = append(s.asked, question)
	if s.err != nil {
		return nil, s.err
	}
	answer := *s.answer
	answer.Question = question
	return &answer, nil
}

func testAnswer() *domain.Answer {
	return &domain.Answer{
		Text: "You accrue 25 days of leave [Source 1].",
		Citations: []domain.Citation{
			{Marker: "[Source 1]", SourceFile: "handbook.pdf", Title: "Employee Handbook", PageNumber: 12},
		},
		Sources: []domain.RetrievalResult{
			{SourceFile: "handbook.pdf", PageNumber: 12, Score: 3.1, Content: "Employees accrue 25 days."},
		},
		RetrievalTime:  120 * time.Millisecond,
		GenerationTime: 900 * time.Millisecond,
		Usage:          domain.TokenUsage{PromptTokens: 100, CompletionTokens: 40, TotalTokens: 140},
	}
}

func newTestServer(t *testing.T, stub *stubAnswerService, collector *metrics.Collector) *Server {
	t.Helper()
	server, err := NewServer(stub, collector, ":0", time.Second)
	require.NoError(t, err)
	return server
}

func TestIndex_RendersForm(t *testing.T) {
	server := newTestServer(t, &stubAnswerService{answer: testAnswer()}, nil)

	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "<form")
	assert.Contains(t, rec.Body.String(), "Enterprise Document Q&amp;A")
}

func TestIndex_AnswersQuestion(t *testing.T) {
	stub := &stubAnswerService{answer: testAnswer()}
	server := newTestServer(t, stub, nil)

	form := strings.NewReader("question=How+much+leave%3F")
	req := httptest.NewRequest(http.MethodPost, "/", form)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "25 days of leave")
	assert.Contains(t, body, "handbook.pdf")
	assert.Contains(t, body, "page 12")
	assert.Contains(t, body, "140 tokens")
	assert.Equal(t, []string{"How much leave?"}, stub.asked)
}

func TestIndex_EmptyQuestionShowsError(t *testing.T) {
	stub := &stubAnswerService{answer: testAnswer()}
	server := newTestServer(t, stub, nil)

	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader("question=+"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Please enter a question.")
	assert.Empty(t, stub.asked)
}

func TestIndex_ServiceErrorRendersMessage(t *testing.T) {
	stub := &stubAnswerService{err: context.DeadlineExceeded}
	server := newTestServer(t, stub, nil)

	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader("question=q"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, req)

	// The process serves the error page; it does not crash.
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Something went wrong")
}

func TestIndex_UnknownPathIs404(t *testing.T) {
	server := newTestServer(t, &stubAnswerService{answer: testAnswer()}, nil)

	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/nope", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAPIAsk_ReturnsJSON(t *testing.T) {
	server := newTestServer(t, &stubAnswerService{answer: testAnswer()}, nil)

	body, _ := json.Marshal(map[string]string{"question": "How much leave?"})
	req := httptest.NewRequest(http.MethodPost, "/api/ask", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var resp askResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "How much leave?", resp.Question)
	assert.Contains(t, resp.Answer, "25 days")
	assert.False(t, resp.Failed)
	require.Len(t, resp.Citations, 1)
	assert.Equal(t, "[Source 1]", resp.Citations[0].Marker)
	require.Len(t, resp.Sources, 1)
	assert.Equal(t, 140, resp.TokensUsed)
	assert.InDelta(t, 120, resp.RetrievalTimeMs, 0.001)
}

func TestAPIAsk_MissingQuestion(t *testing.T) {
	server := newTestServer(t, &stubAnswerService{answer: testAnswer()}, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/ask", strings.NewReader(`{}`))
	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAPIAsk_InvalidJSON(t *testing.T) {
	server := newTestServer(t, &stubAnswerService{answer: testAnswer()}, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/ask", strings.NewReader("{"))
	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAPIAsk_GetNotAllowed(t *testing.T) {
	server := newTestServer(t, &stubAnswerService{answer: testAnswer()}, nil)

	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/ask", nil))

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestAPIAsk_FailedAnswerIsStill200(t *testing.T) {
	failed := testAnswer()
	failed.Failed = true
	failed.FailureKind = "timeout"
	failed.Text = "The request timed out. Please try again."
	server := newTestServer(t, &stubAnswerService{answer: failed}, nil)

	body, _ := json.Marshal(map[string]string{"question": "q"})
	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/ask", bytes.NewReader(body)))

	require.Equal(t, http.StatusOK, rec.Code)
	var resp askResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Failed)
	assert.Equal(t, "timeout", resp.FailureKind)
}

func TestAPIMetrics(t *testing.T) {
	collector := metrics.NewCollector()
	collector.Record(metrics.QueryRecord{Question: "q", TokensUsed: 10, TotalTime: time.Second})
	server := newTestServer(t, &stubAnswerService{answer: testAnswer()}, collector)

	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var summary metrics.Summary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &summary))
	assert.Equal(t, int64(1), summary.TotalQueries)
}

func TestHealth(t *testing.T) {
	server := newTestServer(t, &stubAnswerService{answer: testAnswer()}, nil)

	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}
