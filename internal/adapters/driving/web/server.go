// Package web serves the question-answering page and its JSON API.
// Query-path failures render a user-facing message; the serving
// process never exits because a query failed.
package web

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"strings"
	"time"

	"github.com/custodia-labs/docqa-cli/internal/core/domain"
	"github.com/custodia-labs/docqa-cli/internal/core/ports/driving"
	"github.com/custodia-labs/docqa-cli/internal/logger"
	"github.com/custodia-labs/docqa-cli/internal/metrics"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

// DefaultRequestTimeout bounds one question when no timeout is configured.
const DefaultRequestTimeout = 60 * time.Second

// Server answers questions over HTTP.
type Server struct {
	answer    driving.AnswerService
	collector *metrics.Collector
	tmpl      *template.Template
	timeout   time.Duration
	httpSrv   *http.Server
}

// NewServer creates the web server. The collector may be nil.
func NewServer(answer driving.AnswerService, collector *metrics.Collector, addr string, timeout time.Duration) (*Server, error) {
	tmpl, err := template.ParseFS(templateFS, "templates/*.tmpl")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	if timeout <= 0 {
		timeout = DefaultRequestTimeout
	}

	s := &Server{
		answer:    answer,
		collector: collector,
		tmpl:      tmpl,
		timeout:   timeout,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleIndex)
	mux.HandleFunc("/api/ask", s.handleAPIAsk)
	mux.HandleFunc("/api/metrics", s.handleAPIMetrics)
	mux.HandleFunc("/health", s.handleHealth)

	s.httpSrv = &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s, nil
}

// Handler exposes the route table for tests.
func (s *Server) Handler() http.Handler {
	return s.httpSrv.Handler
}

// ListenAndServe blocks until the context is cancelled or the listener
// fails, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		logger.Info("Serving on %s", s.httpSrv.Addr)
		if err := s.httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return s.httpSrv.Shutdown(shutdownCtx)
}

// pageData feeds the index template.
type pageData struct {
	Question string
	Answer   *domain.Answer
	Error    string
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	data := pageData{}

	if r.Method == http.MethodPost {
		question := strings.TrimSpace(r.FormValue("question"))
		data.Question = question

		answer, err := s.ask(r.Context(), question)
		switch {
		case errors.Is(err, domain.ErrInvalidInput):
			data.Error = "Please enter a question."
		case err != nil:
			logger.Warn("Web query failed: %v", err)
			data.Error = "Something went wrong while answering. Please try again."
		default:
			data.Answer = answer
		}
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.tmpl.ExecuteTemplate(w, "index.html.tmpl", data); err != nil {
		logger.Warn("Render failed: %v", err)
	}
}

// askRequest is the JSON API request body.
type askRequest struct {
	Question string `json:"question"`
}

// askResponse is the JSON API response body.
type askResponse struct {
	Question         string            `json:"question"`
	Answer           string            `json:"answer"`
	Failed           bool              `json:"failed"`
	FailureKind      string            `json:"failure_kind,omitempty"`
	Citations        []citationJSON    `json:"citations"`
	Sources          []sourceJSON      `json:"sources"`
	RetrievalTimeMs  float64           `json:"retrieval_time_ms"`
	GenerationTimeMs float64           `json:"generation_time_ms"`
	TokensUsed       int               `json:"tokens_used"`
	Usage            domain.TokenUsage `json:"usage"`
}

type citationJSON struct {
	Marker     string `json:"marker"`
	SourceFile string `json:"source_file"`
	Title      string `json:"title,omitempty"`
	PageNumber int    `json:"page_number,omitempty"`
}

type sourceJSON struct {
	SourceFile    string   `json:"source_file"`
	PageNumber    int      `json:"page_number"`
	Score         float64  `json:"score"`
	RerankerScore *float64 `json:"reranker_score,omitempty"`
	Content       string   `json:"content"`
}

func (s *Server) handleAPIAsk(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req askRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid JSON body", http.StatusBadRequest)
		return
	}

	answer, err := s.ask(r.Context(), req.Question)
	if errors.Is(err, domain.ErrInvalidInput) {
		http.Error(w, "question is required", http.StatusBadRequest)
		return
	}
	if err != nil {
		logger.Warn("API query failed: %v", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	resp := askResponse{
		Question:         answer.Question,
		Answer:           answer.Text,
		Failed:           answer.Failed,
		FailureKind:      answer.FailureKind,
		Citations:        make([]citationJSON, 0, len(answer.Citations)),
		Sources:          make([]sourceJSON, 0, len(answer.Sources)),
		RetrievalTimeMs:  float64(answer.RetrievalTime) / float64(time.Millisecond),
		GenerationTimeMs: float64(answer.GenerationTime) / float64(time.Millisecond),
		TokensUsed:       answer.Usage.TotalTokens,
		Usage:            answer.Usage,
	}
	for _, c := range answer.Citations {
		resp.Citations = append(resp.Citations, citationJSON{
			Marker:     c.Marker,
			SourceFile: c.SourceFile,
			Title:      c.Title,
			PageNumber: c.PageNumber,
		})
	}
	for _, src := range answer.Sources {
		resp.Sources = append(resp.Sources, sourceJSON{
			SourceFile:    src.SourceFile,
			PageNumber:    src.PageNumber,
			Score:         src.Score,
			RerankerScore: src.RerankerScore,
			Content:       src.Content,
		})
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		logger.Warn("Encode response failed: %v", err)
	}
}

func (s *Server) handleAPIMetrics(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if s.collector == nil {
		http.Error(w, "metrics not enabled", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(s.collector.Summary()); err != nil {
		logger.Warn("Encode metrics failed: %v", err)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	fmt.Fprint(w, `{"status":"ok"}`)
}

// ask runs one question under the per-request timeout.
func (s *Server) ask(ctx context.Context, question string) (*domain.Answer, error) {
	if question == "" {
		return nil, domain.ErrInvalidInput
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return s.answer.Ask(ctx, question)
}
