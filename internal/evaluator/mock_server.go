// SPDX-License-Identifier: MIT

package evaluator

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/ManuGH/interviewd/internal/domain/session/model"
	"github.com/ManuGH/interviewd/internal/domain/session/ports"
)

// MockServer is a small in-memory evaluator for tests and local runs.
type MockServer struct {
	*httptest.Server

	mu       sync.Mutex
	sessions map[string]*mockSession
	nextID   int
	failures map[string]int // endpoint -> number of 503 answers before success
	hits     map[string]int
	// QuestionsPerSession is the number of replies before shouldEnd is set.
	QuestionsPerSession int
}

type mockSession struct {
	detail ports.SessionDetail
}

// NewMockServer starts a mock evaluator on a loopback listener.
func NewMockServer() *MockServer {
	m := &MockServer{
		sessions:            make(map[string]*mockSession),
		failures:            make(map[string]int),
		hits:                make(map[string]int),
		QuestionsPerSession: 3,
	}

	r := chi.NewRouter()
	r.Post("/sessions", m.handleCreate)
	r.Route("/sessions/{id}", func(r chi.Router) {
		r.Post("/start", m.handleStart)
		r.Post("/resume", m.handleStart)
		r.Post("/message", m.handleMessage)
		r.Get("/status", m.handleStatus)
		r.Post("/pause", m.handlePause)
		r.Post("/complete", m.handleComplete)
		r.Get("/details", m.handleDetails)
	})

	m.Server = httptest.NewServer(r)
	return m
}

// FailNext makes the next n requests to endpoint answer 503.
func (m *MockServer) FailNext(endpoint string, n int) {
	m.mu.Lock()
	m.failures[endpoint] = n
	m.mu.Unlock()
}

// Hits returns how often endpoint was requested.
func (m *MockServer) Hits(endpoint string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.hits[endpoint]
}

// SetTimeRemaining overrides the remaining minutes reported for a session.
func (m *MockServer) SetTimeRemaining(id string, minutes float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.sessions[id]; ok {
		s.detail.TimeRemaining = minutes
	}
}

func (m *MockServer) enter(w http.ResponseWriter, endpoint string) bool {
	m.mu.Lock()
	m.hits[endpoint]++
	fail := m.failures[endpoint] > 0
	if fail {
		m.failures[endpoint]--
	}
	m.mu.Unlock()
	if fail {
		http.Error(w, "temporarily unavailable", http.StatusServiceUnavailable)
		return false
	}
	return true
}

func (m *MockServer) lookup(w http.ResponseWriter, r *http.Request) *mockSession {
	s, ok := m.sessions[chi.URLParam(r, "id")]
	if !ok {
		http.Error(w, "session not found", http.StatusNotFound)
		return nil
	}
	return s
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func (m *MockServer) handleCreate(w http.ResponseWriter, r *http.Request) {
	if !m.enter(w, "create") {
		return
	}
	var cfg ports.SessionConfig
	if err := json.NewDecoder(r.Body).Decode(&cfg); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	if cfg.DurationMinutes <= 0 {
		cfg.DurationMinutes = 30
	}
	if cfg.Kind == "" {
		cfg.Kind = model.KindInterview
	}

	m.mu.Lock()
	m.nextID++
	id := fmt.Sprintf("mock-%d", m.nextID)
	m.sessions[id] = &mockSession{detail: ports.SessionDetail{
		ID:             id,
		Kind:           cfg.Kind,
		Status:         model.StatusNotStarted,
		DurationBudget: cfg.DurationMinutes,
		TimeRemaining:  cfg.DurationMinutes,
	}}
	m.mu.Unlock()

	writeJSON(w, ports.CreatedSession{SessionID: id, DurationBudget: cfg.DurationMinutes})
}

func (m *MockServer) handleStart(w http.ResponseWriter, r *http.Request) {
	if !m.enter(w, "start") {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.lookup(w, r)
	if s == nil {
		return
	}
	if s.detail.Status == model.StatusCompleted {
		http.Error(w, "session completed", http.StatusConflict)
		return
	}
	res := ports.StartResult{TimeRemaining: s.detail.TimeRemaining, Progress: s.detail.Progress}
	if s.detail.Status == model.StatusNotStarted {
		res.Opening = "Welcome. Tell me about a project you are proud of."
		s.detail.Conversation = append(s.detail.Conversation, model.Turn{Role: model.RoleEvaluator, Content: res.Opening, OccurredAt: time.Now().UTC()})
	}
	s.detail.Status = model.StatusInProgress
	writeJSON(w, res)
}

func (m *MockServer) handleMessage(w http.ResponseWriter, r *http.Request) {
	if !m.enter(w, "message") {
		return
	}
	var body struct {
		Content string `json:"content"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Content == "" {
		http.Error(w, "content required", http.StatusBadRequest)
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.lookup(w, r)
	if s == nil {
		return
	}
	if s.detail.Status != model.StatusInProgress {
		http.Error(w, "session not in progress", http.StatusConflict)
		return
	}
	s.detail.Progress++
	reply := ports.EvaluatorReply{
		Reply:     fmt.Sprintf("Question %d: can you go deeper on that?", s.detail.Progress+1),
		ShouldEnd: s.detail.Progress >= m.QuestionsPerSession,
		Progress:  s.detail.Progress,
	}
	now := time.Now().UTC()
	s.detail.Conversation = append(s.detail.Conversation,
		model.Turn{Role: model.RoleCandidate, Content: body.Content, OccurredAt: now},
		model.Turn{Role: model.RoleEvaluator, Content: reply.Reply, OccurredAt: now.Add(time.Microsecond)},
	)
	writeJSON(w, reply)
}

func (m *MockServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	if !m.enter(w, "status") {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.lookup(w, r)
	if s == nil {
		return
	}
	writeJSON(w, ports.Status{
		TimeRemaining:  s.detail.TimeRemaining,
		Progress:       s.detail.Progress,
		ShouldComplete: s.detail.TimeRemaining <= 0,
		Status:         s.detail.Status,
	})
}

func (m *MockServer) handlePause(w http.ResponseWriter, r *http.Request) {
	if !m.enter(w, "pause") {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.lookup(w, r)
	if s == nil {
		return
	}
	if s.detail.Status == model.StatusInProgress {
		s.detail.Status = model.StatusPaused
	}
	w.WriteHeader(http.StatusNoContent)
}

func (m *MockServer) handleComplete(w http.ResponseWriter, r *http.Request) {
	if !m.enter(w, "complete") {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.lookup(w, r)
	if s == nil {
		return
	}
	if s.detail.ScoreCard == nil {
		s.detail.ScoreCard = &model.ScoreCard{
			Overall:         72,
			Technical:       75,
			Communication:   70,
			Confidence:      68,
			ProblemSolving:  74,
			Feedback:        "Solid answers with room for more depth.",
			Strengths:       "Clear structure",
			Weaknesses:      "Few concrete metrics",
			Recommendations: "Quantify impact",
			TotalQuestions:  s.detail.Progress,
			DurationMinutes: s.detail.DurationBudget - s.detail.TimeRemaining,
		}
		s.detail.Status = model.StatusCompleted
	}
	writeJSON(w, s.detail.ScoreCard)
}

func (m *MockServer) handleDetails(w http.ResponseWriter, r *http.Request) {
	if !m.enter(w, "details") {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.lookup(w, r)
	if s == nil {
		return
	}
	writeJSON(w, s.detail)
}
