// Package mockmodel implements a minimal Gemini-shaped generateContent
// endpoint with keyword-routed canned replies. Tests point the translator's
// BaseURL at it; cmd/mock-model serves it for offline demos.
package mockmodel

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
)

// Call records one generateContent request.
type Call struct {
	Model  string
	System string
	User   string
}

type rule struct {
	keyword string
	reply   string
}

// Server is a canned text-generation service.
type Server struct {
	mu       sync.Mutex
	calls    []Call
	rules    []rule
	fallback string
	failCode int
}

func New() *Server {
	return &Server{
		fallback: `{"op":"count"}`,
	}
}

// Reply routes requests whose user text contains keyword (case-insensitive)
// to the given completion text. Rules match in registration order.
func (s *Server) Reply(keyword, completion string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rules = append(s.rules, rule{keyword: strings.ToLower(keyword), reply: completion})
}

// SetFallback sets the completion used when no rule matches.
func (s *Server) SetFallback(completion string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fallback = completion
}

// FailWith makes every subsequent request fail with the given HTTP status.
// Zero restores normal replies.
func (s *Server) FailWith(code int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failCode = code
}

// Calls returns a snapshot of requests received so far.
func (s *Server) Calls() []Call {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Call, len(s.calls))
	copy(out, s.calls)
	return out
}

// Handler serves the mock API.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/v1beta/models/", s.handleGenerate)
	return mux
}

type generateRequest struct {
	Contents []struct {
		Role  string `json:"role"`
		Parts []struct {
			Text string `json:"text"`
		} `json:"parts"`
	} `json:"contents"`
	SystemInstruction *struct {
		Parts []struct {
			Text string `json:"text"`
		} `json:"parts"`
	} `json:"systemInstruction"`
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	// Path shape: /v1beta/models/<model>:generateContent
	rest := strings.TrimPrefix(r.URL.Path, "/v1beta/models/")
	model, op, ok := strings.Cut(rest, ":")
	if !ok || op != "generateContent" {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}

	var req generateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, fmt.Sprintf("bad request: %v", err), http.StatusBadRequest)
		return
	}

	var user, system strings.Builder
	for _, c := range req.Contents {
		for _, p := range c.Parts {
			user.WriteString(p.Text)
		}
	}
	if req.SystemInstruction != nil {
		for _, p := range req.SystemInstruction.Parts {
			system.WriteString(p.Text)
		}
	}

	s.mu.Lock()
	s.calls = append(s.calls, Call{Model: model, System: system.String(), User: user.String()})
	failCode := s.failCode
	reply := s.fallback
	lower := strings.ToLower(user.String())
	for _, ru := range s.rules {
		if strings.Contains(lower, ru.keyword) {
			reply = ru.reply
			break
		}
	}
	s.mu.Unlock()

	if failCode > 0 {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(failCode)
		_, _ = fmt.Fprintf(w, `{"error":{"code":%d,"message":"mock failure"}}`, failCode)
		return
	}

	resp := map[string]any{
		"candidates": []map[string]any{
			{
				"content": map[string]any{
					"role":  "model",
					"parts": []map[string]any{{"text": reply}},
				},
			},
		},
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
