// Package airtabletest provides a scripted stand-in for the Airtable REST API.
package airtabletest

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"

	"github.com/rs/zerolog"

	"github.com/copycats/copycat-api/internal/airtable"
)

// Request is one call observed by the server.
type Request struct {
	Method string
	Table  string
	Query  url.Values
	Body   []byte
	Header http.Header
}

// Formula returns the filterByFormula parameter of the request.
func (r Request) Formula() string {
	return r.Query.Get("filterByFormula")
}

// Responder produces the status and JSON payload for one request.
type Responder func(req Request) (int, any)

// Server routes /{base}/{table} requests to per-table responders.
type Server struct {
	*httptest.Server

	mu         sync.Mutex
	responders map[string]Responder
	requests   []Request
}

// NewServer starts a server that is closed when the test ends.
func NewServer(t testing.TB) *Server {
	t.Helper()
	s := &Server{responders: map[string]Responder{}}
	s.Server = httptest.NewServer(http.HandlerFunc(s.serve))
	t.Cleanup(s.Close)
	return s
}

// Handle installs the responder for a table.
func (s *Server) Handle(table string, fn Responder) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.responders[table] = fn
}

// Rows installs a responder that answers every read of table with rows.
func (s *Server) Rows(table string, rows ...airtable.Record) {
	s.Handle(table, func(Request) (int, any) {
		return http.StatusOK, map[string]any{"records": rows}
	})
}

// Requests returns the calls observed so far.
func (s *Server) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Request(nil), s.requests...)
}

// Count returns the number of calls made against table.
func (s *Server) Count(table string) int {
	n := 0
	for _, r := range s.Requests() {
		if r.Table == table {
			n++
		}
	}
	return n
}

// Client returns an airtable.Client pointed at the server.
func (s *Server) Client() *airtable.Client {
	return airtable.NewClient(airtable.Config{
		APIKey:            "pat-test",
		BaseID:            "appTest",
		BaseURL:           s.URL,
		RequestsPerSecond: 1000,
	}, s.Server.Client(), zerolog.Nop())
}

func (s *Server) serve(w http.ResponseWriter, r *http.Request) {
	parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
	table := ""
	if len(parts) >= 2 {
		table, _ = url.PathUnescape(parts[1])
	}
	body, _ := io.ReadAll(r.Body)
	req := Request{
		Method: r.Method,
		Table:  table,
		Query:  r.URL.Query(),
		Body:   body,
		Header: r.Header.Clone(),
	}

	s.mu.Lock()
	s.requests = append(s.requests, req)
	fn, ok := s.responders[table]
	s.mu.Unlock()

	status, payload := http.StatusNotFound, any(map[string]any{"error": "NOT_FOUND"})
	if ok {
		status, payload = fn(req)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// Row builds a record from a field map.
func Row(id string, fields map[string]any) airtable.Record {
	rec := airtable.Record{ID: id, Fields: map[string]json.RawMessage{}}
	for k, v := range fields {
		raw, _ := json.Marshal(v)
		rec.Fields[k] = raw
	}
	return rec
}
