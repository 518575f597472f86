// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package middleware

import (
	"bufio"
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/lifecatcher9182/vote-system-sub000/models"
)

// captureLogs routes the default slog logger into a buffer for the test
func captureLogs(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewJSONHandler(&buf, nil)))
	t.Cleanup(func() { slog.SetDefault(prev) })
	return &buf
}

// completedEntry returns the "request completed" log record
func completedEntry(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	sc := bufio.NewScanner(buf)
	for sc.Scan() {
		var entry map[string]any
		if err := json.Unmarshal(sc.Bytes(), &entry); err != nil {
			t.Fatalf("Bad log line %q: %v", sc.Text(), err)
		}
		if entry["msg"] == "request completed" {
			return entry
		}
	}
	t.Fatal("No request completed log entry")
	return nil
}

func TestWithLoggingRecordsStatus(t *testing.T) {
	testCases := []struct {
		name     string
		method   string
		path     string
		handler  http.HandlerFunc
		expected int
	}{
		{
			name:   "ballot accepted",
			method: "POST",
			path:   "/session/elections/e1/ballot",
			handler: func(w http.ResponseWriter, r *http.Request) {
				JSONResponse(w, http.StatusCreated, models.SubmitBallotResponse{Outcome: models.OutcomeAllComplete})
			},
			expected: http.StatusCreated,
		},
		{
			name:   "duplicate ballot",
			method: "POST",
			path:   "/session/elections/e1/ballot",
			handler: func(w http.ResponseWriter, r *http.Request) {
				ErrorResponse(w, http.StatusConflict, "Already voted in this election")
			},
			expected: http.StatusConflict,
		},
		{
			name:   "code deleted",
			method: "DELETE",
			path:   "/admin/codes/AB1234",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusNoContent)
			},
			expected: http.StatusNoContent,
		},
		{
			name:   "body without explicit status",
			method: "GET",
			path:   "/health",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte("OK"))
			},
			expected: http.StatusOK,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			logs := captureLogs(t)

			w := httptest.NewRecorder()
			WithLogging(tc.handler)(w, httptest.NewRequest(tc.method, tc.path, nil))

			if w.Code != tc.expected {
				t.Errorf("Expected response status %d, got %d", tc.expected, w.Code)
			}

			entry := completedEntry(t, logs)
			if status, _ := entry["status"].(float64); int(status) != tc.expected {
				t.Errorf("Expected logged status %d, got %v", tc.expected, entry["status"])
			}
			if entry["method"] != tc.method || entry["path"] != tc.path {
				t.Errorf("Unexpected logged request %v %v", entry["method"], entry["path"])
			}
			if _, ok := entry["duration_ms"]; !ok {
				t.Error("Expected duration_ms in the log entry")
			}
		})
	}
}

func TestErrorResponse(t *testing.T) {
	testCases := []struct {
		statusCode    int
		message       string
		expectedError string
	}{
		{http.StatusBadRequest, "select exactly 3 candidates, you selected 2", "Bad Request"},
		{http.StatusUnauthorized, "Invalid admin key", "Unauthorized"},
		{http.StatusForbidden, "Results are available once the election is closed", "Forbidden"},
		{http.StatusConflict, "Election already closed", "Conflict"},
	}

	for _, tc := range testCases {
		t.Run(tc.expectedError, func(t *testing.T) {
			w := httptest.NewRecorder()
			ErrorResponse(w, tc.statusCode, tc.message)

			if w.Code != tc.statusCode {
				t.Errorf("Expected status %d, got %d", tc.statusCode, w.Code)
			}
			if w.Header().Get("Content-Type") != "application/json" {
				t.Error("Expected Content-Type 'application/json'")
			}

			var resp models.ErrorResponse
			if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
				t.Fatalf("Failed to decode error response: %v", err)
			}
			if resp.Error != tc.expectedError || resp.Message != tc.message {
				t.Errorf("Unexpected error body %+v", resp)
			}
		})
	}
}

func TestJSONResponseShapes(t *testing.T) {
	w := httptest.NewRecorder()
	JSONResponse(w, http.StatusCreated, models.GenerateCodesResponse{Codes: []string{"AB1234", "CD5678"}})

	if w.Code != http.StatusCreated {
		t.Errorf("Expected status 201, got %d", w.Code)
	}
	if body := strings.TrimSpace(w.Body.String()); body != `{"codes":["AB1234","CD5678"]}` {
		t.Errorf("Unexpected body %s", body)
	}
}

func TestParseJSONBody(t *testing.T) {
	t.Run("winning criteria", func(t *testing.T) {
		body := `{"title":"Village Delegates","max_selections":3,"winning_criteria":{"kind":"percentage","percentage":66.67,"base":"attended"}}`
		req := httptest.NewRequest("POST", "/admin/elections", strings.NewReader(body))

		var parsed models.CreateElectionRequest
		if err := ParseJSONBody(req, &parsed); err != nil {
			t.Fatalf("Expected no error, got: %v", err)
		}
		if parsed.Title != "Village Delegates" || parsed.MaxSelections != 3 {
			t.Errorf("Unexpected request %+v", parsed)
		}
		if parsed.WinningCriteria.Percentage != 66.67 || parsed.WinningCriteria.Base != models.BaseAttended {
			t.Errorf("Unexpected winning criteria: %+v", parsed.WinningCriteria)
		}
	})

	t.Run("abstain ballot", func(t *testing.T) {
		req := httptest.NewRequest("POST", "/session/elections/e1/ballot", strings.NewReader(`{"abstain":true}`))

		var parsed models.SubmitBallotRequest
		if err := ParseJSONBody(req, &parsed); err != nil {
			t.Fatalf("Expected no error, got: %v", err)
		}
		if !parsed.Abstain || len(parsed.CandidateIDs) != 0 {
			t.Errorf("Unexpected ballot %+v", parsed)
		}
	})

	for _, body := range []string{"", "{invalid json}", `{"count":"ten"}`} {
		t.Run("rejects "+body, func(t *testing.T) {
			req := httptest.NewRequest("POST", "/admin/codes", strings.NewReader(body))

			var parsed models.GenerateCodesRequest
			if err := ParseJSONBody(req, &parsed); err == nil {
				t.Errorf("Expected error for body %q", body)
			}
		})
	}
}

func TestCORS(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("handled"))
	})
	handler := CORS(next)

	t.Run("preflight from the voting frontend", func(t *testing.T) {
		req := httptest.NewRequest("OPTIONS", "/session/elections/e1/ballot", nil)
		req.Header.Set("Origin", "http://localhost:5173")
		w := httptest.NewRecorder()

		handler.ServeHTTP(w, req)

		if w.Code != http.StatusOK || w.Body.String() != "" {
			t.Errorf("Expected empty 200 preflight, got %d %q", w.Code, w.Body.String())
		}
		if w.Header().Get("Access-Control-Allow-Origin") != "http://localhost:5173" {
			t.Error("Expected Access-Control-Allow-Origin to match request origin")
		}
		headers := w.Header().Get("Access-Control-Allow-Headers")
		for _, h := range []string{"Authorization", "X-Admin-Key", "Content-Type"} {
			if !strings.Contains(headers, h) {
				t.Errorf("Expected %s in allowed headers", h)
			}
		}
		if !strings.Contains(w.Header().Get("Access-Control-Allow-Methods"), "DELETE") {
			t.Error("Expected DELETE in allowed methods for code deletion")
		}
	})

	t.Run("request without origin", func(t *testing.T) {
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, httptest.NewRequest("GET", "/elections/e1/results", nil))

		if w.Body.String() != "handled" {
			t.Error("Expected next handler to be called")
		}
		if w.Header().Get("Access-Control-Allow-Origin") != "*" {
			t.Error("Expected Access-Control-Allow-Origin to default to '*'")
		}
	})
}

func TestGetClientIP(t *testing.T) {
	testCases := []struct {
		name       string
		headers    map[string]string
		remoteAddr string
		expectedIP string
	}{
		{"first hop of a proxy chain", map[string]string{"X-Forwarded-For": "203.0.113.195, 70.41.3.18"}, "127.0.0.1:12345", "203.0.113.195"},
		{"forwarded wins over real ip", map[string]string{"X-Forwarded-For": "192.168.1.100", "X-Real-IP": "203.0.113.50"}, "10.0.0.1:12345", "192.168.1.100"},
		{"real ip", map[string]string{"X-Real-IP": "203.0.113.50"}, "10.0.0.1:12345", "203.0.113.50"},
		{"remote address port stripped", nil, "192.168.1.50:54321", "192.168.1.50"},
		{"remote address without port", nil, "192.168.1.50", "192.168.1.50"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/", nil)
			req.RemoteAddr = tc.remoteAddr
			for k, v := range tc.headers {
				req.Header.Set(k, v)
			}

			if ip := GetClientIP(req); ip != tc.expectedIP {
				t.Errorf("Expected IP '%s', got '%s'", tc.expectedIP, ip)
			}
		})
	}
}
