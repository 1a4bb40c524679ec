package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestRespondJSON_SetsStatusAndContentType(t *testing.T) {
	tests := []struct {
		name       string
		statusCode int
		data       any
	}{
		{"OK with data", http.StatusOK, map[string]string{"status": "ok"}},
		{"Created without data", http.StatusCreated, nil},
		{"ServiceUnavailable", http.StatusServiceUnavailable, map[string]string{"error": "x"}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			recorder := httptest.NewRecorder()
			respondJSON(recorder, tc.statusCode, tc.data)

			assertStatusCode(t, recorder, tc.statusCode)
			assertContentType(t, recorder, "application/json")
		})
	}
}

func TestRespondJSON_NilDataWritesNoBody(t *testing.T) {
	recorder := httptest.NewRecorder()

	respondJSON(recorder, http.StatusOK, nil)

	if recorder.Body.Len() != 0 {
		t.Errorf("expected empty body, got %q", recorder.Body.String())
	}
}

func TestRespondJSON_Array(t *testing.T) {
	recorder := httptest.NewRecorder()

	respondJSON(recorder, http.StatusOK, []string{"alice", "bob"})

	var result []string
	parseJSONResponse(t, recorder, &result)
	if len(result) != 2 || result[0] != "alice" {
		t.Errorf("unexpected array: %v", result)
	}
}

func TestRespondError(t *testing.T) {
	recorder := httptest.NewRecorder()

	respondError(recorder, http.StatusBadRequest, "no image provided")

	assertStatusCode(t, recorder, http.StatusBadRequest)
	assertJSONError(t, recorder, "no image provided")
}

func TestHealthCheck(t *testing.T) {
	for _, method := range []string{http.MethodGet, http.MethodHead, http.MethodPost} {
		t.Run(method, func(t *testing.T) {
			recorder := httptest.NewRecorder()
			HealthCheck(recorder, httptest.NewRequest(method, "/api/v1/health", nil))

			assertStatusCode(t, recorder, http.StatusOK)
			var result map[string]string
			parseJSONResponse(t, recorder, &result)
			if result["status"] != "ok" {
				t.Errorf("expected status 'ok', got %q", result["status"])
			}
		})
	}
}

func TestSanitizeForLog(t *testing.T) {
	if got := sanitizeForLog("alice\nFAKE LOG LINE\r"); got != "aliceFAKE LOG LINE" {
		t.Errorf("unexpected sanitized value %q", got)
	}
}
