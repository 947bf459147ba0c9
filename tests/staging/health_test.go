//go:build staging

package staging

import (
	"encoding/json"
	"net/http"
	"testing"
)

func TestHealthCheck(t *testing.T) {
	status, _ := get(t, "/healthz")

	if status != http.StatusOK {
		t.Errorf("Expected status 200, got %d", status)
	}
}

func TestReadiness(t *testing.T) {
	status, body := get(t, "/readyz")

	if status != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", status, body)
	}

	var health struct {
		Status string            `json:"status"`
		Checks map[string]string `json:"checks"`
	}
	if err := json.Unmarshal(body, &health); err != nil {
		t.Fatalf("Failed to unmarshal response: %v", err)
	}
	if _, ok := health.Checks["session"]; !ok {
		t.Error("Expected a session check in readiness response")
	}
}
