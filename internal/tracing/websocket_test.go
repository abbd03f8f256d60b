package tracing

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/prasenjit/go-meraki-mcp/internal/models"
)

func TestWebSocketHandlerStreamsTraces(t *testing.T) {
	s := NewService(10, 0)
	server := httptest.NewServer(NewWebSocketHandler(s, zerolog.Nop()))
	defer server.Close()

	url := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("Dial failed: %v", err)
	}
	defer conn.Close()

	// wait for the handler to subscribe
	deadline := time.Now().Add(2 * time.Second)
	for s.GetStats()["activeSubscribers"] != 1 {
		if time.Now().After(deadline) {
			t.Fatal("Timed out waiting for subscription")
		}
		time.Sleep(10 * time.Millisecond)
	}

	s.RecordTrace(&models.Trace{OperationID: "getOrganizations", StatusCode: 200})

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("ReadMessage failed: %v", err)
	}

	var trace models.Trace
	if err := json.Unmarshal(data, &trace); err != nil {
		t.Fatalf("Invalid trace payload: %v", err)
	}
	if trace.OperationID != "getOrganizations" {
		t.Errorf("Expected getOrganizations, got %s", trace.OperationID)
	}
}

func TestWebSocketHandlerFiltersStream(t *testing.T) {
	s := NewService(10, 0)
	server := httptest.NewServer(NewWebSocketHandler(s, zerolog.Nop()))
	defer server.Close()

	url := "ws" + strings.TrimPrefix(server.URL, "http") + "?credential=lab&errorsOnly=true"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("Dial failed: %v", err)
	}
	defer conn.Close()

	deadline := time.Now().Add(2 * time.Second)
	for s.GetStats()["activeSubscribers"] != 1 {
		if time.Now().After(deadline) {
			t.Fatal("Timed out waiting for subscription")
		}
		time.Sleep(10 * time.Millisecond)
	}

	s.RecordTrace(&models.Trace{OperationID: "getDevice", Credential: "prod", Error: "boom"})
	s.RecordTrace(&models.Trace{OperationID: "getDevice", Credential: "lab", StatusCode: 200})
	s.RecordTrace(&models.Trace{OperationID: "getNetwork", Credential: "lab", Error: "not found"})

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("ReadMessage failed: %v", err)
	}

	var trace models.Trace
	if err := json.Unmarshal(data, &trace); err != nil {
		t.Fatalf("Invalid trace payload: %v", err)
	}
	if trace.OperationID != "getNetwork" || trace.Credential != "lab" {
		t.Errorf("Expected the failed lab getNetwork trace, got %s/%s", trace.Credential, trace.OperationID)
	}
}
