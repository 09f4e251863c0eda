package chatclient

import (
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"
)

func TestBackoff(t *testing.T) {
	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{0, 1 * time.Second},
		{1, 2 * time.Second},
		{2, 4 * time.Second},
		{3, 8 * time.Second},
		{4, 10 * time.Second},
		{5, 10 * time.Second},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("attempt_%d", tt.attempt), func(t *testing.T) {
			if got := Backoff(tt.attempt); got != tt.want {
				t.Errorf("Backoff(%d) = %v, want %v", tt.attempt, got, tt.want)
			}
		})
	}
}

func TestNoRetryBeyondCeiling(t *testing.T) {
	client, err := New(Config{WorkerURL: "http://localhost:8787"})
	if err != nil {
		t.Fatal(err)
	}
	client.open = true

	client.mu.Lock()
	client.attempts = maxReconnectAttempts
	client.scheduleRetryLocked()
	timer := client.retry
	client.mu.Unlock()

	if timer != nil {
		t.Error("a retry was scheduled past the attempt ceiling")
	}
}

func TestRetryCancelledOnDestroy(t *testing.T) {
	client, err := New(Config{WorkerURL: "http://localhost:8787"})
	if err != nil {
		t.Fatal(err)
	}
	client.open = true

	client.mu.Lock()
	client.scheduleRetryLocked()
	armed := client.retry != nil
	client.mu.Unlock()

	if !armed {
		t.Fatal("expected a retry timer to be armed")
	}

	client.Destroy()

	client.mu.Lock()
	defer client.mu.Unlock()
	if client.retry != nil {
		t.Error("Destroy left a pending retry timer")
	}
	if client.state != StateDisconnected {
		t.Errorf("state after Destroy = %v", client.state)
	}
}

func TestSendFailsFastWhenDisconnected(t *testing.T) {
	client, err := New(Config{WorkerURL: "http://localhost:8787"})
	if err != nil {
		t.Fatal(err)
	}

	if _, err := client.SendMessage("hello"); !errors.Is(err, ErrNotConnected) {
		t.Errorf("SendMessage while disconnected = %v, want ErrNotConnected", err)
	}
	if len(client.Messages()) != 0 {
		t.Error("a failed send must not be queued in the local store")
	}
}

func TestHandleFrameReplacesOnId(t *testing.T) {
	var updates []Message
	client, err := New(Config{
		WorkerURL: "http://localhost:8787",
		OnMessage: func(m Message) { updates = append(updates, m) },
	})
	if err != nil {
		t.Fatal(err)
	}

	client.handleFrame([]byte(`{"type":"assistant_message","messageId":"assistant_m1","data":{"content":"PT-1","isComplete":false}}`))
	client.handleFrame([]byte(`{"type":"assistant_message","messageId":"assistant_m1","data":{"content":"PT-1 is a","isComplete":false}}`))
	client.handleFrame([]byte(`{"type":"assistant_message","messageId":"assistant_m1","data":{"content":"PT-1 is a transmitter","isComplete":true}}`))

	messages := client.Messages()
	if len(messages) != 1 {
		t.Fatalf("expected 1 stored message after 3 frames for the same id, got %d", len(messages))
	}
	got := messages[0]
	if got.Id != "assistant_m1" || got.Content != "PT-1 is a transmitter" || !got.IsComplete {
		t.Errorf("stored message = %+v", got)
	}
	if got.Status != "sent" {
		t.Errorf("terminal status = %q, want %q", got.Status, "sent")
	}
	if len(updates) != 3 {
		t.Errorf("OnMessage fired %d times, want 3", len(updates))
	}
	for _, update := range updates[:2] {
		if update.Status != "streaming" {
			t.Errorf("in-flight status = %q, want %q", update.Status, "streaming")
		}
	}
}

func TestHandleFrameErrorEnvelope(t *testing.T) {
	var gotError string
	client, err := New(Config{
		WorkerURL: "http://localhost:8787",
		OnError:   func(msg string) { gotError = msg },
	})
	if err != nil {
		t.Fatal(err)
	}

	client.handleFrame([]byte(`{"type":"error","data":{"error":"Failed to process message"}}`))

	if gotError != "Failed to process message" {
		t.Errorf("OnError got %q", gotError)
	}
	if len(client.Messages()) != 0 {
		t.Error("error envelopes must not enter the message store")
	}
}

func TestHandleFrameIgnoresGarbage(t *testing.T) {
	client, err := New(Config{WorkerURL: "http://localhost:8787"})
	if err != nil {
		t.Fatal(err)
	}

	client.handleFrame([]byte("not json"))
	client.handleFrame([]byte(`{"type":"assistant_message","data":{"content":"no id"}}`))

	if len(client.Messages()) != 0 {
		t.Errorf("garbage frames must not enter the message store, got %d", len(client.Messages()))
	}
}

func TestSocketURL(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
		want string
	}{
		{
			name: "http to ws with project",
			cfg:  Config{WorkerURL: "http://localhost:8787", SessionID: "sess-1", UserID: "user-1", ProjectID: "proj-9"},
			want: "ws://localhost:8787/socket/sess-1?projectId=proj-9&userId=user-1",
		},
		{
			name: "https to wss without project",
			cfg:  Config{WorkerURL: "https://relay.example.com/", SessionID: "sess-1", UserID: "user-1"},
			want: "wss://relay.example.com/socket/sess-1?userId=user-1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, err := New(tt.cfg)
			if err != nil {
				t.Fatal(err)
			}
			if got := client.socketURL(); got != tt.want {
				t.Errorf("socketURL() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestNewDefaults(t *testing.T) {
	if _, err := New(Config{}); err == nil {
		t.Error("missing WorkerURL must be rejected")
	}

	client, err := New(Config{WorkerURL: "http://localhost:8787"})
	if err != nil {
		t.Fatal(err)
	}
	if client.cfg.UserID != "anonymous" {
		t.Errorf("default user id = %q", client.cfg.UserID)
	}
	if client.cfg.SessionID == "" {
		t.Error("a session id must be generated when none is supplied")
	}
	if !strings.HasPrefix(client.socketURL(), "ws://") {
		t.Errorf("unexpected scheme in %q", client.socketURL())
	}
}
