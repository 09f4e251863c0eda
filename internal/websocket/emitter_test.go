package websocket

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"chat-relay-be/internal/dto"
)

type emittedFrame struct {
	MessageId  string
	Content    string
	IsComplete bool
}

func decodeFrames(t *testing.T, frames [][]byte) []emittedFrame {
	t.Helper()
	out := make([]emittedFrame, 0, len(frames))
	for _, frame := range frames {
		var env dto.Envelope
		if err := json.Unmarshal(frame, &env); err != nil {
			t.Fatalf("frame is not a valid envelope: %v", err)
		}
		if env.Type != "assistant_message" {
			t.Fatalf("unexpected envelope type %q", env.Type)
		}
		var data dto.AssistantMessageData
		if err := json.Unmarshal(env.Data, &data); err != nil {
			t.Fatalf("invalid assistant payload: %v", err)
		}
		out = append(out, emittedFrame{
			MessageId:  env.MessageId,
			Content:    data.Content,
			IsComplete: data.IsComplete,
		})
	}
	return out
}

func TestStreamTokenByToken(t *testing.T) {
	emitter := NewEmitter(time.Millisecond)
	text := "PT-1 is a pressure transmitter"

	var frames [][]byte
	err := emitter.Stream(context.Background(), "assistant_m1", text, func(frame []byte) {
		frames = append(frames, frame)
	})
	if err != nil {
		t.Fatalf("Stream returned error: %v", err)
	}

	decoded := decodeFrames(t, frames)

	// 5 tokens: 5 non-terminal frames plus exactly one terminal.
	if len(decoded) != 6 {
		t.Fatalf("expected 6 frames, got %d", len(decoded))
	}
	for i, frame := range decoded {
		if frame.MessageId != "assistant_m1" {
			t.Errorf("frame %d has message id %q", i, frame.MessageId)
		}
	}
	for i := 0; i < 5; i++ {
		if decoded[i].IsComplete {
			t.Errorf("frame %d is terminal before the last frame", i)
		}
		if i > 0 && len(decoded[i].Content) <= len(decoded[i-1].Content) {
			t.Errorf("frame %d content length did not grow: %q -> %q", i, decoded[i-1].Content, decoded[i].Content)
		}
	}
	terminal := decoded[5]
	if !terminal.IsComplete {
		t.Fatal("last frame is not terminal")
	}
	if terminal.Content != text {
		t.Errorf("terminal content = %q, want %q", terminal.Content, text)
	}
}

func TestStreamEmptyText(t *testing.T) {
	emitter := NewEmitter(time.Millisecond)

	var frames [][]byte
	err := emitter.Stream(context.Background(), "assistant_m1", "", func(frame []byte) {
		frames = append(frames, frame)
	})
	if err != nil {
		t.Fatalf("Stream returned error: %v", err)
	}

	decoded := decodeFrames(t, frames)
	if len(decoded) != 1 || !decoded[0].IsComplete {
		t.Fatalf("empty text should produce exactly one terminal frame, got %+v", decoded)
	}
}

func TestStreamAbandonedOnCancel(t *testing.T) {
	emitter := NewEmitter(50 * time.Millisecond)
	ctx, cancel := context.WithCancel(context.Background())

	var frames [][]byte
	err := emitter.Stream(ctx, "assistant_m1", "one two three four five", func(frame []byte) {
		frames = append(frames, frame)
		cancel()
	})
	if err == nil {
		t.Fatal("expected a context error after cancellation")
	}

	for _, frame := range decodeFrames(t, frames) {
		if frame.IsComplete {
			t.Error("terminal frame emitted after cancellation")
		}
	}
}

func TestStreamChunks(t *testing.T) {
	emitter := NewEmitter(time.Millisecond)
	chunks := make(chan string, 4)
	chunks <- "PT-1 "
	chunks <- "is a "
	chunks <- "transmitter"
	close(chunks)

	var frames [][]byte
	full, err := emitter.StreamChunks(context.Background(), "assistant_m2", chunks, func(frame []byte) {
		frames = append(frames, frame)
	})
	if err != nil {
		t.Fatalf("StreamChunks returned error: %v", err)
	}
	if full != "PT-1 is a transmitter" {
		t.Errorf("accumulated text = %q", full)
	}

	decoded := decodeFrames(t, frames)
	if len(decoded) != 4 {
		t.Fatalf("expected 4 frames, got %d", len(decoded))
	}
	for i := 0; i < 3; i++ {
		if decoded[i].IsComplete {
			t.Errorf("frame %d is terminal before the stream closed", i)
		}
	}
	if !decoded[3].IsComplete || decoded[3].Content != full {
		t.Errorf("terminal frame = %+v, want complete with full text", decoded[3])
	}
}

func TestStreamChunksAbandonedOnCancel(t *testing.T) {
	emitter := NewEmitter(time.Millisecond)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	chunks := make(chan string)
	var frames [][]byte
	_, err := emitter.StreamChunks(ctx, "assistant_m3", chunks, func(frame []byte) {
		frames = append(frames, frame)
	})
	if err == nil {
		t.Fatal("expected a context error after cancellation")
	}
	if len(frames) != 0 {
		t.Errorf("expected no frames, got %d", len(frames))
	}
}
