package websocket

import (
	"context"
	"strings"
	"time"

	"chat-relay-be/internal/dto"
)

// EmitFunc delivers one outbound frame. Implementations must be safe to
// call from the emitter's goroutine.
type EmitFunc func(frame []byte)

// Emitter converts a response text into a sequence of cumulative
// assistant_message frames ending in exactly one terminal frame. For a
// single message id frames are produced sequentially by one goroutine, so
// content length is non-decreasing on the wire.
type Emitter struct {
	delay time.Duration
}

// NewEmitter creates an emitter with the given inter-token delay. The
// delay paces precomputed responses so incremental clients render them
// progressively; it is the only backpressure mechanism here.
func NewEmitter(delay time.Duration) *Emitter {
	return &Emitter{delay: delay}
}

// Stream splits text on single spaces and emits one cumulative
// non-terminal frame per token, then the terminal frame. Returns the
// context error if the session died mid-stream; in that case no terminal
// frame was emitted.
func (e *Emitter) Stream(ctx context.Context, messageId, text string, emit EmitFunc) error {
	if text != "" {
		tokens := strings.Split(text, " ")
		var cumulative strings.Builder
		for i, token := range tokens {
			if i > 0 {
				cumulative.WriteString(" ")
			}
			cumulative.WriteString(token)
			emit(dto.NewAssistantEnvelope(messageId, cumulative.String(), false))

			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(e.delay):
			}
		}
	}

	emit(dto.NewAssistantEnvelope(messageId, text, true))
	return nil
}

// StreamChunks forwards a natively incremental producer: each chunk is
// appended to the running concatenation and emitted as a cumulative
// non-terminal frame; closing the channel triggers the terminal frame.
// The producer paces itself, so no artificial delay is added. Returns the
// full accumulated text.
func (e *Emitter) StreamChunks(ctx context.Context, messageId string, chunks <-chan string, emit EmitFunc) (string, error) {
	var cumulative strings.Builder
	for {
		select {
		case <-ctx.Done():
			return cumulative.String(), ctx.Err()
		case chunk, ok := <-chunks:
			if !ok {
				emit(dto.NewAssistantEnvelope(messageId, cumulative.String(), true))
				return cumulative.String(), nil
			}
			if chunk == "" {
				continue
			}
			cumulative.WriteString(chunk)
			emit(dto.NewAssistantEnvelope(messageId, cumulative.String(), false))
		}
	}
}
