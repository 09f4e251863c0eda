package dto

import (
	"encoding/json"
	"errors"
	"strings"

	"chat-relay-be/internal/constant"
)

// Envelope is the discriminated union exchanged over the duplex connection.
// Data is kept raw on inbound frames so each kind can decode its own payload.
type Envelope struct {
	Type      string          `json:"type"`
	MessageId string          `json:"messageId,omitempty"`
	Data      json.RawMessage `json:"data,omitempty"`
}

type UserMessageData struct {
	Content string `json:"content"`
}

type AssistantMessageData struct {
	Content    string `json:"content"`
	IsComplete bool   `json:"isComplete"`
}

type ErrorData struct {
	Error string `json:"error"`
}

type ConnectionStatusData struct {
	Status    string `json:"status"`
	SessionId string `json:"sessionId,omitempty"`
}

var ErrEmptyContent = errors.New("user_message content is empty")

// ParseEnvelope decodes one inbound frame. A malformed frame is a recoverable
// condition for the caller, never a reason to drop the connection.
func ParseEnvelope(frame []byte) (*Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(frame, &env); err != nil {
		return nil, err
	}
	if env.Type == "" {
		return nil, errors.New("envelope missing type")
	}
	return &env, nil
}

// UserMessage extracts the user payload from a user_message envelope.
func (e *Envelope) UserMessage() (UserMessageData, error) {
	var data UserMessageData
	if err := json.Unmarshal(e.Data, &data); err != nil {
		return data, err
	}
	if strings.TrimSpace(data.Content) == "" {
		return data, ErrEmptyContent
	}
	return data, nil
}

// NewAssistantEnvelope builds one streamed reply frame. Content is cumulative
// for the whole reply; the client replaces by id rather than merging deltas.
func NewAssistantEnvelope(messageId, content string, isComplete bool) []byte {
	return marshalEnvelope(constant.EnvelopeTypeAssistantMessage, messageId, AssistantMessageData{
		Content:    content,
		IsComplete: isComplete,
	})
}

func NewErrorEnvelope(message string) []byte {
	return marshalEnvelope(constant.EnvelopeTypeError, "", ErrorData{Error: message})
}

func NewConnectionStatusEnvelope(status, sessionId string) []byte {
	return marshalEnvelope(constant.EnvelopeTypeConnectionStatus, "", ConnectionStatusData{
		Status:    status,
		SessionId: sessionId,
	})
}

func marshalEnvelope(kind, messageId string, data interface{}) []byte {
	payload, _ := json.Marshal(data)
	out, _ := json.Marshal(Envelope{
		Type:      kind,
		MessageId: messageId,
		Data:      payload,
	})
	return out
}
