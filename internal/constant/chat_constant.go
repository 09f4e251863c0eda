package constant

const (
	ChatMessageRoleUser      = "user"
	ChatMessageRoleAssistant = "assistant"

	ChatMessageStatusSending   = "sending"
	ChatMessageStatusSent      = "sent"
	ChatMessageStatusStreaming = "streaming"
	ChatMessageStatusError     = "error"

	// Envelope kinds on the wire
	EnvelopeTypeUserMessage      = "user_message"
	EnvelopeTypeAssistantMessage = "assistant_message"
	EnvelopeTypeError            = "error"
	EnvelopeTypeConnectionStatus = "connection_status"

	// AssistantMessageIDPrefix derives the reply id from the triggering
	// user message id, so the client can correlate without a round trip.
	AssistantMessageIDPrefix = "assistant_"
	UserMessageIDPrefix      = "msg_"

	DefaultUserID    = "anonymous"
	DefaultProjectID = "default"

	// AckText is emitted immediately on a user_message, before the
	// retrieval pipeline runs.
	AckText = "Processing your message..."

	// FallbackTemplate is used when every retrieval tier fails.
	// The %q slot carries the original query.
	FallbackTemplate = "I apologize, but I couldn't find relevant information to answer %s. Please try rephrasing your question or check that the relevant documents have been uploaded."

	// Topic for the fire-and-forget persistence pipeline.
	PersistChatMessageTopic = "PERSIST_CHAT_MESSAGE"

	// NATS subjects for downstream consumers.
	EventChatMessagePersisted = "events.chat.message_persisted"
	EventChatSessionStarted   = "events.chat.session_started"
)
