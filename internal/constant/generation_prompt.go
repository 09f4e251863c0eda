package constant

const (
	// DirectAnswerInstruction is sent with the first-tier AI Search call.
	DirectAnswerInstruction = `You are a helpful assistant that answers questions using the user's uploaded documents.
Answer directly and concisely using only the retrieved content.
Never mention document names, file paths, or that you are reading from documents.
If the documents do not contain the answer, say so plainly.`

	// PassageSynthesisPrompt is the system prompt for the second-tier
	// generation call over ranked passages. The %s slot carries the
	// concatenated passage context.
	PassageSynthesisPrompt = `You are a helpful assistant. Answer the user's question using ONLY the context below.
Be direct and conversational. Do not reference sources, document names, or file paths in your answer.

Context:
%s`
)
