package driven

// Prompt names recognised by the prompt store.
const (
	// PromptSystem is the system prompt framing the assistant's role.
	PromptSystem = "system"

	// PromptQuestion is the user prompt template. It takes the context
	// block and the question as fmt arguments, in that order.
	PromptQuestion = "question"

	// PromptNoContext is the canned answer returned when retrieval
	// produced no usable chunks.
	PromptNoContext = "no_context"
)

// PromptStore loads prompt templates, falling back to embedded
// defaults when a template has not been customised.
type PromptStore interface {
	// Load returns the prompt template for the given name.
	Load(name string) (string, error)
}
