package summarize

import (
	"context"
	"errors"
	"fmt"
)

// MinTextLength is the minimum trimmed input length worth summarizing.
// Shorter inputs are a validation error and never reach the external API.
const MinTextLength = 50

// instruction is prepended to the user's text. It asks for a direct
// summary with no meta-references to an author.
const instruction = `Summarize the following text in a concise paragraph using direct language. Do not refer to "the author" or use phrases like "the author is considering" - instead provide a straightforward summary of the key points. Make it no more than 3 sentences.`

var (
	// ErrInvalidResponse is returned when the external API answers with a
	// structurally unexpected body
	ErrInvalidResponse = errors.New("invalid response from summarization API")
)

// UpstreamError is a non-success HTTP status from the external API.
type UpstreamError struct {
	Status int
	Body   string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("summarization API error: status %d", e.Status)
}

// Request is a single summarization request. ForceNew relaxes determinism:
// the implementation varies its sampling parameters so repeated requests
// for identical text need not return identical summaries.
type Request struct {
	Text     string
	ForceNew bool
}

// Summarizer generates a short summary of free text. Implementations make
// a single retry-less call with a timeout; failures surface immediately.
type Summarizer interface {
	Summarize(ctx context.Context, req Request) (string, error)
}

// Prompt builds the full prompt sent upstream.
func Prompt(text string) string {
	return instruction + "\n\n" + text
}
