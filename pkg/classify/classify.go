// Package classify labels classifier-ready JPEG frames with hosted vision
// backends. Every backend answers free text (one element word or a short
// description of the main object); callers map that text onto an element
// with the element package.
//
// Backends share a functional-options Config. The zero cost path for tests
// and model-free demos is Mock.
package classify

import "context"

// Classifier is implemented by every backend in this package. The prompt
// may be empty, in which case the backend uses DefaultPrompt. Classify is
// safe for concurrent use and honors ctx cancellation.
type Classifier interface {
	Classify(ctx context.Context, image []byte, prompt string) (string, error)

	// Name identifies the backend in logs and error messages.
	Name() string
}
