// Package transcriber adapts a streaming speech-recognition backend to the
// session engine's per-utterance calling convention: one opaque state object
// created by Init, advanced by repeated Feed calls as audio arrives, and
// flushed once by Finalize.
package transcriber

import "context"

// InitParams configures a new utterance.
type InitParams struct {
	LanguageHint    string
	UnfixedChunkNum int
	UnfixedTokenNum int
	ChunkSizeSec    float64
}

// DefaultInitParams returns the backend's documented defaults.
func DefaultInitParams(languageHint string, chunkSizeSec float64) InitParams {
	if chunkSizeSec <= 0 {
		chunkSizeSec = 2.0
	}
	return InitParams{
		LanguageHint:    NormalizeLanguage(languageHint),
		UnfixedChunkNum: 2,
		UnfixedTokenNum: 5,
		ChunkSizeSec:    chunkSizeSec,
	}
}

// State is the opaque per-utterance state returned by Init/Feed. Text and
// Language are the only fields the adapter needs to read; backends are free
// to carry additional private data behind the interface.
type State struct {
	Text     string
	Language string
	opaque   any
}

// Backend is the three-call contract every transcription backend satisfies.
// Feed must be safe to invoke concurrently from the worker pool for distinct
// states; a single State is never fed from two goroutines at once.
type Backend interface {
	Init(ctx context.Context, params InitParams) (*State, error)
	Feed(ctx context.Context, state *State, samples []float32) (*State, error)
	Finalize(ctx context.Context, state *State) (*State, error)
}

// Split divides the current best transcription into a stable confirmed
// prefix and a revisable stash tail. Confirmed text never shrinks within an
// utterance; callers are responsible for only ever advancing it forward.
func Split(text string) (confirmed, stash string) {
	r := []rune(text)
	if len(r) <= 20 {
		return "", text
	}
	tail := len(r) / 3
	if tail > 10 {
		tail = 10
	}
	k := len(r) - tail
	return string(r[:k]), string(r[k:])
}
