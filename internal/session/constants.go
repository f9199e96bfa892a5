// Package session implements the per-connection realtime transcription
// state machine.
package session

import "time"

// Protocol-level defaults, applied when session.update omits a field or
// arrives late (defaults then apply lazily on first audio append).
const (
	DefaultModelName             = "qwen3-asr-flash-realtime"
	DefaultAudioFormat           = "pcm"
	DefaultSampleRate            = 16000
	DefaultVADThreshold          = 0.5
	DefaultVADSilenceDurationMS  = 400
	DefaultStreamingChunkSizeSec = 2.0
	DefaultAutoCommitIntervalSec = 60.0
)

const (
	// InboundChannelBuffer bounds how many unread client messages queue up
	// behind a slow dispatch loop before the reader blocks.
	InboundChannelBuffer = 32

	// AutoCommitCheckInterval is how often the dispatch loop polls for an
	// open item that has exceeded the auto-commit interval.
	AutoCommitCheckInterval = 1 * time.Second
)
