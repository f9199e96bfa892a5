package vad

import (
	"context"
	"math"
	"sync"
	"time"
)

// Detector computes a speech probability for one fixed-size window. Real
// implementations wrap a model (see silero.go, build tag "silero"); the
// default build uses an energy-based estimator (energy.go).
type Detector interface {
	Probability(window []float32) float32
}

// WindowRecorder observes the latency of one detector call. Config.Recorder
// may be left nil to skip instrumentation entirely.
type WindowRecorder interface {
	RecordVADWindow(ctx context.Context, seconds float64)
}

// Config configures one Engine instance. Engines are cheap; the session
// engine builds a fresh one on every session.update.
type Config struct {
	Threshold         float64
	SilenceDurationMS int
	SampleRate        int
	Recorder          WindowRecorder
}

// EventKind distinguishes the two boundary events an Engine can emit.
type EventKind int

const (
	EventNone EventKind = iota
	EventSpeechStarted
	EventSpeechStopped
)

// Event carries a VAD boundary crossing in sample-accurate and millisecond
// form. Only one of AudioStartMs/AudioEndMs is meaningful, selected by Kind.
type Event struct {
	Kind         EventKind
	AudioStartMs int64
	AudioEndMs   int64
}

// Engine buffers incoming audio into fixed windows and runs the state
// machine from the per-window speech-probability transitions. Every method
// holds an internal mutex; each session owns exactly one Engine.
type Engine struct {
	detector Detector
	cfg      Config
	window   int
	silence  int64 // silence_samples threshold

	mu sync.Mutex

	recorder WindowRecorder

	buffer []float32

	isSpeaking       bool
	speechStartSmpl  int64
	lastSpeechSmpl   int64
	silenceCounter   int64
}

// New builds an Engine. detector is nil-safe only in the sense that a caller
// MUST supply one; VAD-disabled sessions should not construct an Engine at
// all (see session engine's manual-mode handling).
func New(detector Detector, cfg Config) *Engine {
	if cfg.Threshold == 0 {
		cfg.Threshold = 0.5
	}
	if cfg.SilenceDurationMS == 0 {
		cfg.SilenceDurationMS = 400
	}
	if cfg.SampleRate == 0 {
		cfg.SampleRate = 16000
	}
	w := windowSamples(cfg.SampleRate)
	return &Engine{
		detector: detector,
		cfg:      cfg,
		window:   w,
		silence:  int64(math.Ceil(float64(cfg.SilenceDurationMS) * float64(cfg.SampleRate) / 1000.0)),
		recorder: cfg.Recorder,
	}
}

// Process buffers samples, runs the detector over every complete window
// formed, and returns the boundary events produced (usually zero or one,
// occasionally two if a speech segment starts and ends within one call).
// chunkEnd is the cumulative sample count through the last sample in
// samples; window offsets are counted back from it over everything still
// buffered, including leftover samples from earlier calls.
func (e *Engine) Process(samples []float32, chunkEnd int64) []Event {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.buffer = append(e.buffer, samples...)
	var events []Event

	wstart := chunkEnd - int64(len(e.buffer))
	for len(e.buffer) >= e.window {
		win := e.buffer[:e.window]
		e.buffer = e.buffer[e.window:]

		if ev, ok := e.processWindow(win, wstart); ok {
			events = append(events, ev)
		}
		wstart += int64(e.window)
	}
	return events
}

func (e *Engine) processWindow(win []float32, wstart int64) (Event, bool) {
	start := time.Now()
	prob := e.detector.Probability(win)
	if e.recorder != nil {
		e.recorder.RecordVADWindow(context.Background(), time.Since(start).Seconds())
	}
	wend := wstart + int64(len(win))

	if float64(prob) > e.cfg.Threshold {
		var ev Event
		started := false
		if !e.isSpeaking {
			e.isSpeaking = true
			e.speechStartSmpl = wstart
			ev = Event{Kind: EventSpeechStarted, AudioStartMs: msFromSamples(e.speechStartSmpl, e.cfg.SampleRate)}
			started = true
		}
		e.lastSpeechSmpl = wend
		e.silenceCounter = 0
		return ev, started
	}

	if e.isSpeaking {
		e.silenceCounter += int64(len(win))
		if e.silenceCounter >= e.silence {
			e.isSpeaking = false
			return Event{Kind: EventSpeechStopped, AudioEndMs: msFromSamples(e.lastSpeechSmpl, e.cfg.SampleRate)}, true
		}
	}
	return Event{}, false
}

// ForceStop synthesises a speech_stopped boundary if currently speaking,
// used on session finish so a dangling speech_started is always closed.
func (e *Engine) ForceStop() (Event, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.isSpeaking {
		return Event{}, false
	}
	e.isSpeaking = false
	return Event{Kind: EventSpeechStopped, AudioEndMs: msFromSamples(e.lastSpeechSmpl, e.cfg.SampleRate)}, true
}

// IsSpeaking reports whether the engine currently believes speech is active.
func (e *Engine) IsSpeaking() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.isSpeaking
}

// Reset clears all state and the leftover-sample buffer, performed after
// every commit.
func (e *Engine) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.buffer = nil
	e.isSpeaking = false
	e.speechStartSmpl = 0
	e.lastSpeechSmpl = 0
	e.silenceCounter = 0
}

func msFromSamples(sample int64, sampleRate int) int64 {
	return int64(math.Round(float64(sample) * 1000.0 / float64(sampleRate)))
}
