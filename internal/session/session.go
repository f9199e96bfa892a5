package session

import (
	"context"
	"errors"
	"time"

	"github.com/coder/websocket"

	"github.com/RookieZoe/qwen3-asr-realtime-api/internal/audio"
	"github.com/RookieZoe/qwen3-asr-realtime-api/internal/config"
	apperrors "github.com/RookieZoe/qwen3-asr-realtime-api/internal/errors"
	"github.com/RookieZoe/qwen3-asr-realtime-api/internal/ids"
	"github.com/RookieZoe/qwen3-asr-realtime-api/internal/protocol"
	"github.com/RookieZoe/qwen3-asr-realtime-api/internal/trace"
	"github.com/RookieZoe/qwen3-asr-realtime-api/internal/transcriber"
	"github.com/RookieZoe/qwen3-asr-realtime-api/internal/vad"
)

// wsConn is the slice of *websocket.Conn the session needs. Narrowed to an
// interface so tests can drive the dispatch loop without a real socket.
type wsConn interface {
	Read(ctx context.Context) (websocket.MessageType, []byte, error)
	Write(ctx context.Context, typ websocket.MessageType, data []byte) error
	Close(code websocket.StatusCode, reason string) error
}

// DetectorFactory builds a fresh VAD detector for a new session.update,
// letting the server choose between EnergyDetector and a build-tagged
// SileroDetector without the session package depending on the choice.
type DetectorFactory func() vad.Detector

// MetricsRecorder is the slice of observability calls a Session emits.
// Narrowed to an interface so this package doesn't depend on the concrete
// metrics backend (OpenTelemetry, plain counters, or both composed together).
type MetricsRecorder interface {
	RecordSessionStarted(ctx context.Context)
	RecordAudioSeconds(ctx context.Context, seconds float64)
	RecordError(ctx context.Context, code string)
	RecordVADWindow(ctx context.Context, seconds float64)
}

// Session runs one connection's entire read-dispatch-commit lifecycle on a
// single goroutine. Backend calls are dispatched through a shared Pool,
// bounding concurrency process-wide without serializing unrelated sessions.
type Session struct {
	id      string
	conn    wsConn
	cfg     *config.Config
	pool    *transcriber.Pool
	newVAD  DetectorFactory
	metrics MetricsRecorder

	state State

	modelName        string
	audioFormat      string
	sampleRate       int
	languageHint     string
	vadEnabled       bool
	vadThreshold     float64
	vadSilenceMS     int
	chunkSizeSec     float64
	autoCommitSec    float64

	vadEngine  *vad.Engine
	totalSamples int64

	currentItemID  string
	previousItemID string
	speechActive   bool
	segmentStart   time.Time

	asrState *transcriber.State
}

// New creates a Session bound to conn. Initial session parameters come from
// cfg (the process-wide defaults a deployment sets via environment
// variables); a session.update from the client overrides them per-session.
// metrics may be nil, in which case recording is skipped.
func New(conn wsConn, cfg *config.Config, pool *transcriber.Pool, newVAD DetectorFactory, metrics MetricsRecorder) *Session {
	s := &Session{
		id:            ids.Session(),
		conn:          conn,
		cfg:           cfg,
		pool:          pool,
		newVAD:        newVAD,
		metrics:       metrics,
		state:         AwaitingConfig,
		modelName:     DefaultModelName,
		audioFormat:   DefaultAudioFormat,
		sampleRate:    DefaultSampleRate,
		vadEnabled:    true,
		vadThreshold:  DefaultVADThreshold,
		vadSilenceMS:  DefaultVADSilenceDurationMS,
		chunkSizeSec:  DefaultStreamingChunkSizeSec,
		autoCommitSec: DefaultAutoCommitIntervalSec,
	}
	if cfg != nil {
		if cfg.SampleRate != 0 {
			s.sampleRate = cfg.SampleRate
		}
		s.vadEnabled = cfg.VADEnabled
		if cfg.VADThreshold != 0 {
			s.vadThreshold = cfg.VADThreshold
		}
		if cfg.VADSilenceDurationMS != 0 {
			s.vadSilenceMS = cfg.VADSilenceDurationMS
		}
		if cfg.StreamingChunkSizeSec != 0 {
			s.chunkSizeSec = cfg.StreamingChunkSizeSec
		}
		if cfg.AutoCommitIntervalSec != 0 {
			s.autoCommitSec = cfg.AutoCommitIntervalSec
		}
	}
	return s
}

// ID returns the session's generated identifier.
func (s *Session) ID() string { return s.id }

// Run accepts the connection's lifecycle: sends session.created, then reads
// and dispatches inbound events until session.finish, disconnect, or ctx
// cancellation. It always attempts a best-effort session.finished before
// returning.
func (s *Session) Run(ctx context.Context) error {
	log := trace.Logger(ctx).With("session_id", s.id)
	log.Info("session started")
	defer log.Info("session ended", "state", s.state.String())

	if s.metrics != nil {
		s.metrics.RecordSessionStarted(ctx)
	}

	s.send(ctx, protocol.NewSessionCreated(s.id, s.modelName, s.audioFormat, s.turnDetectionInfo()))

	msgCh := make(chan []byte, InboundChannelBuffer)
	errCh := make(chan error, 1)
	go s.readLoop(ctx, msgCh, errCh)

	ticker := time.NewTicker(AutoCommitCheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.forceFinish(context.Background())
			return ctx.Err()

		case err := <-errCh:
			s.forceFinish(context.Background())
			return err

		case raw := <-msgCh:
			s.dispatch(ctx, raw)
			if s.state == Finished {
				return nil
			}

		case <-ticker.C:
			s.checkAutoCommit(ctx)
		}
	}
}

func (s *Session) readLoop(ctx context.Context, msgCh chan<- []byte, errCh chan<- error) {
	for {
		_, data, err := s.conn.Read(ctx)
		if err != nil {
			errCh <- err
			return
		}
		select {
		case msgCh <- data:
		case <-ctx.Done():
			return
		}
	}
}

func (s *Session) dispatch(ctx context.Context, raw []byte) {
	event, err := protocol.Decode(raw)
	if err != nil {
		var unknown *protocol.ErrUnknownEventType
		var causeEventID string
		if errors.As(err, &unknown) {
			causeEventID = unknown.EventID
		}
		s.sendError(ctx, apperrors.CodeInvalidEvent, err.Error(), causeEventID)
		return
	}

	switch e := event.(type) {
	case *protocol.SessionUpdateEvent:
		s.handleSessionUpdate(ctx, e)
	case *protocol.AudioAppendEvent:
		s.handleAudioAppend(ctx, e)
	case *protocol.AudioCommitEvent:
		s.handleAudioCommit(ctx)
	case *protocol.SessionFinishEvent:
		s.handleSessionFinish(ctx)
	}
}

func (s *Session) handleSessionUpdate(ctx context.Context, e *protocol.SessionUpdateEvent) {
	if s.state == ItemOpen {
		if !isNoopUpdate(e.Session, s) {
			s.sendError(ctx, apperrors.CodeReconfigureWhileOpen, "cannot reconfigure session while an item is open", e.EventID)
			return
		}
		s.send(ctx, protocol.NewSessionUpdated(s.id, s.modelName, s.audioFormat, s.turnDetectionInfo()))
		return
	}

	if e.Session.InputAudioFormat != "" {
		s.audioFormat = e.Session.InputAudioFormat
	}
	if e.Session.SampleRate != 0 {
		s.sampleRate = e.Session.SampleRate
	}
	if e.Session.InputAudioTranscription != nil {
		s.languageHint = transcriber.NormalizeLanguage(e.Session.InputAudioTranscription.Language)
	}

	if e.Session.TurnDetection == nil {
		s.vadEnabled = false
	} else {
		s.vadEnabled = true
		if e.Session.TurnDetection.Threshold != nil {
			s.vadThreshold = *e.Session.TurnDetection.Threshold
		}
		if e.Session.TurnDetection.SilenceDurationMS != nil {
			s.vadSilenceMS = *e.Session.TurnDetection.SilenceDurationMS
		}
	}

	if s.vadEnabled {
		s.vadEngine = vad.New(s.newVAD(), vad.Config{
			Threshold:         s.vadThreshold,
			SilenceDurationMS: s.vadSilenceMS,
			SampleRate:        audio.TargetSampleRate,
			Recorder:          s.metrics,
		})
	} else {
		s.vadEngine = nil
	}

	s.state = Idle
	s.send(ctx, protocol.NewSessionUpdated(s.id, s.modelName, s.audioFormat, s.turnDetectionInfo()))
}

func isNoopUpdate(p protocol.SessionUpdatePayload, s *Session) bool {
	if p.InputAudioFormat != "" && p.InputAudioFormat != s.audioFormat {
		return false
	}
	if p.SampleRate != 0 && p.SampleRate != s.sampleRate {
		return false
	}
	if p.InputAudioTranscription != nil && transcriber.NormalizeLanguage(p.InputAudioTranscription.Language) != s.languageHint {
		return false
	}
	vadNowEnabled := p.TurnDetection != nil
	if vadNowEnabled != s.vadEnabled {
		return false
	}
	if p.TurnDetection != nil {
		if p.TurnDetection.Threshold != nil && *p.TurnDetection.Threshold != s.vadThreshold {
			return false
		}
		if p.TurnDetection.SilenceDurationMS != nil && *p.TurnDetection.SilenceDurationMS != s.vadSilenceMS {
			return false
		}
	}
	return true
}

func (s *Session) turnDetectionInfo() *protocol.TurnDetectionInfo {
	if !s.vadEnabled {
		return nil
	}
	return &protocol.TurnDetectionInfo{
		Type:              "server_vad",
		Threshold:         s.vadThreshold,
		SilenceDurationMS: s.vadSilenceMS,
	}
}

func (s *Session) send(ctx context.Context, event any) {
	data, err := protocol.Encode(event)
	if err != nil {
		trace.Logger(ctx).Error("failed to encode outbound event", "error", err)
		return
	}
	if err := s.conn.Write(ctx, websocket.MessageText, data); err != nil {
		trace.Logger(ctx).Debug("failed to write outbound event", "error", err)
	}
}

func (s *Session) sendError(ctx context.Context, code apperrors.Code, message, causeEventID string) {
	s.send(ctx, protocol.NewError(code.Type(), string(code), message, "", causeEventID))
	if s.metrics != nil {
		s.metrics.RecordError(ctx, string(code))
	}
}

// forceFinish is the best-effort path on disconnect or context cancellation:
// it drains any open item exactly like session.finish, but writes are
// allowed to fail silently since the peer is presumed gone.
func (s *Session) forceFinish(ctx context.Context) {
	if s.state == Finished {
		return
	}
	s.state = Finishing

	if s.vadEngine != nil && s.speechActive {
		if ev, ok := s.vadEngine.ForceStop(); ok {
			s.send(ctx, protocol.NewSpeechStopped(ev.AudioEndMs, s.currentItemID))
			s.commitAudio(ctx)
		}
	} else if s.currentItemID != "" {
		s.commitAudio(ctx)
	}

	s.send(ctx, protocol.NewSessionFinished())
	s.state = Finished
}
