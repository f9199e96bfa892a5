package session

import (
	"context"
	"errors"
	"time"

	"github.com/RookieZoe/qwen3-asr-realtime-api/internal/audio"
	apperrors "github.com/RookieZoe/qwen3-asr-realtime-api/internal/errors"
	"github.com/RookieZoe/qwen3-asr-realtime-api/internal/ids"
	"github.com/RookieZoe/qwen3-asr-realtime-api/internal/protocol"
	"github.com/RookieZoe/qwen3-asr-realtime-api/internal/trace"
	"github.com/RookieZoe/qwen3-asr-realtime-api/internal/transcriber"
	"github.com/RookieZoe/qwen3-asr-realtime-api/internal/vad"
)

func (s *Session) handleAudioAppend(ctx context.Context, e *protocol.AudioAppendEvent) {
	if e.Audio == "" {
		return
	}

	samples, err := audio.Decode(e.Audio, s.audioFormat, s.sampleRate)
	if err != nil {
		code := apperrors.CodeInvalidAudioFormat
		if errors.Is(err, audio.ErrMalformedEncoding) {
			code = apperrors.CodeInvalidAudio
		}
		s.sendError(ctx, code, err.Error(), e.EventID)
		return
	}

	if s.state == AwaitingConfig {
		s.state = Idle
		if s.vadEnabled && s.vadEngine == nil {
			s.vadEngine = vad.New(s.newVAD(), vad.Config{
				Threshold:         s.vadThreshold,
				SilenceDurationMS: s.vadSilenceMS,
				SampleRate:        audio.TargetSampleRate,
				Recorder:          s.metrics,
			})
		}
	}

	s.totalSamples += int64(len(samples))
	if s.metrics != nil && s.sampleRate > 0 {
		s.metrics.RecordAudioSeconds(ctx, float64(len(samples))/float64(audio.TargetSampleRate))
	}

	if s.vadEnabled && s.vadEngine != nil {
		s.processVAD(ctx, samples)
	} else if !s.vadEnabled && s.currentItemID == "" {
		s.openItem(ctx)
	}

	if s.currentItemID == "" {
		return
	}

	if s.asrState == nil {
		s.initASR(ctx)
	}
	if s.asrState == nil {
		return
	}

	next, err := s.pool.Feed(ctx, s.asrState, samples)
	if err != nil {
		s.handleBackendFailure(ctx, err)
		return
	}
	s.asrState = next

	confirmed, stash := transcriber.Split(s.asrState.Text)
	s.send(ctx, protocol.NewTranscriptionText(s.currentItemID, transcriber.DetectLanguageCode(s.asrState.Language), "neutral", confirmed, stash))

	s.checkAutoCommit(ctx)
}

func (s *Session) processVAD(ctx context.Context, samples []float32) {
	events := s.vadEngine.Process(samples, s.totalSamples)
	for _, ev := range events {
		switch ev.Kind {
		case vad.EventSpeechStarted:
			if !s.speechActive {
				s.speechActive = true
				s.openItem(ctx)
				s.send(ctx, protocol.NewSpeechStarted(ev.AudioStartMs, s.currentItemID))
			}
		case vad.EventSpeechStopped:
			if s.speechActive {
				s.send(ctx, protocol.NewSpeechStopped(ev.AudioEndMs, s.currentItemID))
				s.commitAudio(ctx)
			}
		}
	}
}

// openItem opens a new item without emitting conversation.item.created —
// that event fires at commit time, carrying the finalized item's content.
func (s *Session) openItem(ctx context.Context) {
	s.currentItemID = ids.Item()
	s.segmentStart = time.Now()
	s.state = ItemOpen
}

func (s *Session) initASR(ctx context.Context) {
	params := transcriber.DefaultInitParams(s.languageHint, s.chunkSizeSec)
	state, err := s.pool.Init(ctx, params)
	if err != nil {
		s.handleBackendFailure(ctx, err)
		return
	}
	s.asrState = state
}

func (s *Session) handleAudioCommit(ctx context.Context) {
	if s.vadEnabled {
		s.sendError(ctx, apperrors.CodeCommitNotAllowed, "input_audio_buffer.commit is not allowed in VAD mode", "")
		return
	}
	if s.currentItemID == "" {
		s.openItem(ctx)
	}
	s.commitAudio(ctx)
}

// commitAudio runs the five-step commit procedure: emit committed, emit
// item created, finalize the backend, emit the transcription result, then
// rotate item ids and reset per-item state.
func (s *Session) commitAudio(ctx context.Context) {
	if s.currentItemID == "" {
		return
	}
	itemID := s.currentItemID

	s.send(ctx, protocol.NewAudioCommitted(s.previousItemID, itemID))
	s.send(ctx, protocol.NewItemCreated(s.previousItemID, itemID))

	if s.asrState != nil {
		final, err := s.pool.Finalize(ctx, s.asrState)
		if err != nil {
			s.sendTranscriptionFailed(ctx, itemID, err)
		} else {
			s.send(ctx, protocol.NewTranscriptionCompleted(itemID, transcriber.DetectLanguageCode(final.Language), "neutral", final.Text))
		}
	}

	s.previousItemID = itemID
	s.currentItemID = ""
	s.speechActive = false
	s.asrState = nil
	if s.vadEngine != nil {
		s.vadEngine.Reset()
	}

	if s.state != Finishing {
		s.state = Idle
	}
}

// checkAutoCommit closes and immediately reopens the current item once it
// has been open longer than the configured interval, preventing unbounded
// memory growth on long continuous speech.
func (s *Session) checkAutoCommit(ctx context.Context) {
	if s.currentItemID == "" {
		return
	}
	if s.segmentStart.IsZero() {
		s.segmentStart = time.Now()
		return
	}
	if time.Since(s.segmentStart).Seconds() >= s.autoCommitSec {
		s.autoCommitAndContinue(ctx)
	}
}

func (s *Session) autoCommitAndContinue(ctx context.Context) {
	if s.currentItemID == "" {
		return
	}
	itemID := s.currentItemID

	s.send(ctx, protocol.NewAudioCommitted(s.previousItemID, itemID))

	if s.asrState != nil {
		final, err := s.pool.Finalize(ctx, s.asrState)
		if err != nil {
			s.sendTranscriptionFailed(ctx, itemID, err)
		} else {
			s.send(ctx, protocol.NewTranscriptionCompleted(itemID, transcriber.DetectLanguageCode(final.Language), "neutral", final.Text))
		}
		s.asrState = nil
	}

	s.previousItemID = itemID
	s.currentItemID = ids.Item()
	s.segmentStart = time.Now()

	s.send(ctx, protocol.NewItemCreated(s.previousItemID, s.currentItemID))
}

func (s *Session) handleSessionFinish(ctx context.Context) {
	s.state = Finishing
	log := trace.Logger(ctx)
	log.Info("session finish requested", "session_id", s.id)

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

func (s *Session) handleBackendFailure(ctx context.Context, err error) {
	trace.Logger(ctx).Error("transcriber backend failure", "error", err, "session_id", s.id)
	s.sendError(ctx, apperrors.CodeServerError, err.Error(), "")
}

func (s *Session) sendTranscriptionFailed(ctx context.Context, itemID string, err error) {
	trace.Logger(ctx).Error("transcription failed", "error", err, "item_id", itemID)
	s.send(ctx, protocol.NewTranscriptionFailed(itemID, string(apperrors.CodeServerError), err.Error(), ""))
}
