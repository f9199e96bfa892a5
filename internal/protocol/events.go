// Package protocol defines the inbound/outbound JSON event types spoken over
// the realtime channel and the identifiers that stamp them.
package protocol

import "github.com/RookieZoe/qwen3-asr-realtime-api/internal/ids"

// Inbound event type strings, recognised by the codec's sniff-then-dispatch.
const (
	TypeSessionUpdate = "session.update"
	TypeAudioAppend   = "input_audio_buffer.append"
	TypeAudioCommit   = "input_audio_buffer.commit"
	TypeSessionFinish = "session.finish"
)

// Outbound event type strings, bit-exact on the wire.
const (
	TypeSessionCreated         = "session.created"
	TypeSessionUpdated         = "session.updated"
	TypeSpeechStarted          = "input_audio_buffer.speech_started"
	TypeSpeechStopped          = "input_audio_buffer.speech_stopped"
	TypeAudioCommitted         = "input_audio_buffer.committed"
	TypeItemCreated            = "conversation.item.created"
	TypeTranscriptionText      = "conversation.item.input_audio_transcription.text"
	TypeTranscriptionCompleted = "conversation.item.input_audio_transcription.completed"
	TypeTranscriptionFailed    = "conversation.item.input_audio_transcription.failed"
	TypeError                  = "error"
	TypeSessionFinished        = "session.finished"
)

// Envelope is the minimal shape every inbound event satisfies; the codec
// sniffs Type before dispatching to a concrete payload.
type Envelope struct {
	Type    string `json:"type"`
	EventID string `json:"event_id,omitempty"`
}

// SessionUpdateEvent applies or replaces session configuration.
type SessionUpdateEvent struct {
	Type    string               `json:"type"`
	EventID string               `json:"event_id,omitempty"`
	Session SessionUpdatePayload `json:"session"`
}

type SessionUpdatePayload struct {
	InputAudioFormat        string                         `json:"input_audio_format,omitempty"`
	SampleRate              int                            `json:"sample_rate,omitempty"`
	InputAudioTranscription *InputAudioTranscriptionConfig `json:"input_audio_transcription,omitempty"`
	TurnDetection           *TurnDetectionConfig           `json:"turn_detection"`
}

type InputAudioTranscriptionConfig struct {
	Language string `json:"language,omitempty"`
}

// TurnDetectionConfig being nil (absent or explicit null) means manual mode.
type TurnDetectionConfig struct {
	Type              string   `json:"type,omitempty"`
	Threshold         *float64 `json:"threshold,omitempty"`
	SilenceDurationMS *int     `json:"silence_duration_ms,omitempty"`
}

// AudioAppendEvent delivers one base64-encoded audio frame.
type AudioAppendEvent struct {
	Type    string `json:"type"`
	EventID string `json:"event_id,omitempty"`
	Audio   string `json:"audio"`
}

// AudioCommitEvent closes the current utterance in manual mode.
type AudioCommitEvent struct {
	Type    string `json:"type"`
	EventID string `json:"event_id,omitempty"`
}

// SessionFinishEvent requests orderly shutdown.
type SessionFinishEvent struct {
	Type    string `json:"type"`
	EventID string `json:"event_id,omitempty"`
}

// SessionObject describes the session as surfaced to the client.
type SessionObject struct {
	ID                       string           `json:"id"`
	Object                   string           `json:"object"`
	Model                    string           `json:"model"`
	Modalities               []string         `json:"modalities"`
	InputAudioFormat         string           `json:"input_audio_format"`
	InputAudioTranscription  *struct{}        `json:"input_audio_transcription"`
	TurnDetection            *TurnDetectionInfo `json:"turn_detection"`
}

type TurnDetectionInfo struct {
	Type              string  `json:"type"`
	Threshold         float64 `json:"threshold"`
	SilenceDurationMS int     `json:"silence_duration_ms"`
}

type SessionCreatedEvent struct {
	EventID string        `json:"event_id"`
	Type    string        `json:"type"`
	Session SessionObject `json:"session"`
}

type SessionUpdatedEvent struct {
	EventID string        `json:"event_id"`
	Type    string        `json:"type"`
	Session SessionObject `json:"session"`
}

// NewSessionCreated builds a session.created event. vad is nil for manual mode.
func NewSessionCreated(sessionID, model, audioFormat string, vad *TurnDetectionInfo) *SessionCreatedEvent {
	return &SessionCreatedEvent{
		EventID: ids.Event(),
		Type:    TypeSessionCreated,
		Session: newSessionObject(sessionID, model, audioFormat, vad),
	}
}

// NewSessionUpdated builds a session.updated event. vad is nil for manual mode.
func NewSessionUpdated(sessionID, model, audioFormat string, vad *TurnDetectionInfo) *SessionUpdatedEvent {
	return &SessionUpdatedEvent{
		EventID: ids.Event(),
		Type:    TypeSessionUpdated,
		Session: newSessionObject(sessionID, model, audioFormat, vad),
	}
}

func newSessionObject(sessionID, model, audioFormat string, vad *TurnDetectionInfo) SessionObject {
	return SessionObject{
		ID:                      sessionID,
		Object:                  "realtime.session",
		Model:                   model,
		Modalities:              []string{"text"},
		InputAudioFormat:        audioFormat,
		InputAudioTranscription: nil,
		TurnDetection:           vad,
	}
}

type SpeechStartedEvent struct {
	EventID     string `json:"event_id"`
	Type        string `json:"type"`
	AudioStartMs int64  `json:"audio_start_ms"`
	ItemID      string `json:"item_id"`
}

func NewSpeechStarted(audioStartMs int64, itemID string) *SpeechStartedEvent {
	return &SpeechStartedEvent{EventID: ids.Event(), Type: TypeSpeechStarted, AudioStartMs: audioStartMs, ItemID: itemID}
}

type SpeechStoppedEvent struct {
	EventID    string `json:"event_id"`
	Type       string `json:"type"`
	AudioEndMs int64  `json:"audio_end_ms"`
	ItemID     string `json:"item_id"`
}

func NewSpeechStopped(audioEndMs int64, itemID string) *SpeechStoppedEvent {
	return &SpeechStoppedEvent{EventID: ids.Event(), Type: TypeSpeechStopped, AudioEndMs: audioEndMs, ItemID: itemID}
}

type AudioCommittedEvent struct {
	EventID        string `json:"event_id"`
	Type           string `json:"type"`
	PreviousItemID string `json:"previous_item_id"`
	ItemID         string `json:"item_id"`
}

func NewAudioCommitted(previousItemID, itemID string) *AudioCommittedEvent {
	return &AudioCommittedEvent{EventID: ids.Event(), Type: TypeAudioCommitted, PreviousItemID: previousItemID, ItemID: itemID}
}

type ContentPart struct {
	Type       string  `json:"type"`
	Transcript *string `json:"transcript"`
}

type ItemObject struct {
	ID      string        `json:"id"`
	Object  string        `json:"object"`
	Type    string        `json:"type"`
	Status  string        `json:"status"`
	Role    string        `json:"role"`
	Content []ContentPart `json:"content"`
}

type ItemCreatedEvent struct {
	EventID        string     `json:"event_id"`
	Type           string     `json:"type"`
	PreviousItemID string     `json:"previous_item_id"`
	Item           ItemObject `json:"item"`
}

func NewItemCreated(previousItemID, itemID string) *ItemCreatedEvent {
	return &ItemCreatedEvent{
		EventID:        ids.Event(),
		Type:           TypeItemCreated,
		PreviousItemID: previousItemID,
		Item: ItemObject{
			ID:      itemID,
			Object:  "realtime.item",
			Type:    "message",
			Status:  "completed",
			Role:    "user",
			Content: []ContentPart{{Type: "input_audio", Transcript: nil}},
		},
	}
}

type TranscriptionTextEvent struct {
	EventID      string `json:"event_id"`
	Type         string `json:"type"`
	ItemID       string `json:"item_id"`
	ContentIndex int    `json:"content_index"`
	Language     string `json:"language"`
	Emotion      string `json:"emotion"`
	Text         string `json:"text"`
	Stash        string `json:"stash"`
}

func NewTranscriptionText(itemID, language, emotion, text, stash string) *TranscriptionTextEvent {
	return &TranscriptionTextEvent{
		EventID:      ids.Event(),
		Type:         TypeTranscriptionText,
		ItemID:       itemID,
		ContentIndex: 0,
		Language:     language,
		Emotion:      emotion,
		Text:         text,
		Stash:        stash,
	}
}

type TranscriptionCompletedEvent struct {
	EventID      string `json:"event_id"`
	Type         string `json:"type"`
	ItemID       string `json:"item_id"`
	ContentIndex int    `json:"content_index"`
	Language     string `json:"language"`
	Emotion      string `json:"emotion"`
	Transcript   string `json:"transcript"`
}

func NewTranscriptionCompleted(itemID, language, emotion, transcript string) *TranscriptionCompletedEvent {
	return &TranscriptionCompletedEvent{
		EventID:      ids.Event(),
		Type:         TypeTranscriptionCompleted,
		ItemID:       itemID,
		ContentIndex: 0,
		Language:     language,
		Emotion:      emotion,
		Transcript:   transcript,
	}
}

// TranscriptionFailureDetail carries the reason a committed item's
// transcription was abandoned.
type TranscriptionFailureDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Param   string `json:"param,omitempty"`
}

// TranscriptionFailedEvent supplements the protocol's outbound table
// (present in the original source's protocol helpers, dropped from the
// distilled table) for backend failures on a committed item.
type TranscriptionFailedEvent struct {
	EventID      string                     `json:"event_id"`
	Type         string                     `json:"type"`
	ItemID       string                     `json:"item_id"`
	ContentIndex int                        `json:"content_index"`
	Error        TranscriptionFailureDetail `json:"error"`
}

func NewTranscriptionFailed(itemID string, code, message, param string) *TranscriptionFailedEvent {
	return &TranscriptionFailedEvent{
		EventID:      ids.Event(),
		Type:         TypeTranscriptionFailed,
		ItemID:       itemID,
		ContentIndex: 0,
		Error:        TranscriptionFailureDetail{Code: code, Message: message, Param: param},
	}
}

type ErrorDetail struct {
	Type    string `json:"type"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Param   string `json:"param,omitempty"`
	EventID string `json:"event_id,omitempty"`
}

type ErrorEvent struct {
	EventID string      `json:"event_id"`
	Type    string      `json:"type"`
	Error   ErrorDetail `json:"error"`
}

// NewError builds an error event. causeEventID, when non-empty, is the
// client event_id that triggered the error.
func NewError(errType, code, message, param, causeEventID string) *ErrorEvent {
	return &ErrorEvent{
		EventID: ids.Event(),
		Type:    TypeError,
		Error: ErrorDetail{
			Type:    errType,
			Code:    code,
			Message: message,
			Param:   param,
			EventID: causeEventID,
		},
	}
}

type SessionFinishedEvent struct {
	EventID string `json:"event_id"`
	Type    string `json:"type"`
}

func NewSessionFinished() *SessionFinishedEvent {
	return &SessionFinishedEvent{EventID: ids.Event(), Type: TypeSessionFinished}
}
