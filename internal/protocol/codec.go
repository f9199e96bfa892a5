package protocol

import (
	"encoding/json"
	"fmt"
)

// ErrUnknownEventType is returned by Decode for an inbound type the codec
// does not recognise. Callers should surface this as an `error` event with
// code `invalid_event` rather than closing the connection.
type ErrUnknownEventType struct {
	Type    string
	EventID string
}

func (e *ErrUnknownEventType) Error() string {
	return fmt.Sprintf("unknown event type %q", e.Type)
}

// Decode sniffs the `type` field of raw and unmarshals it into the matching
// concrete inbound event struct, returned as `any`. Callers type-switch on
// the result.
func Decode(raw []byte) (any, error) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("decode envelope: %w", err)
	}

	switch env.Type {
	case TypeSessionUpdate:
		var ev SessionUpdateEvent
		if err := json.Unmarshal(raw, &ev); err != nil {
			return nil, fmt.Errorf("decode session.update: %w", err)
		}
		return &ev, nil
	case TypeAudioAppend:
		var ev AudioAppendEvent
		if err := json.Unmarshal(raw, &ev); err != nil {
			return nil, fmt.Errorf("decode input_audio_buffer.append: %w", err)
		}
		return &ev, nil
	case TypeAudioCommit:
		var ev AudioCommitEvent
		if err := json.Unmarshal(raw, &ev); err != nil {
			return nil, fmt.Errorf("decode input_audio_buffer.commit: %w", err)
		}
		return &ev, nil
	case TypeSessionFinish:
		var ev SessionFinishEvent
		if err := json.Unmarshal(raw, &ev); err != nil {
			return nil, fmt.Errorf("decode session.finish: %w", err)
		}
		return &ev, nil
	default:
		return nil, &ErrUnknownEventType{Type: env.Type, EventID: env.EventID}
	}
}

// Encode marshals any outbound event struct to JSON bytes.
func Encode(event any) ([]byte, error) {
	return json.Marshal(event)
}
