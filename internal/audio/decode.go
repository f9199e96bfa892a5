// Package audio decodes base64-encoded wire audio into mono 16 kHz float32
// samples in [-1, 1].
package audio

import (
	"encoding/base64"
	"encoding/binary"
	"errors"
	"fmt"
)

// TargetSampleRate is the sample rate every decoded chunk is resampled to
// before reaching the VAD engine and transcriber adapter.
const TargetSampleRate = 16000

// ErrMalformedEncoding marks a payload that failed to even base64-decode,
// distinct from a payload that decoded fine but carries an unsupported or
// corrupt sample format (ErrMalformedSamples). Callers use errors.Is to
// pick the matching protocol error code for each.
var (
	ErrMalformedEncoding = errors.New("audio: malformed base64 payload")
	ErrMalformedSamples  = errors.New("audio: unsupported or corrupt sample data")
)

// Decode turns a base64 payload declared as format at sampleRate into mono
// float32 samples at TargetSampleRate. An empty result with a nil error is
// legal (e.g. an Opus keyframe carrying no audio).
func Decode(b64, format string, sampleRate int) ([]float32, error) {
	raw, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedEncoding, err)
	}
	if len(raw) == 0 {
		return nil, nil
	}

	var mono []float32
	switch format {
	case "pcm", "pcm16", "pcm_s16le":
		mono = pcm16ToFloat32(raw)
	case "pcm32", "pcm_s32le":
		mono = pcm32ToFloat32(raw)
	case "opus":
		mono, err = decodeOpus(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedSamples, err)
		}
	default:
		// Unknown format falls back to int16 LE per the decoder's dispatch rule.
		mono = pcm16ToFloat32(raw)
	}

	if sampleRate != 0 && sampleRate != TargetSampleRate {
		mono = Resample(mono, sampleRate, TargetSampleRate)
	}
	return mono, nil
}

func pcm16ToFloat32(raw []byte) []float32 {
	n := len(raw) / 2
	out := make([]float32, n)
	for i := 0; i < n; i++ {
		v := int16(binary.LittleEndian.Uint16(raw[i*2:]))
		out[i] = float32(v) / 32768.0
	}
	return out
}

func pcm32ToFloat32(raw []byte) []float32 {
	n := len(raw) / 4
	out := make([]float32, n)
	for i := 0; i < n; i++ {
		v := int32(binary.LittleEndian.Uint32(raw[i*4:]))
		out[i] = float32(v) / 2147483648.0
	}
	return out
}

// DownmixStereo averages interleaved stereo float32 samples to mono. Used
// where a decode path (e.g. Opus) surfaces stereo output.
func DownmixStereo(interleaved []float32) []float32 {
	n := len(interleaved) / 2
	out := make([]float32, n)
	for i := 0; i < n; i++ {
		out[i] = (interleaved[i*2] + interleaved[i*2+1]) / 2
	}
	return out
}
