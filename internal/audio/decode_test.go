package audio

import (
	"encoding/base64"
	"encoding/binary"
	"math"
	"testing"
)

func int16Payload(samples ...int16) string {
	buf := make([]byte, len(samples)*2)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(buf[i*2:], uint16(s))
	}
	return base64.StdEncoding.EncodeToString(buf)
}

func TestDecodePCM16(t *testing.T) {
	b64 := int16Payload(0, 16384, -16384, 32767)
	out, err := Decode(b64, "pcm16", 16000)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if len(out) != 4 {
		t.Fatalf("len(out) = %d, want 4", len(out))
	}
	if out[0] != 0 {
		t.Errorf("out[0] = %f, want 0", out[0])
	}
	if math.Abs(float64(out[1])-0.5) > 0.001 {
		t.Errorf("out[1] = %f, want ~0.5", out[1])
	}
}

func TestDecodeEmptyPayload(t *testing.T) {
	out, err := Decode("", "pcm16", 16000)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if len(out) != 0 {
		t.Errorf("len(out) = %d, want 0", len(out))
	}
}

func TestDecodeInvalidBase64(t *testing.T) {
	_, err := Decode("not-valid-base64!!", "pcm16", 16000)
	if err == nil {
		t.Fatal("Decode() expected error for invalid base64")
	}
}

func TestDecodeUnknownFormatFallsBackToInt16(t *testing.T) {
	b64 := int16Payload(100, 200)
	out, err := Decode(b64, "mystery-format", 16000)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if len(out) != 2 {
		t.Fatalf("len(out) = %d, want 2", len(out))
	}
}

func TestDecodeResamplesWhenRateDiffers(t *testing.T) {
	samples := make([]int16, 480) // 10ms at 48kHz
	for i := range samples {
		samples[i] = 1000
	}
	b64 := int16Payload(samples...)
	out, err := Decode(b64, "pcm16", 48000)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	// 10ms at 16kHz should be ~160 samples.
	if len(out) < 150 || len(out) > 170 {
		t.Errorf("len(out) = %d, want ~160", len(out))
	}
}

func TestDownmixStereo(t *testing.T) {
	stereo := []float32{1.0, 0.0, 0.5, 0.5}
	mono := DownmixStereo(stereo)
	if len(mono) != 2 {
		t.Fatalf("len(mono) = %d, want 2", len(mono))
	}
	if mono[0] != 0.5 {
		t.Errorf("mono[0] = %f, want 0.5", mono[0])
	}
	if mono[1] != 0.5 {
		t.Errorf("mono[1] = %f, want 0.5", mono[1])
	}
}

func TestResampleIdentity(t *testing.T) {
	in := []float32{0.1, 0.2, 0.3}
	out := Resample(in, 16000, 16000)
	if len(out) != len(in) {
		t.Fatalf("len(out) = %d, want %d", len(out), len(in))
	}
}
