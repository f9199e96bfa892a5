package audio

import "github.com/pion/opus"

// opusFrameSamples is the PCM sample count of a 20ms frame at Opus's
// internal 48kHz rate, pre-sized generously for stereo.
const opusFrameSamples = 960 * 2 * 2

// decodeOpus decodes a single Opus packet (one wire frame) to mono float32
// samples at 48kHz. Callers resample to TargetSampleRate afterward, same as
// every other decode path in this package.
func decodeOpus(packet []byte) ([]float32, error) {
	dec := &opus.Decoder{}
	pcm := make([]byte, opusFrameSamples)
	n, isStereo, err := dec.Decode(packet, pcm)
	if err != nil {
		return nil, err
	}
	pcm = pcm[:n]

	samples := pcm16ToFloat32(pcm)
	if isStereo {
		samples = DownmixStereo(samples)
	}
	return samples, nil
}
