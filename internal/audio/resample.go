package audio

import "math"

// Resample converts a sequence of normalized samples from srcRate to dstRate
// using linear interpolation. When the rates are equal the input slice is
// returned unchanged (no copy). The output length is round(len(samples)/ratio)
// with ratio = srcRate/dstRate; the rounding is part of the contract and must
// not be replaced with floor or ceil.
func Resample(samples []float32, srcRate, dstRate int) []float32 {
	if srcRate == dstRate {
		return samples
	}
	if len(samples) == 0 || srcRate <= 0 || dstRate <= 0 {
		return nil
	}

	ratio := float64(srcRate) / float64(dstRate)
	outLen := int(math.Round(float64(len(samples)) / ratio))
	if outLen <= 0 {
		return nil
	}

	out := make([]float32, outLen)
	last := len(samples) - 1

	for i := range out {
		srcPos := float64(i) * ratio
		idx := int(srcPos)

		// Past the final sample the output holds the last input value.
		// No extrapolation, no out-of-bounds read.
		if idx >= last {
			out[i] = samples[last]
			continue
		}

		frac := float32(srcPos - float64(idx))
		out[i] = samples[idx]*(1-frac) + samples[idx+1]*frac
	}

	return out
}
