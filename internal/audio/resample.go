package audio

import "math"

// Resample returns a copy of a played back at rate times natural speed,
// at the same sample rate. Linear interpolation between neighbouring
// frames; pitch moves with speed the same way a browser playbackRate does.
// A rate of 1 (or a non-positive rate) returns a unchanged.
func Resample(a *DecodedAudio, rate float64) *DecodedAudio {
	if rate <= 0 || rate == 1 || a.FrameCount() == 0 {
		return a
	}

	inFrames := a.FrameCount()
	outFrames := int(math.Ceil(float64(inFrames) / rate))

	out := &DecodedAudio{
		SampleRate: a.SampleRate,
		Channels:   make([][]float32, a.ChannelCount()),
	}

	for c, in := range a.Channels {
		dst := make([]float32, outFrames)
		pos := 0.0
		for i := 0; i < outFrames; i++ {
			idx := int(pos)
			if idx >= inFrames-1 {
				dst[i] = in[inFrames-1]
			} else {
				frac := float32(pos - float64(idx))
				dst[i] = in[idx]*(1-frac) + in[idx+1]*frac
			}
			pos += rate
		}
		out.Channels[c] = dst
	}
	return out
}
