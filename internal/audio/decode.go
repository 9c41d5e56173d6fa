// Package audio converts synthesized speech payloads into playable frames.
//
// The remote service hands back base64 text wrapping raw little-endian
// signed 16-bit PCM. DecodeBase64 and DecodePCM16 turn that into
// normalized float channels; EncodePCM16 and Resample prepare those
// channels for an output device running at a fixed format.
package audio

import (
	"encoding/base64"
	"encoding/binary"
	"fmt"
	"time"

	"github.com/hammamikhairi/mysteryhost/internal/domain"
)

// Fixed output format of the speech pipeline.
const (
	SampleRate   = 24000
	ChannelCount = 1
	BitDepth     = 16
)

// pcmScale maps int16 to [-1, 1).
const pcmScale = 32768

// DecodedAudio is normalized PCM split per channel. Treat as immutable.
type DecodedAudio struct {
	SampleRate int
	Channels   [][]float32 // Channels[c][i] is frame i of channel c
}

// ChannelCount returns the number of channels.
func (a *DecodedAudio) ChannelCount() int { return len(a.Channels) }

// FrameCount returns the number of frames per channel.
func (a *DecodedAudio) FrameCount() int {
	if len(a.Channels) == 0 {
		return 0
	}
	return len(a.Channels[0])
}

// Duration returns the natural-speed playback length.
func (a *DecodedAudio) Duration() time.Duration {
	if a.SampleRate <= 0 {
		return 0
	}
	return time.Duration(a.FrameCount()) * time.Second / time.Duration(a.SampleRate)
}

// DecodeBase64 decodes standard padded base64.
func DecodeBase64(input string) ([]byte, error) {
	data, err := base64.StdEncoding.DecodeString(input)
	if err != nil {
		return nil, fmt.Errorf("%w: base64: %v", domain.ErrDecode, err)
	}
	return data, nil
}

// DecodePCM16 interprets data as interleaved little-endian int16 samples
// and normalizes each by 1/32768.
func DecodePCM16(data []byte, sampleRate, channelCount int) (*DecodedAudio, error) {
	if sampleRate < 1 {
		return nil, fmt.Errorf("%w: invalid sample rate %d", domain.ErrDecode, sampleRate)
	}
	if channelCount < 1 {
		return nil, fmt.Errorf("%w: invalid channel count %d", domain.ErrDecode, channelCount)
	}
	frameBytes := 2 * channelCount
	if len(data)%frameBytes != 0 {
		return nil, fmt.Errorf("%w: %d bytes is not a whole number of %d-channel 16-bit frames",
			domain.ErrDecode, len(data), channelCount)
	}

	frames := len(data) / frameBytes
	channels := make([][]float32, channelCount)
	for c := range channels {
		channels[c] = make([]float32, frames)
	}

	for i := 0; i < frames; i++ {
		for c := 0; c < channelCount; c++ {
			off := (i*channelCount + c) * 2
			s := int16(binary.LittleEndian.Uint16(data[off:]))
			channels[c][i] = float32(s) / pcmScale
		}
	}

	return &DecodedAudio{SampleRate: sampleRate, Channels: channels}, nil
}

// EncodePCM16 interleaves the channels back into little-endian int16
// bytes, clamping out-of-range values.
func EncodePCM16(a *DecodedAudio) []byte {
	channels := a.ChannelCount()
	frames := a.FrameCount()
	out := make([]byte, frames*channels*2)

	for i := 0; i < frames; i++ {
		for c := 0; c < channels; c++ {
			off := (i*channels + c) * 2
			binary.LittleEndian.PutUint16(out[off:], uint16(toInt16(a.Channels[c][i])))
		}
	}
	return out
}

func toInt16(v float32) int16 {
	s := int32(v * pcmScale)
	if s > 32767 {
		s = 32767
	} else if s < -32768 {
		s = -32768
	}
	return int16(s)
}
