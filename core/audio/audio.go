// Package audio defines the device-side contracts the speech adapters build
// on: a capture source feeding raw frames to a callback and a playback sink
// that can be drained and cleared.
package audio

import "context"

const (
	DefaultSampleRate = 16000
	DefaultFormat     = "linear16"
)

func GetDefaultEncodingInfo() EncodingInfo {
	return EncodingInfo{SampleRate: DefaultSampleRate, Format: encodingFormat(DefaultFormat)}
}

type EncodingInfo struct {
	SampleRate int
	Format     encodingFormat
}

func (e EncodingInfo) IsZero() bool {
	return e.SampleRate == 0 || e.Format.Name() == ""
}

func (e EncodingInfo) SilenceValue() byte {
	switch e.Format {
	case EncodingALaw:
		return 0x55
	case EncodingMulaw:
		return 0xFF
	case EncodingLinear16:
		return 0
	}

	return 0
}

type encodingFormat string

func (e encodingFormat) Name() string {
	return string(e)
}

func (e encodingFormat) ByteSize() int {
	switch e {
	case EncodingMulaw, EncodingALaw:
		return 1
	case EncodingLinear16:
		return 2
	}
	return -1
}

const (
	EncodingMulaw    encodingFormat = "mulaw"
	EncodingALaw     encodingFormat = "alaw"
	EncodingLinear16 encodingFormat = "linear16"
)

// Capture is a microphone source. Start is exclusive: the device is held
// until Stop.
type Capture interface {
	EncodingInfo() EncodingInfo
	Start(ctx context.Context, onAudio func(audio []byte)) error
	Stop() error
}

// Playback is a speaker sink. SendAudio queues a chunk; Drain blocks until
// everything queued so far has been played out; Clear discards whatever has
// not played yet.
type Playback interface {
	EncodingInfo() EncodingInfo
	SendAudio(audio []byte) error
	Drain(ctx context.Context) error
	Clear()
}
