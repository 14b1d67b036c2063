package deepgram

import (
	"os"

	"github.com/vitallic/vitallic-core/core/audio"
)

// Client bundles both speech capabilities on a shared device pair.
type Client struct {
	Recognizer  *Recognizer
	Synthesizer *Synthesizer
}

func NewClient(capture audio.Capture, playback audio.Playback, recognizerOpts []RecognizerOption, synthesizerOpts []SynthesizerOption) *Client {
	return &Client{
		Recognizer:  NewRecognizer(capture, recognizerOpts...),
		Synthesizer: NewSynthesizer(playback, synthesizerOpts...),
	}
}

// Available reports whether the client can reach the service at all. Device
// failures still surface per call.
func (c *Client) Available() bool {
	if c == nil || c.Recognizer == nil || c.Synthesizer == nil {
		return false
	}
	_, ok := os.LookupEnv("DEEPGRAM_API_KEY")
	return ok
}
