package deepgram

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/vitallic/vitallic-core/core/audio"
	"github.com/vitallic/vitallic-core/core/speech"
	"go.opentelemetry.io/otel/trace"
)

const speakHost = "api.deepgram.com"

type Synthesizer struct {
	playback audio.Playback
	voice    string

	mu     sync.Mutex
	active *speakStream
}

type SynthesizerOption func(*Synthesizer)

// WithVoice overrides the synthesis voice model.
func WithVoice(voice string) SynthesizerOption {
	return func(s *Synthesizer) { s.voice = voice }
}

func NewSynthesizer(playback audio.Playback, opts ...SynthesizerOption) *Synthesizer {
	s := &Synthesizer{
		playback: playback,
		voice:    "aura-2-thalia-en",
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

var _ speech.Synthesizer = (*Synthesizer)(nil)

// speakStream tracks one Speak call. The settle once guards the
// one-of-OnDone-or-OnError contract.
type speakStream struct {
	conn      *websocket.Conn
	handlers  speech.SynthesisHandlers
	volume    float64
	cancelled bool
	settle    sync.Once

	mu sync.Mutex
}

// Speak streams text through the speak websocket into the playback sink. A
// prior utterance still playing is cancelled first.
func (s *Synthesizer) Speak(ctx context.Context, text string, prosody speech.Prosody, handlers speech.SynthesisHandlers) error {
	ctx, span := tracer.Start(ctx, "deepgram.speak", trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()

	s.Stop()

	apiKey, ok := os.LookupEnv("DEEPGRAM_API_KEY")
	if !ok {
		return speech.NewError(speech.KindCapabilityMissing, "deepgram api key not found")
	}
	if strings.TrimSpace(text) == "" {
		return speech.NewError(speech.KindSynthesisFailure, "empty text")
	}

	encoding := s.playback.EncodingInfo()
	if encoding.IsZero() {
		encoding = audio.GetDefaultEncodingInfo()
	}

	speakURL, _ := url.Parse("wss://" + speakHost + "/v1/speak")
	queryParams := speakURL.Query()
	queryParams.Set("encoding", encoding.Format.Name())
	queryParams.Set("sample_rate", strconv.Itoa(encoding.SampleRate))
	queryParams.Set("model", s.voice)
	speakURL.RawQuery = queryParams.Encode()

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, speakURL.String(),
		http.Header{"Authorization": {"Token " + apiKey}})
	if err != nil {
		span.RecordError(err)
		return speech.NewError(speech.KindNetworkFailure, "failed to open socket connection to deepgram: %v", err)
	}

	stream := &speakStream{
		conn:     conn,
		handlers: handlers,
		volume:   prosody.Volume,
	}

	s.mu.Lock()
	s.active = stream
	s.mu.Unlock()

	if err := conn.WriteJSON(struct {
		Type string `json:"type"`
		Text string `json:"text"`
	}{Type: "Speak", Text: text}); err != nil {
		s.release(stream)
		conn.Close()
		return speech.NewError(speech.KindNetworkFailure, "failed to send text to deepgram: %v", err)
	}
	if err := conn.WriteJSON(struct {
		Type string `json:"type"`
	}{Type: "Flush"}); err != nil {
		s.release(stream)
		conn.Close()
		return speech.NewError(speech.KindNetworkFailure, "failed to flush deepgram stream: %v", err)
	}

	go s.readAndPlay(ctx, stream, encoding)

	return nil
}

// Stop cancels in-progress playback. Queued audio is discarded.
func (s *Synthesizer) Stop() {
	s.mu.Lock()
	stream := s.active
	s.active = nil
	s.mu.Unlock()

	if stream == nil {
		return
	}

	stream.mu.Lock()
	stream.cancelled = true
	stream.mu.Unlock()

	if err := stream.conn.WriteJSON(struct {
		Type string `json:"type"`
	}{Type: "Clear"}); err != nil {
		logger.Warn("failed to clear deepgram speak stream", "error", err)
	}
	stream.conn.Close()
	s.playback.Clear()
}

func (s *Synthesizer) readAndPlay(ctx context.Context, stream *speakStream, encoding audio.EncodingInfo) {
	for {
		msgType, msg, err := stream.conn.ReadMessage()
		if err != nil {
			stream.mu.Lock()
			cancelled := stream.cancelled
			stream.mu.Unlock()

			s.release(stream)
			stream.conn.Close()

			if cancelled {
				stream.settle.Do(func() {
					if stream.handlers.OnDone != nil {
						stream.handlers.OnDone()
					}
				})
				return
			}

			stream.settle.Do(func() {
				if stream.handlers.OnError != nil {
					stream.handlers.OnError(speech.KindSynthesisFailure)
				}
			})
			return
		}

		if msgType == websocket.BinaryMessage {
			chunk := msg
			if encoding.Format == audio.EncodingLinear16 && stream.volume > 0 && stream.volume < 1 {
				chunk = scaleLinear16(msg, stream.volume)
			}
			if err := s.playback.SendAudio(chunk); err != nil {
				logger.Warn("failed to queue synthesized audio", "error", err)
			}
			continue
		}

		var parsedMsg struct {
			Type string `json:"type"`
		}
		if err := json.Unmarshal(msg, &parsedMsg); err != nil {
			logger.Warn("failed to unmarshal deepgram speak message", "error", err)
			continue
		}

		switch parsedMsg.Type {
		case "Flushed":
			s.finish(ctx, stream)
			return
		case "Warning":
			logger.Warn("deepgram speak warning", "message", string(msg))
		}
	}
}

// finish waits for queued audio to leave the speaker before reporting
// completion.
func (s *Synthesizer) finish(ctx context.Context, stream *speakStream) {
	err := s.playback.Drain(ctx)

	s.release(stream)
	stream.conn.Close()

	stream.mu.Lock()
	cancelled := stream.cancelled
	stream.mu.Unlock()

	stream.settle.Do(func() {
		if err != nil && !cancelled {
			if stream.handlers.OnError != nil {
				stream.handlers.OnError(speech.KindSynthesisFailure)
			}
			return
		}
		if stream.handlers.OnDone != nil {
			stream.handlers.OnDone()
		}
	})
}

func (s *Synthesizer) release(stream *speakStream) {
	s.mu.Lock()
	if s.active == stream {
		s.active = nil
	}
	s.mu.Unlock()
}

// scaleLinear16 applies a volume gain to little-endian 16-bit PCM. Pitch and
// rate are fixed by the voice model; volume is the one prosody parameter the
// sink can honor.
func scaleLinear16(chunk []byte, volume float64) []byte {
	scaled := make([]byte, len(chunk))
	for i := 0; i+1 < len(chunk); i += 2 {
		sample := int16(binary.LittleEndian.Uint16(chunk[i:]))
		binary.LittleEndian.PutUint16(scaled[i:], uint16(int16(float64(sample)*volume)))
	}
	return scaled
}
