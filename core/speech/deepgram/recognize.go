// Package deepgram implements the speech capabilities on Deepgram's live
// transcription and speak websockets. The recognizer owns a capture device
// for each stream's duration; the synthesizer feeds a playback sink.
package deepgram

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	api "github.com/deepgram/deepgram-go-sdk/pkg/api/listen/v1/websocket/interfaces"
	"github.com/gorilla/websocket"
	"github.com/vitallic/vitallic-core/core/audio"
	"github.com/vitallic/vitallic-core/core/speech"
	"go.opentelemetry.io/otel/trace"
)

const listenHost = "api.deepgram.com"

type Recognizer struct {
	capture  audio.Capture
	language string
	model    string

	connMu    sync.Mutex
	conn      *websocket.Conn
	lastMsgTs time.Time

	// stopRequested distinguishes a requested stream end from a failure when
	// the read loop exits.
	stopRequested bool
}

type RecognizerOption func(*Recognizer)

// WithLanguage sets the transcription language tag (default nl-NL).
func WithLanguage(language string) RecognizerOption {
	return func(r *Recognizer) { r.language = language }
}

// WithModel overrides the transcription model.
func WithModel(model string) RecognizerOption {
	return func(r *Recognizer) { r.model = model }
}

func NewRecognizer(capture audio.Capture, opts ...RecognizerOption) *Recognizer {
	r := &Recognizer{
		capture:  capture,
		language: "nl-NL",
		model:    "nova-3",
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

var _ speech.Recognizer = (*Recognizer)(nil)

// Listen opens a live transcription stream and starts feeding it microphone
// audio. A stream already in flight is closed first.
func (r *Recognizer) Listen(ctx context.Context, handlers speech.RecognitionHandlers) error {
	ctx, span := tracer.Start(ctx, "deepgram.listen", trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()

	r.Stop()

	apiKey, ok := os.LookupEnv("DEEPGRAM_API_KEY")
	if !ok {
		return speech.NewError(speech.KindCapabilityMissing, "deepgram api key not found")
	}

	encoding := r.capture.EncodingInfo()
	if encoding.IsZero() {
		encoding = audio.GetDefaultEncodingInfo()
	}

	listenURL, _ := url.Parse("wss://" + listenHost + "/v1/listen")
	queryParams := listenURL.Query()
	queryParams.Set("encoding", encoding.Format.Name())
	queryParams.Set("sample_rate", strconv.Itoa(encoding.SampleRate))
	queryParams.Set("channels", "1")
	queryParams.Set("model", r.model)
	queryParams.Set("language", r.language)
	queryParams.Set("smart_format", "true")
	queryParams.Set("interim_results", "true")
	queryParams.Set("utterance_end_ms", "1000")
	queryParams.Set("endpointing", "300")
	queryParams.Set("vad_events", "true")
	listenURL.RawQuery = queryParams.Encode()

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, listenURL.String(),
		http.Header{"Authorization": {"Token " + apiKey}})
	if err != nil {
		span.RecordError(err)
		return speech.NewError(speech.KindNetworkFailure, "failed to open socket connection to deepgram: %v", err)
	}

	r.connMu.Lock()
	r.conn = conn
	r.stopRequested = false
	r.lastMsgTs = time.Now()
	r.connMu.Unlock()

	if err := r.capture.Start(ctx, r.sendAudio); err != nil {
		r.closeConn(conn)
		return speech.NewError(speech.KindAudioCaptureUnavailable, "failed to start capture: %v", err)
	}

	go r.readAndProcessMessages(ctx, conn, handlers)

	return nil
}

// Stop requests the active stream to end. No-op when idle.
func (r *Recognizer) Stop() {
	r.connMu.Lock()
	conn := r.conn
	r.stopRequested = true
	r.connMu.Unlock()

	if conn == nil {
		return
	}

	_ = r.capture.Stop()
	r.connMu.Lock()
	if r.conn == conn {
		if err := conn.WriteJSON(struct {
			Type string `json:"type"`
		}{Type: string(api.TypeCloseStreamResponse)}); err != nil {
			logger.Warn("failed to request deepgram stream close", "error", err)
		}
	}
	r.connMu.Unlock()
}

func (r *Recognizer) sendAudio(chunk []byte) {
	r.connMu.Lock()
	defer r.connMu.Unlock()
	if r.conn == nil {
		return
	}

	r.lastMsgTs = time.Now()
	if err := r.conn.WriteMessage(websocket.BinaryMessage, chunk); err != nil {
		logger.Warn("failed to write audio to deepgram", "error", err)
	}
}

// sendKeepAlive keeps the stream open across silent stretches the capture
// device does not fill.
func (r *Recognizer) sendKeepAlive(conn *websocket.Conn) {
	r.connMu.Lock()
	defer r.connMu.Unlock()
	if r.conn != conn {
		return
	}

	if err := conn.WriteJSON(struct {
		Type string `json:"type"`
	}{Type: "KeepAlive"}); err != nil {
		logger.Warn("failed to write keepalive to deepgram", "error", err)
	}
}

func (r *Recognizer) readAndProcessMessages(ctx context.Context, conn *websocket.Conn, handlers speech.RecognitionHandlers) {
	keepAliveCtx, cancelKeepAlive := context.WithCancel(ctx)
	defer cancelKeepAlive()
	go r.keepAliveLoop(keepAliveCtx, conn)

	// utterance accumulates finalized segments until the engine reports the
	// end of speech.
	var utterance strings.Builder
	var confidence float64

	for {
		msgType, msg, err := conn.ReadMessage()
		if err != nil {
			r.connMu.Lock()
			requested := r.stopRequested
			if r.conn == conn {
				r.conn = nil
			}
			r.connMu.Unlock()
			conn.Close()
			_ = r.capture.Stop()

			if !requested && !isNormalClose(err) {
				if handlers.OnError != nil {
					handlers.OnError(speech.KindStreamAborted)
				}
			}
			if handlers.OnStreamEnd != nil {
				handlers.OnStreamEnd()
			}
			return
		}
		if msgType == websocket.BinaryMessage {
			continue
		}

		r.processMessage(msg, handlers, &utterance, &confidence)
	}
}

func isNormalClose(err error) bool {
	return websocket.IsCloseError(err, websocket.CloseNormalClosure)
}

func (r *Recognizer) processMessage(msg []byte, handlers speech.RecognitionHandlers, utterance *strings.Builder, confidence *float64) {
	var parsedMsg struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(msg, &parsedMsg); err != nil {
		logger.Warn("failed to unmarshal deepgram message", "error", err)
		return
	}

	switch api.TypeResponse(parsedMsg.Type) {
	case api.TypeMessageResponse:
		var msgResp api.MessageResponse
		if err := json.Unmarshal(msg, &msgResp); err != nil {
			logger.Warn("failed to unmarshal deepgram message", "error", err)
			return
		}
		if len(msgResp.Channel.Alternatives) == 0 {
			return
		}

		alternative := msgResp.Channel.Alternatives[0]
		transcript := strings.TrimSpace(alternative.Transcript)

		if msgResp.IsFinal {
			if len(transcript) > 0 {
				if utterance.Len() > 0 {
					utterance.WriteByte(' ')
				}
				utterance.WriteString(transcript)
				*confidence = alternative.Confidence
			}
			if msgResp.SpeechFinal {
				r.flushUtterance(handlers, utterance, confidence)
			}
			return
		}

		if len(transcript) > 0 && handlers.OnPartial != nil {
			pending := transcript
			if utterance.Len() > 0 {
				pending = utterance.String() + " " + transcript
			}
			handlers.OnPartial(pending, alternative.Confidence)
		}

	case api.TypeUtteranceEndResponse:
		r.flushUtterance(handlers, utterance, confidence)
	}
}

func (r *Recognizer) flushUtterance(handlers speech.RecognitionHandlers, utterance *strings.Builder, confidence *float64) {
	fullTranscript := strings.TrimSpace(utterance.String())
	utterance.Reset()
	if len(fullTranscript) == 0 {
		return
	}

	if handlers.OnFinal != nil {
		handlers.OnFinal(fullTranscript, *confidence)
	}
	*confidence = 0
}

func (r *Recognizer) keepAliveLoop(ctx context.Context, conn *websocket.Conn) {
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.connMu.Lock()
			idle := time.Since(r.lastMsgTs) > time.Second
			active := r.conn == conn
			r.connMu.Unlock()
			if !active {
				return
			}
			if idle {
				r.sendKeepAlive(conn)
			}
		}
	}
}

func (r *Recognizer) closeConn(conn *websocket.Conn) {
	r.connMu.Lock()
	if r.conn == conn {
		r.conn = nil
	}
	r.connMu.Unlock()
	conn.Close()
}
