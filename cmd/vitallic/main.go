// Command vitallic is the interactive voice console: pick a persona, talk,
// review past calls.
package main

import (
	"context"
	"log"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	session "github.com/vitallic/vitallic-core/core"
	"github.com/vitallic/vitallic-core/core/audio"
	"github.com/vitallic/vitallic-core/core/audio/miniaudio"
	"github.com/vitallic/vitallic-core/core/audio/portaudio"
	"github.com/vitallic/vitallic-core/core/speech"
	"github.com/vitallic/vitallic-core/core/speech/deepgram"
	"github.com/vitallic/vitallic-core/core/store"
	"github.com/vitallic/vitallic-core/core/store/memory"
	"github.com/vitallic/vitallic-core/core/store/postgres"
)

func main() {
	ctx := context.Background()

	gateway, cleanup, err := openStore(ctx)
	if err != nil {
		log.Fatalf("Failed to open record store: %v", err)
	}
	defer cleanup()

	capture, playback, closeAudio, err := openAudio()
	if err != nil {
		log.Fatalf("Failed to open audio devices: %v", err)
	}
	defer closeAudio()

	engine := deepgram.NewClient(capture, playback, nil, nil)
	if !engine.Available() {
		log.Fatalf("DEEPGRAM_API_KEY is not set")
	}

	var program *tea.Program
	send := func(msg tea.Msg) {
		if program != nil {
			program.Send(msg)
		}
	}

	orchestrator := session.NewOrchestrator(
		session.WithRecognizer(engine.Recognizer),
		session.WithSynthesizer(engine.Synthesizer),
		session.WithStore(gateway),
		session.WithTurnCallback(func(turn session.Turn) { send(turnMsg{turn: turn}) }),
		session.WithInterimTranscriptCallback(func(transcript string, confidence float64) {
			send(interimMsg{transcript: transcript, confidence: confidence})
		}),
		session.WithPhaseCallback(func(phase session.Phase) { send(phaseMsg{phase: phase}) }),
		session.WithErrorCallback(func(kind speech.ErrorKind) { send(failureMsg{kind: kind}) }),
	)
	defer orchestrator.Close()

	program = tea.NewProgram(newModel(orchestrator, gateway), tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		log.Fatalf("Console failed: %v", err)
	}
}

// openAudio opens the device pair. Playback always runs on miniaudio; capture
// can be switched to portaudio on hosts where the miniaudio capture device
// misbehaves.
func openAudio() (audio.Capture, audio.Playback, func(), error) {
	device, err := miniaudio.NewClient()
	if err != nil {
		return nil, nil, nil, err
	}

	if os.Getenv("VITALLIC_CAPTURE") == "portaudio" {
		pa, err := portaudio.NewClient(480)
		if err != nil {
			device.Close()
			return nil, nil, nil, err
		}
		return pa, device.PlaybackPort(), func() { pa.Close(); device.Close() }, nil
	}

	return device.CapturePort(), device.PlaybackPort(), func() { device.Close() }, nil
}

// openStore selects Postgres when DATABASE_URL is set and falls back to the
// in-process store otherwise.
func openStore(ctx context.Context) (store.Gateway, func(), error) {
	databaseURL, ok := os.LookupEnv("DATABASE_URL")
	if !ok {
		log.Println("DATABASE_URL not set; calls will not be persisted across runs")
		return memory.New(), func() {}, nil
	}

	if err := postgres.Migrate(ctx, databaseURL); err != nil {
		return nil, nil, err
	}
	pg, err := postgres.New(ctx, databaseURL)
	if err != nil {
		return nil, nil, err
	}
	return pg, pg.Close, nil
}
