package deepgram

import (
	"strings"
	"testing"

	"github.com/vitallic/vitallic-core/core/speech"
)

type capturedResults struct {
	partials []string
	finals   []string
	confs    []float64
}

func recognitionRecorder(results *capturedResults) speech.RecognitionHandlers {
	return speech.RecognitionHandlers{
		OnPartial: func(transcript string, _ float64) {
			results.partials = append(results.partials, transcript)
		},
		OnFinal: func(transcript string, confidence float64) {
			results.finals = append(results.finals, transcript)
			results.confs = append(results.confs, confidence)
		},
	}
}

func feedMessages(t *testing.T, messages []string) *capturedResults {
	t.Helper()

	r := NewRecognizer(nil)
	results := &capturedResults{}
	handlers := recognitionRecorder(results)

	var utterance strings.Builder
	var confidence float64
	for _, msg := range messages {
		r.processMessage([]byte(msg), handlers, &utterance, &confidence)
	}
	return results
}

func TestInterimResultsReachPartialHandler(t *testing.T) {
	results := feedMessages(t, []string{
		`{"type":"Results","is_final":false,"channel":{"alternatives":[{"transcript":"hal","confidence":0.4}]}}`,
		`{"type":"Results","is_final":false,"channel":{"alternatives":[{"transcript":"hallo","confidence":0.7}]}}`,
	})

	if len(results.partials) != 2 || results.partials[1] != "hallo" {
		t.Fatalf("expected interim transcripts, got %v", results.partials)
	}
	if len(results.finals) != 0 {
		t.Fatalf("expected no finals, got %v", results.finals)
	}
}

func TestFinalsAccumulateUntilSpeechFinal(t *testing.T) {
	results := feedMessages(t, []string{
		`{"type":"Results","is_final":true,"speech_final":false,"channel":{"alternatives":[{"transcript":"hallo daar","confidence":0.9}]}}`,
		`{"type":"Results","is_final":true,"speech_final":true,"channel":{"alternatives":[{"transcript":"hoe gaat het","confidence":0.8}]}}`,
	})

	if len(results.finals) != 1 {
		t.Fatalf("expected one utterance, got %v", results.finals)
	}
	if results.finals[0] != "hallo daar hoe gaat het" {
		t.Errorf("expected segments to be joined, got %q", results.finals[0])
	}
	if results.confs[0] != 0.8 {
		t.Errorf("expected the last segment's confidence, got %f", results.confs[0])
	}
}

func TestUtteranceEndFlushesPendingSegments(t *testing.T) {
	results := feedMessages(t, []string{
		`{"type":"Results","is_final":true,"speech_final":false,"channel":{"alternatives":[{"transcript":"tot ziens","confidence":0.85}]}}`,
		`{"type":"UtteranceEnd"}`,
	})

	if len(results.finals) != 1 || results.finals[0] != "tot ziens" {
		t.Fatalf("expected the utterance end to flush, got %v", results.finals)
	}
}

func TestUtteranceEndWithoutSpeechIsSilent(t *testing.T) {
	results := feedMessages(t, []string{
		`{"type":"UtteranceEnd"}`,
		`{"type":"Results","is_final":true,"speech_final":true,"channel":{"alternatives":[{"transcript":"","confidence":0}]}}`,
	})

	if len(results.finals) != 0 {
		t.Fatalf("expected no finals for silence, got %v", results.finals)
	}
}

func TestInterimAfterFinalSegmentIncludesIt(t *testing.T) {
	results := feedMessages(t, []string{
		`{"type":"Results","is_final":true,"speech_final":false,"channel":{"alternatives":[{"transcript":"wat kun","confidence":0.8}]}}`,
		`{"type":"Results","is_final":false,"channel":{"alternatives":[{"transcript":"je doen","confidence":0.6}]}}`,
	})

	if len(results.partials) != 1 || results.partials[0] != "wat kun je doen" {
		t.Fatalf("expected the partial to carry accumulated segments, got %v", results.partials)
	}
}
