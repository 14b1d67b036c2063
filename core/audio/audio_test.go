package audio

import "testing"

func TestEncodingInfoIsZero(t *testing.T) {
	if !(EncodingInfo{}).IsZero() {
		t.Error("expected the zero value to report zero")
	}
	if (EncodingInfo{SampleRate: 16000, Format: EncodingLinear16}).IsZero() {
		t.Error("expected a populated encoding to report non-zero")
	}
	if !(EncodingInfo{Format: EncodingLinear16}).IsZero() {
		t.Error("expected a missing sample rate to report zero")
	}
}

func TestSilenceValues(t *testing.T) {
	cases := []struct {
		format encodingFormat
		want   byte
	}{
		{EncodingLinear16, 0},
		{EncodingMulaw, 0xFF},
		{EncodingALaw, 0x55},
	}
	for _, c := range cases {
		if got := (EncodingInfo{Format: c.format}).SilenceValue(); got != c.want {
			t.Errorf("SilenceValue(%s) = %#x, want %#x", c.format, got, c.want)
		}
	}
}

func TestByteSizes(t *testing.T) {
	if got := EncodingLinear16.ByteSize(); got != 2 {
		t.Errorf("expected 2 bytes per linear16 sample, got %d", got)
	}
	if got := EncodingMulaw.ByteSize(); got != 1 {
		t.Errorf("expected 1 byte per mulaw sample, got %d", got)
	}
	if got := encodingFormat("opus").ByteSize(); got != -1 {
		t.Errorf("expected -1 for an unknown format, got %d", got)
	}
}
