package deepgram

import (
	"encoding/binary"
	"testing"
)

func TestScaleLinear16(t *testing.T) {
	chunk := make([]byte, 6)
	pos := int16(1000)
	neg := int16(-1000)
	binary.LittleEndian.PutUint16(chunk[0:], uint16(pos))
	binary.LittleEndian.PutUint16(chunk[2:], uint16(neg))
	binary.LittleEndian.PutUint16(chunk[4:], 0)

	scaled := scaleLinear16(chunk, 0.5)

	if got := int16(binary.LittleEndian.Uint16(scaled[0:])); got != 500 {
		t.Errorf("expected 500, got %d", got)
	}
	if got := int16(binary.LittleEndian.Uint16(scaled[2:])); got != -500 {
		t.Errorf("expected -500, got %d", got)
	}
	if got := int16(binary.LittleEndian.Uint16(scaled[4:])); got != 0 {
		t.Errorf("expected 0, got %d", got)
	}

	if int16(binary.LittleEndian.Uint16(chunk[0:])) != 1000 {
		t.Error("expected the input chunk to be untouched")
	}
}

func TestScaleLinear16OddLength(t *testing.T) {
	chunk := []byte{0x10, 0x00, 0x42}
	scaled := scaleLinear16(chunk, 0.5)
	if len(scaled) != 3 {
		t.Fatalf("expected the length to be preserved, got %d", len(scaled))
	}
}
