package audio

import (
	"bytes"
	"encoding/binary"
	"testing"
)

func TestWavBuffer(t *testing.T) {
	pcm := []byte{1, 2, 3, 4}
	wav := WavBuffer(pcm, 24000)

	if len(wav) != 44+len(pcm) {
		t.Fatalf("expected %d bytes, got %d", 44+len(pcm), len(wav))
	}
	if !bytes.Equal(wav[:4], []byte("RIFF")) || !bytes.Equal(wav[8:12], []byte("WAVE")) {
		t.Error("missing RIFF/WAVE markers")
	}

	rate := binary.LittleEndian.Uint32(wav[24:28])
	if rate != 24000 {
		t.Errorf("expected sample rate 24000, got %d", rate)
	}
	if !bytes.Equal(wav[44:], pcm) {
		t.Error("payload does not match input PCM")
	}
}
