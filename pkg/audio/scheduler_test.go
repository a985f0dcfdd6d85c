package audio

import (
	"bytes"
	"testing"
)

func TestRenderPreservesEnqueueOrder(t *testing.T) {
	s := NewScheduler()

	chunks := [][]byte{
		{1, 2, 3, 4, 5, 6},
		{7, 8},
		{9, 10, 11, 12},
	}
	var want []byte
	for _, c := range chunks {
		s.Enqueue(c)
		want = append(want, c...)
	}

	// Pull sizes deliberately misaligned with chunk boundaries.
	var got []byte
	for _, n := range []int{4, 6, 2} {
		out := make([]byte, n)
		s.Render(out)
		got = append(got, out...)
	}

	if !bytes.Equal(got, want) {
		t.Errorf("rendered %v, want %v", got, want)
	}
	if s.QueuedBytes() != 0 {
		t.Errorf("expected empty queue, got %d bytes", s.QueuedBytes())
	}
}

func TestRenderUnderrunFillsSilence(t *testing.T) {
	s := NewScheduler()
	s.Enqueue([]byte{1, 2, 3, 4})

	out := make([]byte, 8)
	s.Render(out)

	if !bytes.Equal(out[:4], []byte{1, 2, 3, 4}) {
		t.Errorf("expected queued bytes first, got %v", out[:4])
	}
	for i := 4; i < 8; i++ {
		if out[i] != 0 {
			t.Fatalf("expected zero tail, got %v", out)
		}
	}
	if s.Underruns() != 1 {
		t.Errorf("expected 1 underrun, got %d", s.Underruns())
	}
}

func TestIdleRenderIsNotAnUnderrun(t *testing.T) {
	s := NewScheduler()
	out := make([]byte, 4)
	s.Render(out)

	for _, b := range out {
		if b != 0 {
			t.Fatalf("expected silence, got %v", out)
		}
	}
	if s.Underruns() != 0 {
		t.Errorf("idle pull should not count as underrun, got %d", s.Underruns())
	}
}

func TestStopClearsQueueAtomically(t *testing.T) {
	s := NewScheduler()
	s.Enqueue(make([]byte, 1024))
	s.Enqueue(make([]byte, 2048))

	s.Stop()

	if s.QueuedBytes() != 0 {
		t.Errorf("expected empty queue after Stop, got %d", s.QueuedBytes())
	}

	out := []byte{0xFF, 0xFF, 0xFF, 0xFF}
	s.Render(out)
	for _, b := range out {
		if b != 0 {
			t.Fatalf("expected silence after Stop, got %v", out)
		}
	}
}

func TestQueueDepthTracking(t *testing.T) {
	s := NewScheduler()
	s.Enqueue(make([]byte, 100))
	s.Enqueue(make([]byte, 50))

	if s.QueuedBytes() != 150 {
		t.Errorf("expected 150 queued bytes, got %d", s.QueuedBytes())
	}

	s.Render(make([]byte, 60))
	if s.QueuedBytes() != 90 {
		t.Errorf("expected 90 queued bytes after render, got %d", s.QueuedBytes())
	}
}

func TestLevelTracksRenderedBlock(t *testing.T) {
	s := NewScheduler()

	// Constant amplitude 16384 -> normalized level 0.5.
	chunk := make([]byte, 200)
	for i := 0; i < len(chunk); i += 2 {
		chunk[i] = 0x00
		chunk[i+1] = 0x40
	}
	s.Enqueue(chunk)

	out := make([]byte, 200)
	s.Render(out)

	level := s.Level()
	if level < 0.49 || level > 0.51 {
		t.Errorf("expected level ~0.5, got %f", level)
	}

	// Next pull is silence; the metric only reflects the latest block.
	s.Render(out)
	if s.Level() != 0 {
		t.Errorf("expected level 0 after silent block, got %f", s.Level())
	}
}
