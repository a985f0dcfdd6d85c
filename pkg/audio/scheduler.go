package audio

import (
	"math"
	"sync"
)

// Scheduler bridges two timing domains: the network-paced control domain
// that enqueues irregularly sized PCM chunks, and a fixed-cadence render
// domain that pulls fixed-size blocks. It presents queued chunks as one
// continuous signal, substituting silence on underrun so the render path
// never blocks.
//
// Samples are 16-bit signed little-endian mono PCM; all byte counts are
// even in practice but odd tails are carried correctly across pulls.
type Scheduler struct {
	mu     sync.Mutex
	queue  [][]byte
	offset int // read position into queue[0]
	queued int // total unplayed bytes across the queue

	level     float64
	underruns uint64
}

func NewScheduler() *Scheduler {
	return &Scheduler{}
}

// Enqueue appends one chunk to the tail of the queue. Ownership of the
// buffer transfers to the scheduler; callers must not mutate it after.
// Never blocks: the event-dispatch path must not stall on audio.
func (s *Scheduler) Enqueue(chunk []byte) {
	if len(chunk) == 0 {
		return
	}
	s.mu.Lock()
	s.queue = append(s.queue, chunk)
	s.queued += len(chunk)
	s.mu.Unlock()
}

// Render fills out from the head of the queue, spanning chunk boundaries
// as needed. If the queue runs dry mid-request the remainder is zeroed;
// that is the underrun policy, not an error. The volume metric is
// recomputed from exactly this rendered block.
func (s *Scheduler) Render(out []byte) {
	s.mu.Lock()

	n := 0
	for n < len(out) && len(s.queue) > 0 {
		head := s.queue[0]
		copied := copy(out[n:], head[s.offset:])
		n += copied
		s.offset += copied
		s.queued -= copied
		if s.offset == len(head) {
			s.queue[0] = nil
			s.queue = s.queue[1:]
			s.offset = 0
		}
	}

	if n < len(out) {
		for i := n; i < len(out); i++ {
			out[i] = 0
		}
		// An idle pull against an empty queue is normal; only running
		// dry mid-request counts as an underrun.
		if n > 0 {
			s.underruns++
		}
	}

	s.level = blockLevel(out)
	s.mu.Unlock()
}

// Stop discards all unplayed audio atomically and resets the playback
// cursor. Blocks already handed to the render sink are unaffected.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	s.queue = nil
	s.offset = 0
	s.queued = 0
	s.level = 0
	s.mu.Unlock()
}

// Level returns the volume of the most recently rendered block,
// normalized to [0, 1].
func (s *Scheduler) Level() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.level
}

// QueuedBytes reports queue depth. Growth beyond a few render windows
// signals a producer burst; chunks are still accepted, but consumers may
// use this to throttle upstream ingestion.
func (s *Scheduler) QueuedBytes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.queued
}

// Underruns counts render pulls that had to substitute silence.
func (s *Scheduler) Underruns() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.underruns
}

// blockLevel is the mean absolute sample magnitude of one block,
// normalized so full-scale PCM maps to 1.0.
func blockLevel(block []byte) float64 {
	if len(block) < 2 {
		return 0
	}
	var sum float64
	samples := 0
	for i := 0; i+1 < len(block); i += 2 {
		sample := int16(block[i]) | (int16(block[i+1]) << 8)
		sum += math.Abs(float64(sample)) / 32768.0
		samples++
	}
	return sum / float64(samples)
}
