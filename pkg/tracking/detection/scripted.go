package detection

import "sync"

// Scripted is an in-memory Detector that replays a fixed per-frame script.
// It backs tests and model-free deployments: frame N returns script entry N,
// and frames past the end of the script return no detections.
type Scripted struct {
	// DetectFunc overrides the scripted behavior when set.
	DetectFunc func(jpeg []byte) ([]RawDetection, error)

	mu     sync.Mutex
	script [][]RawDetection
	next   int
	calls  int
	closed bool
}

var _ Detector = (*Scripted)(nil)

// NewScripted creates a detector that replays the given frames in order.
func NewScripted(script ...[]RawDetection) *Scripted {
	return &Scripted{script: script}
}

// Detect returns the next scripted frame.
func (s *Scripted) Detect(jpeg []byte) ([]RawDetection, error) {
	if s.DetectFunc != nil {
		s.mu.Lock()
		s.calls++
		s.mu.Unlock()
		return s.DetectFunc(jpeg)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++

	if s.next >= len(s.script) {
		return nil, nil
	}

	// Copy so callers can't mutate the script.
	dets := make([]RawDetection, len(s.script[s.next]))
	copy(dets, s.script[s.next])
	s.next++
	return dets, nil
}

// Calls returns how many times Detect has been invoked.
func (s *Scripted) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

// Rewind restarts the script from the first frame.
func (s *Scripted) Rewind() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.next = 0
}

// Close marks the detector closed.
func (s *Scripted) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// Closed reports whether Close has been called.
func (s *Scripted) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}
