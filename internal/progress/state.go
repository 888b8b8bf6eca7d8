// Package progress implements ProgressState: the tallying of per-stage
// completion pulses into a monotone progress fraction and lifecycle
// stage, gating Stage B on Stage A's completion.
package progress

import "sync"

// Stage is the fusion run's lifecycle position.
type Stage int

const (
	Created Stage = iota
	Converting
	Combining
	Completed
)

func (s Stage) String() string {
	switch s {
	case Created:
		return "Created"
	case Converting:
		return "Converting"
	case Combining:
		return "Combining"
	case Completed:
		return "Completed"
	default:
		return "Unknown"
	}
}

// State tallies convert and combine completion pulses and derives
// (fraction, stage). Construct with New; feed pulses with ConvertDone/
// CombineDone, or wire ConvertPulses/CombinePulses as channel readers via
// Run.
type State struct {
	convertTotal int
	combineTotal int

	mu          sync.Mutex
	convertDone int
	combineDone int

	gate   sync.Once
	gateCh chan struct{}
}

// New returns a State for the given totals. If convertTotal is zero, the
// convert stage is considered satisfied immediately (the gate opens
// without waiting for any convert pulse), matching the original's guard
// against spawning a convert-reader that would never receive.
func New(convertTotal, combineTotal int) *State {
	s := &State{
		convertTotal: convertTotal,
		combineTotal: combineTotal,
		gateCh:       make(chan struct{}),
	}
	if convertTotal <= 0 {
		close(s.gateCh)
	}
	return s
}

// ConvertDone records one convert-stage completion pulse. Once
// convertDone reaches convertTotal, the combine gate opens.
func (s *State) ConvertDone() {
	s.mu.Lock()
	s.convertDone++
	done := s.convertDone >= s.convertTotal
	s.mu.Unlock()
	if done {
		s.openGate()
	}
}

// CombineDone records one combine-stage completion pulse (from either the
// PDF or RTF combine pool).
func (s *State) CombineDone() {
	s.mu.Lock()
	s.combineDone++
	s.mu.Unlock()
}

func (s *State) openGate() {
	s.gate.Do(func() { close(s.gateCh) })
}

// WaitCombineGate blocks until Stage A has observed convertTotal pulses
// (or returns immediately if convertTotal was zero at construction).
func (s *State) WaitCombineGate() {
	<-s.gateCh
}

// Progress returns the current (fraction, stage) pair: a 0.75/0.25 split
// between convert and combine weight, since conversion dominates
// wall-clock cost.
func (s *State) Progress() (float64, Stage) {
	s.mu.Lock()
	convertDone, combineDone := s.convertDone, s.combineDone
	convertTotal, combineTotal := s.convertTotal, s.combineTotal
	s.mu.Unlock()

	if convertTotal+combineTotal == 0 {
		return 1.0, Completed
	}

	var fraction float64
	switch {
	case convertTotal == 0:
		fraction = 0.75 + 0.25*ratio(combineDone, combineTotal)
	case convertDone < convertTotal:
		fraction = 0.75 * ratio(convertDone, convertTotal)
	default:
		fraction = 0.75 + 0.25*ratio(combineDone, combineTotal)
	}

	return fraction, stageOf(convertDone, convertTotal, combineDone, combineTotal)
}

func stageOf(convertDone, convertTotal, combineDone, combineTotal int) Stage {
	switch {
	case convertDone == 0 && combineDone == 0:
		return Created
	case convertDone < convertTotal && combineDone == 0:
		return Converting
	case convertDone >= convertTotal && combineDone < combineTotal:
		return Combining
	default:
		return Completed
	}
}

func ratio(done, total int) float64 {
	if total <= 0 {
		return 1.0
	}
	return float64(done) / float64(total)
}
