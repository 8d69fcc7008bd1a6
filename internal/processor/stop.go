package processor

import "sync/atomic"

// StopSignal is a level-triggered cancellation flag shared by the files of one
// run. Once stopped it stays stopped; each run gets a fresh one.
type StopSignal struct {
	stopped atomic.Bool
}

func (s *StopSignal) Stop() {
	if s != nil {
		s.stopped.Store(true)
	}
}

func (s *StopSignal) Stopped() bool {
	return s != nil && s.stopped.Load()
}
