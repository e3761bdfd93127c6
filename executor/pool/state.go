package pool

import "sync/atomic"

// workingState flips between idle and working. Only one start may hold it.
type workingState struct {
	working atomic.Bool
}

// setWorking marks the state working, or idle if to contains false.
// It reports whether the state actually changed.
func (s *workingState) setWorking(to ...bool) (swapped bool) {
	setTo := true
	for _, v := range to {
		setTo = setTo && v
	}
	return s.working.CompareAndSwap(!setTo, setTo)
}

func (s *workingState) IsWorking() bool {
	return s.working.Load()
}

// endState moves one way, to ended.
type endState struct {
	ended atomic.Bool
}

func (s *endState) setEnded() (swapped bool) {
	return s.ended.CompareAndSwap(false, true)
}

func (s *endState) IsEnded() bool {
	return s.ended.Load()
}
