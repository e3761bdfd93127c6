package varpoll

// State is a coarse snapshot of a Poller's life cycle.
type State int

const (
	// Armed means a future invocation is scheduled and no work is executing.
	Armed State = iota
	// Running means the work unit is executing right now.
	Running
	// Stopped is terminal.
	Stopped
)

func (s State) String() string {
	switch s {
	case Armed:
		return "armed"
	case Running:
		return "running"
	case Stopped:
		return "stopped"
	}
	return "unknown"
}
