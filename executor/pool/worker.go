package pool

// worker represents single loop that executes jobs.
// It will work on a single job at a time.
type worker struct {
	workingState
	endState
	id          int
	stopCh      chan struct{}
	jobCh       <-chan *job
	jobReceived func()
	jobDone     func()
}

func newWorker(id int, jobCh <-chan *job, jobReceived, jobDone func()) *worker {
	if jobReceived == nil {
		jobReceived = func() {}
	}
	if jobDone == nil {
		jobDone = func() {}
	}
	return &worker{
		id:          id,
		stopCh:      make(chan struct{}),
		jobCh:       jobCh,
		jobReceived: jobReceived,
		jobDone:     jobDone,
	}
}

// start runs the worker loop. It blocks until stop is called.
//
// If the worker is already ended, it returns ErrAlreadyEnded.
// If the worker is already started, it returns ErrAlreadyStarted.
func (w *worker) start() error {
	if w.IsEnded() {
		return ErrAlreadyEnded
	}
	if !w.setWorking() {
		return ErrAlreadyStarted
	}
	defer w.setWorking(false)

	for {
		select {
		case <-w.stopCh:
			return nil
		default:
			select {
			case <-w.stopCh:
				return nil
			case j := <-w.jobCh:
				w.jobReceived()
				j.run()
				w.jobDone()
			}
		}
	}
}

// stop ends the worker. A running job is not interrupted here; the pool cancels job contexts.
func (w *worker) stop() {
	if w.setEnded() {
		close(w.stopCh)
	}
}
