package worker

import "time"

// sweepOperations drives the elections' expiry tiers.
func (w *Worker) sweepOperations() {
	w.evHandler("worker: sweepOperations: G started")
	defer w.evHandler("worker: sweepOperations: G completed")

	for {
		select {
		case <-w.sweepTicker.C:
			if !w.isShutdown() {
				w.state.ProcessExpiring()
				w.state.StopObservingStaled()
			}
		case <-w.shut:
			w.evHandler("worker: sweepOperations: received shut signal")
			return
		}
	}
}

// flushOperations saves confirmed transactions when signaled. A failed
// flush keeps what wasn't saved and is retried.
func (w *Worker) flushOperations() {
	w.evHandler("worker: flushOperations: G started")
	defer w.evHandler("worker: flushOperations: G completed")

	for {
		select {
		case <-w.flush:
			if !w.isShutdown() {
				w.runFlushOperation()
			}
		case <-w.shut:
			w.evHandler("worker: flushOperations: received shut signal")
			return
		}
	}
}

// runFlushOperation saves the confirmed transactions.
func (w *Worker) runFlushOperation() {
	if err := w.state.Flush(); err != nil {
		w.evHandler("worker: runFlushOperation: ERROR: %s: retrying in %s", err, flushRetryInterval)

		go func() {
			select {
			case <-time.After(flushRetryInterval):
				w.SignalFlush()
			case <-w.shut:
			}
		}()
	}
}
