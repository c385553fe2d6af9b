// Package worker implements election sweeps, ledger flushes, peer updates
// and broadcasting for the lattice node.
package worker

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/adamwoolhether/lattice/foundation/blocklattice/block"
	"github.com/adamwoolhether/lattice/foundation/blocklattice/election"
	"github.com/adamwoolhether/lattice/foundation/blocklattice/state"
	"github.com/adamwoolhether/lattice/foundation/blocklattice/vote"
)

// peerUpdateInterval represents the interval of time to find new peer
// nodes and tell them about this node.
const peerUpdateInterval = time.Minute

// sweepInterval represents the interval of time between looking for
// elections that are expiring or expired.
const sweepInterval = 10 * time.Second

// flushRetryInterval is how long to wait before saving confirmed
// transactions again after a failure.
const flushRetryInterval = time.Second

// Worker manages the background workflows of the node.
type Worker struct {
	state       *state.State
	wg          sync.WaitGroup
	peerTicker  *time.Ticker
	sweepTicker *time.Ticker
	shut        chan struct{}
	flush       chan bool
	broadcast   chan message
	evHandler   state.EventHandler
	baseURL     string
}

// Run creates a Worker, registers the Worker with the state package, and
// starts up all the background processes.
func Run(st *state.State, evHandler state.EventHandler) {
	ev := func(v string, args ...any) {
		if evHandler != nil {
			evHandler(v, args...)
		}
	}

	// Construct and register this Worker to the state. During
	// initialization this Worker needs access to the state.
	w := Worker{
		state:       st,
		peerTicker:  time.NewTicker(peerUpdateInterval),
		sweepTicker: time.NewTicker(sweepInterval),
		shut:        make(chan struct{}),
		flush:       make(chan bool, 1),
		broadcast:   make(chan message, maxBroadcastRequests),
		evHandler:   ev,
		baseURL:     "http://%s/v1/node",
	}

	// Register this Worker with the state package.
	st.Worker = &w

	// Update this node before starting any support G's.
	w.Sync()

	// Load the set of operations needed to run.
	operations := []func(){
		w.peerOperations,
		w.sweepOperations,
		w.flushOperations,
		w.broadcastOperations,
	}

	// Set waitgroup to match the number of G's needed
	// for the set of operations we have.
	g := len(operations)
	w.wg.Add(g)

	// Don't return until all G's are up and running.
	hasStarted := make(chan bool)

	// Start all the operations G's.
	for _, op := range operations {
		go func(op func()) {
			defer w.wg.Done()
			hasStarted <- true
			op()
		}(op)
	}

	// Wait for the G's to report they are running.
	for i := 0; i < g; i++ {
		<-hasStarted
	}
}

// =============================================================================
// These methods implement the state.Worker interface.

// Shutdown terminates the goroutines performing work.
func (w *Worker) Shutdown() {
	w.evHandler("worker: Shutdown: started")
	defer w.evHandler("worker: Shutdown: completed")

	w.evHandler("worker: Shutdown: stop tickers")
	w.peerTicker.Stop()
	w.sweepTicker.Stop()

	w.evHandler("worker: Shutdown: terminate goroutines")
	close(w.shut)
	w.wg.Wait()
}

// SignalFlush asks for the confirmed transactions to be saved. If there is
// already a signal pending in the channel, just return since a flush
// will happen.
func (w *Worker) SignalFlush() {
	select {
	case w.flush <- true:
	default:
	}
}

// SignalBroadcastTx queues up a transaction to be sent to peers. If
// maxBroadcastRequests signals exist in the channel, it won't be sent.
func (w *Worker) SignalBroadcastTx(tx block.Transaction, strategy election.Strategy) {
	w.signalBroadcast(message{tx: &tx, strategy: strategy})
}

// SignalBroadcastVote queues up a vote to be sent to peers. If
// maxBroadcastRequests signals exist in the channel, it won't be sent.
func (w *Worker) SignalBroadcastVote(v vote.Vote, strategy election.Strategy) {
	w.signalBroadcast(message{vote: &v, strategy: strategy})
}

// =============================================================================

// isShutdown is used to test if a Shutdown has been signaled.
func (w *Worker) isShutdown() bool {
	select {
	case <-w.shut:
		return true
	default:
		return false
	}
}

// send is a helper function to send an HTTP request to a node.
func send(method, url string, dataSend any, dataRcv any) error {
	var req *http.Request

	switch {
	case dataSend != nil:
		data, err := json.Marshal(dataSend)
		if err != nil {
			return err
		}
		req, err = http.NewRequest(method, url, bytes.NewReader(data))
		if err != nil {
			return err
		}
		req.Header.Set("Content-Type", "application/json")

	default:
		var err error
		req, err = http.NewRequest(method, url, nil)
		if err != nil {
			return err
		}
	}

	client := http.Client{Timeout: 10 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNoContent {
		return nil
	}

	if resp.StatusCode != http.StatusOK {
		msg, err := io.ReadAll(resp.Body)
		if err != nil {
			return err
		}
		return errors.New(string(msg))
	}

	if dataRcv != nil {
		if err := json.NewDecoder(resp.Body).Decode(dataRcv); err != nil {
			return err
		}
	}

	return nil
}
