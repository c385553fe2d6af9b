package worker

import (
	"fmt"
	"net/http"

	"github.com/adamwoolhether/lattice/foundation/blocklattice/block"
	"github.com/adamwoolhether/lattice/foundation/blocklattice/election"
	"github.com/adamwoolhether/lattice/foundation/blocklattice/peer"
	"github.com/adamwoolhether/lattice/foundation/blocklattice/vote"
)

// maxBroadcastRequests represents the max number of pending broadcasts
// that can be outstanding before new ones are dropped. A buffered channel
// of this arbitrary number is being used. Peers that miss a transaction
// get it again when the election expires.
const maxBroadcastRequests = 100

// message is a transaction or a vote waiting to be broadcast.
type message struct {
	tx       *block.Transaction
	vote     *vote.Vote
	strategy election.Strategy
}

func (w *Worker) signalBroadcast(msg message) {
	select {
	case w.broadcast <- msg:
	default:
		w.evHandler("worker: signalBroadcast: queue full, message won't be shared")
	}
}

// broadcastOperations handles sending transactions and votes to peers.
func (w *Worker) broadcastOperations() {
	w.evHandler("worker: broadcastOperations: G started")
	defer w.evHandler("worker: broadcastOperations: G completed")

	for {
		select {
		case msg := <-w.broadcast:
			if !w.isShutdown() {
				w.runBroadcastOperation(msg)
			}
		case <-w.shut:
			w.evHandler("worker: broadcastOperations: received shut signal")
			return
		}
	}
}

// runBroadcastOperation posts the message to the peers its strategy selects.
func (w *Worker) runBroadcastOperation(msg message) {
	var path string
	var payload any

	switch {
	case msg.tx != nil:
		path = "tx/submit"
		payload = peer.TransactionMessage{Transaction: msg.tx.Hex()}
	case msg.vote != nil:
		path = "vote/submit"
		payload = peer.VoteMessage{Vote: msg.vote.Hex()}
	default:
		return
	}

	peers := w.state.RetrieveKnownPeers()
	if msg.strategy == election.Voters {
		peers = w.state.RetrieveKnownVoters()
	}

	for _, pr := range peers {
		url := fmt.Sprintf("%s/%s", fmt.Sprintf(w.baseURL, pr.Host), path)
		if err := send(http.MethodPost, url, payload, nil); err != nil {
			w.evHandler("worker: runBroadcastOperation: %s: %s: WARNING: %s", pr.Host, path, err)
		}
	}
}
