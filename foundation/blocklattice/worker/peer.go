package worker

import (
	"fmt"
	"net/http"

	"github.com/adamwoolhether/lattice/foundation/blocklattice/peer"
)

// CORE NOTE: The p2p network is managed by this goroutine. Every node is
// started with a list of known peers and learns about the rest by asking
// them for their status. The topology is all nodes having a connection to
// all other nodes. If a node does not respond to a network call, it is
// removed from the peer list until the next peer operation.

// peerOperations handles finding new peers.
func (w *Worker) peerOperations() {
	w.evHandler("worker: peerOperations: G started")
	defer w.evHandler("worker: peerOperations: G completed")

	for {
		select {
		case <-w.peerTicker.C:
			if !w.isShutdown() {
				w.runPeersOperation()
			}
		case <-w.shut:
			w.evHandler("worker: peerOperations: received shut signal")
			return
		}
	}
}

// runPeersOperation updates the peer list.
func (w *Worker) runPeersOperation() {
	w.evHandler("worker: runPeersOperation: started")
	defer w.evHandler("worker: runPeersOperation: completed")

	for _, pr := range w.state.RetrieveKnownPeers() {

		// Retrieve the status of this peer.
		peerStatus, err := w.queryPeerStatus(pr)
		if err != nil {
			w.evHandler("worker: runPeersOperation: queryPeerStatus: %s: ERROR: %s", pr.Host, err)

			// Since this peer is unavailable, remove them from the list.
			w.state.RemoveKnownPeer(pr)
			continue
		}

		// Add peers from this node's peer list that are currently missing.
		w.addNewPeers(peerStatus.KnownPeers)
	}

	// Share with peers that this node is available to participate in the network.
	w.sendNodeAvailableToPeers()
}

// queryPeerStatus looks for new nodes on the network by asking known
// nodes for their peer list.
func (w *Worker) queryPeerStatus(pr peer.Peer) (peer.Status, error) {
	w.evHandler("worker: queryPeerStatus: started: %s", pr.Host)
	defer w.evHandler("worker: queryPeerStatus: completed: %s", pr.Host)

	url := fmt.Sprintf("%s/status", fmt.Sprintf(w.baseURL, pr.Host))

	var ps peer.Status
	if err := send(http.MethodGet, url, nil, &ps); err != nil {
		return peer.Status{}, err
	}

	w.evHandler("worker: queryPeerStatus: peer-node[%s]: voter[%t]: transactions[%d]: peer-list[%v]", pr.Host, ps.Voter, ps.Transactions, ps.KnownPeers)

	// The status is the source of truth for the peer's voter flag.
	w.state.AddKnownPeer(peer.New(pr.Host, ps.Voter))

	return ps, nil
}

// addNewPeers takes the list of known peers and makes sure they are
// included in the node's list of known peers.
func (w *Worker) addNewPeers(knownPeers []peer.Peer) {
	for _, pr := range knownPeers {

		// Don't add this running node to the known peer list.
		if pr.Match(w.state.RetrieveHost()) {
			continue
		}

		// Log if the peer is new.
		if w.state.AddKnownPeer(pr) {
			w.evHandler("worker: addNewPeers: adding peer-node %s: voter[%t]", pr.Host, pr.Voter)
		}
	}
}

// sendNodeAvailableToPeers tells every known peer about this node.
func (w *Worker) sendNodeAvailableToPeers() {
	host := peer.New(w.state.RetrieveHost(), w.state.IsVoter())

	for _, pr := range w.state.RetrieveKnownPeers() {
		url := fmt.Sprintf("%s/peers", fmt.Sprintf(w.baseURL, pr.Host))

		if err := send(http.MethodPost, url, host, nil); err != nil {
			w.evHandler("worker: sendNodeAvailableToPeers: %s: ERROR: %s", pr.Host, err)
		}
	}
}

// Sync updates the peer list before the node starts taking part in
// elections.
func (w *Worker) Sync() {
	w.evHandler("worker: Sync: started")
	defer w.evHandler("worker: Sync: completed")

	for _, pr := range w.state.RetrieveKnownPeers() {
		peerStatus, err := w.queryPeerStatus(pr)
		if err != nil {
			w.evHandler("worker: Sync: queryPeerStatus: %s: ERROR: %s", pr.Host, err)
			continue
		}

		w.addNewPeers(peerStatus.KnownPeers)
	}

	w.sendNodeAvailableToPeers()
}
