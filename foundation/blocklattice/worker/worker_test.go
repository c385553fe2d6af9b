package worker_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/adamwoolhether/lattice/foundation/blocklattice/block"
	"github.com/adamwoolhether/lattice/foundation/blocklattice/election"
	"github.com/adamwoolhether/lattice/foundation/blocklattice/genesis"
	"github.com/adamwoolhether/lattice/foundation/blocklattice/peer"
	"github.com/adamwoolhether/lattice/foundation/blocklattice/signature"
	"github.com/adamwoolhether/lattice/foundation/blocklattice/state"
	"github.com/adamwoolhether/lattice/foundation/blocklattice/storage/disk"
	"github.com/adamwoolhether/lattice/foundation/blocklattice/vote"
	"github.com/adamwoolhether/lattice/foundation/blocklattice/work"
	"github.com/adamwoolhether/lattice/foundation/blocklattice/worker"
)

// remote plays the part of a peer node.
type remote struct {
	mu     sync.Mutex
	voter  bool
	txs    []string
	votes  []string
	joined []peer.Peer
}

func (rm *remote) handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/v1/node/status", func(w http.ResponseWriter, r *http.Request) {
		rm.mu.Lock()
		status := peer.Status{Network: genesis.Local.String(), Voter: rm.voter}
		rm.mu.Unlock()
		json.NewEncoder(w).Encode(status)
	})

	mux.HandleFunc("/v1/node/peers", func(w http.ResponseWriter, r *http.Request) {
		var pr peer.Peer
		json.NewDecoder(r.Body).Decode(&pr)
		rm.mu.Lock()
		rm.joined = append(rm.joined, pr)
		rm.mu.Unlock()
		w.WriteHeader(http.StatusNoContent)
	})

	mux.HandleFunc("/v1/node/tx/submit", func(w http.ResponseWriter, r *http.Request) {
		var msg peer.TransactionMessage
		json.NewDecoder(r.Body).Decode(&msg)
		rm.mu.Lock()
		rm.txs = append(rm.txs, msg.Transaction)
		rm.mu.Unlock()
		w.WriteHeader(http.StatusNoContent)
	})

	mux.HandleFunc("/v1/node/vote/submit", func(w http.ResponseWriter, r *http.Request) {
		var msg peer.VoteMessage
		json.NewDecoder(r.Body).Decode(&msg)
		rm.mu.Lock()
		rm.votes = append(rm.votes, msg.Vote)
		rm.mu.Unlock()
		w.WriteHeader(http.StatusNoContent)
	})

	return mux
}

func (rm *remote) received() (txs int, votes int, joined int) {
	rm.mu.Lock()
	defer rm.mu.Unlock()
	return len(rm.txs), len(rm.votes), len(rm.joined)
}

func eventually(t *testing.T, what string, f func() bool) {
	t.Helper()

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if f() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}

	t.Fatalf("timed out waiting for %s", what)
}

func newState(t *testing.T, knownPeers *peer.Set) (*state.State, signature.PrivateKey) {
	t.Helper()

	key, err := signature.GenerateKey(nil)
	if err != nil {
		t.Fatalf("generating key: %s", err)
	}

	open := block.NewOpen(genesis.Local, key.PublicKey(), election.DefaultMinWeight, time.Now().Add(-time.Minute), signature.ZeroHash, key.PublicKey())
	w, err := work.Search(context.Background(), open.WorkSubject(), open.Network, open.Timestamp)
	if err != nil {
		t.Fatalf("searching work: %s", err)
	}

	storage, err := disk.New(t.TempDir())
	if err != nil {
		t.Fatalf("opening disk: %s", err)
	}

	st, err := state.New(state.Config{
		Key:  key,
		Host: "node-a:9080",
		Genesis: genesis.Genesis{
			Network:     genesis.Local,
			Transaction: block.Sign(open, key, w).Hex(),
		},
		Storage:    storage,
		KnownPeers: knownPeers,
	})
	if err != nil {
		t.Fatalf("constructing state: %s", err)
	}

	return st, key
}

func TestBroadcast(t *testing.T) {
	voter := &remote{voter: true}
	observer := &remote{}

	voterSrv := httptest.NewServer(voter.handler())
	defer voterSrv.Close()
	observerSrv := httptest.NewServer(observer.handler())
	defer observerSrv.Close()

	voterHost := strings.TrimPrefix(voterSrv.URL, "http://")
	observerHost := strings.TrimPrefix(observerSrv.URL, "http://")

	// Peers start out as non voters and learn the flag from the status call.
	knownPeers := peer.NewSet()
	knownPeers.Add(peer.New(voterHost, false))
	knownPeers.Add(peer.New(observerHost, false))

	st, key := newState(t, knownPeers)

	worker.Run(st, nil)
	defer st.Shutdown()

	if voters := st.RetrieveKnownVoters(); len(voters) != 1 || voters[0].Host != voterHost {
		t.Fatalf("sync should learn which peers vote, got %+v", voters)
	}

	if _, _, joined := voter.received(); joined != 1 {
		t.Fatalf("node should announce itself, got %d", joined)
	}

	tx, err := st.QueryTransaction(st.RetrieveAccounts()[key.PublicKey()].LastTransactionHash)
	if err != nil {
		t.Fatalf("querying genesis transaction: %s", err)
	}

	st.Worker.SignalBroadcastTx(tx, election.Voters)
	st.Worker.SignalBroadcastVote(vote.Sign(key, tx.Hash(), vote.FinalTimestamp), election.Everyone)

	eventually(t, "voter to receive both messages", func() bool {
		txs, votes, _ := voter.received()
		return txs == 1 && votes == 1
	})

	eventually(t, "observer to receive the final vote", func() bool {
		_, votes, _ := observer.received()
		return votes == 1
	})

	if txs, _, _ := observer.received(); txs != 0 {
		t.Fatalf("voter only broadcast reached an observer %d times", txs)
	}

	voter.mu.Lock()
	got, err := block.DecodeTransaction(voter.txs[0])
	voter.mu.Unlock()
	if err != nil || got.Hash() != tx.Hash() {
		t.Fatalf("peer received a different transaction, err %v", err)
	}
}
