package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/adamwoolhether/lattice/app/services/node/handlers"
	"github.com/adamwoolhether/lattice/foundation/blocklattice/block"
	"github.com/adamwoolhether/lattice/foundation/blocklattice/database"
	"github.com/adamwoolhether/lattice/foundation/blocklattice/election"
	"github.com/adamwoolhether/lattice/foundation/blocklattice/genesis"
	"github.com/adamwoolhether/lattice/foundation/blocklattice/peer"
	"github.com/adamwoolhether/lattice/foundation/blocklattice/signature"
	"github.com/adamwoolhether/lattice/foundation/blocklattice/state"
	"github.com/adamwoolhether/lattice/foundation/blocklattice/storage/disk"
	"github.com/adamwoolhether/lattice/foundation/blocklattice/work"
	"github.com/adamwoolhether/lattice/foundation/events"
	"github.com/adamwoolhether/lattice/foundation/logger"
)

func sign(t *testing.T, key signature.PrivateKey, b block.Block) block.Transaction {
	t.Helper()

	w, err := work.Search(context.Background(), b.WorkSubject(), b.Network, b.Timestamp)
	if err != nil {
		t.Fatalf("searching work: %s", err)
	}

	return block.Sign(b, key, w)
}

func newNode(t *testing.T) (public http.Handler, private http.Handler, key signature.PrivateKey) {
	t.Helper()

	key, err := signature.GenerateKey(nil)
	if err != nil {
		t.Fatalf("generating key: %s", err)
	}

	open := block.NewOpen(genesis.Local, key.PublicKey(), election.DefaultMinWeight*10, time.Now().Add(-time.Minute), signature.ZeroHash, key.PublicKey())
	gen := genesis.Genesis{
		Network:     genesis.Local,
		Transaction: sign(t, key, open).Hex(),
	}

	storage, err := disk.New(t.TempDir())
	if err != nil {
		t.Fatalf("opening disk: %s", err)
	}

	st, err := state.New(state.Config{
		Key:                       key,
		Host:                      "node-a:9080",
		Genesis:                   gen,
		Storage:                   storage,
		MinimalConfirmationWeight: 1,
	})
	if err != nil {
		t.Fatalf("constructing state: %s", err)
	}

	evts := events.New()

	t.Cleanup(func() {
		evts.Shutdown()
		st.Shutdown()
	})

	cfg := handlers.MuxConfig{
		Shutdown: make(chan os.Signal, 1),
		Log:      logger.NewNop(),
		State:    st,
		Evts:     evts,
	}

	return handlers.PublicMux(cfg), handlers.PrivateMux(cfg), key
}

func call(h http.Handler, method string, path string, payload any) *httptest.ResponseRecorder {
	var body bytes.Buffer
	if payload != nil {
		json.NewEncoder(&body).Encode(payload)
	}

	r := httptest.NewRequest(method, path, &body)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)

	return w
}

func TestPublicAPI(t *testing.T) {
	public, _, key := newNode(t)

	w := call(public, http.MethodGet, "/v1/genesis", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("genesis: expected 200, got %d", w.Code)
	}

	var gen genesis.Genesis
	if err := json.NewDecoder(w.Body).Decode(&gen); err != nil || gen.Network != genesis.Local {
		t.Fatalf("genesis: wrong response %+v, err %v", gen, err)
	}

	w = call(public, http.MethodGet, fmt.Sprintf("/v1/accounts/%s", key.PublicKey()), nil)
	if w.Code != http.StatusOK {
		t.Fatalf("account: expected 200, got %d", w.Code)
	}

	var acct struct {
		Account     block.Account         `json:"account"`
		Weight      block.Amount          `json:"weight"`
		Receivables []database.Receivable `json:"receivables"`
	}
	if err := json.NewDecoder(w.Body).Decode(&acct); err != nil {
		t.Fatalf("account: decoding: %s", err)
	}
	if acct.Account.Height != 1 || acct.Weight != election.DefaultMinWeight*10 {
		t.Fatalf("account: wrong genesis account %+v weight %s", acct.Account, acct.Weight)
	}

	receiver, err := signature.GenerateKey(nil)
	if err != nil {
		t.Fatalf("generating key: %s", err)
	}

	sb, err := acct.Account.Send(receiver.PublicKey(), 500, time.Now())
	if err != nil {
		t.Fatalf("building send: %s", err)
	}
	send := sign(t, key, sb)

	tt := []struct {
		name    string
		payload any
		status  int
	}{
		{name: "valid send", payload: peer.TransactionMessage{Transaction: send.Hex()}, status: http.StatusOK},
		{name: "not hex", payload: peer.TransactionMessage{Transaction: "zz"}, status: http.StatusBadRequest},
		{name: "short transaction", payload: peer.TransactionMessage{Transaction: "0x0102"}, status: http.StatusBadRequest},
		{name: "missing transaction", payload: struct{}{}, status: http.StatusBadRequest},
	}

	for i, tc := range tt {
		w := call(public, http.MethodPost, "/v1/tx/submit", tc.payload)
		if w.Code != tc.status {
			t.Errorf("[case:%d] error: %s expected %d, got %d: %s", i, tc.name, tc.status, w.Code, w.Body.String())
		}
	}

	w = call(public, http.MethodGet, fmt.Sprintf("/v1/accounts/%s", receiver.PublicKey()), nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("unconfirmed send shouldn't be receivable yet, got %d", w.Code)
	}

	w = call(public, http.MethodGet, "/v1/accounts/nope", nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("bad public key: expected 400, got %d", w.Code)
	}
}

func TestPrivateAPI(t *testing.T) {
	_, private, _ := newNode(t)

	w := call(private, http.MethodPost, "/v1/node/peers", peer.New("node-b:9080", true))
	if w.Code != http.StatusNoContent {
		t.Fatalf("add peer: expected 204, got %d", w.Code)
	}

	w = call(private, http.MethodGet, "/v1/node/status", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status: expected 200, got %d", w.Code)
	}

	var status peer.Status
	if err := json.NewDecoder(w.Body).Decode(&status); err != nil {
		t.Fatalf("status: decoding: %s", err)
	}

	if status.Network != "LOCAL" || status.Transactions != 1 || len(status.KnownPeers) != 1 || !status.KnownPeers[0].Voter {
		t.Fatalf("status: wrong response %+v", status)
	}

	w = call(private, http.MethodPost, "/v1/node/peers", peer.Peer{})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("empty peer: expected 400, got %d", w.Code)
	}

	w = call(private, http.MethodPost, "/v1/node/vote/submit", peer.VoteMessage{Vote: "0x00"})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("short vote: expected 400, got %d", w.Code)
	}
}
