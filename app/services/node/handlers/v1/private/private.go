// Package private maintains the group of handlers for node to node access.
package private

import (
	"context"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	v1 "github.com/adamwoolhether/lattice/business/web/v1"
	"github.com/adamwoolhether/lattice/foundation/blocklattice/block"
	"github.com/adamwoolhether/lattice/foundation/blocklattice/peer"
	"github.com/adamwoolhether/lattice/foundation/blocklattice/signature"
	"github.com/adamwoolhether/lattice/foundation/blocklattice/state"
	"github.com/adamwoolhether/lattice/foundation/blocklattice/vote"
	"github.com/adamwoolhether/lattice/foundation/web"
)

// Handlers manages the set of node to node endpoints.
type Handlers struct {
	Log   *zap.SugaredLogger
	State *state.State
}

// Status returns the current status of the node.
func (h Handlers) Status(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	return web.Respond(ctx, w, h.State.RetrieveStatus(), http.StatusOK)
}

// Peers returns the peers this node knows about.
func (h Handlers) Peers(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	return web.Respond(ctx, w, h.State.RetrieveKnownPeers(), http.StatusOK)
}

// AddPeer accepts a node announcing itself.
func (h Handlers) AddPeer(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	v, err := web.GetValues(ctx)
	if err != nil {
		return web.NewShutdownError("web value missing from context")
	}

	var pr peer.Peer
	if err := web.Decode(r, &pr); err != nil {
		return fmt.Errorf("unable to decode payload: %w", err)
	}

	if pr.Host == "" {
		return v1.NewRequestError(fmt.Errorf("missing host"), http.StatusBadRequest)
	}

	if h.State.AddKnownPeer(pr) {
		h.Log.Infow("add peer", "traceid", v.TraceID, "host", pr.Host, "voter", pr.Voter)
	}

	return web.Respond(ctx, w, nil, http.StatusNoContent)
}

// SubmitNodeTransaction accepts a transaction shared by a peer.
func (h Handlers) SubmitNodeTransaction(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	v, err := web.GetValues(ctx)
	if err != nil {
		return web.NewShutdownError("web value missing from context")
	}

	var msg peer.TransactionMessage
	if err := web.Decode(r, &msg); err != nil {
		return fmt.Errorf("unable to decode payload: %w", err)
	}

	tx, err := block.DecodeTransaction(msg.Transaction)
	if err != nil {
		return v1.NewRequestError(err, http.StatusBadRequest)
	}

	h.Log.Infow("add node tran", "traceid", v.TraceID, "hash", tx.Hash(), "type", tx.Block.Type, "account", tx.Block.PublicKey, "height", tx.Block.Height)
	if err := h.State.SubmitTransaction(tx); err != nil {
		return err
	}

	return web.Respond(ctx, w, nil, http.StatusNoContent)
}

// SubmitVote accepts a vote from a peer.
func (h Handlers) SubmitVote(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	var msg peer.VoteMessage
	if err := web.Decode(r, &msg); err != nil {
		return fmt.Errorf("unable to decode payload: %w", err)
	}

	vt, err := vote.Decode(msg.Vote)
	if err != nil {
		return v1.NewRequestError(err, http.StatusBadRequest)
	}

	if err := h.State.SubmitVote(vt); err != nil {
		return v1.NewRequestError(err, http.StatusBadRequest)
	}

	return web.Respond(ctx, w, nil, http.StatusNoContent)
}

// Votes returns the votes that confirmed a transaction. Only historical
// nodes keep them.
func (h Handlers) Votes(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	hash, err := signature.ParseHash(web.Param(r, "hash"))
	if err != nil {
		return v1.NewRequestError(err, http.StatusBadRequest)
	}

	votes, err := h.State.QueryVotes(hash)
	if err != nil {
		return v1.NewRequestError(fmt.Errorf("no votes for %s", hash), http.StatusNotFound)
	}

	return web.Respond(ctx, w, votes, http.StatusOK)
}
