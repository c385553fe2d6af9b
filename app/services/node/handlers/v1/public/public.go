// Package public maintains the group of handlers for public access.
package public

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	v1 "github.com/adamwoolhether/lattice/business/web/v1"
	"github.com/adamwoolhether/lattice/foundation/blocklattice/block"
	"github.com/adamwoolhether/lattice/foundation/blocklattice/database"
	"github.com/adamwoolhether/lattice/foundation/blocklattice/peer"
	"github.com/adamwoolhether/lattice/foundation/blocklattice/signature"
	"github.com/adamwoolhether/lattice/foundation/blocklattice/state"
	"github.com/adamwoolhether/lattice/foundation/events"
	"github.com/adamwoolhether/lattice/foundation/web"
)

// Handlers manages the set of lattice endpoints.
type Handlers struct {
	Log   *zap.SugaredLogger
	State *state.State
	WS    websocket.Upgrader
	Evts  *events.Events
}

// Events handles a web socket to provide events to a client.
func (h Handlers) Events(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	v, err := web.GetValues(ctx)
	if err != nil {
		return web.NewShutdownError("web value missing from context")
	}

	// Need this to handle CORS on the websocket.
	h.WS.CheckOrigin = func(r *http.Request) bool { return true }

	// This upgrades the HTTP connection to a websocket connection.
	c, err := h.WS.Upgrade(w, r, nil)
	if err != nil {
		return err
	}
	defer c.Close()

	// This provides a channel for receiving events from the node.
	id := uuid.NewString()
	ch := h.Evts.Acquire(id)
	defer h.Evts.Release(id)

	// Starting a ticker to send a ping message over the websocket.
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	// Set a reasonable status code for the logger.
	v.StatusCode = http.StatusSwitchingProtocols

	// Block waiting for events from the node or ticker.
	for {
		select {
		case msg, wd := <-ch:

			// If the channel is closed, release the websocket.
			if !wd {
				return nil
			}

			if err := c.WriteMessage(websocket.TextMessage, []byte(msg)); err != nil {
				return nil
			}

		case <-ticker.C:
			if err := c.WriteMessage(websocket.PingMessage, []byte("ping")); err != nil {
				return nil
			}
		}
	}
}

// Genesis returns the genesis information.
func (h Handlers) Genesis(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	gen := h.State.RetrieveGenesis()

	return web.Respond(ctx, w, gen, http.StatusOK)
}

// SubmitWalletTransaction accepts a transaction from a wallet and starts
// its election.
func (h Handlers) SubmitWalletTransaction(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
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

	h.Log.Infow("add wallet tran", "traceid", v.TraceID, "hash", tx.Hash(), "type", tx.Block.Type, "account", tx.Block.PublicKey, "height", tx.Block.Height)
	if err := h.State.SubmitTransaction(tx); err != nil {
		return err
	}

	resp := submitted{
		Status: "transaction submitted",
		Hash:   tx.Hash(),
	}

	return web.Respond(ctx, w, resp, http.StatusOK)
}

// Transaction returns a transaction that was saved in the ledger.
func (h Handlers) Transaction(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	hash, err := signature.ParseHash(web.Param(r, "hash"))
	if err != nil {
		return v1.NewRequestError(err, http.StatusBadRequest)
	}

	tx, err := h.State.QueryTransaction(hash)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return v1.NewRequestError(err, http.StatusNotFound)
		}
		return err
	}

	return web.Respond(ctx, w, tx, http.StatusOK)
}

// Account returns the head of the account with its weight and the sends
// it can receive.
func (h Handlers) Account(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	pk, err := signature.ParsePublicKey(web.Param(r, "publickey"))
	if err != nil {
		return v1.NewRequestError(err, http.StatusBadRequest)
	}

	acct, err := h.State.QueryAccount(pk)
	if err != nil && !errors.Is(err, database.ErrNotFound) {
		return err
	}

	resp := account{
		Account:     acct,
		Weight:      h.State.QueryWeight(pk),
		Receivables: h.State.QueryReceivables(pk),
	}

	// An account that isn't opened yet can still have sends waiting.
	if errors.Is(err, database.ErrNotFound) && len(resp.Receivables) == 0 {
		return v1.NewRequestError(err, http.StatusNotFound)
	}

	return web.Respond(ctx, w, resp, http.StatusOK)
}

// Representatives returns every representative ordered by weight.
func (h Handlers) Representatives(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	reps := h.State.RetrieveRepresentatives()

	resp := make([]representative, 0, len(reps))
	for pk, weight := range reps {
		resp = append(resp, representative{PublicKey: pk, Weight: weight})
	}

	sort.Slice(resp, func(i, j int) bool {
		return resp[i].Weight > resp[j].Weight
	})

	return web.Respond(ctx, w, resp, http.StatusOK)
}

// Elections returns the open elections.
func (h Handlers) Elections(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	return web.Respond(ctx, w, h.State.RetrieveElections(), http.StatusOK)
}
