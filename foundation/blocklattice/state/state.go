// Package state is the core API for the lattice node and wires the ledger,
// the elections and the voter together through the event bus.
package state

import (
	"sync"
	"time"

	"github.com/adamwoolhether/lattice/foundation/blocklattice/block"
	"github.com/adamwoolhether/lattice/foundation/blocklattice/database"
	"github.com/adamwoolhether/lattice/foundation/blocklattice/election"
	"github.com/adamwoolhether/lattice/foundation/blocklattice/genesis"
	"github.com/adamwoolhether/lattice/foundation/blocklattice/peer"
	"github.com/adamwoolhether/lattice/foundation/blocklattice/signature"
	"github.com/adamwoolhether/lattice/foundation/blocklattice/vote"
)

// EventHandler defines a function that is called when events occur in the
// processing of transactions and votes.
type EventHandler func(v string, args ...any)

// Worker interface represents the behavior required to be implemented by
// any package providing support for election sweeps, ledger flushes, peer
// updates and broadcasting.
type Worker interface {
	Shutdown()
	Sync()
	SignalFlush()
	SignalBroadcastTx(tx block.Transaction, strategy election.Strategy)
	SignalBroadcastVote(v vote.Vote, strategy election.Strategy)
}

// =============================================================================

// Config represents the configuration required to start the lattice node.
type Config struct {
	Key                       signature.PrivateKey
	Host                      string
	Genesis                   genesis.Genesis
	Storage                   database.Storage
	KnownPeers                *peer.Set
	Voter                     bool
	Historical                bool
	MinWeight                 block.Amount
	ExpiringAfter             time.Duration
	ExpiredAfter              time.Duration
	ConfirmationThreshold     uint64
	MinimalConfirmationWeight block.Amount
	EvHandler                 EventHandler
	TrHandler                 EventHandler
}

// State manages the lattice node.
type State struct {
	mu sync.RWMutex

	key        signature.PrivateKey
	host       string
	isVoter    bool
	historical bool
	evHandler  EventHandler
	trHandler  EventHandler

	knownPeers *peer.Set
	genesis    genesis.Genesis
	db         *database.Database
	bus        *bus
	election   *election.Election
	voter      *election.Voter
	monitor    *election.Monitor

	Worker Worker
}

// New constructs the node state and starts delivering events.
func New(cfg Config) (*State, error) {

	// Build safe event handlers for use.
	ev := func(v string, args ...any) {
		if cfg.EvHandler != nil {
			cfg.EvHandler(v, args...)
		}
	}
	tr := func(v string, args ...any) {
		if cfg.TrHandler != nil {
			cfg.TrHandler(v, args...)
		}
	}

	// Access the storage for the ledger.
	db, err := database.New(database.Config{
		Genesis:                   cfg.Genesis,
		Storage:                   cfg.Storage,
		ConfirmationThreshold:     cfg.ConfirmationThreshold,
		MinimalConfirmationWeight: cfg.MinimalConfirmationWeight,
		EvHandler:                 ev,
	})
	if err != nil {
		return nil, err
	}

	knownPeers := cfg.KnownPeers
	if knownPeers == nil {
		knownPeers = peer.NewSet()
	}

	state := State{
		key:        cfg.Key,
		host:       cfg.Host,
		isVoter:    cfg.Voter,
		historical: cfg.Historical,
		evHandler:  ev,
		trHandler:  tr,
		knownPeers: knownPeers,
		genesis:    cfg.Genesis,
		db:         db,
		bus:        newBus(),
	}

	state.election = election.New(election.Config{
		Weighter:      db,
		Publisher:     state.bus,
		ExpiringAfter: cfg.ExpiringAfter,
		ExpiredAfter:  cfg.ExpiredAfter,
		EvHandler:     ev,
		TrHandler:     tr,
	})

	state.voter = election.NewVoter(election.VoterConfig{
		Key:         cfg.Key,
		IsVoter:     cfg.Voter,
		MinWeight:   cfg.MinWeight,
		Weighter:    db,
		Ledger:      db,
		Broadcaster: &state,
		Publisher:   state.bus,
		EvHandler:   ev,
		TrHandler:   tr,
	})

	state.monitor = election.NewMonitor(election.MonitorConfig{
		Ledger:      db,
		Historical:  cfg.Historical,
		Broadcaster: &state,
		Publisher:   state.bus,
		EvHandler:   ev,
	})

	state.bus.subscribe(state.route)
	state.bus.run()

	// The Worker is not set here. The call to worker.Run will assign
	// itself and start everything up and running for the node.

	return &state, nil
}

// Shutdown cleanly brings the node down.
func (s *State) Shutdown() error {
	s.evHandler("state: Shutdown: started")
	defer s.evHandler("state: Shutdown: completed")

	// Make sure the database is properly closed.
	defer func() {
		s.db.Close()
	}()

	// Stop all background activity.
	if s.Worker != nil {
		s.Worker.Shutdown()
	}

	// Deliver what's queued, then save what was confirmed.
	s.bus.shutdown()

	return s.monitor.Flush()
}

// route hands every event to the components that react to it.
func (s *State) route(event any) {
	switch ev := event.(type) {
	case election.TransactionValidated:
		s.election.Start(ev.Account, ev.Transaction)

	case election.VoteValidated:
		s.election.ProcessVote(ev.Vote)

	case election.AccountUpdated:
		s.election.Cancel(ev.Transaction)
	}

	s.voter.Handle(event)

	if s.monitor.Handle(event) && s.Worker != nil {
		s.Worker.SignalFlush()
	}
}

// =============================================================================
// These methods implement the election.Broadcaster interface.

// BroadcastTransaction queues the transaction to be sent to peers.
func (s *State) BroadcastTransaction(tx block.Transaction, strategy election.Strategy) {
	if s.Worker == nil {
		return
	}

	s.Worker.SignalBroadcastTx(tx, strategy)
}

// BroadcastVote queues the vote to be sent to peers.
func (s *State) BroadcastVote(v vote.Vote, strategy election.Strategy) {
	if s.Worker == nil {
		return
	}

	s.Worker.SignalBroadcastVote(v, strategy)
}

// =============================================================================

// ProcessExpiring asks the elections to report the slots that are waiting
// too long.
func (s *State) ProcessExpiring() {
	s.election.ProcessExpiring()
}

// StopObservingStaled drops the slots that were abandoned.
func (s *State) StopObservingStaled() {
	s.election.StopObservingStaled()
}

// Flush saves the transactions elections confirmed.
func (s *State) Flush() error {
	return s.monitor.Flush()
}

// Pending returns the number of events waiting to be delivered and the
// number of confirmed transactions waiting to be saved.
func (s *State) Pending() (events int, confirmed int) {
	return s.bus.pending(), s.monitor.Pending()
}

// Reset clears the ledger back to the genesis and drops every election.
func (s *State) Reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.election.Clear()
	s.voter.Clear()

	return s.db.Reset()
}
