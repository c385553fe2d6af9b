package election

import (
	"github.com/adamwoolhether/lattice/foundation/blocklattice/block"
	"github.com/adamwoolhether/lattice/foundation/blocklattice/vote"
)

// Publisher delivers events to the rest of the node. Implementations must
// not call back into the publishing component synchronously.
type Publisher interface {
	Publish(event any)
}

// Broadcaster sends messages to the node's peers.
type Broadcaster interface {
	BroadcastVote(v vote.Vote, strategy Strategy)
	BroadcastTransaction(tx block.Transaction, strategy Strategy)
}

// Strategy selects which peers receive a broadcast.
type Strategy int

// Set of broadcast strategies.
const (
	Voters Strategy = iota
	Everyone
)

// String implements the fmt.Stringer interface.
func (s Strategy) String() string {
	if s == Voters {
		return "VOTERS"
	}

	return "EVERYONE"
}

// =============================================================================
// Events consumed by the election components.

// TransactionValidated is published once a transaction passed validation
// and extends its account.
type TransactionValidated struct {
	Account     block.Account
	Transaction block.Transaction
}

// VoteValidated is published for every vote that passed validation and
// targets a known transaction.
type VoteValidated struct {
	Transaction block.Transaction
	Vote        vote.Vote
}

// AccountUpdated is published once a transaction was durably applied.
type AccountUpdated struct {
	Account     block.Account
	Transaction block.Transaction
}

// TransactionRejected is published when a transaction failed validation.
type TransactionRejected struct {
	Reason      block.RejectionReason
	Message     string
	Transaction block.Transaction
}

// =============================================================================
// Events produced by the election.

// Started is published when a transaction joins a slot.
type Started struct {
	Account     block.Account
	Transaction block.Transaction
}

// ConsensusChanged is published when a slot's provisional leader changes.
type ConsensusChanged struct {
	Account     block.Account
	Transaction block.Transaction
}

// ConsensusReached is published when a transaction gathered enough weight.
// The slot is gone by the time the event is delivered.
type ConsensusReached struct {
	Account     block.Account
	Transaction block.Transaction
	Votes       []vote.Vote
}

// Expiring is published for slots whose leader has waited too long.
type Expiring struct {
	Account     block.Account
	Transaction block.Transaction
}

// Expired is published for slots that were abandoned.
type Expired struct {
	Account     block.Account
	Transaction block.Transaction
}
