package state

import (
	"github.com/adamwoolhether/lattice/foundation/blocklattice/block"
	"github.com/adamwoolhether/lattice/foundation/blocklattice/database"
	"github.com/adamwoolhether/lattice/foundation/blocklattice/election"
	"github.com/adamwoolhether/lattice/foundation/blocklattice/genesis"
	"github.com/adamwoolhether/lattice/foundation/blocklattice/peer"
	"github.com/adamwoolhether/lattice/foundation/blocklattice/signature"
	"github.com/adamwoolhether/lattice/foundation/blocklattice/vote"
)

// QueryAccount returns a copy of the account head.
func (s *State) QueryAccount(publicKey signature.PublicKey) (block.Account, error) {
	return s.db.QueryAccount(publicKey)
}

// QueryReceivables returns the sends waiting for the account.
func (s *State) QueryReceivables(publicKey signature.PublicKey) []database.Receivable {
	return s.db.QueryReceivables(publicKey)
}

// QueryTransaction returns the applied transaction with the hash.
func (s *State) QueryTransaction(hash signature.Hash) (block.Transaction, error) {
	return s.db.QueryTransaction(hash)
}

// QueryVotes returns the votes saved for the transaction. Only historical
// nodes keep them.
func (s *State) QueryVotes(hash signature.Hash) ([]vote.Vote, error) {
	return s.db.QueryVotes(hash)
}

// QueryWeight returns the weight delegated to the representative.
func (s *State) QueryWeight(representative signature.PublicKey) block.Amount {
	return s.db.Weight(representative)
}

// =============================================================================

// RetrieveGenesis returns a copy of the genesis information.
func (s *State) RetrieveGenesis() genesis.Genesis {
	return s.genesis
}

// RetrieveAccounts returns a copy of every account head.
func (s *State) RetrieveAccounts() map[signature.PublicKey]block.Account {
	return s.db.CopyAccounts()
}

// RetrieveRepresentatives returns the weight of every representative.
func (s *State) RetrieveRepresentatives() map[signature.PublicKey]block.Amount {
	return s.db.Representatives()
}

// RetrieveElections returns a snapshot of the open elections.
func (s *State) RetrieveElections() []election.Slot {
	return s.election.Snapshot()
}

// RetrieveHost returns a copy of the host information.
func (s *State) RetrieveHost() string {
	return s.host
}

// RetrieveStatus returns what peers need to know about this node.
func (s *State) RetrieveStatus() peer.Status {
	return peer.Status{
		Network:      s.db.Network().String(),
		Voter:        s.isVoter,
		Transactions: s.db.Latest(),
		Elections:    s.election.Size(),
		KnownPeers:   s.RetrieveKnownPeers(),
	}
}

// IsVoter reports whether this node casts votes.
func (s *State) IsVoter() bool {
	return s.isVoter
}

// =============================================================================

// RetrieveKnownPeers retrieves a copy of the known peer list.
func (s *State) RetrieveKnownPeers() []peer.Peer {
	return s.knownPeers.Copy(s.host)
}

// RetrieveKnownVoters retrieves a copy of the known peers that vote.
func (s *State) RetrieveKnownVoters() []peer.Peer {
	return s.knownPeers.Voters(s.host)
}

// AddKnownPeer provides the ability to add a new peer to the known
// peer list.
func (s *State) AddKnownPeer(pr peer.Peer) bool {
	if pr.Match(s.host) {
		return false
	}

	return s.knownPeers.Add(pr)
}

// RemoveKnownPeer provides the ability to remove a peer from the known
// peer list.
func (s *State) RemoveKnownPeer(pr peer.Peer) {
	s.knownPeers.Remove(pr)
}
