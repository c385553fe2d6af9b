// Package peer maintains the set of nodes this node knows about.
package peer

import (
	"sort"
	"sync"
)

// Peer represents information about a node in the network.
type Peer struct {
	Host  string `json:"host"`
	Voter bool   `json:"voter"`
}

// New constructs a new info value.
func New(host string, voter bool) Peer {
	return Peer{
		Host:  host,
		Voter: voter,
	}
}

// Match validates if the specified host matches this node.
func (p Peer) Match(host string) bool {
	return p.Host == host
}

// =============================================================================

// Status represents information about the status of any given peer.
type Status struct {
	Network      string `json:"network"`
	Voter        bool   `json:"voter"`
	Transactions uint64 `json:"transactions"`
	Elections    int    `json:"elections"`
	KnownPeers   []Peer `json:"known_peers"`
}

// =============================================================================

// Set represents the data representation to maintain a set of known peers.
type Set struct {
	mu  sync.RWMutex
	set map[string]Peer
}

// NewSet constructs a new info set to manage node peer information.
func NewSet() *Set {
	return &Set{
		set: make(map[string]Peer),
	}
}

// Add adds a new node to the set. A known host has its voter flag
// updated. It reports whether anything changed.
func (s *Set) Add(peer Peer) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, exists := s.set[peer.Host]
	if exists && existing == peer {
		return false
	}

	s.set[peer.Host] = peer
	return true
}

// Remove removes a node from the set.
func (s *Set) Remove(peer Peer) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.set, peer.Host)
}

// Copy returns a list of known peers excluding the host, ordered by host.
func (s *Set) Copy(host string) []Peer {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var peers []Peer
	for _, peer := range s.set {
		if !peer.Match(host) {
			peers = append(peers, peer)
		}
	}

	sort.Slice(peers, func(i, j int) bool {
		return peers[i].Host < peers[j].Host
	})

	return peers
}

// Voters returns the known peers that vote, excluding the host.
func (s *Set) Voters(host string) []Peer {
	var voters []Peer
	for _, peer := range s.Copy(host) {
		if peer.Voter {
			voters = append(voters, peer)
		}
	}

	return voters
}

// =============================================================================
// Payloads nodes post to each other. Transactions and votes travel in their
// hex encoded canonical layout.

// TransactionMessage carries a transaction between nodes.
type TransactionMessage struct {
	Transaction string `json:"transaction" validate:"required,hexadecimal"`
}

// VoteMessage carries a vote between nodes.
type VoteMessage struct {
	Vote string `json:"vote" validate:"required,hexadecimal"`
}
