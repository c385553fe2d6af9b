package election

import (
	"sort"

	"github.com/google/uuid"

	"github.com/adamwoolhether/lattice/foundation/blocklattice/block"
	"github.com/adamwoolhether/lattice/foundation/blocklattice/signature"
	"github.com/adamwoolhether/lattice/foundation/blocklattice/vote"
)

// PublicKeyHeightElection holds the transactions competing for one
// account height.
type PublicKeyHeightElection struct {
	ID           uuid.UUID
	Account      block.Account
	transactions map[signature.Hash]*TransactionElection
}

// sorted returns the competitors by arrival, oldest first, with the
// hash breaking ties.
func (pkhe *PublicKeyHeightElection) sorted() []*TransactionElection {
	tes := make([]*TransactionElection, 0, len(pkhe.transactions))
	for _, te := range pkhe.transactions {
		tes = append(tes, te)
	}

	sort.Slice(tes, func(i, j int) bool {
		a, b := tes[i].Transaction, tes[j].Transaction
		if !a.ReceivedAt.Equal(b.ReceivedAt) {
			return a.ReceivedAt.Before(b.ReceivedAt)
		}
		return a.Hash().Less(b.Hash())
	})

	return tes
}

// leader returns the competitor with the most weight. Ties go to the
// transaction that arrived first.
func (pkhe *PublicKeyHeightElection) leader() *TransactionElection {
	var leader *TransactionElection
	for _, te := range pkhe.sorted() {
		if leader == nil || te.totalWeight > leader.totalWeight {
			leader = te
		}
	}

	return leader
}

// consensus returns the competitor that reached the threshold, checking
// the one that just received a vote first.
func (pkhe *PublicKeyHeightElection) consensus(threshold block.Amount, voted *TransactionElection) *TransactionElection {
	if voted.totalWeight >= threshold {
		return voted
	}

	for _, te := range pkhe.sorted() {
		if te.totalWeight >= threshold {
			return te
		}
	}

	return nil
}

// =============================================================================

// ballot is an accepted vote and the weight it added to the total.
type ballot struct {
	vote   vote.Vote
	weight block.Amount
}

// TransactionElection tracks the votes for one competing transaction.
type TransactionElection struct {
	Transaction block.Transaction
	totalWeight block.Amount
	votes       map[signature.PublicKey]ballot
}

// add records the vote. The weight it contributes is capped so the total
// never goes past the threshold.
func (te *TransactionElection) add(v vote.Vote, threshold block.Amount) {
	var contribution block.Amount
	if te.totalWeight < threshold {
		remaining := threshold - te.totalWeight
		contribution = v.Weight
		if contribution > remaining {
			contribution = remaining
		}
	}

	te.votes[v.PublicKey] = ballot{vote: v, weight: contribution}
	te.totalWeight += contribution
}

// retract removes the voter's vote along with the weight it contributed.
func (te *TransactionElection) retract(voter signature.PublicKey) {
	b, exists := te.votes[voter]
	if !exists {
		return
	}

	te.totalWeight -= b.weight
	delete(te.votes, voter)
}

// TotalWeight returns the accumulated weight, never more than the
// threshold provided.
func (te *TransactionElection) TotalWeight(threshold block.Amount) block.Amount {
	if te.totalWeight > threshold {
		return threshold
	}

	return te.totalWeight
}

// Votes returns the votes ordered by voter.
func (te *TransactionElection) Votes() []vote.Vote {
	votes := make([]vote.Vote, 0, len(te.votes))
	for _, b := range te.votes {
		votes = append(votes, b.vote)
	}

	sort.Slice(votes, func(i, j int) bool {
		return signature.Hash(votes[i].PublicKey).Less(signature.Hash(votes[j].PublicKey))
	})

	return votes
}
