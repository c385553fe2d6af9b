package state

import (
	"errors"
	"fmt"
	"time"

	"github.com/adamwoolhether/lattice/foundation/blocklattice/block"
	"github.com/adamwoolhether/lattice/foundation/blocklattice/election"
	"github.com/adamwoolhether/lattice/foundation/blocklattice/vote"
)

// ErrZeroWeight is returned for votes from accounts nobody delegates to.
var ErrZeroWeight = errors.New("voter has no weight")

// SubmitTransaction accepts a transaction from a wallet or a peer. Valid
// transactions join their election and are shared with every peer the
// first time they're seen.
func (s *State) SubmitTransaction(tx block.Transaction) error {
	hash := tx.Hash()

	if err := tx.Validate(time.Now()); err != nil {
		return block.Reject(block.InvalidTransaction, "%s", err)
	}

	if s.election.Contains(hash) {
		s.trHandler("state: SubmitTransaction: tx[%s]: already in an election", hash)
		return nil
	}

	account, err := s.db.Validate(tx)
	if err != nil {
		var re *block.RejectionError
		if !errors.As(err, &re) {
			return err
		}

		s.evHandler("state: SubmitTransaction: tx[%s]: rejected: %s", hash, re)
		s.bus.Publish(election.TransactionRejected{
			Reason:      re.Reason,
			Message:     re.Message,
			Transaction: tx,
		})

		return re
	}

	s.evHandler("state: SubmitTransaction: tx[%s]: type[%s]: pkh[%s]: validated", hash, tx.Block.Type, tx.PublicKeyHeight())

	s.bus.Publish(election.TransactionValidated{
		Account:     account,
		Transaction: tx,
	})
	s.BroadcastTransaction(tx, election.Everyone)

	return nil
}

// SubmitVote accepts a vote from a peer. The vote is weighed with the
// voter's current delegated balance.
func (s *State) SubmitVote(v vote.Vote) error {
	if err := v.Validate(time.Now()); err != nil {
		return fmt.Errorf("vote from %s: %w", v.PublicKey, err)
	}

	weight := s.db.Weight(v.PublicKey)
	if weight == 0 {
		return fmt.Errorf("vote from %s: %w", v.PublicKey, ErrZeroWeight)
	}
	v.Weight = weight

	s.trHandler("state: SubmitVote: tx[%s]: voter[%s]: weight[%s]: final[%t]", v.BlockHash, v.PublicKey, weight, v.IsFinal())
	s.election.ProcessVote(v)

	return nil
}
