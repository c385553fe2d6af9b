package database

import (
	"fmt"

	"github.com/adamwoolhether/lattice/foundation/blocklattice/block"
	"github.com/adamwoolhether/lattice/foundation/blocklattice/signature"
)

// Weight returns the balance delegated to the representative.
func (db *Database) Weight(representative signature.PublicKey) block.Amount {
	db.mu.RLock()
	defer db.mu.RUnlock()

	return db.weights[representative]
}

// TotalWeight returns the sum of every delegated balance. The sum can't
// exceed the supply, so an overflow means the ledger is corrupt and panics.
func (db *Database) TotalWeight() block.Amount {
	db.mu.RLock()
	defer db.mu.RUnlock()

	var total block.Amount
	for pk, w := range db.weights {
		sum, err := total.Add(w)
		if err != nil {
			panic(fmt.Sprintf("database: TotalWeight: representative[%s]: %s", pk, err))
		}
		total = sum
	}

	return total
}

// MinimalConfirmationWeight returns the weight an election needs to reach
// consensus. It is the confirmation threshold percentage of the total
// weight and never less than the configured floor.
func (db *Database) MinimalConfirmationWeight() block.Amount {
	total := db.TotalWeight()

	weight := total / 100 * block.Amount(db.confirmationThreshold)
	if weight < db.minimalConfirmationWeight {
		return db.minimalConfirmationWeight
	}

	return weight
}

// Representatives returns the weight of every representative holding any.
func (db *Database) Representatives() map[signature.PublicKey]block.Amount {
	db.mu.RLock()
	defer db.mu.RUnlock()

	reps := make(map[signature.PublicKey]block.Amount, len(db.weights))
	for pk, w := range db.weights {
		if w > 0 {
			reps[pk] = w
		}
	}

	return reps
}
