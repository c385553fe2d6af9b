package public

import (
	"github.com/adamwoolhether/lattice/foundation/blocklattice/block"
	"github.com/adamwoolhether/lattice/foundation/blocklattice/database"
	"github.com/adamwoolhether/lattice/foundation/blocklattice/signature"
)

type account struct {
	Account     block.Account         `json:"account"`
	Weight      block.Amount          `json:"weight"`
	Receivables []database.Receivable `json:"receivables"`
}

type representative struct {
	PublicKey signature.PublicKey `json:"public_key"`
	Weight    block.Amount        `json:"weight"`
}

type submitted struct {
	Status string         `json:"status"`
	Hash   signature.Hash `json:"hash"`
}
