// Package genesis maintains access to the genesis file and the set of
// networks a node can belong to.
package genesis

import (
	"encoding/json"
	"fmt"
	"os"
)

// DefaultPath is where the node looks for the genesis file when no other
// location has been configured.
const DefaultPath = "zlattice/genesis.json"

// Genesis represents the genesis file. The transaction is the hex encoded
// open transaction that mints the entire supply to the genesis account.
type Genesis struct {
	Network     Network `json:"network"`
	Transaction string  `json:"transaction"`
}

// Load opens and consumes the genesis file.
func Load(path string) (Genesis, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return Genesis{}, err
	}

	var genesis Genesis
	if err := json.Unmarshal(content, &genesis); err != nil {
		return Genesis{}, fmt.Errorf("decoding genesis file: %w", err)
	}

	if !genesis.Network.IsKnown() {
		return Genesis{}, fmt.Errorf("genesis file has unknown network %d", genesis.Network)
	}

	return genesis, nil
}

// Save writes the genesis file to the specified path.
func Save(path string, genesis Genesis) error {
	data, err := json.MarshalIndent(genesis, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0600)
}
