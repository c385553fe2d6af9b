package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/adamwoolhether/lattice/foundation/blocklattice/block"
	"github.com/adamwoolhether/lattice/foundation/blocklattice/genesis"
	"github.com/adamwoolhether/lattice/foundation/blocklattice/signature"
)

var (
	network string
	supply  uint64
	out     string
)

var genesisCmd = &cobra.Command{
	Use:   "genesis",
	Short: "Mint the supply to the account in a new genesis file",
	RunE: func(cmd *cobra.Command, args []string) error {
		privateKey, err := loadAccountKey(cmd)
		if err != nil {
			return err
		}

		n := genesis.ParseNetwork(network)
		if !n.IsKnown() {
			return fmt.Errorf("unknown network %q", network)
		}

		// The genesis open receives nothing and delegates to itself.
		b := block.NewOpen(n, privateKey.PublicKey(), block.Amount(supply), time.Now(), signature.ZeroHash, privateKey.PublicKey())

		tx, err := signBlock(cmd.Context(), privateKey, b)
		if err != nil {
			return err
		}

		gen := genesis.Genesis{
			Network:     n,
			Transaction: tx.Hex(),
		}

		if err := os.MkdirAll(filepath.Dir(out), 0755); err != nil {
			return err
		}

		if err := genesis.Save(out, gen); err != nil {
			return err
		}

		fmt.Println("Genesis:", tx.Hash())

		return nil
	},
}

func init() {
	rootCmd.AddCommand(genesisCmd)
	genesisCmd.Flags().StringVarP(&network, "network", "n", "LOCAL", "Network of the lattice.")
	genesisCmd.Flags().Uint64VarP(&supply, "supply", "s", uint64(block.MaxAmount), "Raw amount minted to the account.")
	genesisCmd.Flags().StringVarP(&out, "out", "o", genesis.DefaultPath, "Where to write the genesis file.")
}
