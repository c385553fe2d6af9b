package cmd

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/adamwoolhether/lattice/foundation/blocklattice/block"
	"github.com/adamwoolhether/lattice/foundation/blocklattice/signature"
)

var openRepresentative string

var openCmd = &cobra.Command{
	Use:   "open",
	Short: "Open the account by receiving its first send",
	RunE: func(cmd *cobra.Command, args []string) error {
		privateKey, err := loadAccountKey(cmd)
		if err != nil {
			return err
		}

		url, err := cmd.Flags().GetString("url")
		if err != nil {
			return err
		}

		// An account delegates to itself unless told otherwise.
		representative := privateKey.PublicKey()
		if openRepresentative != "" {
			if representative, err = signature.ParsePublicKey(openRepresentative); err != nil {
				return fmt.Errorf("parsing representative: %w", err)
			}
		}

		acct, err := queryAccount(url, privateKey.PublicKey())
		switch {
		case err == nil:
			return errors.New("account already opened")
		case !errors.Is(err, errNotOpened):
			return err
		}

		rcv, err := findReceivable(acct.Receivables, sendHash)
		if err != nil {
			return err
		}

		gen, err := queryGenesis(url)
		if err != nil {
			return err
		}

		b := block.NewOpen(gen.Network, privateKey.PublicKey(), rcv.Amount, time.Now(), rcv.Hash, representative)

		tx, err := signBlock(cmd.Context(), privateKey, b)
		if err != nil {
			return err
		}

		return submit(url, tx)
	},
}

func init() {
	rootCmd.AddCommand(openCmd)
	openCmd.Flags().StringVarP(&sendHash, "send", "s", "", "Hash of the send to receive, the oldest when empty.")
	openCmd.Flags().StringVarP(&openRepresentative, "representative", "r", "", "Public key of the representative, the account itself when empty.")
}
