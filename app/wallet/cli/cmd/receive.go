package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/adamwoolhether/lattice/foundation/blocklattice/database"
	"github.com/adamwoolhether/lattice/foundation/blocklattice/signature"
)

var sendHash string

var receiveCmd = &cobra.Command{
	Use:   "receive",
	Short: "Receive a send waiting for the account",
	RunE: func(cmd *cobra.Command, args []string) error {
		privateKey, err := loadAccountKey(cmd)
		if err != nil {
			return err
		}

		url, err := cmd.Flags().GetString("url")
		if err != nil {
			return err
		}

		acct, err := queryAccount(url, privateKey.PublicKey())
		if err != nil {
			return err
		}

		rcv, err := findReceivable(acct.Receivables, sendHash)
		if err != nil {
			return err
		}

		b, err := acct.Account.Receive(rcv.Hash, rcv.Amount, time.Now())
		if err != nil {
			return err
		}

		tx, err := signBlock(cmd.Context(), privateKey, b)
		if err != nil {
			return err
		}

		return submit(url, tx)
	},
}

func init() {
	rootCmd.AddCommand(receiveCmd)
	receiveCmd.Flags().StringVarP(&sendHash, "send", "s", "", "Hash of the send to receive, the oldest when empty.")
}

// findReceivable returns the receivable for the hash, or the oldest one
// when no hash is given.
func findReceivable(receivables []database.Receivable, hash string) (database.Receivable, error) {
	if len(receivables) == 0 {
		return database.Receivable{}, fmt.Errorf("nothing to receive")
	}

	if hash == "" {
		return receivables[0], nil
	}

	h, err := signature.ParseHash(hash)
	if err != nil {
		return database.Receivable{}, fmt.Errorf("parsing send hash: %w", err)
	}

	for _, r := range receivables {
		if r.Hash == h {
			return r, nil
		}
	}

	return database.Receivable{}, fmt.Errorf("send %s is not receivable", h)
}
