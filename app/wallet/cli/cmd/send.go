package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/adamwoolhether/lattice/foundation/blocklattice/block"
	"github.com/adamwoolhether/lattice/foundation/blocklattice/signature"
)

var (
	to     string
	amount uint64
)

var sendCmd = &cobra.Command{
	Use:   "send",
	Short: "Send an amount to another account",
	RunE: func(cmd *cobra.Command, args []string) error {
		privateKey, err := loadAccountKey(cmd)
		if err != nil {
			return err
		}

		url, err := cmd.Flags().GetString("url")
		if err != nil {
			return err
		}

		receiver, err := signature.ParsePublicKey(to)
		if err != nil {
			return fmt.Errorf("parsing receiver: %w", err)
		}

		acct, err := head(url, privateKey)
		if err != nil {
			return err
		}

		b, err := acct.Send(receiver, block.Amount(amount), time.Now())
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
	rootCmd.AddCommand(sendCmd)
	sendCmd.Flags().StringVarP(&to, "to", "t", "", "Public key of the receiver.")
	sendCmd.Flags().Uint64VarP(&amount, "amount", "v", 0, "Raw amount to send.")
	sendCmd.MarkFlagRequired("to")
	sendCmd.MarkFlagRequired("amount")
}
