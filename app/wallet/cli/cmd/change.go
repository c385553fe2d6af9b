package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/adamwoolhether/lattice/foundation/blocklattice/signature"
)

var changeRepresentative string

var changeCmd = &cobra.Command{
	Use:   "change",
	Short: "Delegate the account balance to another representative",
	RunE: func(cmd *cobra.Command, args []string) error {
		privateKey, err := loadAccountKey(cmd)
		if err != nil {
			return err
		}

		url, err := cmd.Flags().GetString("url")
		if err != nil {
			return err
		}

		representative, err := signature.ParsePublicKey(changeRepresentative)
		if err != nil {
			return fmt.Errorf("parsing representative: %w", err)
		}

		acct, err := head(url, privateKey)
		if err != nil {
			return err
		}

		tx, err := signBlock(cmd.Context(), privateKey, acct.Change(representative, time.Now()))
		if err != nil {
			return err
		}

		return submit(url, tx)
	},
}

func init() {
	rootCmd.AddCommand(changeCmd)
	changeCmd.Flags().StringVarP(&changeRepresentative, "representative", "r", "", "Public key of the new representative.")
	changeCmd.MarkFlagRequired("representative")
}
