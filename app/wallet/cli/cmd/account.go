package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/adamwoolhether/lattice/foundation/blocklattice/signature"
)

var remote bool

// accountCmd represents the account command
var accountCmd = &cobra.Command{
	Use:   "account",
	Short: "Print account for the specific wallet",
	RunE: func(cmd *cobra.Command, args []string) error {
		privateKey, err := loadAccountKey(cmd)
		if err != nil {
			return err
		}

		url, err := cmd.Flags().GetString("url")
		if err != nil {
			return err
		}

		return runAccount(url, privateKey.PublicKey())
	},
}

func init() {
	rootCmd.AddCommand(accountCmd)
	accountCmd.Flags().BoolVarP(&remote, "remote", "r", false, "Query the node for the balance and receivables.")
}

func runAccount(url string, pk signature.PublicKey) error {
	fmt.Println("Public Key:", pk)

	if !remote {
		return nil
	}

	acct, err := queryAccount(url, pk)
	if err != nil {
		if errors.Is(err, errNotOpened) {
			fmt.Println("Account not opened")
			return nil
		}
		return err
	}

	fmt.Println("Height:", acct.Account.Height)
	fmt.Println("Balance:", acct.Account.Balance)
	fmt.Println("Representative:", acct.Account.Representative)
	fmt.Println("Weight:", acct.Weight)

	for _, r := range acct.Receivables {
		fmt.Printf("Receivable: %s from %s amount %s\n", r.Hash, r.Sender, r.Amount)
	}

	return nil
}
