package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/adamwoolhether/lattice/foundation/blocklattice/signature"
)

// generateCmd represents the generate command
var generateCmd = &cobra.Command{
	Use:   "generate",
	Args:  cobra.ExactArgs(1),
	Short: "Generate new key pair",
	RunE: func(cmd *cobra.Command, args []string) error {
		acctName := args[0]

		path, err := cmd.Flags().GetString("account-path")
		if err != nil {
			return err
		}

		dest := keyPath(acctName, path)

		return runKeyGen(dest)
	},
}

func init() {
	rootCmd.AddCommand(generateCmd)
}

func runKeyGen(dest string) error {
	if _, err := os.Stat(dest); err == nil {
		return fmt.Errorf("key %s already exists", dest)
	}

	privateKey, err := signature.GenerateKey(nil)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return err
	}

	if err := signature.SaveKey(dest, privateKey); err != nil {
		return err
	}

	fmt.Println(privateKey.PublicKey())

	return nil
}
