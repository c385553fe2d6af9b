// Package cmd contains wallet app commands.
package cmd

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/adamwoolhether/lattice/foundation/blocklattice/signature"
)

const keyExt = ".key"

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "wallet",
	Short: "Simple block lattice wallet",
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringP("account-path", "p", "zlattice/accounts/", "Path to the directory with private keys.")
	rootCmd.PersistentFlags().StringP("account", "a", "private.key", "The account to use.")
	rootCmd.PersistentFlags().StringP("url", "u", "http://localhost:8080", "Url of the node.")
}

func keyPath(acctName, path string) string {
	if !strings.HasSuffix(acctName, keyExt) {
		acctName += keyExt
	}

	return filepath.Join(path, acctName)
}

// loadAccountKey reads the key of the account named by the persistent flags.
func loadAccountKey(cmd *cobra.Command) (signature.PrivateKey, error) {
	acctName, err := cmd.Flags().GetString("account")
	if err != nil {
		return signature.PrivateKey{}, err
	}

	path, err := cmd.Flags().GetString("account-path")
	if err != nil {
		return signature.PrivateKey{}, err
	}

	return signature.LoadKey(keyPath(acctName, path))
}
