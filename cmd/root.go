package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

// rootCmd represents the base command when called without any subcommands
var (
	config  = ""
	rootCmd = &cobra.Command{
		Use:   "relayer",
		Short: "Mizan flash loan relayer",
		Long: `Relayer for Mizan flash loans.

It simulates a borrower's flash loan, works out from the call trace who
receives the profit, signs an authorization for exactly those takers and
submits the loan.

Such as "relayer run" or "relayer analyze simulation.json"
`,
	}
)

func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&config, "config", "c", "", "Path to config file, values from .env and the environment override it")
}
