package cmd

import (
	"github.com/spf13/cobra"

	"github.com/AvaProtocol/mizan-relayer/relayer"
)

var (
	runCmd = &cobra.Command{
		Use:   "run",
		Short: "Run the relayer",
		Long: `Initialize and run the relayer HTTP service.

Use --config=path-to-your-config-file, or set RPC_URL, RELAYER_PRIVATE_KEY,
LOAN_TOKEN_ADDRESS, PROFIT_TOKEN_ADDRESS, MIZAN_ADDRESS and BORROWER_ADDRESS`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return relayer.RunWithConfig(config)
		},
	}
)

func init() {
	rootCmd.AddCommand(runCmd)
}
