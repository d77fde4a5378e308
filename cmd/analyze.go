package cmd

import (
	"github.com/spf13/cobra"

	"github.com/AvaProtocol/mizan-relayer/relayer"
)

var (
	analyzeOpt = relayer.AnalyzeOption{}

	analyzeCmd = &cobra.Command{
		Use:   "analyze <simulation.json>",
		Short: "Attribute profit takers for a saved simulation",
		Long: `Walk the call trace of a saved tenderly_simulateTransaction response and
print the profit takers.

The file may hold the whole JSON-RPC response or only the trace array.
Nothing is simulated or submitted. Pass --rpc-url to classify unknown wrapped
native assets from their bytecode.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return relayer.AnalyzeFile(cmd.Context(), args[0], analyzeOpt, cmd.OutOrStdout())
		},
	}
)

func init() {
	analyzeCmd.Flags().StringVar(&analyzeOpt.RpcUrl, "rpc-url", "", "RPC endpoint used to fetch token bytecode")
	analyzeCmd.Flags().StringVar(&analyzeOpt.Contract, "contract", "", "contract under analysis, default to the first frame's target")
	analyzeCmd.Flags().StringVar(&analyzeOpt.Sender, "sender", "", "sender of the run, default to the first frame's caller")
	analyzeCmd.Flags().StringSliceVar(&analyzeOpt.WrappedAssets, "wrapped", nil, "extra wrapped native asset addresses")
	analyzeCmd.Flags().BoolVar(&analyzeOpt.ShowLedger, "ledger", false, "print the revenue and cost ledgers")
	analyzeCmd.Flags().Int32Var(&analyzeOpt.Decimals, "decimals", 18, "decimals used to print ledger amounts")
	rootCmd.AddCommand(analyzeCmd)
}
