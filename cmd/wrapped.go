package cmd

import (
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"

	"github.com/AvaProtocol/mizan-relayer/core/profit"
	"github.com/AvaProtocol/mizan-relayer/storage"
)

var (
	dbPath        string
	addWrapped    []string
	removeWrapped []string

	wrappedCmd = &cobra.Command{
		Use:   "wrapped",
		Short: "List or seed the wrapped native assets the relayer knows",
		Long: `Print the wrapped native assets stored in the relayer database, the ones
the classifier learned from bytecode. Use --add to store more before the
relayer starts, --remove to make the classifier scan an address again.
Stop the relayer first, the database allows one process only.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := storage.NewWithPath(dbPath)
			if err != nil {
				return fmt.Errorf("failed to open database: %w", err)
			}
			defer db.Close()

			registry := storage.NewWrappedAssetRegistry(db)
			out := cmd.OutOrStdout()
			for _, addr := range addWrapped {
				if !common.IsHexAddress(addr) {
					return fmt.Errorf("not an address: %s", addr)
				}
				token := common.HexToAddress(addr)
				stored, err := registry.Has(token)
				if err != nil {
					return err
				}
				if stored {
					fmt.Fprintf(out, "%s already stored\n", profit.ToLowerHex(token))
					continue
				}
				if err := registry.SaveWrappedAsset(token); err != nil {
					return err
				}
			}
			for _, addr := range removeWrapped {
				if !common.IsHexAddress(addr) {
					return fmt.Errorf("not an address: %s", addr)
				}
				if err := registry.RemoveWrappedAsset(common.HexToAddress(addr)); err != nil {
					return err
				}
			}

			known, err := registry.Entries()
			if err != nil {
				return err
			}
			for _, addr := range profit.DefaultWrappedAssets {
				fmt.Fprintf(out, "%s\tbuilt-in\n", profit.ToLowerHex(addr))
			}
			for _, e := range known {
				fmt.Fprintf(out, "%s\tstored %s\n", profit.ToLowerHex(e.Address), e.DiscoveredAt.Format(time.RFC3339))
			}
			return nil
		},
	}
)

func init() {
	wrappedCmd.Flags().StringVar(&dbPath, "db-path", "", "Path to the BadgerDB directory (required)")
	wrappedCmd.Flags().StringSliceVar(&addWrapped, "add", nil, "wrapped asset addresses to store")
	wrappedCmd.Flags().StringSliceVar(&removeWrapped, "remove", nil, "wrapped asset addresses to forget")
	_ = wrappedCmd.MarkFlagRequired("db-path")
	rootCmd.AddCommand(wrappedCmd)
}
