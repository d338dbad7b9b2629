package cmd

import (
	"context"
	"fmt"

	"github.com/holiman/uint256"
	"github.com/spf13/cobra"

	"github.com/ethpandaops/incentive-deposit/pkg/incentive"
)

var (
	rescueAsset string
	rescueTo    string
)

var rescueCmd = &cobra.Command{
	Use:   "rescue",
	Short: "Move the contract's whole balance of an asset",
	Long:  `Moves the contract's whole balance of native currency or a token to a recipient. Only the owner may do this.`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		from, err := caller()
		if err != nil {
			return err
		}

		asset, err := parseAsset(rescueAsset)
		if err != nil {
			return err
		}

		recipient, err := parseAddress(rescueTo)
		if err != nil {
			return err
		}

		var moved *uint256.Int

		if err := transact(cmd.Context(), func(ctx context.Context, c *incentive.Contract) error {
			moved, err = c.Rescue(ctx, from, asset, recipient)

			return err
		}); err != nil {
			return err
		}

		fmt.Printf("Moved %s wei of %s to %s\n", moved.ToBig().String(), assetName(asset), recipient.Hex())

		return nil
	},
}

func init() {
	rootCmd.AddCommand(rescueCmd)

	rescueCmd.Flags().StringVar(&rescueAsset, "asset", "native", "Asset to move: native or a token address")
	rescueCmd.Flags().StringVar(&rescueTo, "to", "", "Recipient address")

	if err := rescueCmd.MarkFlagRequired("to"); err != nil {
		log.WithError(err).Fatalf("Failed to mark flag %s as required", "to")
	}
}
