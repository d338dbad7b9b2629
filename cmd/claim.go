package cmd

import (
	"context"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/ethpandaops/incentive-deposit/pkg/incentive"
)

var (
	claimPayloadHex string
	claimFlags      depositDataFlags
)

var claimCmd = &cobra.Command{
	Use:   "claim",
	Short: "Claim an incentive",
	Long: `Claims the incentive of the --from address by forwarding one validator deposit
per record in the payload. The payload is given as hex with --payload or built
from a deposit data file with --deposit-data.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		from, err := caller()
		if err != nil {
			return err
		}

		raw, err := claimPayload()
		if err != nil {
			return err
		}

		return transact(cmd.Context(), func(ctx context.Context, c *incentive.Contract) error {
			return c.Claim(ctx, from, raw)
		})
	},
}

func init() {
	rootCmd.AddCommand(claimCmd)

	claimCmd.Flags().StringVar(&claimPayloadHex, "payload", "", "Claim payload (0x-prefixed hex)")
	claimFlags.register(claimCmd)

	claimCmd.MarkFlagsMutuallyExclusive("payload", "deposit-data")
	claimCmd.MarkFlagsOneRequired("payload", "deposit-data")
}

func claimPayload() ([]byte, error) {
	if claimPayloadHex == "" {
		return claimFlags.payload()
	}

	raw, err := hexutil.Decode(claimPayloadHex)
	if err != nil {
		return nil, errors.Wrap(err, "invalid payload")
	}

	return raw, nil
}
