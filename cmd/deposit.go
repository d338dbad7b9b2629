package cmd

import (
	"context"
	"encoding/hex"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ethpandaops/incentive-deposit/pkg/deployment"
)

var depositCmd = &cobra.Command{
	Use:   "deposit",
	Short: "Deposit tools",
	Long:  `Deposit tools.`,
}

var depositListCmd = &cobra.Command{
	Use:   "list",
	Short: "List forwarded deposits",
	Long:  `Lists every deposit the contract forwarded to the deposit sink, in order.`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDeployment(cmd.Context(), func(ctx context.Context, d *deployment.Deployment) error {
			for _, rec := range d.Sink().Deposits() {
				fmt.Printf("%d  0x%s  %d gwei  root=0x%s\n",
					rec.Index, hex.EncodeToString(rec.Pubkey), rec.Amount, hex.EncodeToString(rec.Root[:]))
			}

			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(depositCmd)
	depositCmd.AddCommand(depositListCmd)
}
