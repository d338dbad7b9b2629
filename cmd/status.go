package cmd

import (
	"bytes"
	"context"
	"encoding/hex"
	"fmt"
	"sort"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"

	"github.com/ethpandaops/incentive-deposit/pkg/deployment"
	"github.com/ethpandaops/incentive-deposit/pkg/incentive"
)

var statusCmd = &cobra.Command{
	Use:   "status [address...]",
	Short: "Show incentive records",
	Long: `Shows the incentive record of each address, or of every known beneficiary when
no address is given, followed by the contract balance and the deposit sink state.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		addrs, err := parseAddresses(args)
		if err != nil {
			return err
		}

		return withDeployment(cmd.Context(), func(ctx context.Context, d *deployment.Deployment) error {
			c := d.Contract()

			if len(addrs) == 0 {
				for addr := range c.Registry().Records() {
					addrs = append(addrs, addr)
				}

				sort.Slice(addrs, func(i, j int) bool {
					return bytes.Compare(addrs[i][:], addrs[j][:]) < 0
				})
			}

			now := uint64(time.Now().Unix())

			for _, addr := range addrs {
				rec := c.StatusOf(addr)
				fmt.Printf("%s  %-10s  end=%d\n", addr.Hex(), describe(rec, now), rec.EndTime)
			}

			root, err := d.Sink().Root()
			if err != nil {
				return err
			}

			fmt.Printf("Balance:  %s wei of %s\n", c.Balance(c.Params().DepositAsset).ToBig().String(), assetName(c.Params().DepositAsset))
			fmt.Printf("Deposits: %d (root 0x%s)\n", d.Sink().Count(), hex.EncodeToString(root[:]))

			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func describe(rec incentive.Record, now uint64) string {
	switch {
	case rec.Unenrolled():
		return "unenrolled"
	case rec.Claimed:
		return "claimed"
	case now >= rec.EndTime:
		return "expired"
	default:
		return "pending"
	}
}

func assetName(asset common.Address) string {
	if asset == (common.Address{}) {
		return deployment.NativeAsset
	}

	return asset.Hex()
}
