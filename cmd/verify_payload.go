package cmd

import (
	"encoding/hex"
	"fmt"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/ethpandaops/incentive-deposit/pkg/deposit"
	"github.com/ethpandaops/incentive-deposit/pkg/incentive"
)

var (
	verifyPayloadHex     string
	verifyValidatorCount uint64
	verifyPayloadAmount  uint64
)

var verifyPayloadCmd = &cobra.Command{
	Use:   "payload",
	Short: "Verify a claim payload",
	Long: `Decodes a claim payload for the given validator count and recomputes every
deposit data root, the checks a claim runs before anything is forwarded.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		raw, err := hexutil.Decode(verifyPayloadHex)
		if err != nil {
			return errors.Wrap(err, "invalid payload")
		}

		p, err := incentive.DecodePayload(raw, verifyValidatorCount)
		if err != nil {
			return err
		}

		if err := deposit.CheckPayload(p, verifyPayloadAmount); err != nil {
			return err
		}

		log.WithFields(logrus.Fields{
			"validators":             len(p.Validators),
			"withdrawal_credentials": hex.EncodeToString(p.WithdrawalCredentials),
		}).Info("✅ Successfully verified claim payload")

		for _, v := range p.Validators {
			fmt.Printf("0x%s\n", hex.EncodeToString(v.Pubkey))
		}

		return nil
	},
}

func init() {
	verifyCmd.AddCommand(verifyPayloadCmd)

	verifyPayloadCmd.Flags().StringVar(&verifyPayloadHex, "payload", "", "Claim payload (0x-prefixed hex)")
	verifyPayloadCmd.Flags().Uint64Var(&verifyValidatorCount, "validator-count", incentive.DefaultValidatorCount, "Validators per claim")
	verifyPayloadCmd.Flags().Uint64Var(&verifyPayloadAmount, "amount", 32000000000, "Deposit amount in Gwei")

	if err := verifyPayloadCmd.MarkFlagRequired("payload"); err != nil {
		log.WithError(err).Fatalf("Failed to mark flag %s as required", "payload")
	}
}
