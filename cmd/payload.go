package cmd

import (
	"encoding/hex"
	"fmt"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/ethpandaops/incentive-deposit/pkg/deposit"
)

// depositDataFlags select and check a deposit_data.json file.
type depositDataFlags struct {
	path           string
	network        string
	amount         uint64
	withdrawalCred string
	count          int
	verify         bool
}

func (f *depositDataFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.path, "deposit-data", "", "Path to deposit data JSON file")
	cmd.Flags().StringVar(&f.network, "network", "", "Expected network (e.g. mainnet, gnosis)")
	cmd.Flags().Uint64Var(&f.amount, "amount", 32000000000, "Expected deposit amount in Gwei")
	cmd.Flags().StringVar(&f.withdrawalCred, "withdrawal-credentials", "", "Expected withdrawal credentials (hex)")
	cmd.Flags().IntVar(&f.count, "count", 0, "Expected number of deposits")
	cmd.Flags().BoolVar(&f.verify, "verify", true, "Verify deposit signatures")
}

func (f *depositDataFlags) load() (*deposit.Data, error) {
	depositData, err := deposit.NewDepositData(f.path, f.network, f.withdrawalCred, f.amount, f.count)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load deposit data")
	}

	if err := depositData.Validate(); err != nil {
		return nil, errors.Wrap(err, "failed to validate deposit data")
	}

	if f.verify {
		if err := depositData.Verify(); err != nil {
			return nil, errors.Wrap(err, "failed to verify deposit data")
		}
	}

	return depositData, nil
}

// payload builds the raw claim payload from the deposit data file.
func (f *depositDataFlags) payload() ([]byte, error) {
	depositData, err := f.load()
	if err != nil {
		return nil, err
	}

	p, err := depositData.Payload()
	if err != nil {
		return nil, errors.Wrap(err, "failed to build payload")
	}

	raw, err := p.Encode()
	if err != nil {
		return nil, errors.Wrap(err, "failed to encode payload")
	}

	log.WithFields(logrus.Fields{
		"validators": len(p.Validators),
		"bytes":      len(raw),
	}).Debug("Built claim payload")

	return raw, nil
}

var payloadFlags depositDataFlags

var payloadCmd = &cobra.Command{
	Use:   "payload",
	Short: "Build a claim payload",
	Long: `Builds the claim payload for the deposits in a deposit data file and prints
it as hex. All deposits must share one withdrawal credential.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		raw, err := payloadFlags.payload()
		if err != nil {
			return err
		}

		fmt.Printf("0x%s\n", hex.EncodeToString(raw))

		return nil
	},
}

func init() {
	rootCmd.AddCommand(payloadCmd)

	payloadFlags.register(payloadCmd)

	if err := payloadCmd.MarkFlagRequired("deposit-data"); err != nil {
		log.WithError(err).Fatalf("Failed to mark flag %s as required", "deposit-data")
	}
}
