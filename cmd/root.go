package cmd

import (
	"context"
	"os"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/jonboulle/clockwork"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/ethpandaops/incentive-deposit/pkg/deployment"
	"github.com/ethpandaops/incentive-deposit/pkg/deposit"
	"github.com/ethpandaops/incentive-deposit/pkg/incentive"
	"github.com/ethpandaops/incentive-deposit/pkg/ledger"
	"github.com/ethpandaops/incentive-deposit/pkg/reward"
	"github.com/ethpandaops/incentive-deposit/pkg/store"
)

var (
	log = logrus.New()

	configPath string
	dataDir    string
	logLevel   string
	fromAddr   string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "incentive-deposit",
	Short: "Operates an incentive deposit contract.",
	Long: `Operates an incentive deposit contract: beneficiaries enrolled by the owner
claim their incentive by submitting validator deposits, which the contract funds
and forwards to the deposit contract.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return initCommon()
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "config.yaml", "Path to the deployment config file")
	rootCmd.PersistentFlags().StringVar(&dataDir, "data-dir", "", "Directory holding the contract state (overrides dataDir in the config)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level (trace, debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&fromAddr, "from", "", "Address the call is made from")
}

func initCommon() error {
	lvl, err := logrus.ParseLevel(logLevel)
	if err != nil {
		return errors.Wrapf(err, "invalid log level %q", logLevel)
	}

	log.SetLevel(lvl)

	for _, set := range []func(string) error{
		deployment.SetLogLevel,
		deposit.SetLogLevel,
		incentive.SetLogLevel,
		ledger.SetLogLevel,
		reward.SetLogLevel,
		store.SetLogLevel,
	} {
		if err := set(logLevel); err != nil {
			return err
		}
	}

	return nil
}

func loadConfig() (*deployment.Config, error) {
	cfg, err := deployment.LoadConfig(configPath)
	if err != nil {
		return nil, err
	}

	if dataDir != "" {
		cfg.DataDir = dataDir
	}

	return cfg, nil
}

// withDeployment opens the deployment for the duration of fn.
func withDeployment(ctx context.Context, fn func(ctx context.Context, d *deployment.Deployment) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	d, err := deployment.Open(ctx, cfg, clockwork.NewRealClock())
	if err != nil {
		return errors.Wrap(err, "failed to open deployment")
	}

	defer func() {
		if err := d.Close(); err != nil {
			log.WithError(err).Warn("Failed to close deployment")
		}
	}()

	return fn(ctx, d)
}

// transact runs one contract call and persists its effects when it succeeds.
func transact(ctx context.Context, fn func(ctx context.Context, c *incentive.Contract) error) error {
	return withDeployment(ctx, func(ctx context.Context, d *deployment.Deployment) error {
		return d.Run(ctx, fn)
	})
}

func caller() (common.Address, error) {
	if fromAddr == "" {
		return common.Address{}, errors.New("--from is required")
	}

	return parseAddress(fromAddr)
}

func parseAddress(s string) (common.Address, error) {
	s = strings.TrimSpace(s)
	if !common.IsHexAddress(s) {
		return common.Address{}, errors.Errorf("invalid address %q", s)
	}

	return common.HexToAddress(s), nil
}

func parseAddresses(args []string) ([]common.Address, error) {
	addrs := make([]common.Address, 0, len(args))

	for _, arg := range args {
		addr, err := parseAddress(arg)
		if err != nil {
			return nil, err
		}

		addrs = append(addrs, addr)
	}

	return addrs, nil
}

// parseAsset accepts "native" or a token address.
func parseAsset(s string) (common.Address, error) {
	if s == deployment.NativeAsset {
		return ledger.Native, nil
	}

	return parseAddress(s)
}
