package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"heartpredict/config"
	"heartpredict/logging"
	"heartpredict/ml"
	"heartpredict/predictor"
)

var version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// app carries what every subcommand shares: the --config flag and the viper
// instance it feeds.
type app struct {
	cfgFile string
	v       *viper.Viper
}

func newRootCmd() *cobra.Command {
	a := &app{v: config.New()}

	root := &cobra.Command{
		Use:   "heartpredict",
		Short: "Heart disease prediction form and predictor",
		Long: `heartpredict collects thirteen patient attributes, runs them through a
pre-trained classifier loaded from a model artifact and reports the
predicted outcome with its class probabilities.

Configuration hierarchy (highest to lowest priority):
  1. CLI flags
  2. Environment variables (HEARTPREDICT_*)
  3. Config file (./config.yaml or --config)
  4. Defaults`,
		SilenceErrors: true,
		SilenceUsage:  true,
	}
	root.PersistentFlags().StringVar(&a.cfgFile, "config", "", "config file (default: ./config.yaml)")

	root.AddCommand(
		newServeCmd(a),
		newPredictCmd(a),
		newModelCmd(a),
		newConfigCmd(a),
		&cobra.Command{
			Use:   "version",
			Short: "Print version information",
			Run: func(cmd *cobra.Command, args []string) {
				fmt.Fprintf(cmd.OutOrStdout(), "heartpredict %s\n", version)
			},
		},
	)
	return root
}

func (a *app) loadConfig() (*config.Config, error) {
	return config.Load(a.v, a.cfgFile)
}

// logger builds the configured logger; close must run before exit.
func (a *app) logger(cfg *config.Config) (*zap.Logger, func(), error) {
	logger, closer, err := logging.New(cfg.Log)
	if err != nil {
		return nil, nil, err
	}
	restore := zap.ReplaceGlobals(logger)
	return logger, func() {
		restore()
		_ = closer.Close()
	}, nil
}

func loadOptions(cfg *config.Config) ml.LoadOptions {
	return ml.LoadOptions{RemoteTimeout: cfg.Model.RemoteTimeout.Std()}
}

// openPredictor loads the configured artifact.
func openPredictor(cfg *config.Config, logger *zap.Logger) (*predictor.Adapter, error) {
	return predictor.Open(cfg.Model.Path, loadOptions(cfg), logger)
}
