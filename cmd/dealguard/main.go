package main

import (
	"os"
	"strings"

	"github.com/layer-3/dealguard/config"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

// settings merges the defaults, the environment and the command line
var settings = config.NewViper()

var rootCmd = &cobra.Command{
	Use:           "dealguard",
	Short:         "local companion service for the DealGuard escrow dashboard",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().String("network", "", "sui network: localnet, devnet, testnet or mainnet")
	rootCmd.PersistentFlags().String("node-url", "", "fullnode JSON-RPC URL, overrides --network")
	rootCmd.PersistentFlags().String("package", "", "escrow contract package id")
	rootCmd.PersistentFlags().String("log-level", "", "log level")

	rootCmd.AddCommand(serveCmd, watchCmd)
}

// loadConfig applies the flags set on cmd over the environment
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	if err := config.BindFlags(settings, cmd.Flags()); err != nil {
		return config.Config{}, err
	}
	return config.Load(settings)
}

func newLogger(level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}
	return zerolog.New(os.Stderr).Level(lvl).With().Timestamp().Logger()
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log := newLogger("error")
		log.Fatal().Err(err).Msg("dealguard failed")
	}
}
