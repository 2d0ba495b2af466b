package cmd

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	challengeCmd "github.com/golangdaddy/roadchain/pkg/cmd/challenge"
	historyCmd "github.com/golangdaddy/roadchain/pkg/cmd/history"
	playCmd "github.com/golangdaddy/roadchain/pkg/cmd/play"
	simulateCmd "github.com/golangdaddy/roadchain/pkg/cmd/simulate"
	"github.com/golangdaddy/roadchain/pkg/config"
	"github.com/golangdaddy/roadchain/pkg/submission"
)

const envPrefix = "ROADCHAIN"

var cfgFile string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "roadchain",
	Short: "Highway racing with on-chain results",
	Long: `Race an NFT car down a four lane highway, dodge obstacles, collect bonus
boxes and golden keys, and submit the result on-chain.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

//nolint:funlen // flag definitions
func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "",
		"config file (default is $HOME/.roadchain.yml)")

	rootCmd.PersistentFlags().StringVar(&config.DB, "db",
		"roadchain.db",
		"Path of the sqlite file for local persistence")
	rootCmd.PersistentFlags().StringVar(&config.LogLevel, "log-level",
		"info",
		"controls the log level (debug, info, warn, error, fatal)")
	rootCmd.PersistentFlags().StringVar(&config.LogFormat, "log-format",
		"text",
		"controls the log output format (json, text)")
	rootCmd.PersistentFlags().BoolVar(&config.AutoSubmit, "auto-submit",
		true,
		"Submit results on-chain after each race until changed in the menu")
	rootCmd.PersistentFlags().StringVar(&config.PlayerAddress, "player",
		"0x00000000000000000000000000000000000000aa",
		"Wallet address of the devnet player")
	rootCmd.PersistentFlags().DurationVar(&config.MinSubmissionLapTime, "min-lap-time",
		submission.DefaultMinLapTime,
		"Runs shorter than this are not submitted")
	rootCmd.PersistentFlags().DurationVar(&config.AutoReturnDelay, "auto-return-delay",
		3*time.Second,
		"Delay before leaving the results after a confirmed submission")
	rootCmd.PersistentFlags().DurationVar(&config.ConfirmDelay, "confirm-delay",
		1500*time.Millisecond,
		"Simulated confirmation time of the devnet chain")
	rootCmd.PersistentFlags().IntVar(&config.SnapshotInterval, "snapshot-interval",
		6,
		"Frames between presentation snapshots")
	rootCmd.PersistentFlags().StringVar(&config.NatsURL, "nats-url",
		"",
		"NATS server confirmed results are streamed to (empty disables streaming)")
	rootCmd.PersistentFlags().StringVar(&config.NatsSubject, "nats-subject",
		"roadchain.results",
		"Subject confirmed results are published to")
	rootCmd.PersistentFlags().StringVar(&config.KeyringService, "keyring-service",
		"roadchain",
		"Keyring service holding the stream token")
	rootCmd.PersistentFlags().StringVar(&config.KeyringAccount, "keyring-account",
		"streams",
		"Keyring account holding the stream token")
	rootCmd.PersistentFlags().Int64Var(&config.Seed, "seed",
		0,
		"Seed for obstacle placement (0 picks one from the clock)")
	rootCmd.PersistentFlags().BoolVar(&config.Metrics, "metrics",
		false,
		"Print race metrics to stdout when the command ends")

	// add commands here
	rootCmd.AddCommand(playCmd.NewPlayCmd())
	rootCmd.AddCommand(simulateCmd.NewSimulateCmd())
	rootCmd.AddCommand(challengeCmd.NewChallengeCmd())
	rootCmd.AddCommand(historyCmd.NewHistoryCmd())
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if cfgFile != "" {
		// Use config file from the flag.
		viper.SetConfigFile(cfgFile)
	} else {
		// Find home directory.
		home, err := os.UserHomeDir()
		cobra.CheckErr(err)

		// Search config in home directory with name ".roadchain" (without extension).
		viper.AddConfigPath(home)
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName(".roadchain")
	}

	viper.SetEnvPrefix(envPrefix)
	viper.AutomaticEnv() // read in environment variables that match

	// If a config file is found, read it in.
	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}

	bindFlags(rootCmd, viper.GetViper())
	for _, cmd := range rootCmd.Commands() {
		bindFlags(cmd, viper.GetViper())
	}
}

// Bind each cobra flag to its associated viper configuration
// (config file and environment variable)
func bindFlags(cmd *cobra.Command, v *viper.Viper) {
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		// Environment variables can't have dashes in them, so bind them to their
		// equivalent keys with underscores, e.g. --log-level to ROADCHAIN_LOG_LEVEL
		if strings.Contains(f.Name, "-") {
			envVarSuffix := strings.ToUpper(strings.ReplaceAll(f.Name, "-", "_"))
			if err := v.BindEnv(f.Name,
				fmt.Sprintf("%s_%s", envPrefix, envVarSuffix)); err != nil {
				fmt.Fprintf(os.Stderr, "Could not bind env var %s: %v", f.Name, err)
			}
		}
		// Apply the viper config value to the flag when the flag is not set and viper
		// has a value
		if !f.Changed && v.IsSet(f.Name) {
			val := v.Get(f.Name)
			if err := cmd.Flags().Set(f.Name, fmt.Sprintf("%v", val)); err != nil {
				fmt.Fprintf(os.Stderr, "Could set flag value for %s: %v", f.Name, err)
			}
		}
	})
}
