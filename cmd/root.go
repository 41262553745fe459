package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/sw33tLie/mintwatch/internal/config"
	"github.com/sw33tLie/mintwatch/internal/utils"

	homedir "github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"
)

var cfgFile string

const (
	LOGO = `           _       _                    _       _
 _ __ ___ (_)_ __ | |___      ____ _| |_ ___| |__
| '_ ' _ \| | '_ \| __\ \ /\ / / _' | __/ __| '_ \
| | | | | | | | | | |_ \ V  V / (_| | || (__| | | |
|_| |_| |_|_|_| |_|\__| \_/\_/ \__,_|\__\___|_| |_|

`
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "mintwatch",
	Short: "Keeps track of whether your wallet can mint from a Candy Machine v2.",
	Long: LOGO + `mintwatch polls a Metaplex Candy Machine v2 account, works out whether your
wallet may mint right now, counts down to the next phase and submits mints.`,
	CompletionOptions: cobra.CompletionOptions{
		DisableDefaultCmd: true,
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.mintwatch.yaml)")

	// Global flags
	rootCmd.PersistentFlags().StringP("loglevel", "l", "info", "Set log level. Available: debug, info, warn, error, fatal")
	rootCmd.PersistentFlags().String("logfile", "", "Also write logs to this file, rotated at 10MB")
	rootCmd.PersistentFlags().String("rpc", "", "RPC endpoint (overrides rpc.host)")
	rootCmd.PersistentFlags().String("candymachine", "", "Candy machine address (overrides candymachine.id)")
	rootCmd.PersistentFlags().String("keypair", "", "Solana CLI keypair file (overrides wallet.keypair)")

	viper.BindPFlag(config.KeyRPCHost, rootCmd.PersistentFlags().Lookup("rpc"))
	viper.BindPFlag(config.KeyCandyMachineID, rootCmd.PersistentFlags().Lookup("candymachine"))
	viper.BindPFlag(config.KeyKeypair, rootCmd.PersistentFlags().Lookup("keypair"))
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := homedir.Dir()
		if err != nil {
			fmt.Println(err)
			os.Exit(1)
		}
		viper.AddConfigPath(home)
		viper.SetConfigName(".mintwatch")
		viper.SetConfigType("yaml")
	}

	config.SetDefaults(viper.GetViper())

	// If a config file is found, read it in.
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			// Config file not found; create it with defaults.
			home, _ := homedir.Dir()
			configPath := home + "/.mintwatch.yaml"
			if err := viper.SafeWriteConfigAs(configPath); err != nil {
				fmt.Printf("Error creating config file: %s", err)
			}
		}
	}

	// Init log library
	levelString, _ := rootCmd.PersistentFlags().GetString("loglevel")
	utils.SetLogLevel(levelString)
	logFile, _ := rootCmd.PersistentFlags().GetString("logfile")
	utils.SetLogFile(logFile)
}
