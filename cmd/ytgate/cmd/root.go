// Package cmd implements the CLI commands for ytgate.
package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ytget/ytgate/internal/config"
	"github.com/ytget/ytgate/internal/log"
	"github.com/ytget/ytgate/internal/version"
)

// cfgFile holds the config file path from the CLI flag.
var cfgFile string

var rootCmd = &cobra.Command{
	Use:     "ytgate",
	Short:   "Video download gateway",
	Version: version.Short(),
	Long: `ytgate resolves a video URL into downloadable quality options and
streams the chosen option to the client, remuxing separate video and
audio tracks into one container when necessary.`,
}

// Execute runs the root command.
func Execute() error {
	if err := rootCmd.Execute(); err != nil {
		return fmt.Errorf("executing root command: %v", err)
	}
	return nil
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentPreRun = func(_ *cobra.Command, _ []string) {
		initLogging()
	}

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./ytgate.yaml)")
	rootCmd.PersistentFlags().String("log-level", "", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().Bool("log-console", false, "human-readable console logs instead of JSON")
}

// initConfig reads the config file and YTGATE_* environment variables.
func initConfig() {
	config.SetDefaults(viper.GetViper())

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.AddConfigPath("/etc/ytgate")
		viper.SetConfigType("yaml")
		viper.SetConfigName("ytgate")
	}

	viper.SetEnvPrefix("YTGATE")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// initLogging configures the global logger. CLI flags override env/config
// values only when explicitly set.
func initLogging() {
	level := viper.GetString("log.level")
	console := viper.GetBool("log.console")

	if rootCmd.PersistentFlags().Changed("log-level") {
		level, _ = rootCmd.PersistentFlags().GetString("log-level")
	}
	if rootCmd.PersistentFlags().Changed("log-console") {
		console, _ = rootCmd.PersistentFlags().GetBool("log-console")
	}

	log.Configure(log.Config{Level: level, Console: console})
}
