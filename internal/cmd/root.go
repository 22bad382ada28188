// Package cmd wires the CLI commands for the strategy pipeline.
package cmd

import (
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/melodydashora/Vecto-Pilot-sub003/internal/config"
)

var rootCmd = &cobra.Command{
	Use:   "vecto",
	Short: "Rideshare strategy pipeline",
	Long: `Vecto generates driver positioning strategy for a location snapshot:
it gathers local context, synthesizes tactical guidance, and ranks staging
locations by earnings per minute of driving. Runs are safe to trigger
concurrently; duplicate work for the same snapshot is deduplicated.`,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringP("config", "c", "", "config file (default is $HOME/.config/vecto/config.yaml)")
	_ = viper.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config"))
}

func initConfig() {
	// Defaults first so everything works without a config file.
	config.SetDefaults()

	if cfgFile := viper.GetString("config"); cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(config.ConfigDir())
		viper.AddConfigPath(".")
	}

	viper.AutomaticEnv()
	viper.SetEnvPrefix("VECTO")
	// VECTO_PROVIDERS_ANTHROPIC_API_KEY overrides providers.anthropic.api_key.
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Missing config file is fine; defaults plus env carry a full setup.
	_ = viper.ReadInConfig()
}

// loadConfig unmarshals and validates the effective configuration.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, config.ValidationErrors(errs)
	}
	return cfg, nil
}
