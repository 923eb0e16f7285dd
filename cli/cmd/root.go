// Package cmd provides the Cobra commands for the themekit CLI.
package cmd

import (
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	cliconfig "github.com/themeforge/themekit/cli/config"
)

var (
	// Version information (set via ldflags during build)
	Version   = "dev"
	Commit    = "unknown"
	BuildDate = "unknown"

	// Global flags
	cfgFile     string
	profileName string
	debug       bool
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "themekit",
	Short: "themekit - package UI components into CDN-deliverable theme bundles",
	Long: `themekit packages UI components written against React, Vue or Svelte
into framework-agnostic ES module bundles, and produces the import map and
storage metadata a runtime needs to load them.

Get started:
  themekit bundle ./my-theme    Bundle a component project
  themekit --help               Show available commands`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if debug || viper.GetBool("debug") {
			zerolog.SetGlobalLevel(zerolog.DebugLevel)
		} else {
			zerolog.SetGlobalLevel(zerolog.InfoLevel)
		}
	},
}

// Execute runs the CLI
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global persistent flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "",
		"config file (default is ~/.themekit/config.yaml)")
	rootCmd.PersistentFlags().StringVarP(&profileName, "profile", "p", "",
		"profile to use (default is current profile)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false,
		"enable debug output")

	// Bind environment variables
	viper.SetEnvPrefix("THEMEKIT")
	_ = viper.BindEnv("environment") // THEMEKIT_ENVIRONMENT
	_ = viper.BindEnv("developer")   // THEMEKIT_DEVELOPER
	_ = viper.BindEnv("website_id")  // THEMEKIT_WEBSITE_ID
	_ = viper.BindEnv("public_url")  // THEMEKIT_PUBLIC_URL
	_ = viper.BindEnv("profile")     // THEMEKIT_PROFILE
	_ = viper.BindEnv("debug")       // THEMEKIT_DEBUG

	// Add subcommands
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(bundleCmd)
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(cliconfig.DefaultConfigDir())
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
	}

	viper.AutomaticEnv()

	// Read config file (ignore error if not found)
	_ = viper.ReadInConfig()
}

// activeProfile loads the CLI config and resolves the selected profile,
// falling back to environment variables when no config file exists.
func activeProfile() (*cliconfig.Profile, error) {
	configPath := cfgFile
	if configPath == "" {
		configPath = cliconfig.DefaultConfigPath()
	}

	cfg, err := cliconfig.LoadOrCreate(configPath)
	if err != nil {
		return nil, err
	}

	pName := profileName
	if pName == "" {
		pName = viper.GetString("profile")
	}
	if pName == "" {
		pName = cfg.CurrentProfile
	}

	profile, err := cfg.GetProfile(pName)
	if err != nil {
		// Environment variables alone are enough to run a bundle.
		profile = &cliconfig.Profile{}
	}

	if env := viper.GetString("environment"); env != "" {
		profile.Environment = env
	}
	if dev := viper.GetString("developer"); dev != "" {
		profile.Developer = dev
	}
	if site := viper.GetString("website_id"); site != "" {
		profile.WebsiteID = site
	}
	if publicURL := viper.GetString("public_url"); publicURL != "" {
		profile.PublicURL = publicURL
	}
	if profile.Environment == "" {
		profile.Environment = "local"
	}

	return profile, nil
}
