// Package cmd provides the assetpipe command-line interface.
//
// Configuration System:
//
//	Configuration is read from several sources with clear precedence:
//	1. Command-line flags (--config, --log-level, ...) - highest priority
//	2. ASSETPIPE_CONFIG_FILE environment variable - custom config file path
//	3. Individual environment variables (ASSETPIPE_ASSETS_CACHE_DIR, ...)
//	4. Configuration files (.assetpipe.yml) - lowest priority
//
// Environment Variables:
//
//	ASSETPIPE_CONFIG_FILE: Path to custom configuration file
//	ASSETPIPE_ASSETS_CACHE_DIR: Directory receiving minified bundles
//	ASSETPIPE_ASSETS_MINIFY: Enable/disable minification
//	ASSETPIPE_ASSETS_ISOLATION: goroutine or process
//	And the rest following the ASSETPIPE_<SECTION>_<OPTION> pattern
package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

var cfgFile string

// envKeys are bound explicitly so viper.Unmarshal sees them even when no
// config file sets the key.
var envKeys = []string{
	"assets.cache_dir",
	"assets.minify",
	"assets.search_roots",
	"assets.isolation",
	"assets.build_timeout",
	"assets.manifest",
	"log.level",
	"log.format",
}

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "assetpipe",
	Short: "Bundle, minify and render JavaScript and CSS asset groups",
	Long: `assetpipe groups JavaScript and CSS source files, builds one minified
bundle per group in an isolated worker and renders the HTML tags that
reference either the bundle or the original files.

Groups are declared in a YAML manifest (assets.yml by default):

  javascript:
    - files: [js/jquery, js/app]
      name: application
    - files: [js/users]
      scope: users
      sub_scopes: [index]

Quick Start:
  assetpipe build                 Build every declared asset type
  assetpipe render --type css     Print the tags for the global scope
  assetpipe watch                 Rebuild when sources change
  assetpipe clean                 Remove minified bundles`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

// flagKeys maps persistent flags to the configuration keys they override.
var flagKeys = map[string]string{
	"log-level":  "log.level",
	"log-format": "log.format",
	"manifest":   "assets.manifest",
}

func init() {
	cobra.OnInitialize(initConfig)

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (default is .assetpipe.yml, can also use ASSETPIPE_CONFIG_FILE env var)")
	flags.StringP("log-level", "l", "info", "log level (debug, info, warn, error)")
	flags.String("log-format", "text", "log format (text, json)")
	flags.String("manifest", "", "asset manifest (default is assets.yml)")
	bindFlags(viper.GetViper(), flags)
}

// bindFlags binds every flag listed in flagKeys to its configuration key.
func bindFlags(v *viper.Viper, flags *pflag.FlagSet) {
	flags.VisitAll(func(f *pflag.Flag) {
		if key, ok := flagKeys[f.Name]; ok {
			_ = v.BindPFlag(key, f)
		}
	})
}

// initConfig initializes the configuration system.
//
// Configuration file lookup (highest to lowest):
//  1. --config flag
//  2. ASSETPIPE_CONFIG_FILE environment variable
//  3. .assetpipe.yml in the current directory
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else if envConfigFile := os.Getenv("ASSETPIPE_CONFIG_FILE"); envConfigFile != "" {
		viper.SetConfigFile(envConfigFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName(".assetpipe")
	}

	viper.SetEnvPrefix("ASSETPIPE")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()
	for _, key := range envKeys {
		_ = viper.BindEnv(key)
	}

	// A missing config file is fine; defaults apply
	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}
