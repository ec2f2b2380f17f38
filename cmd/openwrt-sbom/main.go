package main

import (
	"fmt"
	"os"

	"github.com/open-edge-platform/openwrt-sbom/internal/sbom"
	utilsconfig "github.com/open-edge-platform/openwrt-sbom/internal/utils/config"
	"github.com/open-edge-platform/openwrt-sbom/internal/utils/logger"
	"github.com/spf13/cobra"
)

// Global flags
var (
	configFile string
	logLevel   string
	verbose    bool
)

// globalConfig is replaced once the config file has been read.
var globalConfig = utilsconfig.NewConfigHelpers(nil)

func main() {
	if _, err := logger.New("info", os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "Error initializing logger: %v\n", err)
		os.Exit(sbom.ExitConfig)
	}

	rootCmd := createRootCommand()
	if err := rootCmd.Execute(); err != nil {
		logger.Logger().Errorf("%v", err)
		os.Exit(sbom.ExitCode(err))
	}
}

// createRootCommand creates and configures the root command with all subcommands
func createRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "openwrt-sbom",
		Short: "Generate CycloneDX SBOMs for OpenWrt builds",
		Long: `openwrt-sbom turns the package metadata of an OpenWrt build into a
CycloneDX 1.4 JSON SBOM. Packages without a CPE id are filtered out or
reported, and an optional diff lists every package that still lacks one.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "",
		"Path to the global configuration file (default: ./"+utilsconfig.DefaultConfigFile+")")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "",
		"Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "enable-debug", "D", false,
		"Enable debug output")

	rootCmd.AddCommand(createGenerateCommand())
	rootCmd.AddCommand(createInspectCommand())
	rootCmd.AddCommand(createValidateCommand())

	attachLoggingHooks(rootCmd)
	return rootCmd
}

// attachLoggingHooks loads the global config and applies the log level before
// any subcommand runs.
func attachLoggingHooks(root *cobra.Command) {
	for _, cmd := range root.Commands() {
		cmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
			return setupRun(cmd)
		}
	}
}

func setupRun(cmd *cobra.Command) error {
	cfg, path, err := utilsconfig.Load(configFile)
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}
	globalConfig = utilsconfig.NewConfigHelpers(cfg)

	level := resolveRequestedLogLevel(cmd)
	if level == "" {
		level = globalConfig.LogLevel()
	}
	if err := logger.SetLevel(level); err != nil {
		return err
	}
	if path != "" {
		logger.Logger().Debugf("Using configuration file %s", path)
	}
	return nil
}

// resolveRequestedLogLevel returns the level asked for on the command line, or
// "" to fall back to the configuration file.
func resolveRequestedLogLevel(cmd *cobra.Command) string {
	if logLevel != "" {
		return logLevel
	}
	if cmd == nil {
		return ""
	}
	if flag := cmd.Flags().Lookup("enable-debug"); flag != nil && flag.Changed && flag.Value.String() == "true" {
		return "debug"
	}
	return ""
}
