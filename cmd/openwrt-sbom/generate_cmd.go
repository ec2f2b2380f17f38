package main

import (
	"context"
	"fmt"
	"os"

	"github.com/open-edge-platform/openwrt-sbom/internal/config"
	"github.com/open-edge-platform/openwrt-sbom/internal/pkgfetcher"
	"github.com/open-edge-platform/openwrt-sbom/internal/sbom"
	"github.com/open-edge-platform/openwrt-sbom/internal/utils/logger"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// generateFlags holds the generate command flags
type generateFlags struct {
	options       config.Options
	passphraseEnv string
}

// flagAliases maps the single-dash long options of the original tool to
// their flag names.
var flagAliases = map[string]string{
	"ignore": "ignore_err_list",
	"err":    "err_on_non_cpe",
}

// createGenerateCommand creates the generate subcommand
func createGenerateCommand() *cobra.Command {
	flags := &generateFlags{}

	generateCmd := &cobra.Command{
		Use:   "generate [flags] --build OPENWRT_BUILD_DIR",
		Short: "Generate a CycloneDX SBOM for an OpenWrt build",
		Long: `Generate reads the package store of an OpenWrt build, merges external
CPE ids, removes excluded packages and writes a CycloneDX 1.4 SBOM.

Packages without a CPE id are left out unless --include_non_cpes is given.
With --err_on_non_cpe such packages abort the run with exit status 255
unless they are listed in --ignore_err_list.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return executeGenerate(cmd, flags)
		},
	}

	fs := generateCmd.Flags()
	fs.SetNormalizeFunc(normalizeFlagName)
	fs.StringVarP(&flags.options.BuildDir, "build", "b", "", "OpenWrt build directory")
	fs.StringVarP(&flags.options.PackagesFile, "packages", "p", "",
		"Package store file (default: <build>/"+config.DefaultPackagesFile+")")
	fs.StringVarP(&flags.options.ExternalCPEs, "append_external_cpes", "a", "",
		"JSON or YAML file or URL mapping package names to CPE ids")
	fs.StringVarP(&flags.options.OutputDir, "output", "o", "", "Output directory for the SBOM")
	fs.BoolVarP(&flags.options.Diff, "diff", "d", false, "Also write the list of packages without CPE id")
	fs.BoolVarP(&flags.options.IncludeNonCPEs, "include_non_cpes", "i", false, "Include packages without CPE id in the SBOM")
	fs.StringVar(&flags.options.IgnoreErrFile, "ignore_err_list", "", "File listing packages allowed to have no CPE id")
	fs.BoolVar(&flags.options.ErrOnNonCPE, "err_on_non_cpe", false, "Fail on packages without CPE id")
	fs.StringVarP(&flags.options.ManifestName, "name", "N", "", "Manifest name (default: name of the build directory)")
	fs.StringVarP(&flags.options.ExcludeFile, "exclude-packages", "E", "", "File listing packages to leave out")
	fs.BoolVarP(&flags.options.WriteIntermediate, "write-intermediate", "I", false, "Write the package stores and a report next to the SBOM")
	fs.BoolVar(&flags.options.WithPURL, "purl", false, "Add package URLs to the components")
	fs.StringVar(&flags.options.SignKeyFile, "sign-key", "", "Armored OpenPGP private key used to sign the SBOM")
	fs.StringVar(&flags.passphraseEnv, "sign-passphrase-env", "", "Environment variable holding the signing key passphrase")

	_ = generateCmd.MarkFlagRequired("build")
	return generateCmd
}

func normalizeFlagName(_ *pflag.FlagSet, name string) pflag.NormalizedName {
	if alias, ok := flagAliases[name]; ok {
		name = alias
	}
	return pflag.NormalizedName(name)
}

// generateOptions fills everything the flags left unset from the global config.
func generateOptions(flags *generateFlags) (config.Options, error) {
	opts := flags.options
	if opts.OutputDir == "" {
		dir, err := globalConfig.OutputDir()
		if err != nil {
			return opts, fmt.Errorf("resolving output directory: %w", err)
		}
		opts.OutputDir = dir
	}
	opts.ManifestSuffix = globalConfig.ManifestSuffix()
	opts.VendorSentinel = globalConfig.VendorSentinel()
	opts.VendorGroup = globalConfig.VendorGroup()
	opts.FetchTimeout = globalConfig.FetchTimeout()
	opts.ShowProgress = globalConfig.ShowProgress()
	if pkgfetcher.IsURL(opts.ExternalCPEs) {
		dir, err := globalConfig.CreateTempDir("downloads")
		if err != nil {
			return opts, fmt.Errorf("creating download directory: %w", err)
		}
		opts.TempDir = dir
	}

	if flags.passphraseEnv != "" {
		pass, ok := os.LookupEnv(flags.passphraseEnv)
		if !ok {
			return opts, fmt.Errorf("environment variable %s is not set", flags.passphraseEnv)
		}
		opts.SignPassphrase = pass
	}
	return opts, nil
}

// executeGenerate handles the generate command execution logic
func executeGenerate(cmd *cobra.Command, flags *generateFlags) error {
	log := logger.Logger()

	opts, err := generateOptions(flags)
	if err != nil {
		return &sbom.Error{Kind: sbom.KindConfig, Op: "generate", Err: err}
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	st, err := sbom.Run(ctx, opts)
	if err != nil {
		return err
	}

	log.Infof("SBOM with %d components written to %s", len(st.Document.Components), st.ManifestPath)
	if st.DiffPath != "" {
		log.Infof("%d packages without CPE id listed in %s", len(st.Diff), st.DiffPath)
	}
	return nil
}
