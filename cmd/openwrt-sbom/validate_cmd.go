package main

import (
	"fmt"
	"os"

	"github.com/open-edge-platform/openwrt-sbom/internal/config/manifest"
	"github.com/open-edge-platform/openwrt-sbom/internal/config/validate"
	"github.com/open-edge-platform/openwrt-sbom/internal/utils/logger"
	"github.com/spf13/cobra"
)

// Validate command flags
var (
	validateDiff bool
	validateKey  string
)

// createValidateCommand creates the validate subcommand
func createValidateCommand() *cobra.Command {
	validateCmd := &cobra.Command{
		Use:   "validate [flags] MANIFEST",
		Short: "Validate a generated SBOM",
		Long: `Validate checks an SBOM file against the CycloneDX 1.4 schema subset
this tool writes. With --diff the <MANIFEST>_diff list is checked as well,
and with --key the detached signature <MANIFEST>.asc is verified.`,
		Args: cobra.ExactArgs(1),
		RunE: executeValidate,
	}

	validateCmd.Flags().BoolVarP(&validateDiff, "diff", "d", false,
		"Also validate the diff list written next to the SBOM")
	validateCmd.Flags().StringVar(&validateKey, "key", "",
		"Armored OpenPGP key used to verify the SBOM signature")
	return validateCmd
}

// executeValidate handles the validate command logic
func executeValidate(cmd *cobra.Command, args []string) error {
	log := logger.Logger()
	manifestFile := args[0]

	log.Infof("validating SBOM file: %s", manifestFile)
	if err := validateFile(manifestFile, validate.ValidateCycloneDXJSON); err != nil {
		return fmt.Errorf("SBOM validation failed: %w", err)
	}

	if validateDiff {
		diffFile := manifest.DiffName(manifestFile)
		if err := validateFile(diffFile, validate.ValidateDiffJSON); err != nil {
			return fmt.Errorf("diff validation failed: %w", err)
		}
		log.Infof("✓ Diff list %s is valid", diffFile)
	}

	if validateKey != "" {
		sigFile := manifestFile + manifest.SignatureSuffix
		if err := manifest.VerifyFile(manifestFile, sigFile, validateKey); err != nil {
			return err
		}
		log.Infof("✓ Signature %s is valid", sigFile)
	}

	log.Infof("✓ SBOM validation successful for %s", manifestFile)
	fmt.Fprintf(cmd.OutOrStdout(), "%s: valid\n", manifestFile)
	return nil
}

func validateFile(path string, check func([]byte) error) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}
	return check(data)
}
