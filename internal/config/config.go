package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/open-edge-platform/openwrt-sbom/internal/pkgfetcher"
	"github.com/open-edge-platform/openwrt-sbom/internal/utils/logger"
)

const (
	// DefaultPackagesFile is the package store expected inside the build directory.
	DefaultPackagesFile = "sbom-packages.json"
	// DefaultManifestSuffix is appended to the manifest name.
	DefaultManifestSuffix = "-cyclonedx.json"
)

// Options is the configuration of one generate run. It is filled once from
// flags and the global config and not modified afterwards.
type Options struct {
	BuildDir          string
	PackagesFile      string
	ExternalCPEs      string // path or http(s) URL
	OutputDir         string
	ManifestName      string
	ManifestSuffix    string
	ExcludeFile       string
	IgnoreErrFile     string
	Diff              bool
	IncludeNonCPEs    bool
	ErrOnNonCPE       bool
	WriteIntermediate bool
	WithPURL          bool
	SignKeyFile       string
	SignPassphrase    string
	VendorSentinel    string
	VendorGroup       string
	FetchTimeout      time.Duration
	ShowProgress      bool
	TempDir           string // parent of download directories; empty means os.TempDir
}

// Resolve validates o and returns a copy with absolute paths and defaults
// filled in. Every error it returns is a configuration error.
func (o Options) Resolve() (Options, error) {
	log := logger.Logger()

	o.BuildDir = strings.TrimSpace(o.BuildDir)
	if o.BuildDir == "" {
		return o, fmt.Errorf("no OpenWrt build directory given")
	}
	info, err := os.Stat(o.BuildDir)
	if err != nil || !info.IsDir() {
		return o, fmt.Errorf("invalid path for OpenWrt build directory: %s", o.BuildDir)
	}
	if o.BuildDir, err = filepath.Abs(o.BuildDir); err != nil {
		return o, fmt.Errorf("resolving build directory: %w", err)
	}

	if o.PackagesFile == "" {
		o.PackagesFile = filepath.Join(o.BuildDir, DefaultPackagesFile)
	}
	if o.OutputDir == "" {
		o.OutputDir = "sbom-output"
	}
	if o.OutputDir, err = filepath.Abs(strings.TrimSpace(o.OutputDir)); err != nil {
		return o, fmt.Errorf("resolving output directory: %w", err)
	}
	o.ManifestName = strings.TrimSpace(o.ManifestName)
	if o.ManifestName == "" {
		o.ManifestName = filepath.Base(o.BuildDir)
	}
	if o.ManifestSuffix == "" {
		o.ManifestSuffix = DefaultManifestSuffix
	}

	type fileCheck struct {
		desc string
		path *string
	}
	files := []fileCheck{
		{"package store", &o.PackagesFile},
		{"exclude list", &o.ExcludeFile},
		{"ignore error list", &o.IgnoreErrFile},
		{"signing key", &o.SignKeyFile},
	}
	if !pkgfetcher.IsURL(o.ExternalCPEs) {
		files = append(files, fileCheck{"external CPE file", &o.ExternalCPEs})
	}
	for _, f := range files {
		*f.path = strings.TrimSpace(*f.path)
		if *f.path == "" {
			continue
		}
		if err := checkFile(*f.path); err != nil {
			return o, fmt.Errorf("%s: %w", f.desc, err)
		}
	}

	if o.ErrOnNonCPE && o.ExcludeFile == "" && o.IgnoreErrFile == "" {
		log.Warnf("err_on_non_cpe flag passed, but no package excluded")
	}
	if o.VendorSentinel == "" {
		o.VendorSentinel = "adstec"
	}
	if o.VendorGroup == "" {
		o.VendorGroup = "Ads-tec"
	}
	return o, nil
}

func checkFile(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("file %s does not exist", path)
	}
	if info.IsDir() {
		return fmt.Errorf("%s is a directory", path)
	}
	return nil
}
