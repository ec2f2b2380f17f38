package sbom

import (
	"context"
	"io"
	"os"
	"path/filepath"

	"github.com/open-edge-platform/openwrt-sbom/internal/config"
	"github.com/open-edge-platform/openwrt-sbom/internal/config/manifest"
	"github.com/open-edge-platform/openwrt-sbom/internal/ospackage"
	"github.com/open-edge-platform/openwrt-sbom/internal/pkgfetcher"
	"github.com/open-edge-platform/openwrt-sbom/internal/utils/general/slice"
	"github.com/open-edge-platform/openwrt-sbom/internal/utils/logger"
)

// Report section titles written by --write-intermediate.
const (
	ReportUpdatedCPEs = "External CPE ids applied"
	ReportExcluded    = "Excluded packages"
	ReportFiltered    = "Packages without CPE id"
	ReportNonCPE      = "Non-CPE components"
)

// State is the mutable state of one run. Stores are replaced, never shared
// between stages: Full and Filtered are independent copies of Store.
type State struct {
	Options config.Options

	Store    *ospackage.Store // after merge and exclude
	Full     *ospackage.Store // copy of Store before filtering
	Filtered *ospackage.Store // Store without Non-CPE packages

	Updated  []string
	Excluded []string
	Diff     []string
	Document *Document

	ManifestPath     string
	DiffPath         string
	SignaturePath    string
	IntermediatePath []string
}

// Run executes load, merge, exclude, filter, assemble and write. Nothing is
// written when any stage before writing fails.
func Run(ctx context.Context, opts config.Options) (*State, error) {
	log := logger.Logger()

	opts, err := opts.Resolve()
	if err != nil {
		return nil, newError(KindConfig, "validate options", err)
	}
	st := &State{Options: opts}
	vendor := Vendor{Sentinel: opts.VendorSentinel, Group: opts.VendorGroup}

	log.Infof("Loading packages from %s", opts.PackagesFile)
	if st.Store, err = ospackage.LoadStore(opts.PackagesFile); err != nil {
		return st, newError(KindConfig, "load package store", err)
	}

	if opts.ExternalCPEs != "" {
		cpes, err := LoadCPEMap(ctx, opts.ExternalCPEs, opts.TempDir, fetchOptions(opts))
		if err != nil {
			return st, newError(KindConfig, "load external CPEs", err)
		}
		st.Updated = MergeExternalCPEs(st.Store, cpes)
		log.Infof("Applied %d external CPE ids", len(st.Updated))
	}

	exclude, err := ReadPackageList(opts.ExcludeFile)
	if err != nil {
		return st, newError(KindConfig, "read exclude list", err)
	}
	st.Excluded = ExcludePackages(st.Store, exclude)

	ignore, err := ReadPackageList(opts.IgnoreErrFile)
	if err != nil {
		return st, newError(KindConfig, "read ignore error list", err)
	}

	st.Full = st.Store.Clone()
	st.Filtered = FilterNonCPE(st.Store.Clone())
	if opts.Diff {
		st.Diff = CalcDiff(st.Full, st.Filtered, vendor)
	}

	// Generate rewrites CPE ids and groups of target
	target := st.Filtered.Clone()
	if opts.IncludeNonCPEs {
		target = st.Full.Clone()
	}
	st.Document, err = Generate(target, AssembleOptions{
		ErrOnNonCPE: opts.ErrOnNonCPE,
		IgnoreErr:   ignore,
		Vendor:      vendor,
		WithPURL:    opts.WithPURL,
	})
	if err != nil {
		return st, err
	}

	st.ManifestPath = manifest.Name(opts.OutputDir, opts.ManifestName, opts.ManifestSuffix)
	log.Infof("Writing Manifest to %s", st.ManifestPath)
	if err := manifest.WriteCycloneDXToFile(st.Document, st.ManifestPath); err != nil {
		return st, newError(KindIO, "write manifest", err)
	}

	if opts.Diff {
		st.DiffPath = manifest.DiffName(st.ManifestPath)
		log.Infof("Writing Non-CPE list to %s", st.DiffPath)
		if err := manifest.WriteDiffToFile(st.Diff, st.DiffPath); err != nil {
			return st, newError(KindIO, "write diff", err)
		}
	}

	if opts.WriteIntermediate {
		if err := writeIntermediate(st, target); err != nil {
			return st, newError(KindIO, "write intermediate files", err)
		}
	}

	if opts.SignKeyFile != "" {
		st.SignaturePath, err = manifest.SignFile(st.ManifestPath, opts.SignKeyFile, []byte(opts.SignPassphrase))
		if err != nil {
			return st, newError(KindConfig, "sign manifest", err)
		}
		log.Infof("Signature written to %s", st.SignaturePath)
	}
	return st, nil
}

func fetchOptions(opts config.Options) pkgfetcher.Options {
	var progress io.Writer
	if opts.ShowProgress {
		progress = os.Stderr
	}
	return pkgfetcher.Options{Timeout: opts.FetchTimeout, Progress: progress}
}

// writeIntermediate dumps the package stores and the run report next to the
// manifest. target is the assembled store the document was generated from.
func writeIntermediate(st *State, target *ospackage.Store) error {
	dir, name := st.Options.OutputDir, st.Options.ManifestName

	packages := filepath.Join(dir, name+"-packages.json")
	if err := ospackage.WriteStore(st.Full, packages); err != nil {
		return err
	}
	withCPE := filepath.Join(dir, name+"-packages-cpe.json")
	if err := ospackage.WriteStore(st.Filtered, withCPE); err != nil {
		return err
	}

	report := logger.NewRunReport(name)
	report.Add(ReportUpdatedCPEs, st.Updated...)
	report.Add(ReportExcluded, st.Excluded...)
	report.Add(ReportFiltered, slice.Subtract(st.Full.Names(), st.Filtered.Names())...)
	report.Add(ReportNonCPE, reportNonCPE(target)...)
	reportPath, err := report.WriteToFile(dir)
	if err != nil {
		return err
	}

	st.IntermediatePath = []string{packages, withCPE, reportPath}
	return nil
}

func reportNonCPE(target *ospackage.Store) []string {
	names := []string{}
	target.Each(func(name string, rec *ospackage.PackageRecord) bool {
		if rec.Group == ospackage.GroupNonCPE {
			names = append(names, name)
		}
		return true
	})
	return names
}
