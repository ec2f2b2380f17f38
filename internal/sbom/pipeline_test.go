package sbom

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/open-edge-platform/openwrt-sbom/internal/config"
	"github.com/open-edge-platform/openwrt-sbom/internal/config/validate"
)

const testPackages = `{
    "busybox": {"name": "busybox", "version": "1.36.1", "license": "GPL-2.0", "package_supplier": "OpenWrt", "cpe_id": "cpe:/a:busybox:busybox"},
    "luci-base": {"name": "luci-base", "version": "git-24.1", "license": "Apache-2.0", "package_supplier": "OpenWrt", "cpe_id": "unknown"},
    "uhttpd": {"name": "uhttpd", "version": "2023-06-25", "license": "ISC", "package_supplier": "OpenWrt", "cpe_id": null},
    "ads-agent": {"name": "ads-agent", "version": "2.1", "license": "adstec", "package_supplier": "ads-tec", "cpe_id": ""}
}`

// newBuildDir returns an OpenWrt build directory holding testPackages and an
// empty output directory.
func newBuildDir(t *testing.T) (string, string) {
	t.Helper()
	root := t.TempDir()
	build := filepath.Join(root, "openwrt-x86")
	if err := os.MkdirAll(build, 0755); err != nil {
		t.Fatalf("failed to create build dir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(build, config.DefaultPackagesFile), []byte(testPackages), 0644); err != nil {
		t.Fatalf("failed to write package store: %v", err)
	}
	return build, filepath.Join(root, "out")
}

func writeTestFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write %s: %v", name, err)
	}
	return path
}

func readComponents(t *testing.T, path string) []map[string]interface{} {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read manifest: %v", err)
	}
	if err := validate.ValidateCycloneDXJSON(data); err != nil {
		t.Fatalf("manifest does not validate: %v", err)
	}
	var doc struct {
		Components []map[string]interface{} `json:"components"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		t.Fatalf("failed to parse manifest: %v", err)
	}
	return doc.Components
}

func componentNames(comps []map[string]interface{}) []string {
	names := []string{}
	for _, c := range comps {
		names = append(names, c["name"].(string))
	}
	return names
}

func TestRunDefault(t *testing.T) {
	build, out := newBuildDir(t)

	st, err := Run(context.Background(), config.Options{BuildDir: build, OutputDir: out, ManifestSuffix: "-cyclonedx.json"})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if st.ManifestPath != filepath.Join(out, "openwrt-x86-cyclonedx.json") {
		t.Errorf("unexpected manifest path %s", st.ManifestPath)
	}

	comps := readComponents(t, st.ManifestPath)
	if diff := cmp.Diff([]string{"busybox"}, componentNames(comps)); diff != "" {
		t.Errorf("components mismatch (-want +got):\n%s", diff)
	}
	if comps[0]["cpe"] != "cpe:/a:busybox:busybox:1.36.1" {
		t.Errorf("unexpected cpe %v", comps[0]["cpe"])
	}
	if _, err := os.Stat(st.ManifestPath + "_diff"); !os.IsNotExist(err) {
		t.Errorf("diff should only be written with Diff set")
	}
}

func TestRunDiffAndIncludeNonCPEs(t *testing.T) {
	build, out := newBuildDir(t)

	st, err := Run(context.Background(), config.Options{
		BuildDir:       build,
		OutputDir:      out,
		ManifestName:   "router",
		ManifestSuffix: ".json",
		Diff:           true,
		IncludeNonCPEs: true,
	})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	comps := readComponents(t, filepath.Join(out, "router.json"))
	if diff := cmp.Diff([]string{"busybox", "luci-base", "uhttpd", "ads-agent"}, componentNames(comps)); diff != "" {
		t.Errorf("components mismatch (-want +got):\n%s", diff)
	}
	groups := map[string]interface{}{}
	for _, c := range comps {
		groups[c["name"].(string)] = c["group"]
	}
	want := map[string]interface{}{"busybox": "", "luci-base": "Non-CPE", "uhttpd": "Non-CPE", "ads-agent": "Ads-tec"}
	if diff := cmp.Diff(want, groups); diff != "" {
		t.Errorf("groups mismatch (-want +got):\n%s", diff)
	}

	data, err := os.ReadFile(st.DiffPath)
	if err != nil {
		t.Fatalf("failed to read diff: %v", err)
	}
	if string(data) != "[\"luci-base\", \"uhttpd\"]\n" {
		t.Errorf("unexpected diff %q", data)
	}
	if st.Full.Get("luci-base").CPEID != "unknown" {
		t.Errorf("assembly must not modify the pipeline stores")
	}
}

func TestRunExcludeAndExternalCPEs(t *testing.T) {
	build, out := newBuildDir(t)
	exclude := writeTestFile(t, build, "exclude.txt", "[ads-agent]\n")
	cpes := writeTestFile(t, build, "cpes.yaml", "luci-base: cpe:/a:openwrt:luci\n")

	st, err := Run(context.Background(), config.Options{
		BuildDir:     build,
		OutputDir:    out,
		ExcludeFile:  exclude,
		ExternalCPEs: cpes,
		Diff:         true,
	})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if diff := cmp.Diff([]string{"ads-agent"}, st.Excluded); diff != "" {
		t.Errorf("excluded mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"luci-base"}, st.Updated); diff != "" {
		t.Errorf("updated mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"busybox", "luci-base"}, componentNames(readComponents(t, st.ManifestPath))); diff != "" {
		t.Errorf("components mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"uhttpd"}, st.Diff); diff != "" {
		t.Errorf("diff mismatch (-want +got):\n%s", diff)
	}
}

func TestRunStrictWithoutIgnoreList(t *testing.T) {
	build, out := newBuildDir(t)

	st, err := Run(context.Background(), config.Options{
		BuildDir:       build,
		OutputDir:      out,
		IncludeNonCPEs: true,
		ErrOnNonCPE:    true,
	})
	if err == nil {
		t.Fatalf("expected resolution error")
	}
	if ExitCode(err) != ExitAssembly {
		t.Errorf("exit code = %d, want %d", ExitCode(err), ExitAssembly)
	}
	if !strings.Contains(err.Error(), "luci-base has no CPE-ID") {
		t.Errorf("unexpected error %v", err)
	}
	if st.Document != nil {
		t.Errorf("no document should be built")
	}
	if _, err := os.Stat(out); !os.IsNotExist(err) {
		t.Errorf("nothing should be written on resolution failure")
	}
}

func TestRunStrictWithIgnoreList(t *testing.T) {
	build, out := newBuildDir(t)
	ignore := writeTestFile(t, build, "ignore.txt", "[luci-base, uhttpd, ads-agent]")

	st, err := Run(context.Background(), config.Options{
		BuildDir:       build,
		OutputDir:      out,
		IncludeNonCPEs: true,
		ErrOnNonCPE:    true,
		IgnoreErrFile:  ignore,
	})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	for _, c := range st.Document.Components {
		if c.Name == "luci-base" && (c.CPE != "cpe:/a:unknown:unknown:git-24.1" || c.Group != "Non-CPE") {
			t.Errorf("unexpected luci-base component %+v", c)
		}
	}
}

func TestRunConfigErrors(t *testing.T) {
	build, out := newBuildDir(t)

	tests := []struct {
		name string
		opts config.Options
	}{
		{"missing build dir", config.Options{BuildDir: filepath.Join(build, "missing"), OutputDir: out}},
		{"missing exclude list", config.Options{BuildDir: build, OutputDir: out, ExcludeFile: filepath.Join(build, "none.txt")}},
		{"missing package store", config.Options{BuildDir: build, OutputDir: out, PackagesFile: filepath.Join(build, "none.json")}},
		{"invalid external CPEs", config.Options{BuildDir: build, OutputDir: out, ExternalCPEs: writeTestFile(t, build, "bad.json", "[1]")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Run(context.Background(), tt.opts)
			if err == nil {
				t.Fatalf("expected error")
			}
			if KindOf(err) != KindConfig || ExitCode(err) != ExitConfig {
				t.Errorf("expected configuration error, got %v", err)
			}
		})
	}
}

func TestRunWriteIntermediate(t *testing.T) {
	build, out := newBuildDir(t)

	st, err := Run(context.Background(), config.Options{
		BuildDir:          build,
		OutputDir:         out,
		IncludeNonCPEs:    true,
		WriteIntermediate: true,
	})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	want := []string{
		filepath.Join(out, "openwrt-x86-packages.json"),
		filepath.Join(out, "openwrt-x86-packages-cpe.json"),
		filepath.Join(out, "openwrt-x86-report.txt"),
	}
	if diff := cmp.Diff(want, st.IntermediatePath); diff != "" {
		t.Fatalf("intermediate files mismatch (-want +got):\n%s", diff)
	}

	data, err := os.ReadFile(want[1])
	if err != nil {
		t.Fatalf("failed to read filtered store: %v", err)
	}
	if strings.Contains(string(data), "luci-base") {
		t.Errorf("filtered store should not contain luci-base:\n%s", data)
	}

	report, err := os.ReadFile(want[2])
	if err != nil {
		t.Fatalf("failed to read report: %v", err)
	}
	if !strings.Contains(string(report), "# "+ReportNonCPE+" (2)\nluci-base\nuhttpd\n") {
		t.Errorf("unexpected report:\n%s", report)
	}

	full, err := os.ReadFile(want[0])
	if err != nil {
		t.Fatalf("failed to read full store: %v", err)
	}
	if strings.Contains(string(full), `"cpe_id": ""`) || strings.Count(string(full), `"cpe_id": null`) != 2 {
		t.Errorf("missing CPE ids should be written as null:\n%s", full)
	}
}

func TestRunWriteIntermediateEmptyPackageName(t *testing.T) {
	build, out := newBuildDir(t)
	writeTestFile(t, build, config.DefaultPackagesFile, `{
    "busybox": {"name": "busybox", "version": "1.36.1", "license": "GPL-2.0", "package_supplier": "OpenWrt", "cpe_id": "cpe:/a:busybox:busybox"},
    "": {"name": "", "version": "1", "license": "MIT", "package_supplier": "OpenWrt", "cpe_id": "cpe:/a:x:y"}
}`)

	st, err := Run(context.Background(), config.Options{
		BuildDir:          build,
		OutputDir:         out,
		WriteIntermediate: true,
	})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if _, err := os.Stat(st.ManifestPath); err != nil {
		t.Errorf("manifest not written: %v", err)
	}
	data, err := os.ReadFile(st.IntermediatePath[0])
	if err != nil {
		t.Fatalf("failed to read full store: %v", err)
	}
	if !strings.Contains(string(data), `"": {`) {
		t.Errorf("package with empty name missing from store dump:\n%s", data)
	}
}

func TestRunWriteIntermediateAfterManifest(t *testing.T) {
	build, out := newBuildDir(t)
	// a directory in place of the store dump makes the intermediate step fail
	if err := os.MkdirAll(filepath.Join(out, "openwrt-x86-packages.json"), 0755); err != nil {
		t.Fatalf("failed to create blocking directory: %v", err)
	}

	st, err := Run(context.Background(), config.Options{
		BuildDir:          build,
		OutputDir:         out,
		Diff:              true,
		WriteIntermediate: true,
	})
	if KindOf(err) != KindIO {
		t.Fatalf("expected I/O error, got %v", err)
	}
	if _, err := os.Stat(st.ManifestPath); err != nil {
		t.Errorf("manifest should be written before intermediate files: %v", err)
	}
	if _, err := os.Stat(st.DiffPath); err != nil {
		t.Errorf("diff should be written before intermediate files: %v", err)
	}
}
