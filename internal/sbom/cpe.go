package sbom

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/open-edge-platform/openwrt-sbom/internal/config/validate"
	"github.com/open-edge-platform/openwrt-sbom/internal/ospackage"
	"github.com/open-edge-platform/openwrt-sbom/internal/pkgfetcher"
	"github.com/open-edge-platform/openwrt-sbom/internal/utils/logger"
	k8syaml "sigs.k8s.io/yaml"
)

// LoadCPEMap reads a package name to CPE id map from a local file or an
// http(s) URL. Remote files are downloaded into a temporary directory below
// tempDir, which is created when missing, and removed afterwards.
func LoadCPEMap(ctx context.Context, location, tempDir string, fetch pkgfetcher.Options) (map[string]string, error) {
	path := location
	if pkgfetcher.IsURL(location) {
		if tempDir != "" {
			if err := os.MkdirAll(tempDir, 0755); err != nil {
				return nil, fmt.Errorf("creating download directory: %w", err)
			}
		}
		tmp, err := os.MkdirTemp(tempDir, "openwrt-sbom-cpe-")
		if err != nil {
			return nil, fmt.Errorf("creating download directory: %w", err)
		}
		defer os.RemoveAll(tmp)

		path, err = pkgfetcher.FetchFile(ctx, location, tmp, fetch)
		if err != nil {
			return nil, err
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading external CPE file: %w", err)
	}
	return ParseCPEMap(data, filepath.Ext(path))
}

// ParseCPEMap decodes a CPE map. ext selects YAML for ".yaml" and ".yml";
// anything else must be JSON.
func ParseCPEMap(data []byte, ext string) (map[string]string, error) {
	switch strings.ToLower(ext) {
	case ".yaml", ".yml":
		converted, err := k8syaml.YAMLToJSON(data)
		if err != nil {
			return nil, fmt.Errorf("parsing external CPE file: %w", err)
		}
		data = converted
	}

	if err := validate.ValidateCPEMapJSON(data); err != nil {
		return nil, fmt.Errorf("external CPE file: %w", err)
	}

	cpes := map[string]string{}
	if err := json.Unmarshal(data, &cpes); err != nil {
		return nil, fmt.Errorf("parsing external CPE file: %w", err)
	}
	return cpes, nil
}

// MergeExternalCPEs overwrites the CPE id of every package whose name is a
// key of cpes and returns the names it updated, in store order.
func MergeExternalCPEs(store *ospackage.Store, cpes map[string]string) []string {
	log := logger.Logger()

	updated := []string{}
	store.Each(func(name string, rec *ospackage.PackageRecord) bool {
		if cpe, ok := cpes[name]; ok {
			log.Debugf("Set CPE of %s to %s", name, cpe)
			rec.CPEID = cpe
			updated = append(updated, name)
		}
		return true
	})
	return updated
}
