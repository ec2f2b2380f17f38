package sbom

import (
	"strings"

	"github.com/open-edge-platform/openwrt-sbom/internal/ospackage"
	"github.com/open-edge-platform/openwrt-sbom/internal/utils/general/slice"
	"github.com/open-edge-platform/openwrt-sbom/internal/utils/logger"
)

// Vendor identifies packages owned by the device vendor. They are tracked
// internally and never reported as missing a CPE id.
type Vendor struct {
	Sentinel string // license substring, compared case-insensitively
	Group    string // component group label
}

// DefaultVendor is used when no vendor is configured.
var DefaultVendor = Vendor{Sentinel: "adstec", Group: "Ads-tec"}

// IsVendorOwned reports whether rec's license contains the vendor sentinel.
func IsVendorOwned(rec *ospackage.PackageRecord, v Vendor) bool {
	if v.Sentinel == "" {
		return false
	}
	return strings.Contains(strings.ToLower(rec.License), strings.ToLower(v.Sentinel))
}

// ExcludePackages removes every package whose name is in exclude and returns
// the removed names in store order.
func ExcludePackages(store *ospackage.Store, exclude []string) []string {
	log := logger.Logger()

	removed := []string{}
	if len(exclude) == 0 {
		return removed
	}
	set := slice.ToSet(exclude)
	for _, name := range store.Names() {
		if _, ok := set[name]; ok {
			log.Debugf("Remove excluded Package %s from list!", name)
			store.Delete(name)
			removed = append(removed, name)
		}
	}
	return removed
}

// FilterNonCPE removes every package whose CPE id is "unknown" or empty and
// returns the same store.
func FilterNonCPE(store *ospackage.Store) *ospackage.Store {
	log := logger.Logger()

	for _, name := range store.Names() {
		if !store.Get(name).HasCPE() {
			log.Debugf("Remove Non-CPE-Package: %s from list", name)
			store.Delete(name)
		}
	}
	return store
}

// CalcDiff returns the names in full that are missing from filtered, leaving
// out vendor-owned packages. Names keep the order of full.
func CalcDiff(full, filtered *ospackage.Store, v Vendor) []string {
	diff := []string{}
	full.Each(func(name string, rec *ospackage.PackageRecord) bool {
		if !filtered.Has(name) && !IsVendorOwned(rec, v) {
			diff = append(diff, name)
		}
		return true
	})
	return diff
}
