package sbom

import (
	"fmt"

	"github.com/CycloneDX/cyclonedx-go"
	"github.com/google/uuid"
	"github.com/open-edge-platform/openwrt-sbom/internal/ospackage"
	"github.com/open-edge-platform/openwrt-sbom/internal/utils/general/slice"
	"github.com/open-edge-platform/openwrt-sbom/internal/utils/logger"
	"github.com/package-url/packageurl-go"
)

// UnknownCPE replaces a missing CPE id in the written SBOM.
const UnknownCPE = "cpe:/a:unknown:unknown"

// Document is the CycloneDX 1.4 JSON document written by this tool.
type Document struct {
	BOMFormat    string      `json:"bomFormat"`
	Components   []Component `json:"components"`
	SerialNumber string      `json:"serialNumber"`
	SpecVersion  string      `json:"specVersion"`
	Version      int         `json:"version"`
}

// Component describes one package. The cpe field carries the version suffix.
type Component struct {
	CPE      string               `json:"cpe"`
	Group    string               `json:"group"`
	Licenses []LicenseChoice      `json:"licenses"`
	Name     string               `json:"name"`
	PURL     string               `json:"purl,omitempty"`
	Supplier OrganizationalEntity `json:"supplier"`
	Type     string               `json:"type"`
	Version  string               `json:"version"`
}

type LicenseChoice struct {
	License License `json:"license"`
}

type License struct {
	Name string `json:"name"`
}

type OrganizationalEntity struct {
	Name string `json:"name"`
}

// AssembleOptions controls CPE resolution and classification.
type AssembleOptions struct {
	// ErrOnNonCPE makes a package without CPE id fatal unless it is listed
	// in IgnoreErr.
	ErrOnNonCPE bool
	IgnoreErr   []string
	Vendor      Vendor
	WithPURL    bool
}

// NewDocument returns an empty document with the fixed header fields.
func NewDocument() *Document {
	return &Document{
		BOMFormat:    cyclonedx.BOMFormat,
		Components:   []Component{},
		SerialNumber: uuid.Nil.URN(),
		SpecVersion:  cyclonedx.SpecVersion1_4.String(),
		Version:      1,
	}
}

// GroupLabel returns the component group written for g.
func GroupLabel(g ospackage.Group, v Vendor) string {
	if g == ospackage.GroupVendor {
		return v.Group
	}
	return g.String()
}

// resolveCPE applies the missing-CPE policy to rec. It defaults the CPE id
// and classifies rec as Non-CPE, or fails under strict mode.
func resolveCPE(name string, rec *ospackage.PackageRecord, opts AssembleOptions) error {
	rec.Group = ospackage.GroupDefault
	if !rec.CPEUnresolved() {
		return nil
	}

	if opts.ErrOnNonCPE {
		if len(opts.IgnoreErr) == 0 {
			return fmt.Errorf("%s has no CPE-ID", name)
		}
		if !slice.Contains(opts.IgnoreErr, name) {
			return fmt.Errorf("%s not in ignore_err_list and has no CPE-ID", name)
		}
	}
	rec.CPEID = UnknownCPE
	rec.Group = ospackage.GroupNonCPE
	return nil
}

// Classify sets rec.Group by precedence: vendor ownership wins over a
// missing CPE id, which wins over the default.
func Classify(rec *ospackage.PackageRecord, v Vendor) ospackage.Group {
	if IsVendorOwned(rec, v) {
		rec.Group = ospackage.GroupVendor
	}
	return rec.Group
}

// Generate builds the document from store in store order. Packages sharing a
// name produce one component per distinct version. The records in store are
// updated with their resolved CPE id, version and group.
func Generate(store *ospackage.Store, opts AssembleOptions) (*Document, error) {
	log := logger.Logger()
	doc := NewDocument()
	versions := map[string][]string{}

	var failure error
	store.Each(func(name string, rec *ospackage.PackageRecord) bool {
		if err := resolveCPE(name, rec, opts); err != nil {
			log.Errorf("%v! Aborting...", err)
			failure = newError(KindResolution, "resolve CPE", err)
			return false
		}
		Classify(rec, opts.Vendor)

		if slice.Contains(versions[rec.Name], rec.Version) {
			return true
		}
		versions[rec.Name] = append(versions[rec.Name], rec.Version)

		doc.Components = append(doc.Components, newComponent(rec, opts))
		return true
	})
	if failure != nil {
		return nil, failure
	}
	return doc, nil
}

func newComponent(rec *ospackage.PackageRecord, opts AssembleOptions) Component {
	c := Component{
		Type:     string(cyclonedx.ComponentTypeApplication),
		Supplier: OrganizationalEntity{Name: rec.Supplier},
		Group:    GroupLabel(rec.Group, opts.Vendor),
		Name:     rec.Name,
		Version:  rec.Version,
		Licenses: []LicenseChoice{{License: License{Name: rec.License}}},
		CPE:      rec.CPEID + ":" + rec.Version,
	}
	if opts.WithPURL {
		c.PURL = packageurl.NewPackageURL(packageurl.TypeGeneric, "openwrt", rec.Name, rec.Version, nil, "").ToString()
	}
	return c
}
