package ospackage

import (
	"strings"
)

// UnknownCPE marks a package without a CPE identifier.
const UnknownCPE = "unknown"

// Group classifies a package for reporting.
type Group int

const (
	GroupDefault Group = iota
	GroupNonCPE
	GroupVendor
)

func (g Group) String() string {
	switch g {
	case GroupNonCPE:
		return "Non-CPE"
	case GroupVendor:
		return "Vendor"
	default:
		return ""
	}
}

// PackageRecord holds the metadata of one package found in the build tree.
type PackageRecord struct {
	Name     string `json:"name" yaml:"name"`                         // e.g. "busybox"
	Version  string `json:"version" yaml:"version"`                   // e.g. "1.36.1-r2", may be empty
	License  string `json:"license" yaml:"license"`                   // free text, e.g. "GPL-2.0-only"
	Supplier string `json:"package_supplier" yaml:"package_supplier"` // e.g. "OpenWrt"
	CPEID    string `json:"cpe_id" yaml:"cpe_id"`                     // CPE URI, "unknown" or empty
	Group    Group  `json:"-" yaml:"-"`
}

// HasCPE reports whether the record carries a CPE identifier.
func (p *PackageRecord) HasCPE() bool {
	return p.CPEID != "" && p.CPEID != UnknownCPE
}

// CPEUnresolved reports whether the CPE is empty or still names an unknown
// product, which includes the "cpe:/a:unknown:unknown" placeholder.
func (p *PackageRecord) CPEUnresolved() bool {
	return p.CPEID == "" || strings.Contains(p.CPEID, UnknownCPE)
}

// Store maps package names to records and remembers insertion order.
type Store struct {
	order   []string
	records map[string]*PackageRecord
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{records: map[string]*PackageRecord{}}
}

// Add inserts or replaces the record stored under name. A replaced record
// keeps its original position.
func (s *Store) Add(name string, rec *PackageRecord) {
	if _, ok := s.records[name]; !ok {
		s.order = append(s.order, name)
	}
	s.records[name] = rec
}

// Get returns the record stored under name, or nil.
func (s *Store) Get(name string) *PackageRecord {
	return s.records[name]
}

// Has reports whether name is a key of the store.
func (s *Store) Has(name string) bool {
	_, ok := s.records[name]
	return ok
}

// Delete removes name from the store. It reports whether name was present.
func (s *Store) Delete(name string) bool {
	if _, ok := s.records[name]; !ok {
		return false
	}
	delete(s.records, name)
	for i, n := range s.order {
		if n == name {
			s.order = append(s.order[:i:i], s.order[i+1:]...)
			break
		}
	}
	return true
}

// Len returns the number of packages.
func (s *Store) Len() int {
	return len(s.order)
}

// Names returns the package names in insertion order.
func (s *Store) Names() []string {
	names := make([]string, len(s.order))
	copy(names, s.order)
	return names
}

// Each calls fn for every package in insertion order until fn returns false.
func (s *Store) Each(fn func(name string, rec *PackageRecord) bool) {
	for _, name := range s.Names() {
		if !fn(name, s.records[name]) {
			return
		}
	}
}

// Clone returns a deep copy of the store.
func (s *Store) Clone() *Store {
	c := &Store{
		order:   make([]string, len(s.order)),
		records: make(map[string]*PackageRecord, len(s.records)),
	}
	copy(c.order, s.order)
	for name, rec := range s.records {
		cp := *rec
		c.records[name] = &cp
	}
	return c
}
